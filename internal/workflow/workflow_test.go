package workflow

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JungesAngebot/platform-connectors/internal/asset"
	"github.com/JungesAngebot/platform-connectors/internal/descriptor"
	"github.com/JungesAngebot/platform-connectors/internal/mapping"
	"github.com/JungesAngebot/platform-connectors/internal/platform"
	"github.com/JungesAngebot/platform-connectors/internal/registry"
)

// fakeCatalog serves a single canned asset.RawVideo, mirroring the
// teacher's fakes-over-mocks style in orchestrator_test.go.
type fakeCatalog struct {
	raw   *asset.RawVideo
	calls int
}

func (f *fakeCatalog) FetchVideo(_ context.Context, _ string) (*asset.RawVideo, error) {
	f.calls++
	return f.raw, nil
}

// fakeAdapter records which operations were invoked and returns canned
// results, standing in for every platform.Adapter implementation.
type fakeAdapter struct {
	uploadResult *platform.Result
	uploadErr    error
	updateResult *platform.Result
	updateErr    error

	uploadCalled bool
	updateCalled bool
}

func (f *fakeAdapter) Upload(_ context.Context, _ *registry.Entry, _ *descriptor.Descriptor, _ *mapping.Record) (*platform.Result, error) {
	f.uploadCalled = true
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	if f.uploadResult != nil {
		return f.uploadResult, nil
	}
	return &platform.Result{TargetPlatformVideoID: "remote-1"}, nil
}

func (f *fakeAdapter) Update(_ context.Context, _ *registry.Entry, _ *descriptor.Descriptor, _ *mapping.Record) (*platform.Result, error) {
	f.updateCalled = true
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if f.updateResult != nil {
		return f.updateResult, nil
	}
	return &platform.Result{}, nil
}

func (f *fakeAdapter) Unpublish(_ context.Context, _ *registry.Entry, _ *mapping.Record) (*platform.Result, error) {
	return &platform.Result{}, nil
}

func (f *fakeAdapter) Delete(_ context.Context, entry *registry.Entry, m *mapping.Record) (*platform.Result, error) {
	return f.Unpublish(context.Background(), entry, m)
}

func newTestRunner(t *testing.T, catalog asset.Catalog, adapter platform.Adapter, reg *registry.MemoryStore, mapStore *mapping.MemoryStore) *Runner {
	t.Helper()
	router := platform.NewRouter(adapter, adapter, adapter, false)
	dir := t.TempDir()
	return &Runner{
		Registry:   reg,
		Mapping:    mapStore,
		Catalog:    catalog,
		Router:     router,
		HTTPClient: http.DefaultClient,
		WorkDir:    dir,
	}
}

func TestRun_NotifiedUpdate_DownloadsUploadsAndActivates(t *testing.T) {
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("mpeg-bytes"))
	}))
	defer media.Close()

	catalog := &fakeCatalog{raw: &asset.RawVideo{
		Title:            "a title",
		Description:      "a description",
		FlavourSourceURL: media.URL,
	}}
	adapter := &fakeAdapter{}
	reg := registry.NewMemoryStore()
	mapStore := mapping.NewMemoryStore(&mapping.Record{MappingID: "m1", TargetID: "chan-1", TargetPlatform: "facebook"})

	entry := &registry.Entry{
		RegistryID:     "r1",
		VideoID:        "v1",
		MappingID:      "m1",
		TargetPlatform: registry.PlatformFacebook,
		Status:         registry.StatusNotified,
	}
	require.NoError(t, reg.Save(context.Background(), entry))

	runner := newTestRunner(t, catalog, adapter, reg, mapStore)
	outcome := runner.Run(context.Background(), "r1", EventUpdate)

	assert.Equal(t, OutcomeSuccess, outcome)
	assert.True(t, adapter.uploadCalled)

	saved, err := reg.Load(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, registry.StatusActive, saved.Status)
	assert.Equal(t, registry.IntermediateNone, saved.IntermediateState)
	assert.Equal(t, "remote-1", saved.TargetPlatformVideoID)
	assert.Equal(t, descriptor.HashCode("a title", "a description"), saved.VideoHashCode)
}

func TestRun_ActiveUpdate_SkippedLeavesHashCodeUntouched(t *testing.T) {
	catalog := &fakeCatalog{raw: &asset.RawVideo{
		Title:            "same title",
		Description:      "same description",
		FlavourSourceURL: "http://unused.example/video",
	}}
	hash := descriptor.HashCode("same title", "same description")
	adapter := &fakeAdapter{updateResult: &platform.Result{Skipped: true}}
	reg := registry.NewMemoryStore()
	mapStore := mapping.NewMemoryStore(&mapping.Record{MappingID: "m1", TargetID: "chan-1", TargetPlatform: "facebook"})

	entry := &registry.Entry{
		RegistryID:            "r2",
		VideoID:               "v2",
		MappingID:             "m1",
		TargetPlatform:        registry.PlatformFacebook,
		TargetPlatformVideoID: "remote-2",
		Status:                registry.StatusActive,
		VideoHashCode:         hash,
	}
	require.NoError(t, reg.Save(context.Background(), entry))

	runner := newTestRunner(t, catalog, adapter, reg, mapStore)
	outcome := runner.Run(context.Background(), "r2", EventUpdate)

	assert.Equal(t, OutcomeSuccess, outcome)
	assert.True(t, adapter.updateCalled)

	saved, err := reg.Load(context.Background(), "r2")
	require.NoError(t, err)
	assert.Equal(t, registry.StatusActive, saved.Status)
	assert.Equal(t, hash, saved.VideoHashCode)
}

func TestRun_DownloadFailure_NoFlavorSourceURL(t *testing.T) {
	catalog := &fakeCatalog{raw: &asset.RawVideo{Title: "t", Description: "d"}}
	adapter := &fakeAdapter{}
	reg := registry.NewMemoryStore()
	mapStore := mapping.NewMemoryStore(&mapping.Record{MappingID: "m1", TargetID: "chan-1", TargetPlatform: "facebook"})

	entry := &registry.Entry{
		RegistryID:     "r3",
		VideoID:        "v3",
		MappingID:      "m1",
		TargetPlatform: registry.PlatformFacebook,
		Status:         registry.StatusNotified,
	}
	require.NoError(t, reg.Save(context.Background(), entry))

	runner := newTestRunner(t, catalog, adapter, reg, mapStore)
	outcome := runner.Run(context.Background(), "r3", EventUpdate)

	assert.Equal(t, OutcomeError, outcome)
	assert.False(t, adapter.uploadCalled)

	saved, err := reg.Load(context.Background(), "r3")
	require.NoError(t, err)
	assert.Equal(t, registry.StatusError, saved.Status)
	assert.Contains(t, saved.Message, "No flavor source url")
}

func TestRun_ErrorResume_ReentersDownloadingNotUpdating(t *testing.T) {
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("mpeg-bytes"))
	}))
	defer media.Close()

	catalog := &fakeCatalog{raw: &asset.RawVideo{
		Title:            "t",
		Description:      "d",
		FlavourSourceURL: media.URL,
	}}
	adapter := &fakeAdapter{}
	reg := registry.NewMemoryStore()
	mapStore := mapping.NewMemoryStore(&mapping.Record{MappingID: "m1", TargetID: "chan-1", TargetPlatform: "facebook"})

	entry := &registry.Entry{
		RegistryID:        "r4",
		VideoID:           "v4",
		MappingID:         "m1",
		TargetPlatform:    registry.PlatformFacebook,
		Status:            registry.StatusError,
		IntermediateState: registry.IntermediateUploading,
	}
	require.NoError(t, reg.Save(context.Background(), entry))

	runner := newTestRunner(t, catalog, adapter, reg, mapStore)
	outcome := runner.Run(context.Background(), "r4", EventUpdate)

	assert.Equal(t, OutcomeSuccess, outcome)
	assert.True(t, adapter.uploadCalled)
	assert.False(t, adapter.updateCalled)

	saved, err := reg.Load(context.Background(), "r4")
	require.NoError(t, err)
	assert.Equal(t, registry.StatusActive, saved.Status)
}

func TestRun_UnmatchedTransition_IgnoredAsSuccess(t *testing.T) {
	catalog := &fakeCatalog{}
	adapter := &fakeAdapter{}
	reg := registry.NewMemoryStore()
	mapStore := mapping.NewMemoryStore()

	entry := &registry.Entry{
		RegistryID:     "r5",
		VideoID:        "v5",
		TargetPlatform: registry.PlatformFacebook,
		Status:         registry.StatusDeleted,
	}
	require.NoError(t, reg.Save(context.Background(), entry))

	runner := newTestRunner(t, catalog, adapter, reg, mapStore)
	outcome := runner.Run(context.Background(), "r5", EventUpdate)

	assert.Equal(t, OutcomeSuccess, outcome)
	assert.False(t, adapter.uploadCalled)
	assert.False(t, adapter.updateCalled)
	assert.Equal(t, 0, catalog.calls)

	saved, err := reg.Load(context.Background(), "r5")
	require.NoError(t, err)
	assert.Equal(t, registry.StatusDeleted, saved.Status)
}

func TestRun_DeleteOnAlreadyDeletedIsIdempotent(t *testing.T) {
	catalog := &fakeCatalog{}
	adapter := &fakeAdapter{}
	reg := registry.NewMemoryStore()
	mapStore := mapping.NewMemoryStore(&mapping.Record{MappingID: "m1", TargetID: "chan-1", TargetPlatform: "facebook"})

	entry := &registry.Entry{
		RegistryID:            "r6",
		VideoID:               "v6",
		MappingID:             "m1",
		TargetPlatform:        registry.PlatformFacebook,
		TargetPlatformVideoID: "remote-6",
		Status:                registry.StatusDeleted,
	}
	require.NoError(t, reg.Save(context.Background(), entry))

	runner := newTestRunner(t, catalog, adapter, reg, mapStore)
	outcome := runner.Run(context.Background(), "r6", EventDelete)

	assert.Equal(t, OutcomeSuccess, outcome)

	saved, err := reg.Load(context.Background(), "r6")
	require.NoError(t, err)
	assert.Equal(t, registry.StatusDeleted, saved.Status)
}
