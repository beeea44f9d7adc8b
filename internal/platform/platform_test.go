package platform

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JungesAngebot/platform-connectors/internal/descriptor"
	"github.com/JungesAngebot/platform-connectors/internal/mapping"
	"github.com/JungesAngebot/platform-connectors/internal/registry"
)

type stubAdapter struct {
	uploadErr error
}

func (s stubAdapter) Upload(context.Context, *registry.Entry, *descriptor.Descriptor, *mapping.Record) (*Result, error) {
	if s.uploadErr != nil {
		return nil, s.uploadErr
	}
	return &Result{TargetPlatformVideoID: "vid-1"}, nil
}
func (s stubAdapter) Update(context.Context, *registry.Entry, *descriptor.Descriptor, *mapping.Record) (*Result, error) {
	return &Result{}, nil
}
func (s stubAdapter) Unpublish(context.Context, *registry.Entry, *mapping.Record) (*Result, error) {
	return &Result{}, nil
}
func (s stubAdapter) Delete(context.Context, *registry.Entry, *mapping.Record) (*Result, error) {
	return &Result{}, nil
}

func TestRouter_DispatchesToAdapterForPlatform(t *testing.T) {
	router := NewRouter(stubAdapter{}, stubAdapter{}, stubAdapter{}, false)
	entry := &registry.Entry{TargetPlatform: registry.PlatformYouTubeDirect}

	result, err := router.Upload(context.Background(), entry, &descriptor.Descriptor{}, &mapping.Record{})
	require.NoError(t, err)
	assert.Equal(t, "vid-1", result.TargetPlatformVideoID)
}

func TestRouter_UnknownDestinationReturnsErrUnknownDestination(t *testing.T) {
	router := NewRouter(stubAdapter{}, nil, stubAdapter{}, false)
	entry := &registry.Entry{TargetPlatform: registry.PlatformYouTube}

	_, err := router.Upload(context.Background(), entry, &descriptor.Descriptor{}, &mapping.Record{})
	assert.True(t, errors.Is(err, ErrUnknownDestination))
}

func TestRouter_TestModeInstallsNoopAdapterForEveryPlatform(t *testing.T) {
	router := NewRouter(nil, nil, nil, true)
	entry := &registry.Entry{RegistryID: "r1", TargetPlatform: registry.PlatformFacebook}

	result, err := router.Upload(context.Background(), entry, &descriptor.Descriptor{}, &mapping.Record{})
	require.NoError(t, err)
	assert.Equal(t, "test-r1", result.TargetPlatformVideoID)
}

func TestRouter_PropagatesAdapterFailure(t *testing.T) {
	router := NewRouter(stubAdapter{uploadErr: errors.New("boom")}, stubAdapter{}, stubAdapter{}, false)
	entry := &registry.Entry{TargetPlatform: registry.PlatformFacebook}

	_, err := router.Upload(context.Background(), entry, &descriptor.Descriptor{}, &mapping.Record{})
	assert.EqualError(t, err, "boom")
}
