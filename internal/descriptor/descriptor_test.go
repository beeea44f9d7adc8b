package descriptor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JungesAngebot/platform-connectors/internal/asset"
)

func TestBuild_PrefersFlavourSourceURLOverDownloadURL(t *testing.T) {
	raw := &asset.RawVideo{
		Title:            "title",
		Description:      "description",
		Tags:             "one, two ,three",
		FlavourSourceURL: "https://flavour.example/video",
		DownloadURL:      "https://legacy.example/video",
	}
	d, err := Build("video-1", raw)
	require.NoError(t, err)
	assert.Equal(t, "https://flavour.example/video", d.DownloadURL)
	assert.Equal(t, []string{"one", "two", "three"}, d.Keywords)
	assert.Equal(t, HashCode("title", "description"), d.HashCode)
}

func TestBuild_FallsBackToDownloadURL(t *testing.T) {
	raw := &asset.RawVideo{Title: "t", DownloadURL: "https://legacy.example/video"}
	d, err := Build("video-1", raw)
	require.NoError(t, err)
	assert.Equal(t, "https://legacy.example/video", d.DownloadURL)
}

func TestBuild_FailsWithoutAnyDownloadURL(t *testing.T) {
	_, err := Build("video-1", &asset.RawVideo{Title: "t"})
	assert.Error(t, err)
}

func TestHashCode_OrderIsTitleThenDescription(t *testing.T) {
	assert.Equal(t, HashCode("a", "b"), HashCode("a", "b"))
	assert.NotEqual(t, HashCode("a", "b"), HashCode("b", "a"))
}

func TestDownloadCaptions_FailureClearsFilenameWithoutError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d := &Descriptor{CaptionsURL: srv.URL, CaptionsFilename: "whatever.srt"}
	DownloadCaptions(context.Background(), srv.Client(), d, t.TempDir())
	assert.Empty(t, d.CaptionsFilename)
}

func TestDownloadCaptions_SuccessRewritesFilenameToFullPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("1\n00:00:00,000 --> 00:00:01,000\nhello\n"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := &Descriptor{CaptionsURL: srv.URL, CaptionsFilename: "captions.srt"}
	DownloadCaptions(context.Background(), srv.Client(), d, dir)
	assert.Equal(t, filepath.Join(dir, "captions.srt"), d.CaptionsFilename)
	_, err := os.Stat(d.CaptionsFilename)
	require.NoError(t, err)
}

func TestCleanup_IgnoresMissingFiles(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present.txt")
	require.NoError(t, os.WriteFile(present, []byte("x"), 0o644))
	missing := filepath.Join(dir, "missing.txt")

	err := Cleanup(present, missing, "")
	require.NoError(t, err)
	_, statErr := os.Stat(present)
	assert.True(t, os.IsNotExist(statErr))
}
