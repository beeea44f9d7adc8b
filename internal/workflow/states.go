package workflow

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/JungesAngebot/platform-connectors/internal/connectorerr"
	"github.com/JungesAngebot/platform-connectors/internal/descriptor"
	"github.com/JungesAngebot/platform-connectors/internal/log"
	"github.com/JungesAngebot/platform-connectors/internal/registry"
)

// runDownloading fetches the catalog record, builds the descriptor,
// downloads the source media plus its thumbnail/captions side-channels,
// and stamps video_hash_code before handing off to runUploading. The only
// other writer of that field is runUpdating, after an Update that was not
// skipped.
func (r *Runner) runDownloading(ctx context.Context, entry *registry.Entry) error {
	entry.IntermediateState = registry.IntermediateDownloading
	if err := r.persist(ctx, entry); err != nil {
		return err
	}

	raw, err := r.Catalog.FetchVideo(ctx, entry.VideoID)
	if err != nil {
		return connectorerr.Wrap(connectorerr.NotFound, "asset lookup failed", err)
	}

	video, err := descriptor.Build(entry.VideoID, raw)
	if err != nil {
		return err
	}

	if err := r.downloadMedia(ctx, video); err != nil {
		return err
	}

	if r.Thumbnails != nil {
		if err := descriptor.PersistThumbnail(ctx, r.Thumbnails, video, r.WorkDir); err != nil {
			log.WithComponent("workflow").Warn().Err(err).Str("registry_id", entry.RegistryID).Msg("thumbnail persist failed")
			video.ImageFilename = ""
		}
	}
	descriptor.DownloadCaptions(ctx, r.HTTPClient, video, r.WorkDir)

	entry.VideoHashCode = video.HashCode

	return r.runUploading(ctx, entry, video)
}

func (r *Runner) downloadMedia(ctx context.Context, video *descriptor.Descriptor) error {
	client := r.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, video.DownloadURL, nil)
	if err != nil {
		return connectorerr.Wrap(connectorerr.PermanentRemote, "media download failed", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return connectorerr.Wrap(connectorerr.PermanentRemote, "media download failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return connectorerr.New(connectorerr.PermanentRemote, "media download returned non-200 status")
	}

	dst, err := os.Create(filepath.Join(r.WorkDir, video.Filename))
	if err != nil {
		return connectorerr.Wrap(connectorerr.PermanentRemote, "media write failed", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, resp.Body); err != nil {
		return connectorerr.Wrap(connectorerr.PermanentRemote, "media write failed", err)
	}
	video.Filename = filepath.Join(r.WorkDir, video.Filename)
	return nil
}

// runUploading persists the uploading intermediate state, invokes the
// platform router, and on success advances to the terminal Active state —
// preserving an adapter-set warning message rather than overwriting it,
// per spec.md §4.8 step 4.
func (r *Runner) runUploading(ctx context.Context, entry *registry.Entry, video *descriptor.Descriptor) error {
	entry.IntermediateState = registry.IntermediateUploading
	if err := r.persist(ctx, entry); err != nil {
		return err
	}

	m, err := r.loadMapping(ctx, entry)
	if err != nil {
		return err
	}

	result, err := r.Router.Upload(ctx, entry, video, m)
	if err != nil {
		return err
	}

	entry.TargetPlatformVideoID = result.TargetPlatformVideoID
	message := result.Message
	if message == "" {
		message = "published"
	}
	return r.terminal(ctx, entry, registry.StatusActive, message, video)
}

// runActivate handles update→inactive, which re-activates the entry
// without re-running the upload, per spec.md §4.8's entry-point table.
func (r *Runner) runActivate(ctx context.Context, entry *registry.Entry) error {
	return r.terminal(ctx, entry, registry.StatusActive, "reactivated", nil)
}

// runUpdating fetches the asset again to recompute the descriptor (so the
// tamper-guard hash reflects current catalog content), then delegates the
// PATCH decision to the platform adapter.
func (r *Runner) runUpdating(ctx context.Context, entry *registry.Entry) error {
	entry.IntermediateState = registry.IntermediateUpdating
	if err := r.persist(ctx, entry); err != nil {
		return err
	}

	raw, err := r.Catalog.FetchVideo(ctx, entry.VideoID)
	if err != nil {
		return connectorerr.Wrap(connectorerr.NotFound, "asset lookup failed", err)
	}
	video, err := descriptor.Build(entry.VideoID, raw)
	if err != nil {
		return err
	}

	m, err := r.loadMapping(ctx, entry)
	if err != nil {
		return err
	}

	result, err := r.Router.Update(ctx, entry, video, m)
	if err != nil {
		return err
	}

	if !result.Skipped {
		entry.VideoHashCode = video.HashCode
	}
	message := result.Message
	if message == "" {
		message = entry.Message
	}
	return r.terminal(ctx, entry, registry.StatusActive, message, nil)
}

// runUnpublish expires the remote copy and moves the entry to Inactive.
func (r *Runner) runUnpublish(ctx context.Context, entry *registry.Entry) error {
	entry.IntermediateState = registry.IntermediateUnpublishing
	if err := r.persist(ctx, entry); err != nil {
		return err
	}

	m, err := r.loadMapping(ctx, entry)
	if err != nil {
		return err
	}
	if _, err := r.Router.Unpublish(ctx, entry, m); err != nil {
		return err
	}
	return r.terminal(ctx, entry, registry.StatusInactive, "unpublished", nil)
}

// runDeleting is reachable from any status; it unpublishes (this system
// never truly deletes remote content) and moves the entry to Deleted
// without clearing target_platform_video_id, per spec.md's Open Question
// on the Deleting transition.
func (r *Runner) runDeleting(ctx context.Context, entry *registry.Entry) error {
	entry.IntermediateState = registry.IntermediateDeleting
	if err := r.persist(ctx, entry); err != nil {
		return err
	}

	if entry.TargetPlatformVideoID != "" {
		m, err := r.loadMapping(ctx, entry)
		if err != nil {
			return err
		}
		if _, err := r.Router.Delete(ctx, entry, m); err != nil {
			return err
		}
	}
	return r.terminal(ctx, entry, registry.StatusDeleted, "deleted", nil)
}
