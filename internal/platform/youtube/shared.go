package youtube

import (
	"context"

	youtubeapi "google.golang.org/api/youtube/v3"

	"github.com/JungesAngebot/platform-connectors/internal/connectorerr"
	"github.com/JungesAngebot/platform-connectors/internal/descriptor"
	"github.com/JungesAngebot/platform-connectors/internal/log"
	"github.com/JungesAngebot/platform-connectors/internal/platform"
	"github.com/JungesAngebot/platform-connectors/internal/registry"
)

// updateSnippet implements the update operation shared by both adapters:
// fetch the remote snippet, tamper-check it against the registry's last
// known hash, and only patch title/description/tags when it still
// matches, per spec.md §4.6-4.7. ownerID is empty for the Direct adapter,
// which has no content-owner indirection.
func updateSnippet(ctx context.Context, svc *youtubeapi.Service, entry *registry.Entry, video *descriptor.Descriptor, ownerID string) (*platform.Result, error) {
	if entry.TargetPlatformVideoID == "" {
		return nil, connectorerr.New(connectorerr.PreconditionFailed, "youtube update: target_platform_video_id is empty")
	}
	if entry.IntermediateState != registry.IntermediateUpdating {
		return nil, connectorerr.New(connectorerr.PreconditionFailed, "youtube update: intermediate_state must be updating")
	}

	if video.HashCode == entry.VideoHashCode {
		return &platform.Result{Skipped: true}, nil
	}

	listCall := svc.Videos.List([]string{"snippet"}).Id(entry.TargetPlatformVideoID)
	if ownerID != "" {
		listCall = listCall.OnBehalfOfContentOwner(ownerID)
	}
	resp, err := listCall.Context(ctx).Do()
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.PermanentRemote, "youtube update: fetch snippet failed", err)
	}
	if len(resp.Items) == 0 {
		return nil, connectorerr.New(connectorerr.NotFound, "youtube update: remote video missing")
	}
	remote := resp.Items[0].Snippet

	remoteHash := hashTitleDescription(remote.Title, remote.Description)
	if remoteHash != entry.VideoHashCode {
		log.WithComponent("platform.youtube").Warn().Str("registry_id", entry.RegistryID).Msg("remote metadata tampered, skipping update")
		return &platform.Result{Skipped: true}, nil
	}

	remote.Title = video.Title
	remote.Description = video.Description
	remote.Tags = video.Keywords

	updateCall := svc.Videos.Update([]string{"snippet"}, &youtubeapi.Video{
		Id:      entry.TargetPlatformVideoID,
		Snippet: remote,
	})
	if ownerID != "" {
		updateCall = updateCall.OnBehalfOfContentOwner(ownerID)
	}
	if _, err := updateCall.Context(ctx).Do(); err != nil {
		return nil, connectorerr.Wrap(connectorerr.PermanentRemote, "youtube update: patch failed", err)
	}
	return &platform.Result{}, nil
}

// unpublishVideo implements the unpublish/delete operation shared by both
// adapters: fetch the status part, set privacyStatus=private, update.
func unpublishVideo(ctx context.Context, svc *youtubeapi.Service, entry *registry.Entry, ownerID string) (*platform.Result, error) {
	if entry.TargetPlatformVideoID == "" {
		return nil, connectorerr.New(connectorerr.PreconditionFailed, "youtube unpublish: target_platform_video_id is empty")
	}
	if entry.IntermediateState != registry.IntermediateUnpublishing && entry.IntermediateState != registry.IntermediateDeleting {
		return nil, connectorerr.New(connectorerr.PreconditionFailed, "youtube unpublish: intermediate_state must be unpublishing or deleting")
	}

	listCall := svc.Videos.List([]string{"status"}).Id(entry.TargetPlatformVideoID)
	if ownerID != "" {
		listCall = listCall.OnBehalfOfContentOwner(ownerID)
	}
	resp, err := listCall.Context(ctx).Do()
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.PermanentRemote, "youtube unpublish: fetch status failed", err)
	}
	if len(resp.Items) == 0 {
		return nil, connectorerr.New(connectorerr.NotFound, "youtube unpublish: remote video missing")
	}
	status := resp.Items[0].Status
	status.PrivacyStatus = "private"

	updateCall := svc.Videos.Update([]string{"status"}, &youtubeapi.Video{
		Id:     entry.TargetPlatformVideoID,
		Status: status,
	})
	if ownerID != "" {
		updateCall = updateCall.OnBehalfOfContentOwner(ownerID)
	}
	if _, err := updateCall.Context(ctx).Do(); err != nil {
		return nil, connectorerr.Wrap(connectorerr.PermanentRemote, "youtube unpublish: patch failed", err)
	}
	return &platform.Result{}, nil
}
