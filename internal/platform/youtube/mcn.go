package youtube

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	youtubeapi "google.golang.org/api/youtube/v3"
	youtubepartner "google.golang.org/api/youtubepartner/v1"

	"github.com/JungesAngebot/platform-connectors/internal/connectorerr"
	"github.com/JungesAngebot/platform-connectors/internal/descriptor"
	"github.com/JungesAngebot/platform-connectors/internal/log"
	"github.com/JungesAngebot/platform-connectors/internal/mapping"
	"github.com/JungesAngebot/platform-connectors/internal/platform"
	"github.com/JungesAngebot/platform-connectors/internal/registry"
)

const claimPolicyID = "default-worldwide-monetize"

// MCNAdapter authenticates with a service-account key and drives both the
// standard Data API and the Content ID partner API, per spec.md §4.6.
type MCNAdapter struct {
	videos  *youtubeapi.Service
	partner *youtubepartner.Service
}

// NewMCNAdapter builds the two API clients from a service-account key file.
func NewMCNAdapter(ctx context.Context, serviceAccountKeyPath string) (*MCNAdapter, error) {
	opts := option.WithCredentialsFile(serviceAccountKeyPath)
	videos, err := youtubeapi.NewService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("youtube mcn: build videos client: %w", err)
	}
	partner, err := youtubepartner.NewService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("youtube mcn: build partner client: %w", err)
	}
	return &MCNAdapter{videos: videos, partner: partner}, nil
}

func (a *MCNAdapter) contentOwnerID(ctx context.Context) (string, error) {
	resp, err := a.partner.ContentOwners.List().Fetchmine(true).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("content owner lookup: %w", err)
	}
	if len(resp.Items) == 0 {
		return "", fmt.Errorf("no content owner returned for this credential")
	}
	return resp.Items[0].Id, nil
}

// Upload inserts the video on behalf of the mapping's channel, under the
// caller's content owner, then attempts the Content ID claim. A claim
// failure is a success-with-warning, per spec.md §4.6 step 5.
func (a *MCNAdapter) Upload(ctx context.Context, entry *registry.Entry, video *descriptor.Descriptor, m *mapping.Record) (*platform.Result, error) {
	if entry.TargetPlatformVideoID != "" {
		return nil, connectorerr.New(connectorerr.PreconditionFailed, "youtube mcn upload: target_platform_video_id already set")
	}
	if entry.IntermediateState != registry.IntermediateUploading {
		return nil, connectorerr.New(connectorerr.PreconditionFailed, "youtube mcn upload: intermediate_state must be uploading")
	}

	ownerID, err := a.contentOwnerID(ctx)
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.PermanentRemote, "youtube mcn upload: content owner lookup failed", err)
	}

	v := &youtubeapi.Video{
		Snippet: &youtubeapi.VideoSnippet{
			Title:       video.Title,
			Description: video.Description,
			Tags:        video.Keywords,
			CategoryId:  "22",
		},
		Status: &youtubeapi.VideoStatus{PrivacyStatus: "private"},
	}

	call := a.videos.Videos.Insert([]string{"snippet", "status"}, v).
		OnBehalfOfContentOwner(ownerID).
		OnBehalfOfContentOwnerChannel(m.TargetID)

	inserted, err := insertVideoCall(ctx, call, video.Filename)
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.PermanentRemote, "youtube mcn upload: resumable insert failed", err)
	}

	result := &platform.Result{TargetPlatformVideoID: inserted.Id}

	if video.ImageFilename != "" {
		if err := a.uploadThumbnail(ctx, ownerID, inserted.Id, video.ImageFilename); err != nil {
			log.WithComponent("platform.youtube.mcn").Warn().Err(err).Msg("thumbnail upload failed")
			result.Message = "Warning while setting thumbnail: " + err.Error()
			result.Warning = true
		}
	}

	if err := a.claim(ctx, ownerID, inserted.Id, video); err != nil {
		log.WithComponent("platform.youtube.mcn").Warn().Err(err).Msg("claim failed")
		if result.Message != "" {
			result.Message += " | "
		}
		result.Message += "Warning while setting policies: " + err.Error()
		result.Warning = true
	}

	return result, nil
}

func (a *MCNAdapter) uploadThumbnail(ctx context.Context, ownerID, videoID, imageFilename string) error {
	f, err := openFile(imageFilename)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = a.videos.Thumbnails.Set(videoID).OnBehalfOfContentOwner(ownerID).Media(f).Context(ctx).Do()
	return err
}

// claim creates a partner asset mirroring the video's metadata, assigns it
// full worldwide ownership, then binds it to the video with a fixed
// monetization policy, per spec.md §4.6 step 5.
func (a *MCNAdapter) claim(ctx context.Context, ownerID, videoID string, video *descriptor.Descriptor) error {
	asset := &youtubepartner.Asset{
		Type: "web",
		Metadata: &youtubepartner.Metadata{
			Title:       video.Title,
			Description: video.Description,
		},
	}
	createdAsset, err := a.partner.Assets.Insert(asset).OnBehalfOfContentOwner(ownerID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("create partner asset: %w", err)
	}

	ownership := &youtubepartner.RightsOwnership{
		General: []*youtubepartner.TerritoryOwners{
			{Owner: ownerID, Ratio: 100, Territories: []string{"WORLDWIDE"}},
		},
	}
	if _, err := a.partner.Ownership.Update(createdAsset.Id, ownership).OnBehalfOfContentOwner(ownerID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("set ownership: %w", err)
	}

	claim := &youtubepartner.Claim{
		AssetId:     createdAsset.Id,
		VideoId:     videoID,
		ContentType: "audiovisual",
		PolicyId:    claimPolicyID,
	}
	if _, err := a.partner.Claims.Insert(claim).OnBehalfOfContentOwner(ownerID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("bind claim: %w", err)
	}
	return nil
}

// Update patches title/description/tags after the shared tamper guard.
func (a *MCNAdapter) Update(ctx context.Context, entry *registry.Entry, video *descriptor.Descriptor, m *mapping.Record) (*platform.Result, error) {
	ownerID, err := a.contentOwnerID(ctx)
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.PermanentRemote, "youtube mcn update: content owner lookup failed", err)
	}
	return updateSnippet(ctx, a.videos, entry, video, ownerID)
}

// Unpublish sets privacyStatus=private. Delete is an alias, per spec.md §4.6.
func (a *MCNAdapter) Unpublish(ctx context.Context, entry *registry.Entry, m *mapping.Record) (*platform.Result, error) {
	ownerID, err := a.contentOwnerID(ctx)
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.PermanentRemote, "youtube mcn unpublish: content owner lookup failed", err)
	}
	return unpublishVideo(ctx, a.videos, entry, ownerID)
}

func (a *MCNAdapter) Delete(ctx context.Context, entry *registry.Entry, m *mapping.Record) (*platform.Result, error) {
	return a.Unpublish(ctx, entry, m)
}
