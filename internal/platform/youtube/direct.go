package youtube

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	youtubeapi "google.golang.org/api/youtube/v3"

	"github.com/JungesAngebot/platform-connectors/internal/connectorerr"
	"github.com/JungesAngebot/platform-connectors/internal/descriptor"
	"github.com/JungesAngebot/platform-connectors/internal/mapping"
	"github.com/JungesAngebot/platform-connectors/internal/platform"
	"github.com/JungesAngebot/platform-connectors/internal/registry"
)

// OAuthConfig is the static half of the per-mapping refresh-token exchange;
// only the refresh token itself varies per mapping (stored in
// mapping.target_id), per spec.md §6.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
}

// DirectAdapter authenticates per call by exchanging the mapping's refresh
// token for a short-lived access token; there is no content-owner/channel
// indirection and no claim step, per spec.md §4.7.
type DirectAdapter struct {
	cfg OAuthConfig
}

// NewDirectAdapter builds a Direct adapter from the static OAuth app
// credentials; the per-mapping refresh token is supplied at call time.
func NewDirectAdapter(cfg OAuthConfig) *DirectAdapter {
	return &DirectAdapter{cfg: cfg}
}

func (a *DirectAdapter) serviceFor(ctx context.Context, refreshToken string) (*youtubeapi.Service, error) {
	conf := &oauth2.Config{
		ClientID:     a.cfg.ClientID,
		ClientSecret: a.cfg.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: a.cfg.TokenURL},
	}
	tokenSource := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	client := oauth2.NewClient(ctx, tokenSource)
	svc, err := youtubeapi.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("youtube direct: build client: %w", err)
	}
	return svc, nil
}

// Upload inserts the video directly on the caller's own channel.
func (a *DirectAdapter) Upload(ctx context.Context, entry *registry.Entry, video *descriptor.Descriptor, m *mapping.Record) (*platform.Result, error) {
	if entry.TargetPlatformVideoID != "" {
		return nil, connectorerr.New(connectorerr.PreconditionFailed, "youtube direct upload: target_platform_video_id already set")
	}
	if entry.IntermediateState != registry.IntermediateUploading {
		return nil, connectorerr.New(connectorerr.PreconditionFailed, "youtube direct upload: intermediate_state must be uploading")
	}

	svc, err := a.serviceFor(ctx, m.TargetID)
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.PermanentRemote, "youtube direct upload: oauth exchange failed", err)
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

	call := svc.Videos.Insert([]string{"snippet", "status"}, v)
	inserted, err := insertVideoCall(ctx, call, video.Filename)
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.PermanentRemote, "youtube direct upload: resumable insert failed", err)
	}

	result := &platform.Result{TargetPlatformVideoID: inserted.Id}
	if video.ImageFilename != "" {
		f, ferr := openFile(video.ImageFilename)
		if ferr != nil {
			result.Message = "Warning: thumbnail unavailable: " + ferr.Error()
			result.Warning = true
		} else {
			_, terr := svc.Thumbnails.Set(inserted.Id).Media(f).Context(ctx).Do()
			f.Close()
			if terr != nil {
				result.Message = "Warning while setting thumbnail: " + terr.Error()
				result.Warning = true
			}
		}
	}
	return result, nil
}

// Update patches title/description/tags after the shared tamper guard.
func (a *DirectAdapter) Update(ctx context.Context, entry *registry.Entry, video *descriptor.Descriptor, m *mapping.Record) (*platform.Result, error) {
	svc, err := a.serviceFor(ctx, m.TargetID)
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.PermanentRemote, "youtube direct update: oauth exchange failed", err)
	}
	return updateSnippet(ctx, svc, entry, video, "")
}

// Unpublish sets privacyStatus=private. Delete is an alias, per spec.md §4.7.
func (a *DirectAdapter) Unpublish(ctx context.Context, entry *registry.Entry, m *mapping.Record) (*platform.Result, error) {
	svc, err := a.serviceFor(ctx, m.TargetID)
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.PermanentRemote, "youtube direct unpublish: oauth exchange failed", err)
	}
	return unpublishVideo(ctx, svc, entry, "")
}

func (a *DirectAdapter) Delete(ctx context.Context, entry *registry.Entry, m *mapping.Record) (*platform.Result, error) {
	return a.Unpublish(ctx, entry, m)
}
