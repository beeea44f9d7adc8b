// Package facebook implements the Facebook platform adapter: chunked
// resumable upload, tamper-guarded metadata update, and unpublish (which
// also serves as delete). Grounded on xg2g's openwebif.Client for the
// shaped-timeout-plus-fixed-retry HTTP pattern, adapted from its Enigma2
// REST calls to Facebook's Graph API video upload protocol.
package facebook

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/JungesAngebot/platform-connectors/internal/connectorerr"
	"github.com/JungesAngebot/platform-connectors/internal/descriptor"
	"github.com/JungesAngebot/platform-connectors/internal/log"
	"github.com/JungesAngebot/platform-connectors/internal/mapping"
	"github.com/JungesAngebot/platform-connectors/internal/metrics"
	"github.com/JungesAngebot/platform-connectors/internal/platform"
	"github.com/JungesAngebot/platform-connectors/internal/registry"
)

const (
	chunkTimeout     = 45 * time.Second
	chunkRetries     = 5
	chunkRetrySleep  = 2 * time.Second
	scheduledPublish = 150 * 24 * time.Hour
	graphBaseURL     = "https://graph-video.facebook.com/v19.0"
	graphMetaURL     = "https://graph.facebook.com/v19.0"

	defaultChunkRPS   = 10
	defaultChunkBurst = 10
)

// Adapter talks to Facebook's Graph API video endpoints.
type Adapter struct {
	http    *http.Client
	base    string
	meta    string
	limiter *rate.Limiter
}

// New builds a Facebook adapter. httpClient may be nil, in which case
// http.DefaultClient is used. Chunk transfers are throttled to
// defaultChunkRPS/s to stay under Facebook's per-app upload rate limits.
func New(httpClient *http.Client) *Adapter {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Adapter{
		http:    httpClient,
		base:    graphBaseURL,
		meta:    graphMetaURL,
		limiter: rate.NewLimiter(rate.Limit(defaultChunkRPS), defaultChunkBurst),
	}
}

// Upload drives the three-phase resumable upload: start, transfer loop,
// finish. Preconditions per spec.md §4.5: target_platform_video_id empty,
// intermediate_state == uploading.
func (a *Adapter) Upload(ctx context.Context, entry *registry.Entry, video *descriptor.Descriptor, m *mapping.Record) (*platform.Result, error) {
	if entry.TargetPlatformVideoID != "" {
		return nil, connectorerr.New(connectorerr.PreconditionFailed, "facebook upload: target_platform_video_id already set")
	}
	if entry.IntermediateState != registry.IntermediateUploading {
		return nil, connectorerr.New(connectorerr.PreconditionFailed, "facebook upload: intermediate_state must be uploading")
	}

	f, err := os.Open(video.Filename)
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.PermanentRemote, "facebook upload: cannot open source file", err)
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.PermanentRemote, "facebook upload: cannot stat source file", err)
	}
	fileSize := stat.Size()

	session, err := a.startSession(ctx, m.TargetID, fileSize)
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.PermanentRemote, "facebook upload: start phase failed", err)
	}

	start, end := session.StartOffset, session.EndOffset
	for end > start {
		chunk := make([]byte, end-start)
		if _, err := f.ReadAt(chunk, start); err != nil && err != io.EOF {
			return nil, connectorerr.Wrap(connectorerr.PermanentRemote, "facebook upload: read chunk failed", err)
		}
		next, err := a.transferChunkWithRetry(ctx, m.TargetID, session.UploadSessionID, start, chunk)
		if err != nil {
			return nil, connectorerr.Wrap(connectorerr.PermanentRemote, "facebook upload: transfer phase failed", err)
		}
		start, end = next.StartOffset, next.EndOffset
	}

	if err := a.finish(ctx, m.TargetID, session.UploadSessionID, video); err != nil {
		return nil, connectorerr.Wrap(connectorerr.PermanentRemote, "facebook upload: finish phase failed", err)
	}

	result := &platform.Result{TargetPlatformVideoID: session.VideoID}

	if video.ImageFilename != "" {
		if err := a.uploadThumbnail(ctx, m.TargetID, session.VideoID, video); err != nil {
			log.WithComponent("platform.facebook").Warn().Err(err).Msg("thumbnail upload failed")
			result.Message = "Warning: thumbnail upload failed: " + err.Error()
			result.Warning = true
		}
	}

	if video.CaptionsFilename != "" {
		if err := a.uploadCaptions(ctx, m.TargetID, session.VideoID, video); err != nil {
			log.WithComponent("platform.facebook").Warn().Err(err).Msg("captions upload failed")
			result.Message = "Warning: captions upload failed: " + err.Error()
			result.Warning = true
		}
	}
	return result, nil
}

type startResponse struct {
	UploadSessionID string `json:"upload_session_id"`
	VideoID         string `json:"video_id"`
	StartOffset     int64  `json:"start_offset,string"`
	EndOffset       int64  `json:"end_offset,string"`
}

func (a *Adapter) startSession(ctx context.Context, accessToken string, fileSize int64) (*startResponse, error) {
	form := url.Values{
		"upload_phase": {"start"},
		"access_token": {accessToken},
		"file_size":    {strconv.FormatInt(fileSize, 10)},
	}
	var out startResponse
	if err := a.post(ctx, fmt.Sprintf("%s/%s/videos", a.base, "me"), form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *Adapter) transferChunkWithRetry(ctx context.Context, accessToken, sessionID string, offset int64, chunk []byte) (*startResponse, error) {
	var lastErr error
	for attempt := 0; attempt < chunkRetries; attempt++ {
		reqCtx, cancel := context.WithTimeout(ctx, chunkTimeout)
		out, err := a.transferChunk(reqCtx, accessToken, sessionID, offset, chunk)
		cancel()
		if err == nil {
			metrics.ObserveUploadChunk("facebook", "ok")
			return out, nil
		}
		lastErr = err
		metrics.ObserveUploadChunk("facebook", "retry")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(chunkRetrySleep):
		}
	}
	metrics.ObserveUploadChunk("facebook", "failed")
	return nil, fmt.Errorf("chunk transfer exhausted %d retries: %w", chunkRetries, lastErr)
}

func (a *Adapter) transferChunk(ctx context.Context, accessToken, sessionID string, offset int64, chunk []byte) (*startResponse, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	form := url.Values{
		"upload_phase":      {"transfer"},
		"access_token":      {accessToken},
		"upload_session_id": {sessionID},
		"start_offset":      {strconv.FormatInt(offset, 10)},
	}
	var out startResponse
	if err := a.postMultipart(ctx, fmt.Sprintf("%s/%s/videos", a.base, "me"), form, "video_file_chunk", chunk, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *Adapter) finish(ctx context.Context, accessToken, sessionID string, video *descriptor.Descriptor) error {
	form := url.Values{
		"upload_phase":           {"finish"},
		"access_token":           {accessToken},
		"upload_session_id":      {sessionID},
		"title":                  {video.Title},
		"description":            {video.Description},
		"published":              {"false"},
		"scheduled_publish_time": {strconv.FormatInt(time.Now().Add(scheduledPublish).Unix(), 10)},
	}
	var out struct {
		Success bool `json:"success"`
	}
	if err := a.post(ctx, fmt.Sprintf("%s/%s/videos", a.base, "me"), form, &out); err != nil {
		return err
	}
	if !out.Success {
		return fmt.Errorf("finish phase reported failure")
	}
	return nil
}

// uploadThumbnail attaches the locally persisted thumbnail as the video's
// cover image via Facebook's separate thumbnails endpoint, a follow-up
// multipart call to the start/transfer/finish upload rather than part of
// finish's form-encoded body.
func (a *Adapter) uploadThumbnail(ctx context.Context, accessToken, videoID string, video *descriptor.Descriptor) error {
	if video.ImageFilename == "" {
		return nil
	}
	f, err := os.Open(video.ImageFilename)
	if err != nil {
		return err
	}
	defer f.Close()
	body, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	form := url.Values{
		"access_token": {accessToken},
		"is_preferred": {"true"},
	}
	var out struct {
		Success bool `json:"success"`
	}
	return a.postMultipart(ctx, fmt.Sprintf("%s/%s/thumbnails", a.meta, videoID), form, "source", body, &out)
}

func (a *Adapter) uploadCaptions(ctx context.Context, accessToken, videoID string, video *descriptor.Descriptor) error {
	if video.CaptionsFilename == "" {
		return nil
	}
	f, err := os.Open(video.CaptionsFilename)
	if err != nil {
		return err
	}
	defer f.Close()
	body, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	form := url.Values{
		"access_token": {accessToken},
		"locale":       {"en_US"},
	}
	var out struct {
		Success bool `json:"success"`
	}
	return a.postMultipart(ctx, fmt.Sprintf("%s/%s/captions", a.meta, videoID), form, "captions_file", body, &out)
}

// Update fetches the remote title/description, computes the tamper-guard
// hash, and only PATCHes when it still matches the registry's last known
// hash, per spec.md §4.5.
func (a *Adapter) Update(ctx context.Context, entry *registry.Entry, video *descriptor.Descriptor, m *mapping.Record) (*platform.Result, error) {
	if entry.TargetPlatformVideoID == "" {
		return nil, connectorerr.New(connectorerr.PreconditionFailed, "facebook update: target_platform_video_id is empty")
	}
	if entry.IntermediateState != registry.IntermediateUpdating {
		return nil, connectorerr.New(connectorerr.PreconditionFailed, "facebook update: intermediate_state must be updating")
	}

	if video.HashCode == entry.VideoHashCode {
		return &platform.Result{Skipped: true}, nil
	}

	remote, err := a.fetchMetadata(ctx, m.TargetID, entry.TargetPlatformVideoID)
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.PermanentRemote, "facebook update: fetch metadata failed", err)
	}
	sum := md5.Sum([]byte(remote.Title + remote.Description))
	remoteHash := hex.EncodeToString(sum[:])
	if remoteHash != entry.VideoHashCode {
		log.WithComponent("platform.facebook").Warn().Str("registry_id", entry.RegistryID).Msg("remote metadata tampered, skipping update")
		return &platform.Result{Skipped: true}, nil
	}

	form := url.Values{
		"access_token": {m.TargetID},
		"title":        {video.Title},
		"description":  {video.Description},
	}
	var out struct {
		Success bool `json:"success"`
	}
	if err := a.post(ctx, fmt.Sprintf("%s/%s", a.meta, entry.TargetPlatformVideoID), form, &out); err != nil {
		return nil, connectorerr.Wrap(connectorerr.PermanentRemote, "facebook update: patch failed", err)
	}
	return &platform.Result{}, nil
}

type remoteMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (a *Adapter) fetchMetadata(ctx context.Context, accessToken, videoID string) (*remoteMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/%s?fields=title,description&access_token=%s", a.meta, videoID, url.QueryEscape(accessToken)), nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var out remoteMetadata
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Unpublish sets expire_now=true on the remote video. Delete is an alias:
// this system never actually deletes remote content, per spec.md §4.5.
func (a *Adapter) Unpublish(ctx context.Context, entry *registry.Entry, m *mapping.Record) (*platform.Result, error) {
	if entry.TargetPlatformVideoID == "" {
		return nil, connectorerr.New(connectorerr.PreconditionFailed, "facebook unpublish: target_platform_video_id is empty")
	}
	if entry.IntermediateState != registry.IntermediateUnpublishing && entry.IntermediateState != registry.IntermediateDeleting {
		return nil, connectorerr.New(connectorerr.PreconditionFailed, "facebook unpublish: intermediate_state must be unpublishing or deleting")
	}

	form := url.Values{
		"access_token": {m.TargetID},
		"expire_now":   {"true"},
	}
	var out struct {
		Success bool `json:"success"`
	}
	if err := a.post(ctx, fmt.Sprintf("%s/%s", a.meta, entry.TargetPlatformVideoID), form, &out); err != nil {
		return nil, connectorerr.Wrap(connectorerr.PermanentRemote, "facebook unpublish failed", err)
	}
	return &platform.Result{}, nil
}

// Delete forwards to Unpublish, per spec.md §4.5.
func (a *Adapter) Delete(ctx context.Context, entry *registry.Entry, m *mapping.Record) (*platform.Result, error) {
	return a.Unpublish(ctx, entry, m)
}

func (a *Adapter) post(ctx context.Context, rawURL string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (a *Adapter) postMultipart(ctx context.Context, rawURL string, form url.Values, fileField string, file []byte, out interface{}) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, vs := range form {
		for _, v := range vs {
			if err := mw.WriteField(k, v); err != nil {
				return err
			}
		}
	}
	fw, err := mw.CreateFormFile(fileField, "chunk")
	if err != nil {
		return err
	}
	if _, err := fw.Write(file); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(b))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
