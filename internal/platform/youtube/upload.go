// Package youtube holds the resumable-upload helper shared by the MCN and
// Direct adapters, plus the tamper-detection and unpublish logic common to
// both, grounded on xg2g's openwebif.Client retry loop (fixed backoff
// around a blocking call, metrics per attempt) generalized to the uniform
// random backoff the YouTube Data API's resumable protocol expects.
package youtube

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"os"
	"time"

	"google.golang.org/api/googleapi"
	youtubeapi "google.golang.org/api/youtube/v3"

	"github.com/JungesAngebot/platform-connectors/internal/connectorerr"
	"github.com/JungesAngebot/platform-connectors/internal/log"
	"github.com/JungesAngebot/platform-connectors/internal/metrics"
)

const (
	uploadChunkSize  = 512 * 1024 * 1024
	maxUploadRetries = 10
)

// retryableStatus reports whether an HTTP status code from the resumable
// upload protocol should be retried, per spec.md §4.6.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// openFile is the single os.Open call site the resumable insert retries
// around; kept as its own function so both adapters share one error
// wrapping for "source file missing".
func openFile(filename string) (*os.File, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.PermanentRemote, "youtube upload: cannot open source file", err)
	}
	return f, nil
}

// insertVideoCall drives a prebuilt VideosInsertCall (already carrying
// whatever OnBehalfOf* options the caller chained on) through the outer
// exponential-backoff retry loop spec.md §4.6 names: sleep a uniform
// random duration in [0, 2^retry) seconds, up to 10 retries, on a
// retryable HTTP status or a transient I/O error. Non-retryable errors are
// fatal immediately. filename is reopened on every attempt since the
// underlying reader is consumed by a failed call.
func insertVideoCall(ctx context.Context, call *youtubeapi.VideosInsertCall, filename string) (*youtubeapi.Video, error) {
	var lastErr error
	for attempt := 0; attempt <= maxUploadRetries; attempt++ {
		f, err := openFile(filename)
		if err != nil {
			return nil, err
		}

		result, err := call.Media(f, googleapi.ChunkSize(uploadChunkSize)).Context(ctx).Do()
		f.Close()

		if err == nil {
			metrics.ObserveUploadChunk("youtube", "ok")
			return result, nil
		}

		lastErr = err
		if !isRetryable(err) {
			metrics.ObserveUploadChunk("youtube", "failed")
			return nil, err
		}
		metrics.ObserveUploadChunk("youtube", "retry")
		if attempt == maxUploadRetries {
			break
		}
		sleep := time.Duration(rand.Int63n(int64(math.Pow(2, float64(attempt))))) * time.Second
		log.WithComponent("platform.youtube").Warn().Err(err).Int("attempt", attempt).Dur("sleep", sleep).Msg("resumable upload retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
	}
	return nil, fmt.Errorf("resumable upload exhausted %d retries: %w", maxUploadRetries, lastErr)
}

func isRetryable(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.Code)
	}
	// Anything else (connection reset, timeout, EOF mid-stream) is treated
	// as a transient I/O error, per spec.md §4.6.
	return true
}

// hashTitleDescription is the tamper-detection formula both adapters share:
// hex md5 of the remote title concatenated with the remote description.
func hashTitleDescription(title, description string) string {
	sum := md5.Sum([]byte(title + description))
	return hex.EncodeToString(sum[:])
}
