// Package descriptor builds the in-memory video descriptor from an asset
// catalog record and drives its two side-channel downloads (thumbnail,
// captions), per spec.md §4.2-4.3. It has no identity beyond the run that
// created it.
package descriptor

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JungesAngebot/platform-connectors/internal/asset"
	"github.com/JungesAngebot/platform-connectors/internal/connectorerr"
	"github.com/JungesAngebot/platform-connectors/internal/log"
	"github.com/google/renameio/v2"
	"github.com/google/uuid"
)

// Descriptor is the transient, per-run snapshot built from the asset catalog.
type Descriptor struct {
	Title       string
	Description string
	Keywords    []string
	DownloadURL string

	ImageID       string
	ImageFilename string

	CaptionsURL      string
	CaptionsFilename string

	Filename string
	HashCode string
}

// Build constructs a Descriptor for videoID from the catalog's raw
// document, reproducing every rule spec.md §4.2 names. Random suffixes on
// every filename prevent collisions across concurrent retries of the same
// video id.
func Build(videoID string, raw *asset.RawVideo) (*Descriptor, error) {
	downloadURL := raw.FlavourSourceURL
	if downloadURL == "" {
		downloadURL = raw.DownloadURL
	}
	if downloadURL == "" {
		return nil, connectorerr.Wrap(connectorerr.PermanentRemote, "No flavor source url", asset.ErrMalformed)
	}

	d := &Descriptor{
		Title:       raw.Title,
		Description: raw.Description,
		Keywords:    splitKeywords(raw.Tags),
		DownloadURL: downloadURL,
		ImageID:     raw.ImageID,
		CaptionsURL: raw.CaptionsURL,
		Filename:    randomFilename(videoID, "mpeg"),
	}
	if d.ImageID != "" {
		d.ImageFilename = randomFilename(videoID, "jpg")
	}
	if d.CaptionsURL != "" {
		d.CaptionsFilename = randomFilename(videoID, "srt")
	}
	d.HashCode = HashCode(d.Title, d.Description)
	return d, nil
}

// HashCode is the hex md5 of the UTF-8 concatenation of exactly title then
// description — order is normative, per spec.md §4.2; this is the formula
// the tamper-detection path and test fixtures agree on.
func HashCode(title, description string) string {
	sum := md5.Sum([]byte(title + description))
	return hex.EncodeToString(sum[:])
}

func splitKeywords(tags string) []string {
	if strings.TrimSpace(tags) == "" {
		return []string{}
	}
	parts := strings.Split(tags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func randomFilename(videoID, ext string) string {
	return fmt.Sprintf("%s-%s.%s", videoID, uuid.New().String(), ext)
}

// PersistThumbnail reads the thumbnail blob by ImageID and writes it under
// dir, rewriting ImageFilename to the full path written. A missing ImageID
// is a no-op (no thumbnail step is performed), per spec.md §4.3. The write
// goes through a pending file so a crash mid-download never leaves a
// truncated thumbnail at the final path.
func PersistThumbnail(ctx context.Context, store *asset.ThumbnailStore, d *Descriptor, dir string) error {
	if d.ImageID == "" {
		return nil
	}

	src, err := store.Open(ctx, d.ImageID)
	if err != nil {
		return connectorerr.Wrap(connectorerr.PermanentRemote, "thumbnail unavailable", err)
	}
	defer src.Close()

	path := filepath.Join(dir, d.ImageFilename)
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return connectorerr.Wrap(connectorerr.PermanentRemote, "thumbnail write failed", err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := io.Copy(pending, src); err != nil {
		return connectorerr.Wrap(connectorerr.PermanentRemote, "thumbnail write failed", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return connectorerr.Wrap(connectorerr.PermanentRemote, "thumbnail write failed", err)
	}
	d.ImageFilename = path
	return nil
}

// DownloadCaptions attempts to retrieve captions from CaptionsURL. Absence
// or failure clears CaptionsFilename and is logged as a warning — never
// fatal, per spec.md §4.3.
func DownloadCaptions(ctx context.Context, client *http.Client, d *Descriptor, dir string) {
	if d.CaptionsURL == "" {
		return
	}
	logger := log.WithComponent("descriptor")

	if client == nil {
		client = http.DefaultClient
	}
	reqCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, d.CaptionsURL, nil)
	if err != nil {
		logger.Warn().Err(err).Str("captions_url", d.CaptionsURL).Msg("captions download skipped")
		d.CaptionsFilename = ""
		return
	}
	resp, err := client.Do(req)
	if err != nil {
		logger.Warn().Err(err).Str("captions_url", d.CaptionsURL).Msg("captions download failed")
		d.CaptionsFilename = ""
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		logger.Warn().Int("status", resp.StatusCode).Str("captions_url", d.CaptionsURL).Msg("captions download failed")
		d.CaptionsFilename = ""
		return
	}

	path := filepath.Join(dir, d.CaptionsFilename)
	f, err := os.Create(path)
	if err != nil {
		logger.Warn().Err(err).Msg("captions write failed")
		d.CaptionsFilename = ""
		return
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		logger.Warn().Err(err).Msg("captions write failed")
		d.CaptionsFilename = ""
		return
	}
	d.CaptionsFilename = path
}

// Cleanup removes the given local paths if they exist. Missing files are
// not errors.
func Cleanup(filenames ...string) error {
	var firstErr error
	for _, name := range filenames {
		if name == "" {
			continue
		}
		err := os.Remove(name)
		if err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = connectorerr.Wrap(connectorerr.CleanupFailure, "failed to remove "+name, err)
			}
		}
	}
	return firstErr
}
