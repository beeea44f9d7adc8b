// Package asset is the read-only lookup of video metadata and the
// thumbnail/captions side-channels that back it, grounded on xg2g's
// internal/openwebif.Client — a narrow, typed HTTP/store client with
// explicit error wrapping, used here for an internal asset store instead of
// a set-top-box API.
package asset

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no asset exists for the given video id.
var ErrNotFound = errors.New("asset: not found")

// ErrMalformed is returned when the catalog record is missing data the
// connector cannot proceed without (currently: both download URL fields).
var ErrMalformed = errors.New("asset: malformed")

// RawVideo is the asset catalog's document shape, tolerant of the legacy
// downloadUrl field alongside the current flavourSourceUrl one.
type RawVideo struct {
	Title            string `bson:"name" json:"name"`
	Description      string `bson:"text" json:"text"`
	Tags             string `bson:"tags" json:"tags"`
	FlavourSourceURL string `bson:"flavourSourceUrl" json:"flavourSourceUrl"`
	DownloadURL      string `bson:"downloadUrl" json:"downloadUrl"`
	ImageID          string `bson:"imageid" json:"imageid"`
	CaptionsURL      string `bson:"captionsUrl" json:"captionsUrl"`
}

// Catalog is the read-only lookup of video metadata.
type Catalog interface {
	FetchVideo(ctx context.Context, videoID string) (*RawVideo, error)
}
