package asset

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
)

// ErrThumbnailUnavailable is returned when the thumbnail blob cannot be
// located or read by either lookup form.
var ErrThumbnailUnavailable = errors.New("asset: thumbnail unavailable")

// ThumbnailStore reads the thumbnail blob for an image id out of GridFS.
// GridFS historically stored file ids as strings in some collections and as
// ObjectIDs in others; Open tries the string form first (primary) and
// falls back to the object-id form (legacy), per spec.md §4.3.
type ThumbnailStore struct {
	bucket *gridfs.Bucket
}

func NewThumbnailStore(bucket *gridfs.Bucket) *ThumbnailStore {
	return &ThumbnailStore{bucket: bucket}
}

// Open returns a reader for the thumbnail identified by imageID.
func (t *ThumbnailStore) Open(ctx context.Context, imageID string) (io.ReadCloser, error) {
	stream, err := t.bucket.OpenDownloadStream(imageID)
	if err == nil {
		return stream, nil
	}

	oid, oidErr := primitive.ObjectIDFromHex(imageID)
	if oidErr != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrThumbnailUnavailable, imageID, err)
	}
	stream, err = t.bucket.OpenDownloadStream(oid)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrThumbnailUnavailable, imageID, err)
	}
	return stream, nil
}
