package registry

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when no entry exists for the given id.
var ErrNotFound = errors.New("registry: not found")

// ErrPersistFailure wraps any storage-layer error from Save.
var ErrPersistFailure = errors.New("registry: persist failure")

// Store is the durable key/value of workflow records. Save is the only
// mutation point; a successful Save makes the new state durably visible to
// the next Load (invariant 4: every persistence call is an upsert keyed on
// registry_id, no field is ever deleted, only overwritten).
type Store interface {
	Load(ctx context.Context, registryID string) (*Entry, error)
	Save(ctx context.Context, entry *Entry) error
}
