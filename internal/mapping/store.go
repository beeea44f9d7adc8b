// Package mapping looks up the binding from a mapping id to a target
// platform, credential/channel id, and category — an immutable reference
// table from the core's perspective, grounded the same way xg2g treats its
// read-only config/registry lookups.
package mapping

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no mapping exists for the given id.
var ErrNotFound = errors.New("mapping: not found")

// Record is the (mapping_id, target_id, target_platform, category_id)
// tuple spec.md §3 names.
type Record struct {
	MappingID      string `bson:"mapping_id" json:"mapping_id"`
	TargetID       string `bson:"target_id" json:"target_id"`
	TargetPlatform string `bson:"target_platform" json:"target_platform"`
	CategoryID     string `bson:"category_id" json:"category_id"`
}

// Store resolves mapping ids to their Record.
type Store interface {
	Get(ctx context.Context, mappingID string) (*Record, error)
}
