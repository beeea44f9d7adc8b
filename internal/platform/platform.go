// Package platform dispatches (platform, operation) pairs to the adapter
// that talks to the corresponding remote system, grounded on xg2g's
// openwebif.Client as the model for a narrow, typed remote-system client,
// generalized here into a per-platform interface plus a static dispatch
// table (xg2g has one client per receiver; this has one per remote
// platform).
package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/JungesAngebot/platform-connectors/internal/descriptor"
	"github.com/JungesAngebot/platform-connectors/internal/log"
	"github.com/JungesAngebot/platform-connectors/internal/mapping"
	"github.com/JungesAngebot/platform-connectors/internal/metrics"
	"github.com/JungesAngebot/platform-connectors/internal/registry"
)

// Operation is one of the four verbs every adapter implements.
type Operation string

const (
	OpUpload    Operation = "upload"
	OpUpdate    Operation = "update"
	OpUnpublish Operation = "unpublish"
	OpDelete    Operation = "delete"
)

// ErrUnknownDestination is returned when the router has no adapter for a
// (platform, operation) pair.
var ErrUnknownDestination = errors.New("platform: unknown destination")

// Result is what an adapter call hands back to the state machine.
type Result struct {
	// TargetPlatformVideoID is set on a successful upload; empty otherwise.
	TargetPlatformVideoID string
	// Message, when non-empty, is written verbatim into registry.message —
	// used for the success-with-warning path (a claim or thumbnail failure
	// that does not undo the upload).
	Message string
	// Warning marks Message as a partial-success note rather than plain
	// status text; the state machine must not overwrite it with its own
	// success message.
	Warning bool
	// Skipped marks an Update call that issued no PATCH — either because
	// the local descriptor hash already matched the registry's last known
	// hash (nothing changed), or because the remote metadata hash didn't
	// match that baseline (tamper guard). The state machine uses this to
	// decide whether video_hash_code should advance.
	Skipped bool
}

// Adapter implements the four operations against one remote platform.
type Adapter interface {
	Upload(ctx context.Context, entry *registry.Entry, video *descriptor.Descriptor, m *mapping.Record) (*Result, error)
	Update(ctx context.Context, entry *registry.Entry, video *descriptor.Descriptor, m *mapping.Record) (*Result, error)
	Unpublish(ctx context.Context, entry *registry.Entry, m *mapping.Record) (*Result, error)
	Delete(ctx context.Context, entry *registry.Entry, m *mapping.Record) (*Result, error)
}

// noopAdapter logs every call and returns a synthetic success; installed in
// every cell of the table when the router is constructed in test mode.
type noopAdapter struct {
	platform registry.Platform
}

func (n noopAdapter) Upload(_ context.Context, entry *registry.Entry, _ *descriptor.Descriptor, _ *mapping.Record) (*Result, error) {
	log.WithComponent("platform.noop").Info().Str("platform", string(n.platform)).Str("registry_id", entry.RegistryID).Msg("shadow upload")
	return &Result{TargetPlatformVideoID: "test-" + entry.RegistryID}, nil
}

func (n noopAdapter) Update(_ context.Context, entry *registry.Entry, _ *descriptor.Descriptor, _ *mapping.Record) (*Result, error) {
	log.WithComponent("platform.noop").Info().Str("platform", string(n.platform)).Str("registry_id", entry.RegistryID).Msg("shadow update")
	return &Result{}, nil
}

func (n noopAdapter) Unpublish(_ context.Context, entry *registry.Entry, _ *mapping.Record) (*Result, error) {
	log.WithComponent("platform.noop").Info().Str("platform", string(n.platform)).Str("registry_id", entry.RegistryID).Msg("shadow unpublish")
	return &Result{}, nil
}

func (n noopAdapter) Delete(_ context.Context, entry *registry.Entry, m *mapping.Record) (*Result, error) {
	return n.Unpublish(context.Background(), entry, m)
}

// Router dispatches to the adapter registered for each platform.
type Router struct {
	adapters map[registry.Platform]Adapter
}

// NewRouter builds the production routing table. Passing testMode=true
// replaces every adapter with a logging no-op, per spec.md §4.4.
func NewRouter(facebook, youtubeMCN, youtubeDirect Adapter, testMode bool) *Router {
	if testMode {
		return &Router{adapters: map[registry.Platform]Adapter{
			registry.PlatformFacebook:      noopAdapter{platform: registry.PlatformFacebook},
			registry.PlatformYouTube:       noopAdapter{platform: registry.PlatformYouTube},
			registry.PlatformYouTubeDirect: noopAdapter{platform: registry.PlatformYouTubeDirect},
		}}
	}
	return &Router{adapters: map[registry.Platform]Adapter{
		registry.PlatformFacebook:      facebook,
		registry.PlatformYouTube:       youtubeMCN,
		registry.PlatformYouTubeDirect: youtubeDirect,
	}}
}

func (r *Router) adapterFor(p registry.Platform) (Adapter, error) {
	a, ok := r.adapters[p]
	if !ok || a == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDestination, p)
	}
	return a, nil
}

// Upload dispatches an upload call to the adapter for entry.TargetPlatform.
func (r *Router) Upload(ctx context.Context, entry *registry.Entry, video *descriptor.Descriptor, m *mapping.Record) (*Result, error) {
	a, err := r.adapterFor(entry.TargetPlatform)
	if err != nil {
		return nil, err
	}
	result, err := a.Upload(ctx, entry, video, m)
	observeCall(entry.TargetPlatform, OpUpload, err)
	return result, err
}

// Update dispatches an update call to the adapter for entry.TargetPlatform.
func (r *Router) Update(ctx context.Context, entry *registry.Entry, video *descriptor.Descriptor, m *mapping.Record) (*Result, error) {
	a, err := r.adapterFor(entry.TargetPlatform)
	if err != nil {
		return nil, err
	}
	result, err := a.Update(ctx, entry, video, m)
	observeCall(entry.TargetPlatform, OpUpdate, err)
	return result, err
}

// Unpublish dispatches an unpublish call to the adapter for entry.TargetPlatform.
func (r *Router) Unpublish(ctx context.Context, entry *registry.Entry, m *mapping.Record) (*Result, error) {
	a, err := r.adapterFor(entry.TargetPlatform)
	if err != nil {
		return nil, err
	}
	result, err := a.Unpublish(ctx, entry, m)
	observeCall(entry.TargetPlatform, OpUnpublish, err)
	return result, err
}

// Delete dispatches a delete call to the adapter for entry.TargetPlatform.
func (r *Router) Delete(ctx context.Context, entry *registry.Entry, m *mapping.Record) (*Result, error) {
	a, err := r.adapterFor(entry.TargetPlatform)
	if err != nil {
		return nil, err
	}
	result, err := a.Delete(ctx, entry, m)
	observeCall(entry.TargetPlatform, OpDelete, err)
	return result, err
}

func observeCall(platform registry.Platform, op Operation, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.ObserveAdapterCall(string(platform), string(op), outcome)
}
