// Package workflow orchestrates a single registry entry through the
// download/upload/sync/unpublish/delete state machine, grounded on xg2g's
// worker.Orchestrator (injected collaborators, a run method that loads
// state, dispatches, and persists, structured logging throughout) —
// generalized from a streaming-session lifecycle to a publishing
// workflow's.
package workflow

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/JungesAngebot/platform-connectors/internal/asset"
	"github.com/JungesAngebot/platform-connectors/internal/connectorerr"
	"github.com/JungesAngebot/platform-connectors/internal/descriptor"
	"github.com/JungesAngebot/platform-connectors/internal/fsm"
	"github.com/JungesAngebot/platform-connectors/internal/log"
	"github.com/JungesAngebot/platform-connectors/internal/mapping"
	"github.com/JungesAngebot/platform-connectors/internal/metrics"
	"github.com/JungesAngebot/platform-connectors/internal/platform"
	"github.com/JungesAngebot/platform-connectors/internal/registry"
	"github.com/JungesAngebot/platform-connectors/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Event is one of the three external triggers named in spec.md §6.
type Event string

const (
	EventUpdate    Event = "update"
	EventUnpublish Event = "unpublish"
	EventDelete    Event = "delete"
)

// Outcome is the coarse result every entry point returns to its caller.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// Runner drives one registry entry at a time through the state machine. A
// Runner has no per-call state; concurrency across different registry ids
// is the caller's responsibility, per spec.md §5.
type Runner struct {
	Registry   registry.Store
	Mapping    mapping.Store
	Catalog    asset.Catalog
	Thumbnails *asset.ThumbnailStore
	Router     *platform.Router
	HTTPClient *http.Client
	WorkDir    string
}

// Run dispatches (status, event) to the matching state per the table in
// spec.md §4.8, then executes it. Unmatched pairs are ignored and report
// success without touching the registry, per that table's last row.
func (r *Runner) Run(ctx context.Context, registryID string, event Event) Outcome {
	ctx, span := telemetry.Tracer("workflow").Start(ctx, "workflow.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("registry_id", registryID),
		attribute.String("event", string(event)),
	)

	logger := log.WithComponent("workflow")

	entry, err := r.Registry.Load(ctx, registryID)
	if err != nil {
		logger.Error().Err(err).Str("registry_id", registryID).Msg("registry lookup failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "registry lookup failed")
		return OutcomeError
	}
	span.SetAttributes(attribute.String("status", string(entry.Status)))

	if ctx.Err() != nil {
		r.fail(ctx, entry, connectorerr.New(connectorerr.PermanentRemote, "cancelled"))
		return OutcomeError
	}

	machine, err := fsm.New(entry.Status, r.transitions(entry))
	if err != nil {
		logger.Error().Err(err).Str("registry_id", registryID).Msg("malformed transition table")
		return OutcomeError
	}

	if _, err := machine.Fire(ctx, event); err != nil {
		if strings.HasPrefix(err.Error(), "invalid transition") {
			logger.Info().Str("registry_id", registryID).Str("status", string(entry.Status)).Str("event", string(event)).Msg("no matching transition, ignoring")
			return OutcomeSuccess
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "transition action failed")
		return OutcomeError
	}
	return OutcomeSuccess
}

type stateFn func(ctx context.Context, entry *registry.Entry) error

// transitions builds the entry-point dispatch table from spec.md §4.8 as an
// fsm.Machine transition set: the Action runs the multi-step state function
// (which does its own internal persists) and the machine's To is the
// nominal external status a caller observes on success. Business failures
// are handled and persisted by action/fail before the error reaches Fire.
func (r *Runner) transitions(entry *registry.Entry) []fsm.Transition[registry.Status, Event] {
	t := []fsm.Transition[registry.Status, Event]{
		{From: registry.StatusNotified, Event: EventUpdate, To: registry.StatusActive, Action: r.action(entry, r.runDownloading)},
		{From: registry.StatusActive, Event: EventUpdate, To: registry.StatusActive, Action: r.action(entry, r.runUpdating)},
		{From: registry.StatusInactive, Event: EventUpdate, To: registry.StatusActive, Action: r.action(entry, r.runActivate)},
		{From: registry.StatusError, Event: EventUpdate, To: registry.StatusActive, Action: r.action(entry, r.resume)},
		{From: registry.StatusActive, Event: EventUnpublish, To: registry.StatusInactive, Action: r.action(entry, r.runUnpublish)},
		{From: registry.StatusError, Event: EventUnpublish, To: registry.StatusInactive, Action: r.action(entry, r.runUnpublish)},
	}
	for _, from := range []registry.Status{registry.StatusNotified, registry.StatusActive, registry.StatusInactive, registry.StatusError, registry.StatusDeleted} {
		t = append(t, fsm.Transition[registry.Status, Event]{From: from, Event: EventDelete, To: registry.StatusDeleted, Action: r.action(entry, r.runDeleting)})
	}
	return t
}

// action adapts a stateFn into an fsm.Transition.Action, timing it and
// routing failures through fail.
func (r *Runner) action(entry *registry.Entry, fn stateFn) func(ctx context.Context, from, to registry.Status, event Event) error {
	return func(ctx context.Context, from, to registry.Status, event Event) error {
		start := time.Now()
		err := fn(ctx, entry)
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.ObserveState(string(entry.IntermediateState), outcome, time.Since(start))
		if err != nil {
			r.fail(ctx, entry, err)
			return err
		}
		return nil
	}
}

// resume re-enters Downloading when the last recorded intermediate state
// is downloading, uploading, or empty, and Updating when it is updating,
// per spec.md §4.8's error-resume table.
func (r *Runner) resume(ctx context.Context, entry *registry.Entry) error {
	switch entry.IntermediateState {
	case registry.IntermediateUpdating:
		return r.runUpdating(ctx, entry)
	default:
		return r.runDownloading(ctx, entry)
	}
}

// persist writes entry via the registry store and logs persist failures;
// every state must call this before attempting its external side-effect,
// per spec.md invariant 3.
func (r *Runner) persist(ctx context.Context, entry *registry.Entry) error {
	if err := r.Registry.Save(ctx, entry); err != nil {
		log.WithComponent("workflow").Error().Err(err).Str("registry_id", entry.RegistryID).Msg("persist failed")
		return connectorerr.Wrap(connectorerr.CleanupFailure, "persist failed", err)
	}
	return nil
}

// fail persists status=error with a flattened cause chain, keeping
// whatever intermediate_state was last set, per spec.md §4.8 step 5.
func (r *Runner) fail(ctx context.Context, entry *registry.Entry, cause error) {
	entry.Status = registry.StatusError
	entry.Message = connectorerr.Flatten(cause)
	if entry.Message == "" {
		entry.Message = cause.Error()
	}
	if err := r.Registry.Save(ctx, entry); err != nil {
		log.WithComponent("workflow").Error().Err(err).Str("registry_id", entry.RegistryID).Msg("failed to persist error state")
	}
}

func (r *Runner) loadMapping(ctx context.Context, entry *registry.Entry) (*mapping.Record, error) {
	m, err := r.Mapping.Get(ctx, entry.MappingID)
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.NotFound, "mapping lookup failed", err)
	}
	return m, nil
}

func (r *Runner) terminal(ctx context.Context, entry *registry.Entry, status registry.Status, message string, cleanupDescriptor *descriptor.Descriptor) error {
	entry.IntermediateState = registry.IntermediateNone
	entry.Status = status
	if message != "" {
		entry.Message = message
	}
	if err := r.persist(ctx, entry); err != nil {
		return err
	}
	if cleanupDescriptor != nil {
		if err := descriptor.Cleanup(cleanupDescriptor.Filename, cleanupDescriptor.ImageFilename, cleanupDescriptor.CaptionsFilename); err != nil {
			entry.Status = registry.StatusError
			_ = r.persist(ctx, entry)
			return err
		}
	}
	return nil
}
