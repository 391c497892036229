package driving

import (
	"context"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
)

// SyncOrchestrator runs the per-entity sync routines in dependency order
type SyncOrchestrator interface {
	// RunAll runs categories, tags, posts and media according to the run policy
	RunAll(ctx context.Context) (*domain.RunResult, error)

	// RunStep runs the routine of a single kind
	RunStep(ctx context.Context, kind domain.EntityKind) (*domain.StepResult, error)

	// Run dispatches a target to RunAll, RunStep or the media library walk
	Run(ctx context.Context, target domain.SyncTarget) (*domain.RunResult, error)
}

// Scheduler fires guarded sync runs on a schedule and on demand.
// At most one run is active per process; a trigger that arrives while a
// run is active fails with domain.ErrSyncInProgress and is not queued.
type Scheduler interface {
	// Start fires one run immediately and then one per trigger tick
	Start(ctx context.Context) error

	// Stop stops the trigger loop and waits for it to exit
	Stop()

	// Run executes a guarded run synchronously
	Run(ctx context.Context, target domain.SyncTarget) (*domain.RunResult, error)

	// Trigger starts a guarded run in the background and returns its run id
	Trigger(ctx context.Context, target domain.SyncTarget) (string, error)

	// State reports whether a run is active
	State() domain.RunState
}
