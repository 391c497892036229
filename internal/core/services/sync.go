package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
	"github.com/custodia-labs/cms-mirror/internal/core/ports/driven"
	"github.com/custodia-labs/cms-mirror/internal/core/ports/driving"
)

// Ensure SyncOrchestrator implements driving.SyncOrchestrator
var _ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)

// Run results reported to SyncMetrics.RecordRun.
const (
	RunResultSuccess = "success"
	RunResultFailure = "failure"
	RunResultSkipped = "skipped"
)

type runIDKey struct{}

// WithRunID attaches a run id to ctx. Ledger entries written under ctx carry it.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run id attached to ctx, or "".
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// SyncOrchestrator runs a full sync pass:
//  1. categories
//  2. tags
//  3. posts (reference category and tag ids)
//  4. media (reads featured media ids off stored posts)
//
// Each step yields an explicit StepResult. Under RunPolicyAbort the first
// failed step ends the run and the remaining steps are reported as not run;
// under RunPolicyContinue every step runs.
type SyncOrchestrator struct {
	sync       *SyncService
	policy     domain.RunPolicy
	runTimeout time.Duration
	metrics    driven.SyncMetrics
	logger     *slog.Logger
}

// SyncOrchestratorConfig holds dependencies for SyncOrchestrator.
type SyncOrchestratorConfig struct {
	Sync       *SyncService
	Policy     domain.RunPolicy   // Default: RunPolicyAbort
	RunTimeout time.Duration      // Zero means no timeout
	Metrics    driven.SyncMetrics // Optional
	Logger     *slog.Logger
}

// NewSyncOrchestrator creates a new sync orchestrator.
func NewSyncOrchestrator(cfg SyncOrchestratorConfig) *SyncOrchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	policy := cfg.Policy
	if policy == "" {
		policy = domain.RunPolicyAbort
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &SyncOrchestrator{
		sync:       cfg.Sync,
		policy:     policy,
		runTimeout: cfg.RunTimeout,
		metrics:    metrics,
		logger:     logger,
	}
}

// Policy returns the configured run policy.
func (o *SyncOrchestrator) Policy() domain.RunPolicy {
	return o.policy
}

// RunAll runs every step in order. The returned error joins the errors of
// all failed steps; the RunResult is always returned.
func (o *SyncOrchestrator) RunAll(ctx context.Context) (*domain.RunResult, error) {
	ctx, runID := o.ensureRunID(ctx)
	ctx, cancel := o.withTimeout(ctx)
	defer cancel()

	result := &domain.RunResult{
		RunID:     runID,
		Policy:    o.policy,
		StartedAt: time.Now(),
	}

	o.logger.Info("starting sync run", "run_id", runID, "policy", o.policy)

	var errs []error
	for _, kind := range domain.RunOrder {
		if result.Aborted {
			result.Steps = append(result.Steps, &domain.StepResult{Kind: kind})
			continue
		}

		step, err := o.RunStep(ctx, kind)
		result.Steps = append(result.Steps, step)
		if err == nil {
			continue
		}

		errs = append(errs, err)
		if o.policy == domain.RunPolicyAbort {
			o.logger.Error("aborting sync run", "run_id", runID, "failed_kind", kind, "error", err)
			result.Aborted = true
		}
	}

	result.CompletedAt = time.Now()
	o.finishRun(result)
	return result, errors.Join(errs...)
}

// RunStep runs the routine of a single kind.
func (o *SyncOrchestrator) RunStep(ctx context.Context, kind domain.EntityKind) (*domain.StepResult, error) {
	ctx, _ = o.ensureRunID(ctx)

	var step *domain.StepResult
	var err error
	switch kind {
	case domain.KindCategories:
		step, err = o.sync.SyncCategories(ctx)
	case domain.KindTags:
		step, err = o.sync.SyncTags(ctx)
	case domain.KindPosts:
		step, err = o.sync.SyncPosts(ctx)
	case domain.KindMedia:
		step, err = o.sync.SyncMedia(ctx)
	default:
		return &domain.StepResult{Kind: kind}, fmt.Errorf("%w: %q", domain.ErrUnknownKind, kind)
	}
	if step == nil {
		step = &domain.StepResult{Kind: kind, Ran: true}
	}
	return step, err
}

// Run dispatches a target. Single-kind targets produce a RunResult holding one step.
func (o *SyncOrchestrator) Run(ctx context.Context, target domain.SyncTarget) (*domain.RunResult, error) {
	if target == "" || target == domain.TargetAll {
		return o.RunAll(ctx)
	}

	ctx, runID := o.ensureRunID(ctx)
	ctx, cancel := o.withTimeout(ctx)
	defer cancel()

	result := &domain.RunResult{
		RunID:     runID,
		Policy:    o.policy,
		StartedAt: time.Now(),
	}

	var step *domain.StepResult
	var err error
	if target == domain.TargetMediaLibrary {
		step, err = o.sync.SyncMediaLibrary(ctx)
	} else {
		kind, perr := domain.ParseEntityKind(string(target))
		if perr != nil {
			return nil, perr
		}
		step, err = o.RunStep(ctx, kind)
	}

	result.Steps = []*domain.StepResult{step}
	result.CompletedAt = time.Now()
	o.finishRun(result)
	return result, err
}

func (o *SyncOrchestrator) ensureRunID(ctx context.Context) (context.Context, string) {
	if id := RunIDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return WithRunID(ctx, id), id
}

func (o *SyncOrchestrator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.runTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.runTimeout)
}

func (o *SyncOrchestrator) finishRun(result *domain.RunResult) {
	duration := result.CompletedAt.Sub(result.StartedAt)
	if result.Success() {
		o.metrics.RecordRun(RunResultSuccess)
		o.logger.Info("sync run completed", "run_id", result.RunID, "steps", len(result.Steps), "duration", duration)
		return
	}

	o.metrics.RecordRun(RunResultFailure)
	failed := make([]domain.EntityKind, 0, len(result.Steps))
	for _, s := range result.Failed() {
		failed = append(failed, s.Kind)
	}
	o.logger.Warn("sync run finished with failures",
		"run_id", result.RunID,
		"failed", failed,
		"aborted", result.Aborted,
		"duration", duration,
	)
}
