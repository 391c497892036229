package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
	"github.com/custodia-labs/cms-mirror/internal/core/ports/driven"
	"github.com/custodia-labs/cms-mirror/internal/core/ports/driving"
)

// Ensure Scheduler implements driving.Scheduler
var _ driving.Scheduler = (*Scheduler)(nil)

// SchedulerLockName is the distributed lock guarding sync runs across instances.
const SchedulerLockName = "sync-run"

// Scheduler fires sync runs on a trigger and on demand.
//
// The run state moves Idle -> Running -> Idle and only changes through
// compare-and-swap, so two triggers can never both start a run. A trigger
// that loses the swap is rejected with domain.ErrSyncInProgress; it is
// logged and not queued. The state returns to Idle when the run finishes,
// whether it succeeded, failed or panicked.
//
// Runs started with Trigger belong to the scheduler, not to the request that
// asked for them. Stop cancels them and waits for them to wind down, so Stop
// is final.
//
// For multi-instance deployments, configure a DistributedLock so that only
// one instance runs a sync at a time. Losing the lock is a skip as well.
type Scheduler struct {
	orchestrator driving.SyncOrchestrator
	trigger      Trigger
	lock         driven.DistributedLock
	metrics      driven.SyncMetrics
	logger       *slog.Logger

	state atomic.Int32

	// Loop state
	mu       sync.Mutex
	running  bool
	stopLoop context.CancelFunc
	doneCh   chan struct{}

	// Triggered runs
	runCtx     context.Context
	cancelRuns context.CancelFunc
	inflight   sync.WaitGroup

	runOnStart   bool
	lockTTL      time.Duration
	lockRequired bool
}

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	Orchestrator driving.SyncOrchestrator
	Trigger      Trigger                // Required for Start; nil allows on-demand runs only
	Lock         driven.DistributedLock // Optional: distributed lock for multi-instance coordination
	Metrics      driven.SyncMetrics     // Optional
	Logger       *slog.Logger
	RunOnStart   *bool         // Fire one run when Start is called (default: true)
	LockTTL      time.Duration // TTL for the distributed lock (default: 5m, extended while running)
	LockRequired bool          // If true, skip the run when the lock backend errors
}

// NewScheduler creates a new scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = 5 * time.Minute
	}

	runOnStart := true
	if cfg.RunOnStart != nil {
		runOnStart = *cfg.RunOnStart
	}

	runCtx, cancelRuns := context.WithCancel(context.Background())

	return &Scheduler{
		runCtx:       runCtx,
		cancelRuns:   cancelRuns,
		orchestrator: cfg.Orchestrator,
		trigger:      cfg.Trigger,
		lock:         cfg.Lock,
		metrics:      metrics,
		logger:       logger,
		runOnStart:   runOnStart,
		lockTTL:      lockTTL,
		lockRequired: cfg.LockRequired,
	}
}

// Start begins the scheduler loop.
// It runs until Stop is called or ctx is cancelled; cancelling ctx also
// cancels runs started with Trigger.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.trigger == nil {
		return fmt.Errorf("%w: scheduler has no trigger", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	loopCtx, stopLoop := context.WithCancel(ctx)
	s.running = true
	s.stopLoop = stopLoop
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	context.AfterFunc(loopCtx, s.cancelRuns)

	s.logger.Info("scheduler starting", "run_on_start", s.runOnStart)

	go s.loop(loopCtx)

	return nil
}

// Stop stops the loop, cancels active runs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancelRuns()

	s.mu.Lock()
	running, stopLoop, done := s.running, s.stopLoop, s.doneCh
	s.running = false
	s.mu.Unlock()

	if running {
		stopLoop()
		<-done
	}
	s.inflight.Wait()

	if running {
		s.logger.Info("scheduler stopped")
	}
}

// State reports whether a run is active.
func (s *Scheduler) State() domain.RunState {
	return domain.RunState(s.state.Load())
}

// Run executes a guarded run and waits for it.
func (s *Scheduler) Run(ctx context.Context, target domain.SyncTarget) (*domain.RunResult, error) {
	if !s.tryAcquire(target) {
		return nil, domain.ErrSyncInProgress
	}
	return s.execute(ctx, target)
}

// Trigger starts a guarded run in the background and returns its run id.
// The run outlives ctx and ends with the scheduler.
func (s *Scheduler) Trigger(_ context.Context, target domain.SyncTarget) (string, error) {
	if err := s.runCtx.Err(); err != nil {
		return "", fmt.Errorf("scheduler stopped: %w", err)
	}
	if !s.tryAcquire(target) {
		return "", domain.ErrSyncInProgress
	}

	runID := uuid.NewString()
	runCtx := WithRunID(s.runCtx, runID)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if _, err := s.execute(runCtx, target); err != nil && !errors.Is(err, domain.ErrSyncInProgress) {
			s.logger.Error("triggered sync failed", "run_id", runID, "target", target, "error", err)
		}
	}()

	return runID, nil
}

// loop is the main scheduler loop.
func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.doneCh)
	defer s.trigger.Stop()

	if s.runOnStart {
		s.fire(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.trigger.C():
			s.fire(ctx)
		}
	}
}

// fire runs a scheduled full sync. Runs are synchronous inside the loop, so
// ticks arriving meanwhile are dropped by the trigger.
func (s *Scheduler) fire(ctx context.Context) {
	_, err := s.Run(ctx, domain.TargetAll)
	if err != nil && !errors.Is(err, domain.ErrSyncInProgress) {
		s.logger.Error("scheduled sync failed", "error", err)
	}
}

// tryAcquire moves the state from Idle to Running.
func (s *Scheduler) tryAcquire(target domain.SyncTarget) bool {
	if s.state.CompareAndSwap(int32(domain.RunStateIdle), int32(domain.RunStateRunning)) {
		return true
	}
	s.metrics.RecordRun(RunResultSkipped)
	s.logger.Info("sync already running, skipping trigger", "target", target)
	return false
}

// execute runs target while holding the Running state and releases it on return.
func (s *Scheduler) execute(ctx context.Context, target domain.SyncTarget) (result *domain.RunResult, err error) {
	defer s.state.Store(int32(domain.RunStateIdle))
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sync run panicked", "target", target, "panic", r)
			err = fmt.Errorf("sync run panicked: %v", r)
		}
	}()

	release, ok := s.acquireLock(ctx)
	if !ok {
		s.metrics.RecordRun(RunResultSkipped)
		return nil, fmt.Errorf("%w: held by another instance", domain.ErrSyncInProgress)
	}
	defer release()

	return s.orchestrator.Run(ctx, target)
}

// acquireLock takes the distributed lock if one is configured and keeps it
// alive until the returned release func is called.
func (s *Scheduler) acquireLock(ctx context.Context) (release func(), ok bool) {
	if s.lock == nil {
		return func() {}, true
	}

	acquired, err := s.lock.Acquire(ctx, SchedulerLockName, s.lockTTL)
	if err != nil {
		s.logger.Warn("failed to acquire sync lock", "error", err)
		if s.lockRequired {
			return nil, false
		}
		return func() {}, true
	}
	if !acquired {
		s.logger.Info("sync lock held by another instance, skipping run")
		return nil, false
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go s.keepAlive(ctx, stop, done)

	return func() {
		close(stop)
		<-done
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.lock.Release(relCtx, SchedulerLockName); err != nil {
			s.logger.Warn("failed to release sync lock", "error", err)
		}
	}, true
}

func (s *Scheduler) keepAlive(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.lockTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if err := s.lock.Extend(ctx, SchedulerLockName, s.lockTTL); err != nil {
				s.logger.Warn("failed to extend sync lock", "error", err)
			}
		}
	}
}
