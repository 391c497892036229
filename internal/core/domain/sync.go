package domain

import (
	"fmt"
	"time"
)

// EntityKind names a mirrored entity family. It doubles as the ledger key.
type EntityKind string

const (
	KindCategories EntityKind = "categories"
	KindTags       EntityKind = "tags"
	KindPosts      EntityKind = "posts"
	KindMedia      EntityKind = "media"
)

// RunOrder is the order a full run executes its steps in. Posts reference
// categories and tags, and the media step reads media ids off stored posts.
var RunOrder = []EntityKind{KindCategories, KindTags, KindPosts, KindMedia}

// ParseEntityKind validates a kind name.
func ParseEntityKind(s string) (EntityKind, error) {
	switch k := EntityKind(s); k {
	case KindCategories, KindTags, KindPosts, KindMedia:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// SyncState is the state recorded by one ledger entry.
type SyncState string

const (
	SyncStateInProgress SyncState = "in_progress"
	SyncStateCompleted  SyncState = "completed"
	SyncStateError      SyncState = "error"
)

// SyncStatusEntry is one append-only row of the sync ledger.
// The current status of a kind is its entry with the greatest Timestamp.
type SyncStatusEntry struct {
	ID          int64      `json:"id"`
	RunID       string     `json:"run_id,omitempty"`
	Kind        EntityKind `json:"entity_kind"`
	State       SyncState  `json:"state"`
	Timestamp   time.Time  `json:"timestamp"`
	TotalSynced int        `json:"total_synced"`
	Error       string     `json:"error,omitempty"`
}

// StepResult is the explicit outcome of one per-entity sync routine.
type StepResult struct {
	Kind     EntityKind `json:"kind"`
	Success  bool       `json:"success"`
	Ran      bool       `json:"ran"`
	Synced   int        `json:"synced"`
	Skipped  int        `json:"skipped"`
	Error    string     `json:"error,omitempty"`
	Duration float64    `json:"duration_seconds"`
}

// RunResult is the outcome of one orchestrated pass over every kind.
type RunResult struct {
	RunID       string        `json:"run_id"`
	Policy      RunPolicy     `json:"policy"`
	Steps       []*StepResult `json:"steps"`
	Aborted     bool          `json:"aborted"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
}

// Success reports whether every step ran and succeeded.
func (r *RunResult) Success() bool {
	if r == nil || r.Aborted {
		return false
	}
	for _, s := range r.Steps {
		if !s.Success {
			return false
		}
	}
	return true
}

// Failed returns the steps that ran and failed.
func (r *RunResult) Failed() []*StepResult {
	var failed []*StepResult
	for _, s := range r.Steps {
		if s.Ran && !s.Success {
			failed = append(failed, s)
		}
	}
	return failed
}

// RunPolicy decides what a full run does after a failed step.
type RunPolicy string

const (
	// RunPolicyAbort stops the run at the first failed step.
	RunPolicyAbort RunPolicy = "abort"
	// RunPolicyContinue runs every step and reports all failures.
	RunPolicyContinue RunPolicy = "continue"
)

// ParseRunPolicy validates a policy name. Empty selects RunPolicyAbort.
func ParseRunPolicy(s string) (RunPolicy, error) {
	switch p := RunPolicy(s); p {
	case "":
		return RunPolicyAbort, nil
	case RunPolicyAbort, RunPolicyContinue:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown run policy %q", ErrInvalidInput, s)
	}
}

// RunState is the scheduler's mutual-exclusion state.
type RunState int32

const (
	RunStateIdle RunState = iota
	RunStateRunning
)

func (s RunState) String() string {
	switch s {
	case RunStateIdle:
		return "idle"
	case RunStateRunning:
		return "running"
	default:
		return fmt.Sprintf("RunState(%d)", int32(s))
	}
}

// SyncTarget selects what a triggered run covers: every kind, one kind,
// or the full media library walk.
type SyncTarget string

const (
	TargetAll          SyncTarget = "all"
	TargetMediaLibrary SyncTarget = "media-library"
)

// ParseSyncTarget validates a target name. Empty selects TargetAll.
func ParseSyncTarget(s string) (SyncTarget, error) {
	switch s {
	case "", string(TargetAll):
		return TargetAll, nil
	case string(TargetMediaLibrary):
		return TargetMediaLibrary, nil
	}
	k, err := ParseEntityKind(s)
	if err != nil {
		return "", err
	}
	return SyncTarget(k), nil
}
