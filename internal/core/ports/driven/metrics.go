package driven

import (
	"time"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
)

// Item outcomes reported to SyncMetrics.
const (
	OutcomeSynced    = "synced"
	OutcomeMalformed = "malformed"
	OutcomeFailed    = "write_failed"
)

// SyncMetrics records sync engine activity (Prometheus).
// Implementations must be safe for concurrent use.
type SyncMetrics interface {
	// RecordItem counts one processed upstream item
	RecordItem(kind domain.EntityKind, outcome string)

	// RecordStep observes the duration and result of one routine
	RecordStep(kind domain.EntityKind, success bool, d time.Duration)

	// RecordRun counts one finished run; result is success, failure or skipped
	RecordRun(result string)
}
