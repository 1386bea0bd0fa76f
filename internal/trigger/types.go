package trigger

import (
	"context"
	"time"
)

// DefaultMisfireGrace is how late a missed daily occurrence may still fire.
// The registry records it per trigger and the scheduling engine reuses the
// same window for its catch-up evaluation, so the two cannot drift.
const DefaultMisfireGrace = time.Hour

// Trigger describes a recurring daily fire time in the runtime's timezone.
type Trigger struct {
	Hour         int // 0..23
	Minute       int // 0..59
	MisfireGrace time.Duration
}

// Job is one armed recurring trigger. ID is the registry key: at most one
// job per distinct ID exists at any time.
type Job struct {
	ID      string
	Name    string
	Trigger Trigger
	Run     func(ctx context.Context)
}

// JobInfo is a read-only snapshot row for status reporting.
type JobInfo struct {
	ID      string
	Name    string
	Trigger Trigger
	NextRun *time.Time
}

// Config controls the trigger runtime.
type Config struct {
	Timezone  string // IANA TZ, e.g. "Asia/Kolkata"; empty means Local
	Workers   int
	QueueSize int
}
