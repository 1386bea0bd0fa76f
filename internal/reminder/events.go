package reminder

// Bus event types published by the engine. Data carries the struct named
// alongside each constant.
const (
	EventReminderScheduled = "reminder.scheduled"  // ScheduledEvent
	EventReminderSkipped   = "reminder.skipped"    // SkippedEvent
	EventReminderCatchup   = "reminder.catchup"    // ScheduledEvent
	EventReminderCancelled = "reminder.cancelled"  // CancelledEvent
	EventDispatchSent      = "dispatch.sent"       // DeliveryEvent
	EventDispatchFailed    = "dispatch.failed"     // DeliveryEvent
	EventRestoreUserFailed = "restore.user_failed" // RestoreFailureEvent
	EventRestoreDone       = "restore.done"        // RestoreDoneEvent
)

// ScheduledEvent records a job armed (or re-armed) in the registry.
type ScheduledEvent struct {
	UserID string
	JobID  string
	Meal   string
	FireAt string // "HH:MM" in the runtime timezone
}

// SkippedEvent records a meal that could not be scheduled.
type SkippedEvent struct {
	UserID string
	Meal   string
	Time   string
	Reason string
}

// CancelledEvent records a user-level cancellation.
type CancelledEvent struct {
	UserID  string
	Removed int
}

// DeliveryEvent records one push attempt to one device token.
type DeliveryEvent struct {
	UserID string
	JobID  string
	Meal   string
	Kind   string // "recurring", "catchup" or "test"
	Token  string // truncated, never the full credential
	OK     bool
	Error  string
}

// RestoreFailureEvent records one user whose jobs could not be rebuilt;
// the restore pass continues with the remaining users.
type RestoreFailureEvent struct {
	UserID string
	Error  string
}

// RestoreDoneEvent summarizes a completed restore pass.
type RestoreDoneEvent struct {
	Users int
	Jobs  int
}
