package fetcher

// TaskState is the lifecycle of one window fetch.
type TaskState int

const (
	TaskPending TaskState = iota
	TaskRunning
	TaskSucceeded
	TaskRetryScheduled
	TaskPermanentlyFailed
	TaskCancelled
)

func (s TaskState) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskRunning:
		return "running"
	case TaskSucceeded:
		return "succeeded"
	case TaskRetryScheduled:
		return "retry_scheduled"
	case TaskPermanentlyFailed:
		return "permanently_failed"
	case TaskCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can follow.
func (s TaskState) Terminal() bool {
	return s == TaskSucceeded || s == TaskPermanentlyFailed || s == TaskCancelled
}
