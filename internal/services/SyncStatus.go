package services

import (
	"sync"
	"time"
)

const (
	EntryIntraday = "intraday"
	EntrySessions = "sessions"
	EntryProfile  = "profile"
)

const (
	OutcomeUploaded  = "uploaded"
	OutcomeUnchanged = "unchanged"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// SyncResult describes one finished invocation.
type SyncResult struct {
	InvocationID string `json:"invocationId"`
	Uploaded     bool   `json:"uploaded"`
	Batches      int    `json:"batches"`
	Sessions     int    `json:"sessions"`
	Fields       int    `json:"fields"`
}

type RunStatus struct {
	InvocationID string        `json:"invocationId"`
	StartedAt    time.Time     `json:"startedAt"`
	Duration     time.Duration `json:"duration"`
	Outcome      string        `json:"outcome"`
	Error        string        `json:"error,omitempty"`
	Result       SyncResult    `json:"result"`
}

type Status struct {
	UserScope     string               `json:"userScope"`
	QueueDepth    int                  `json:"queueDepth"`
	LowerBoundary *time.Time           `json:"lowerBoundary,omitempty"`
	LastRuns      map[string]RunStatus `json:"lastRuns"`
}

type runRegistry struct {
	mu   sync.RWMutex
	runs map[string]RunStatus
}

func newRunRegistry() *runRegistry {
	return &runRegistry{runs: make(map[string]RunStatus)}
}

func (r *runRegistry) record(entry string, rs RunStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[entry] = rs
}

func (r *runRegistry) snapshot() map[string]RunStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]RunStatus, len(r.runs))
	for k, v := range r.runs {
		out[k] = v
	}
	return out
}
