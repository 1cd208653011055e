package controllers

import (
	"net/http"
	"sort"
	"time"
	"wearsync/internal/services"
)

// HealthController reports liveness plus a summary of the last invocation
// of every entry point. The connection is "degraded" while any of them last
// failed.
type HealthController struct {
	service services.SyncServiceInterface
	started time.Time
}

type healthResponse struct {
	Status     string            `json:"status"`
	Uptime     string            `json:"uptime"`
	UserScope  string            `json:"user_scope"`
	QueueDepth int               `json:"queue_depth"`
	Failing    []string          `json:"failing,omitempty"`
	LastRuns   map[string]string `json:"last_runs"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	status := hc.service.Status()
	resp := healthResponse{
		Status:     "ok",
		Uptime:     time.Since(hc.started).Truncate(time.Second).String(),
		UserScope:  status.UserScope,
		QueueDepth: status.QueueDepth,
		LastRuns:   make(map[string]string, len(status.LastRuns)),
	}
	for entry, run := range status.LastRuns {
		resp.LastRuns[entry] = run.Outcome
		if run.Outcome == services.OutcomeFailed {
			resp.Failing = append(resp.Failing, entry)
		}
	}
	if len(resp.Failing) > 0 {
		sort.Strings(resp.Failing)
		resp.Status = "degraded"
	}

	writeJSON(w, http.StatusOK, resp)
}

func NewHealthController(service services.SyncServiceInterface) *HealthController {
	return &HealthController{
		service: service,
		started: time.Now(),
	}
}
