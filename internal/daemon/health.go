package daemon

import (
	"net/http"
	"time"

	"git.home.luguber.info/inful/texsync/internal/job"
)

// HealthStatus represents the overall health of the daemon
type HealthStatus string

const (
	HealthStatusHealthy  HealthStatus = "healthy"
	HealthStatusDegraded HealthStatus = "degraded"
)

// HealthResponse represents the complete health check response
type HealthResponse struct {
	Status    HealthStatus `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
	Uptime    string       `json:"uptime"`
	Message   string       `json:"message,omitempty"`
}

// Health reports degraded when the last job aborted or ended in ERROR.
func (d *Daemon) Health() HealthResponse {
	snap := d.Snapshot()
	resp := HealthResponse{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now(),
	}
	if !snap.StartedAt.IsZero() {
		resp.Uptime = time.Since(snap.StartedAt).Round(time.Second).String()
	}
	switch {
	case snap.LastError != "":
		resp.Status = HealthStatusDegraded
		resp.Message = snap.LastError
	case snap.LastJob != nil && snap.LastJob.Status != string(job.StatusSuccess):
		resp.Status = HealthStatusDegraded
		resp.Message = "last job finished with status " + snap.LastJob.Status
	}
	return resp
}

func (d *Daemon) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := d.Health()
	code := http.StatusOK
	if resp.Status != HealthStatusHealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}
