package server

import (
	"net/http"
	"time"

	"github.com/johnyUofL/coursechat/telemetry"
)

// HandleHealthz responds to liveness probes. The archive database is checked
// when configured; an agent without one is still alive.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probes: the archive must answer a ping
// and the platform must issue an access token.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"database", func() error {
			if h.db == nil {
				return nil
			}
			return h.db.PingContext(r.Context())
		}},
		{"platform_token", func() error {
			_, err := h.api.TokenSource.Get(r.Context())
			return err
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// HandleStatus reports the agent's view of itself: who it is, what sessions
// are open, and whether tracing is on.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"self":            h.mgr.Self(),
		"sessions":        h.mgr.Sessions(),
		"archive":         h.db != nil,
		"tracing_enabled": telemetry.IsTracingEnabled(),
		"time":            time.Now().UTC(),
	})
}
