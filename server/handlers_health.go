package server

import (
	"fmt"
	"net/http"
	"time"
)

// HandleHealthz responds to liveness probe requests by checking database connectivity.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DB.PingContext(r.Context()); err != nil {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probe requests with detailed checks:
// database connectivity and schema presence.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"database", func() error { return h.deps.DB.PingContext(r.Context()) }},
		{"schema", func() error {
			var n int
			if err := h.deps.DB.QueryRowContext(r.Context(),
				"SELECT COUNT(*) FROM profiles").Scan(&n); err != nil {
				return fmt.Errorf("profiles table: %w", err)
			}
			return nil
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

// HandleStatus reports uptime and rough service-level counts for dashboards.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	var profiles, contexts int
	_ = h.deps.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&profiles)
	_ = h.deps.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM game_contexts`).Scan(&contexts)

	out := map[string]any{
		"status":          "ok",
		"uptime_seconds":  int(time.Since(h.started).Seconds()),
		"profiles":        profiles,
		"active_contexts": contexts,
	}
	if h.deps.Hub != nil {
		out["overlay_clients"] = h.deps.Hub.ClientCount()
	}
	writeJSON(w, http.StatusOK, out)
}
