package server

import (
	"net/http"
)

// HandleAdminMonitor returns a monitoring summary: worker heartbeats from kv
// plus enrollment and connection counts.
func (h *Handlers) HandleAdminMonitor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	stats := map[string]any{}

	keys := []string{"job_category_monitor_last"}
	for _, k := range keys {
		var val string
		row := h.deps.DB.QueryRowContext(ctx, `SELECT value FROM kv WHERE key=$1`, k)
		_ = row.Scan(&val)
		if val != "" {
			stats[k] = val
		}
	}

	var profiles, contexts, library, tokens int
	_ = h.deps.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&profiles)
	_ = h.deps.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM game_contexts`).Scan(&contexts)
	_ = h.deps.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM game_library`).Scan(&library)
	_ = h.deps.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM oauth_tokens WHERE provider='twitch'`).Scan(&tokens)
	stats["profiles"] = profiles
	stats["active_contexts"] = contexts
	stats["library_entries"] = library
	stats["twitch_tokens"] = tokens
	if h.deps.Hub != nil {
		stats["overlay_clients"] = h.deps.Hub.ClientCount()
	}

	writeJSON(w, http.StatusOK, stats)
}
