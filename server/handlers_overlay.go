package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/onnwee/stream-tender/backend/models"
	"github.com/onnwee/stream-tender/backend/overlay"
)

// HandleOverlayDispatcher routes /overlay/{userID}/events and
// /overlay/{userID}/state.
func (h *Handlers) HandleOverlayDispatcher(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/overlay/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	userID := parts[0]
	switch parts[1] {
	case "events":
		h.handleOverlayEvents(w, r, userID)
	case "state":
		h.handleOverlayState(w, r, userID)
	default:
		http.NotFound(w, r)
	}
}

// handleOverlayEvents streams hub events for one user as Server-Sent Events.
// Clients fetch /state first for the full picture and then apply events; a
// dropped event is recovered by re-fetching state on reconnect.
func (h *Handlers) handleOverlayEvents(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	if h.deps.Hub == nil {
		http.Error(w, "overlay events unavailable", http.StatusServiceUnavailable)
		return
	}

	events, cancel := h.deps.Hub.Subscribe(userID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	enc := json.NewEncoder(w)
	// Keep intermediaries from timing the stream out while nothing happens.
	heartbeat := time.NewTicker(25 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeSSEEvent(w, enc, ev); err != nil {
				slog.Debug("overlay stream write failed", slog.String("user_id", userID), slog.Any("err", err))
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, enc *json.Encoder, ev overlay.Event) error {
	if _, err := w.Write([]byte("event: " + ev.Type + "\ndata: ")); err != nil {
		return err
	}
	if err := enc.Encode(ev); err != nil {
		return err
	}
	_, err := w.Write([]byte("\n"))
	return err
}

// handleOverlayState returns the full snapshot an overlay needs for its
// initial render: live counters, visibility, and custom counter definitions.
func (h *Handlers) handleOverlayState(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()

	counter, err := h.deps.Store.GetActiveCounter(ctx, userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if counter == nil {
		counter = models.NewCounter(userID)
	}

	visibility := models.CounterVisibility{Deaths: true, Swears: true, Screams: true, Bits: true}
	if p, err := h.deps.Store.GetProfile(ctx, userID); err == nil && p != nil {
		visibility = p.Visibility
	}

	custom, err := h.deps.Store.GetActiveCustomCounters(ctx, userID)
	if err != nil || custom == nil {
		custom = models.NewCustomCounterConfig()
	}

	gc, _ := h.deps.Store.GetGameContext(ctx, userID)

	writeJSON(w, http.StatusOK, map[string]any{
		"counter":         counter,
		"visibility":      visibility,
		"custom_counters": custom.Counters,
		"game_context":    gc,
	})
}
