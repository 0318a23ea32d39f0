// Package server exposes the HTTP API: health, status, metrics, OAuth
// onboarding, the overlay event stream, and the per-game settings surface the
// dashboard uses. It includes permissive CORS for development and injects
// correlation IDs into request contexts for consistent logging.
package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/onnwee/stream-tender/backend/counters"
	"github.com/onnwee/stream-tender/backend/gameswitch"
	"github.com/onnwee/stream-tender/backend/overlay"
	"github.com/onnwee/stream-tender/backend/store"
	"github.com/onnwee/stream-tender/backend/twitchapi"
)

// Maximum number of OAuth states to keep in memory.
const maxOAuthStates = 10000

// Deps collects what the HTTP layer needs from the rest of the service.
// Helix may be nil when Twitch credentials are not configured; the OAuth
// endpoints then answer with a configuration error instead of panicking.
type Deps struct {
	DB         *sql.DB
	Store      *store.Store
	Hub        *overlay.Hub
	Orch       *gameswitch.Orchestrator
	Serializer *gameswitch.UserSerializer
	Counters   *counters.Service
	Helix      *twitchapi.HelixClient
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	deps    Deps
	started time.Time

	stateMu    sync.RWMutex
	stateStore map[string]time.Time
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{
		deps:       deps,
		started:    time.Now(),
		stateStore: make(map[string]time.Time),
	}
}

// locked runs fn under the per-user lock when a serializer is configured.
// Switch-affecting work from HTTP must not interleave with the monitor's.
func (h *Handlers) locked(userID string, fn func()) {
	if h.deps.Serializer != nil {
		h.deps.Serializer.Do(userID, fn)
		return
	}
	fn()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}

// cleanExpiredStates removes expired OAuth states from the store.
// This should be called with stateMu locked.
func (h *Handlers) cleanExpiredStates() {
	now := time.Now()
	for state, expiry := range h.stateStore {
		if now.After(expiry) {
			delete(h.stateStore, state)
		}
	}
}

// addOAuthState adds a new OAuth state to the store with cleanup if needed.
func (h *Handlers) addOAuthState(state string, expiry time.Time) {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()

	if len(h.stateStore)%100 == 0 {
		h.cleanExpiredStates()
	}

	// Over the cap, refuse to add: a failed OAuth flow beats memory
	// exhaustion from state flooding.
	if len(h.stateStore) >= maxOAuthStates {
		return
	}

	h.stateStore[state] = expiry
}

// takeOAuthState validates and consumes a state value.
func (h *Handlers) takeOAuthState(state string) bool {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	exp, ok := h.stateStore[state]
	if !ok {
		return false
	}
	delete(h.stateStore, state)
	return time.Now().Before(exp)
}
