package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/onnwee/stream-tender/backend/models"
)

// HandleUsersDispatcher routes the per-user dashboard API:
//
//	GET  /api/users/{id}/context
//	POST /api/users/{id}/game
//	GET  /api/users/{id}/games
//	GET  /api/users/{id}/games/{gameID}/selection
//	PUT  /api/users/{id}/games/{gameID}/selection
//	PUT  /api/users/{id}/games/{gameID}/labels
//	POST /api/users/{id}/counters/{name}/increment
//	POST /api/users/{id}/counters/{name}/decrement
func (h *Handlers) HandleUsersDispatcher(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/users/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) < 2 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	userID := parts[0]

	switch {
	case len(parts) == 2 && parts[1] == "context":
		h.handleGameContext(w, r, userID)
	case len(parts) == 2 && parts[1] == "game":
		h.handleSetGame(w, r, userID)
	case len(parts) == 2 && parts[1] == "games":
		h.handleListGames(w, r, userID)
	case len(parts) == 4 && parts[1] == "games" && parts[3] == "selection":
		h.handleSelection(w, r, userID, parts[2])
	case len(parts) == 4 && parts[1] == "games" && parts[3] == "labels":
		h.handleGameLabels(w, r, userID, parts[2])
	case len(parts) == 4 && parts[1] == "counters":
		h.handleCounterAdjust(w, r, userID, parts[2], parts[3])
	default:
		http.NotFound(w, r)
	}
}

func (h *Handlers) handleGameContext(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	gc, err := h.deps.Store.GetGameContext(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if gc == nil {
		http.Error(w, "no game context", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, gc)
}

// handleSetGame is the dashboard "set category" action: a manual detection
// dispatched through the same orchestrator path as the stream monitor's.
func (h *Handlers) handleSetGame(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		GameID    string `json:"game_id"`
		GameName  string `json:"game_name"`
		BoxArtURL string `json:"box_art_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.GameID == "" {
		http.Error(w, "game_id required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	h.locked(userID, func() {
		h.deps.Orch.HandleGameDetected(ctx, userID, req.GameID, req.GameName, req.BoxArtURL)
	})

	gc, err := h.deps.Store.GetGameContext(ctx, userID)
	if err != nil || gc == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "context": gc})
}

func (h *Handlers) handleListGames(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	items, err := h.deps.Store.ListLibrary(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.GameLibraryItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// handleSelection reads or writes the per-game core counter selection. A PUT
// for the currently active game re-applies the selection immediately so the
// overlay and chat commands follow without waiting for the next switch.
func (h *Handlers) handleSelection(w http.ResponseWriter, r *http.Request, userID, gameID string) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		sel, err := h.deps.Store.GetCoreSelection(ctx, userID, gameID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if sel == nil {
			http.Error(w, "no selection for game", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, sel)

	case http.MethodPut:
		var req struct {
			DeathsEnabled  bool `json:"deaths_enabled"`
			SwearsEnabled  bool `json:"swears_enabled"`
			ScreamsEnabled bool `json:"screams_enabled"`
			BitsEnabled    bool `json:"bits_enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		sel := &models.CoreCounterSelection{
			UserID:         userID,
			GameID:         gameID,
			DeathsEnabled:  req.DeathsEnabled,
			SwearsEnabled:  req.SwearsEnabled,
			ScreamsEnabled: req.ScreamsEnabled,
			BitsEnabled:    req.BitsEnabled,
		}
		if err := h.deps.Store.SaveCoreSelection(ctx, sel); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		applied := false
		gc, err := h.deps.Store.GetGameContext(ctx, userID)
		if err == nil && gc != nil && models.SameGameID(gc.GameID, gameID) {
			h.locked(userID, func() {
				h.deps.Orch.ApplyActiveCoreCountersSelection(ctx, userID, gameID)
			})
			applied = true
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "applied": applied})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleGameLabels writes the per-game content classification override.
// labels null clears the override; an empty array stores "explicitly none".
func (h *Handlers) handleGameLabels(w http.ResponseWriter, r *http.Request, userID, gameID string) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Labels []string `json:"labels"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := h.deps.Store.SetLibraryCCLs(r.Context(), userID, gameID, req.Labels); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handlers) handleCounterAdjust(w http.ResponseWriter, r *http.Request, userID, name, action string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var delta int
	switch action {
	case "increment":
		delta = 1
	case "decrement":
		delta = -1
	default:
		http.NotFound(w, r)
		return
	}
	c, err := h.deps.Counters.Adjust(r.Context(), userID, name, delta)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
