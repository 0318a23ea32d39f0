package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/onnwee/stream-tender/backend/counters"
	"github.com/onnwee/stream-tender/backend/gameswitch"
	"github.com/onnwee/stream-tender/backend/models"
	"github.com/onnwee/stream-tender/backend/overlay"
	"github.com/onnwee/stream-tender/backend/store"
	"github.com/onnwee/stream-tender/backend/testutil"
)

func newTestMux(t *testing.T) (http.Handler, *store.Store) {
	t.Helper()
	database := testutil.SetupTestDB(t)
	st := store.New(database)
	hub := overlay.NewHub()
	serializer := gameswitch.NewUserSerializer()
	orch := &gameswitch.Orchestrator{
		Contexts:           st,
		GameCounters:       st,
		GameChatCommands:   st,
		GameCustomCounters: st,
		Selections:         st,
		Active:             st,
		Library:            st,
		Profiles:           st,
		Notifier:           hub,
	}
	deps := Deps{
		DB:         database,
		Store:      st,
		Hub:        hub,
		Orch:       orch,
		Serializer: serializer,
		Counters:   &counters.Service{Store: st, Notifier: hub, Serializer: serializer},
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewMux(ctx, deps), st
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthAndStatusEndpoints(t *testing.T) {
	handler, _ := newTestMux(t)

	if rr := doJSON(t, handler, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
		t.Fatalf("healthz: got %d, want 200", rr.Code)
	}
	if rr := doJSON(t, handler, http.MethodGet, "/readyz", ""); rr.Code != http.StatusOK {
		t.Fatalf("readyz: got %d, want 200", rr.Code)
	}

	rr := doJSON(t, handler, http.MethodGet, "/status", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var status map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &status); err != nil {
		t.Fatalf("status body: %v", err)
	}
	if status["status"] != "ok" {
		t.Errorf("status = %v", status["status"])
	}
	if rr.Header().Get("X-Correlation-ID") == "" {
		t.Error("expected correlation id header")
	}
}

func TestSetGameAndContextEndpoints(t *testing.T) {
	handler, st := newTestMux(t)
	ctx := context.Background()
	if err := st.EnsureProfile(ctx, "42", "streamer", "Streamer"); err != nil {
		t.Fatalf("ensure profile: %v", err)
	}

	// No context yet.
	if rr := doJSON(t, handler, http.MethodGet, "/api/users/42/context", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("context before switch: got %d, want 404", rr.Code)
	}

	rr := doJSON(t, handler, http.MethodPost, "/api/users/42/game",
		`{"game_id":"509658","game_name":"Just Chatting","box_art_url":"https://example.com/jc.jpg"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("set game: got %d, body %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, handler, http.MethodGet, "/api/users/42/context", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("context after switch: got %d", rr.Code)
	}
	var gc models.GameContext
	if err := json.Unmarshal(rr.Body.Bytes(), &gc); err != nil {
		t.Fatalf("context body: %v", err)
	}
	if gc.GameID != "509658" || gc.GameName != "Just Chatting" {
		t.Errorf("context = %+v", gc)
	}

	// The game landed in the library.
	rr = doJSON(t, handler, http.MethodGet, "/api/users/42/games", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list games: got %d", rr.Code)
	}
	var items []models.GameLibraryItem
	if err := json.Unmarshal(rr.Body.Bytes(), &items); err != nil {
		t.Fatalf("games body: %v", err)
	}
	if len(items) != 1 || items[0].GameID != "509658" {
		t.Errorf("library = %+v", items)
	}

	// Missing game_id is rejected.
	if rr := doJSON(t, handler, http.MethodPost, "/api/users/42/game", `{"game_name":"x"}`); rr.Code != http.StatusBadRequest {
		t.Errorf("set game without id: got %d, want 400", rr.Code)
	}
}

func TestSelectionEndpoints(t *testing.T) {
	handler, st := newTestMux(t)
	ctx := context.Background()
	if err := st.EnsureProfile(ctx, "42", "streamer", "Streamer"); err != nil {
		t.Fatalf("ensure profile: %v", err)
	}

	if rr := doJSON(t, handler, http.MethodGet, "/api/users/42/games/777/selection", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("selection before put: got %d, want 404", rr.Code)
	}

	rr := doJSON(t, handler, http.MethodPut, "/api/users/42/games/777/selection",
		`{"deaths_enabled":true,"swears_enabled":false,"screams_enabled":true,"bits_enabled":false}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("put selection: got %d, body %s", rr.Code, rr.Body.String())
	}
	var put map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &put); err != nil {
		t.Fatalf("put body: %v", err)
	}
	// No active context for game 777, so nothing was re-applied.
	if put["applied"] != false {
		t.Errorf("applied = %v, want false", put["applied"])
	}

	rr = doJSON(t, handler, http.MethodGet, "/api/users/42/games/777/selection", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get selection: got %d", rr.Code)
	}
	var sel models.CoreCounterSelection
	if err := json.Unmarshal(rr.Body.Bytes(), &sel); err != nil {
		t.Fatalf("selection body: %v", err)
	}
	if !sel.DeathsEnabled || sel.SwearsEnabled || !sel.ScreamsEnabled || sel.BitsEnabled {
		t.Errorf("selection = %+v", sel)
	}

	// Selection for the live game is applied immediately.
	doJSON(t, handler, http.MethodPost, "/api/users/42/game", `{"game_id":"777","game_name":"Elden Ring"}`)
	rr = doJSON(t, handler, http.MethodPut, "/api/users/42/games/777/selection",
		`{"deaths_enabled":true,"swears_enabled":true,"screams_enabled":true,"bits_enabled":true}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("put selection live: got %d", rr.Code)
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &put); err != nil {
		t.Fatalf("put body: %v", err)
	}
	if put["applied"] != true {
		t.Errorf("applied = %v, want true for the live game", put["applied"])
	}
}

func TestGameLabelsEndpoint(t *testing.T) {
	handler, st := newTestMux(t)
	ctx := context.Background()
	if err := st.EnsureProfile(ctx, "42", "streamer", "Streamer"); err != nil {
		t.Fatalf("ensure profile: %v", err)
	}
	doJSON(t, handler, http.MethodPost, "/api/users/42/game", `{"game_id":"777","game_name":"Elden Ring"}`)

	rr := doJSON(t, handler, http.MethodPut, "/api/users/42/games/777/labels",
		`{"labels":["ViolentGraphic"]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("put labels: got %d, body %s", rr.Code, rr.Body.String())
	}

	item, err := st.GetLibraryItem(ctx, "42", "777")
	if err != nil {
		t.Fatalf("library item: %v", err)
	}
	if item == nil || len(item.CCLs) != 1 || item.CCLs[0] != "ViolentGraphic" {
		t.Errorf("library item = %+v", item)
	}
}

func TestCounterEndpoints(t *testing.T) {
	handler, st := newTestMux(t)
	ctx := context.Background()
	if err := st.EnsureProfile(ctx, "42", "streamer", "Streamer"); err != nil {
		t.Fatalf("ensure profile: %v", err)
	}

	rr := doJSON(t, handler, http.MethodPost, "/api/users/42/counters/deaths/increment", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("increment: got %d, body %s", rr.Code, rr.Body.String())
	}
	var c models.Counter
	if err := json.Unmarshal(rr.Body.Bytes(), &c); err != nil {
		t.Fatalf("counter body: %v", err)
	}
	if c.Deaths != 1 {
		t.Errorf("deaths = %d, want 1", c.Deaths)
	}

	// Decrement clamps at zero.
	doJSON(t, handler, http.MethodPost, "/api/users/42/counters/deaths/decrement", "")
	rr = doJSON(t, handler, http.MethodPost, "/api/users/42/counters/deaths/decrement", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("decrement at zero: got %d", rr.Code)
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &c); err != nil {
		t.Fatalf("counter body: %v", err)
	}
	if c.Deaths != 0 {
		t.Errorf("deaths = %d, want 0 after clamp", c.Deaths)
	}

	// Unknown custom counter name.
	if rr := doJSON(t, handler, http.MethodPost, "/api/users/42/counters/rage_quits/increment", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("unknown counter: got %d, want 400", rr.Code)
	}
}

func TestOverlayStateEndpoint(t *testing.T) {
	handler, st := newTestMux(t)
	ctx := context.Background()
	if err := st.EnsureProfile(ctx, "42", "streamer", "Streamer"); err != nil {
		t.Fatalf("ensure profile: %v", err)
	}
	doJSON(t, handler, http.MethodPost, "/api/users/42/counters/swears/increment", "")

	rr := doJSON(t, handler, http.MethodGet, "/overlay/42/state", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("overlay state: got %d", rr.Code)
	}
	var state struct {
		Counter    models.Counter           `json:"counter"`
		Visibility models.CounterVisibility `json:"visibility"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &state); err != nil {
		t.Fatalf("state body: %v", err)
	}
	if state.Counter.Swears != 1 {
		t.Errorf("swears = %d, want 1", state.Counter.Swears)
	}
	if !state.Visibility.Deaths || !state.Visibility.Bits {
		t.Errorf("visibility should default to shown: %+v", state.Visibility)
	}
}

func TestAdminMonitorEndpoint(t *testing.T) {
	t.Setenv("ADMIN_TOKEN", "test-token")
	handler, st := newTestMux(t)
	if err := st.EnsureProfile(context.Background(), "42", "streamer", "Streamer"); err != nil {
		t.Fatalf("ensure profile: %v", err)
	}

	// Without credentials.
	if rr := doJSON(t, handler, http.MethodGet, "/admin/monitor", ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated: got %d, want 401", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/monitor", nil)
	req.Header.Set("X-Admin-Token", "test-token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("authenticated: got %d", rr.Code)
	}
	var stats map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &stats); err != nil {
		t.Fatalf("monitor body: %v", err)
	}
	if stats["profiles"] != float64(1) {
		t.Errorf("profiles = %v, want 1", stats["profiles"])
	}
}
