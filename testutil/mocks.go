package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// MockTwitchServer creates a test server that mocks Twitch Helix API responses
type MockTwitchServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

// NewMockTwitchServer creates a new mock Twitch API server
func NewMockTwitchServer(t *testing.T) *MockTwitchServer {
	t.Helper()
	m := &MockTwitchServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if handler, ok := m.Handlers[key]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// MockUserResponse adds a handler for the /helix/users endpoint
func (m *MockTwitchServer) MockUserResponse(userID, login, displayName string) {
	m.Handlers["/helix/users"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"data": []map[string]string{
				{"id": userID, "login": login, "display_name": displayName},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// MockStreamsResponse adds a handler for the /helix/streams endpoint. Each
// entry should carry user_id, game_id and game_name like the real API.
func (m *MockTwitchServer) MockStreamsResponse(streams []map[string]interface{}) {
	m.Handlers["/helix/streams"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"data": streams,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// MockGamesResponse adds a handler for the /helix/games endpoint. The box art
// URL carries the {width}x{height} template the way Helix returns it.
func (m *MockTwitchServer) MockGamesResponse(gameID, name string) {
	m.Handlers["/helix/games"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"data": []map[string]string{
				{
					"id":          gameID,
					"name":        name,
					"box_art_url": "https://static-cdn.jtvnw.net/ttv-boxart/" + gameID + "-{width}x{height}.jpg",
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// ChannelPatch is one recorded PATCH /helix/channels body.
type ChannelPatch struct {
	BroadcasterID string
	Body          map[string]interface{}
}

// MockChannelPatch records channel update requests and answers 204. The
// returned function yields the patches seen so far.
func (m *MockTwitchServer) MockChannelPatch() func() []ChannelPatch {
	var mu sync.Mutex
	var patches []ChannelPatch
	m.Handlers["/helix/channels"] = func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		_ = json.Unmarshal(raw, &body) //nolint:errcheck // test mock request
		mu.Lock()
		patches = append(patches, ChannelPatch{
			BroadcasterID: r.URL.Query().Get("broadcaster_id"),
			Body:          body,
		})
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}
	return func() []ChannelPatch {
		mu.Lock()
		defer mu.Unlock()
		out := make([]ChannelPatch, len(patches))
		copy(out, patches)
		return out
	}
}

// MockOAuthTokenResponse adds a handler for the OAuth token endpoint
func (m *MockTwitchServer) MockOAuthTokenResponse(accessToken string, expiresIn int) {
	m.Handlers["/oauth2/token"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"access_token": accessToken,
			"expires_in":   expiresIn,
			"token_type":   "bearer",
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}
