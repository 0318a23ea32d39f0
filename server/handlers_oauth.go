package server

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/onnwee/stream-tender/backend/config"
	dbpkg "github.com/onnwee/stream-tender/backend/db"
	"github.com/onnwee/stream-tender/backend/twitchapi"
)

// HandleTwitchOAuthStart initiates the Twitch OAuth flow by redirecting to Twitch.
func (h *Handlers) HandleTwitchOAuthStart(w http.ResponseWriter, r *http.Request) {
	cfg, _ := config.Load() // ignore error; minimal usage
	if cfg.TwitchClientID == "" || cfg.TwitchRedirectURI == "" {
		http.Error(w, "oauth not configured (need TWITCH_CLIENT_ID + TWITCH_REDIRECT_URI)", http.StatusBadRequest)
		return
	}
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		http.Error(w, "state gen error", http.StatusInternalServerError)
		return
	}
	st := hex.EncodeToString(b)
	h.addOAuthState(st, time.Now().Add(10*time.Minute))
	authURL, err := twitchapi.BuildAuthorizeURL(cfg.TwitchClientID, cfg.TwitchRedirectURI, cfg.TwitchScopes, st)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleTwitchOAuthCallback completes onboarding: it exchanges the code,
// resolves which broadcaster the token belongs to, creates or refreshes their
// profile, and stores the token for that user.
func (h *Handlers) HandleTwitchOAuthCallback(w http.ResponseWriter, r *http.Request) {
	cfg, _ := config.Load()
	code := r.URL.Query().Get("code")
	st := r.URL.Query().Get("state")
	if code == "" || st == "" {
		http.Error(w, "missing code/state", http.StatusBadRequest)
		return
	}
	if !h.takeOAuthState(st) {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	res, err := twitchapi.ExchangeAuthCode(ctx, cfg.TwitchClientID, cfg.TwitchClientSecret, code, cfg.TwitchRedirectURI)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// The token itself tells us whose channel this is.
	hc := h.deps.Helix
	if hc == nil {
		hc = &twitchapi.HelixClient{ClientID: cfg.TwitchClientID}
	}
	owner, err := hc.GetTokenOwner(ctx, res.AccessToken)
	if err != nil {
		http.Error(w, "could not resolve token owner: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.deps.Store.EnsureProfile(ctx, owner.ID, owner.Login, owner.DisplayName); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := dbpkg.UpsertOAuthToken(ctx, h.deps.DB, "twitch", owner.ID, res.AccessToken, res.RefreshToken,
		twitchapi.ComputeExpiry(res.ExpiresIn), strings.Join(res.Scope, " ")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("broadcaster enrolled",
		slog.String("user_id", owner.ID), slog.String("login", owner.Login))
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"user_id":    owner.ID,
		"login":      owner.Login,
		"scopes":     res.Scope,
		"expires_in": res.ExpiresIn,
	})
}
