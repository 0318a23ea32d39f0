package twitchapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenSource yields Twitch app access (client credentials) tokens, cached
// and refreshed by the oauth2 machinery.
// NOTE: app tokens CANNOT be used for IRC chat or channel modification; those
// require a user OAuth token with the matching scopes.
type TokenSource struct {
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client

	// StaticToken short-circuits fetching entirely when set. Used by tests
	// and by deployments that provision a token out of band.
	StaticToken string

	mu  sync.Mutex
	src oauth2.TokenSource
}

// Get returns a valid (fresh or cached) app access token.
func (ts *TokenSource) Get(ctx context.Context) (string, error) {
	if ts.StaticToken != "" {
		return ts.StaticToken, nil
	}
	if ts.ClientID == "" || ts.ClientSecret == "" {
		return "", errors.New("missing client id/secret for twitch app token")
	}

	ts.mu.Lock()
	if ts.src == nil {
		cfg := &clientcredentials.Config{
			ClientID:     ts.ClientID,
			ClientSecret: ts.ClientSecret,
			TokenURL:     "https://id.twitch.tv/oauth2/token",
			// Twitch wants credentials in the form body, not basic auth.
			AuthStyle: oauth2.AuthStyleInParams,
		}
		// The oauth2 source keeps this context for every later refresh,
		// so it must outlive the request that first touched it.
		cctx := context.Background()
		if ts.HTTPClient != nil {
			cctx = context.WithValue(cctx, oauth2.HTTPClient, ts.HTTPClient)
		}
		ts.src = cfg.TokenSource(cctx)
	}
	src := ts.src
	ts.mu.Unlock()

	tok, err := src.Token()
	if err != nil {
		return "", fmt.Errorf("twitch app token: %w", err)
	}
	return tok.AccessToken, nil
}
