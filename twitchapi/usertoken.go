package twitchapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// TokenStore persists broadcaster OAuth tokens. db.TokenStoreAdapter
// implements it over the oauth_tokens table.
type TokenStore interface {
	GetOAuthToken(ctx context.Context, provider, userID string) (access, refresh string, expiry time.Time, scope string, err error)
	UpsertOAuthToken(ctx context.Context, provider, userID, access, refresh string, expiry time.Time, scope string) error
}

// userTokenExpirySlack refreshes tokens this close to expiring instead of
// risking a rejected call.
const userTokenExpirySlack = 2 * time.Minute

// UserTokenSource yields valid user access tokens from the store, refreshing
// and persisting them when they are near expiry. It implements
// UserTokenProvider for the Helix client.
type UserTokenSource struct {
	ClientID     string
	ClientSecret string
	Store        TokenStore
	HTTPClient   *http.Client

	mu sync.Mutex
}

func (s *UserTokenSource) UserToken(ctx context.Context, userID string) (string, error) {
	// Serialized so two concurrent callers cannot both spend the same
	// refresh token; Twitch invalidates it on first use.
	s.mu.Lock()
	defer s.mu.Unlock()

	access, refresh, expiry, _, err := s.Store.GetOAuthToken(ctx, "twitch", userID)
	if err != nil {
		return "", fmt.Errorf("load twitch token: %w", err)
	}
	if access == "" && refresh == "" {
		return "", fmt.Errorf("no twitch token for user %s", userID)
	}
	if access != "" && time.Until(expiry) > userTokenExpirySlack {
		return access, nil
	}
	if refresh == "" {
		return "", fmt.Errorf("twitch token for user %s expired with no refresh token", userID)
	}

	res, err := refreshTokenWithClient(ctx, s.HTTPClient, s.ClientID, s.ClientSecret, refresh)
	if err != nil {
		return "", fmt.Errorf("refresh twitch token: %w", err)
	}
	newRefresh := res.RefreshToken
	if newRefresh == "" {
		newRefresh = refresh
	}
	if err := s.Store.UpsertOAuthToken(ctx, "twitch", userID, res.AccessToken, newRefresh, ComputeExpiry(res.ExpiresIn), strings.Join(res.Scope, " ")); err != nil {
		// The fresh token still works for this call; next call refreshes again.
		slog.Warn("failed to persist refreshed twitch token",
			slog.String("user_id", userID), slog.Any("err", err))
	}
	return res.AccessToken, nil
}
