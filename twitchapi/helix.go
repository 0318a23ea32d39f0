// Package twitchapi contains minimal helpers to interact with Twitch: Helix
// lookups for users, live streams and categories using an app access token,
// and channel updates using a broadcaster's user token.
package twitchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// HelixUser identifies a Twitch account.
type HelixUser struct {
	ID              string `json:"id"`
	Login           string `json:"login"`
	DisplayName     string `json:"display_name"`
	ProfileImageURL string `json:"profile_image_url"`
}

// StreamInfo describes a live broadcast as reported by Helix.
type StreamInfo struct {
	UserID      string    `json:"user_id"`
	UserLogin   string    `json:"user_login"`
	GameID      string    `json:"game_id"`
	GameName    string    `json:"game_name"`
	Title       string    `json:"title"`
	ViewerCount int       `json:"viewer_count"`
	StartedAt   time.Time `json:"started_at"`
}

// GameInfo describes a category. BoxArtURL is returned with concrete
// dimensions substituted into the platform's size template.
type GameInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BoxArtURL string `json:"box_art_url"`
}

// ContentClassificationLabel toggles one label on a channel.
type ContentClassificationLabel struct {
	ID        string `json:"id"`
	IsEnabled bool   `json:"is_enabled"`
}

// ChannelUpdate carries the channel fields to modify. Nil fields are left
// untouched on the channel; a non-nil label slice replaces the label state.
type ChannelUpdate struct {
	GameID                      *string
	Title                       *string
	ContentClassificationLabels []ContentClassificationLabel
}

// UserTokenProvider yields a valid user access token for a broadcaster.
type UserTokenProvider interface {
	UserToken(ctx context.Context, userID string) (string, error)
}

// HelixClient provides the Helix calls the platform needs. Read endpoints use
// the app token; ModifyChannelInformation requires the broadcaster's user
// token via UserTokens.
type HelixClient struct {
	AppTokenSource *TokenSource
	UserTokens     UserTokenProvider
	ClientID       string
	HTTPClient     *http.Client
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

func (hc *HelixClient) newRequest(ctx context.Context, method, url, bearer string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+bearer)
	return req, nil
}

func (hc *HelixClient) appRequest(ctx context.Context, method, url string) (*http.Request, error) {
	tok, err := hc.AppTokenSource.Get(ctx)
	if err != nil {
		return nil, err
	}
	return hc.newRequest(ctx, method, url, tok, nil)
}

func closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		slog.Warn("failed to close response body", slog.Any("err", err))
	}
}

func checkStatus(resp *http.Response, want ...int) error {
	for _, w := range want {
		if resp.StatusCode == w {
			return nil
		}
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return fmt.Errorf("helix: %s: %s", resp.Status, strings.TrimSpace(string(b)))
}

// GetUserByLogin resolves a login name to its account record.
func (hc *HelixClient) GetUserByLogin(ctx context.Context, login string) (*HelixUser, error) {
	if login == "" {
		return nil, fmt.Errorf("login empty")
	}
	req, err := hc.appRequest(ctx, http.MethodGet, "https://api.twitch.tv/helix/users")
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("login", login)
	req.URL.RawQuery = q.Encode()
	resp, err := hc.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)
	if err := checkStatus(resp, http.StatusOK); err != nil {
		return nil, err
	}
	var body struct {
		Data []HelixUser `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if len(body.Data) == 0 {
		return nil, fmt.Errorf("user not found")
	}
	return &body.Data[0], nil
}

// GetTokenOwner returns the account a user access token belongs to. Helix
// answers /users without filters with the token's own user.
func (hc *HelixClient) GetTokenOwner(ctx context.Context, accessToken string) (*HelixUser, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("access token empty")
	}
	req, err := hc.newRequest(ctx, http.MethodGet, "https://api.twitch.tv/helix/users", accessToken, nil)
	if err != nil {
		return nil, err
	}
	resp, err := hc.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)
	if err := checkStatus(resp, http.StatusOK); err != nil {
		return nil, err
	}
	var body struct {
		Data []HelixUser `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if len(body.Data) == 0 {
		return nil, fmt.Errorf("token has no owner")
	}
	return &body.Data[0], nil
}

// GetStreams reports which of the given users are live. Offline users are
// simply absent from the result. Helix caps one query at 100 ids; callers
// with more must page, and the category monitor stays well below that.
func (hc *HelixClient) GetStreams(ctx context.Context, userIDs []string) ([]StreamInfo, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	if len(userIDs) > 100 {
		return nil, fmt.Errorf("too many user ids in one query: %d", len(userIDs))
	}
	req, err := hc.appRequest(ctx, http.MethodGet, "https://api.twitch.tv/helix/streams")
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	for _, id := range userIDs {
		q.Add("user_id", id)
	}
	q.Set("first", "100")
	req.URL.RawQuery = q.Encode()
	resp, err := hc.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)
	if err := checkStatus(resp, http.StatusOK); err != nil {
		return nil, err
	}
	var body struct {
		Data []StreamInfo `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body.Data, nil
}

// GetGame looks up a category by id; (nil, nil) when the id is unknown.
func (hc *HelixClient) GetGame(ctx context.Context, gameID string) (*GameInfo, error) {
	if gameID == "" {
		return nil, fmt.Errorf("gameID empty")
	}
	req, err := hc.appRequest(ctx, http.MethodGet, "https://api.twitch.tv/helix/games")
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("id", gameID)
	req.URL.RawQuery = q.Encode()
	resp, err := hc.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)
	if err := checkStatus(resp, http.StatusOK); err != nil {
		return nil, err
	}
	var body struct {
		Data []GameInfo `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if len(body.Data) == 0 {
		return nil, nil
	}
	g := body.Data[0]
	g.BoxArtURL = strings.NewReplacer("{width}", "285", "{height}", "380").Replace(g.BoxArtURL)
	return &g, nil
}

// ModifyChannelInformation patches the broadcaster's channel. Requires the
// broadcaster's user token with the channel:manage:broadcast scope.
func (hc *HelixClient) ModifyChannelInformation(ctx context.Context, broadcasterID string, upd ChannelUpdate) error {
	if broadcasterID == "" {
		return fmt.Errorf("broadcasterID empty")
	}
	if hc.UserTokens == nil {
		return fmt.Errorf("no user token provider configured")
	}
	tok, err := hc.UserTokens.UserToken(ctx, broadcasterID)
	if err != nil {
		return err
	}

	payload := map[string]any{}
	if upd.GameID != nil {
		payload["game_id"] = *upd.GameID
	}
	if upd.Title != nil {
		payload["title"] = *upd.Title
	}
	if upd.ContentClassificationLabels != nil {
		payload["content_classification_labels"] = upd.ContentClassificationLabels
	}
	if len(payload) == 0 {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := hc.newRequest(ctx, http.MethodPatch, "https://api.twitch.tv/helix/channels", tok, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	q := req.URL.Query()
	q.Set("broadcaster_id", broadcasterID)
	req.URL.RawQuery = q.Encode()

	resp, err := hc.http().Do(req)
	if err != nil {
		return err
	}
	defer closeBody(resp)
	return checkStatus(resp, http.StatusNoContent, http.StatusOK)
}
