package chatbot

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"
)

// ChannelLister yields the channels to join: login -> user id.
type ChannelLister interface {
	ListChatChannels(ctx context.Context) (map[string]string, error)
}

// StartBot connects the bot account to Twitch IRC, joins every enrolled
// channel, and answers counter commands until ctx is cancelled. Channel
// membership is refreshed on a ticker so newly enrolled broadcasters are
// joined without a restart.
// Env knobs:
//
//	TWITCH_BOT_USERNAME, TWITCH_OAUTH_TOKEN required
//	CHAT_CHANNEL_REFRESH (default 1m)
func StartBot(ctx context.Context, channels ChannelLister, responder *Responder) {
	username := os.Getenv("TWITCH_BOT_USERNAME")
	oauth := os.Getenv("TWITCH_OAUTH_TOKEN")
	if username == "" || oauth == "" {
		slog.Info("chat bot creds not set; skipping chat bot")
		return
	}
	client := twitch.NewClient(username, oauth)

	var mu sync.Mutex
	joined := map[string]string{} // channel login -> user id

	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		mu.Lock()
		userID, ok := joined[strings.ToLower(msg.Channel)]
		mu.Unlock()
		if !ok {
			return
		}
		reply := responder.HandleMessage(ctx, userID, Message{
			Text:        msg.Message,
			DisplayName: msg.User.DisplayName,
			Elevated:    isElevated(msg),
		})
		if reply != "" {
			client.Say(msg.Channel, reply)
		}
	})

	refresh := func() {
		chans, err := channels.ListChatChannels(ctx)
		if err != nil {
			slog.Warn("chat bot: list channels", slog.Any("err", err))
			return
		}
		mu.Lock()
		defer mu.Unlock()
		for login, userID := range chans {
			if _, ok := joined[login]; !ok {
				client.Join(login)
				slog.Info("chat bot: joined channel", slog.String("channel", login))
			}
			joined[login] = userID
		}
		for login := range joined {
			if _, ok := chans[login]; !ok {
				delete(joined, login)
				client.Depart(login)
				slog.Info("chat bot: left channel", slog.String("channel", login))
			}
		}
	}
	refresh()

	interval := time.Minute
	if v := os.Getenv("CHAT_CHANNEL_REFRESH"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			interval = d
		}
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				refresh()
			}
		}
	}()

	// Handle context cancellation by closing the client
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		client.Disconnect()
		close(done)
	}()

	if err := client.Connect(); err != nil {
		slog.Error("twitch chat connect error", slog.Any("err", err))
	}
	<-done
}

func isElevated(msg twitch.PrivateMessage) bool {
	return msg.User.Badges["broadcaster"] > 0 || msg.User.Badges["moderator"] > 0
}
