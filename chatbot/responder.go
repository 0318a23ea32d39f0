package chatbot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/onnwee/stream-tender/backend/counters"
	"github.com/onnwee/stream-tender/backend/models"
	"github.com/onnwee/stream-tender/backend/telemetry"
)

// SettingsStore resolves command enablement and custom counter definitions.
type SettingsStore interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	GetActiveChatCommands(ctx context.Context, userID string) (*models.ChatCommandConfig, error)
	GetActiveCustomCounters(ctx context.Context, userID string) (*models.CustomCounterConfig, error)
}

// Message is the slice of an IRC message the responder cares about.
type Message struct {
	Text        string
	DisplayName string
	// Elevated is true for the broadcaster and moderators; only they may
	// adjust counters with the +/- suffix.
	Elevated bool
}

// Responder turns counter commands into chat replies. An empty reply means
// stay silent; disabled and unknown commands are never answered.
type Responder struct {
	Store    SettingsStore
	Counters *counters.Service
}

// HandleMessage processes one chat line for the given broadcaster.
func (r *Responder) HandleMessage(ctx context.Context, userID string, msg Message) string {
	cmd, delta := parseCommand(msg.Text)
	if cmd == "" {
		return ""
	}
	if delta != 0 && !msg.Elevated {
		// Everyone else gets the current value.
		delta = 0
	}

	name, label, ok := r.resolve(ctx, userID, cmd)
	if !ok {
		return ""
	}
	if !r.enabled(ctx, userID, cmd) {
		return ""
	}

	var (
		c   *models.Counter
		err error
	)
	if delta != 0 {
		c, err = r.Counters.Adjust(ctx, userID, name, delta)
	} else {
		c, err = r.Counters.Snapshot(ctx, userID)
	}
	if err != nil {
		slog.Debug("chat bot: counter lookup failed",
			slog.String("user_id", userID), slog.String("command", cmd), slog.Any("err", err))
		return ""
	}

	v := c.Custom[name]
	if models.IsCoreCounter(name) {
		v = c.Core(name)
	}
	telemetry.CountChatCommand(cmd)
	return fmt.Sprintf("%s: %d", label, v)
}

// parseCommand extracts a "!command" token and an adjustment from a chat
// line. "!deaths" reads, "!deaths+" and "!deaths-" adjust by one.
func parseCommand(text string) (cmd string, delta int) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", 0
	}
	word := strings.ToLower(fields[0])
	if !strings.HasPrefix(word, "!") {
		return "", 0
	}
	switch {
	case strings.HasSuffix(word, "+"):
		word, delta = strings.TrimSuffix(word, "+"), 1
	case strings.HasSuffix(word, "-"):
		word, delta = strings.TrimSuffix(word, "-"), -1
	}
	if len(word) < 2 {
		return "", 0
	}
	return word, delta
}

// resolve maps a command to a counter name and reply label. Core counters
// match their canonical command; custom counters match their configured
// command, or "!<key>" when none is set.
func (r *Responder) resolve(ctx context.Context, userID, cmd string) (name, label string, ok bool) {
	for _, counter := range models.CoreCounters {
		if models.CoreCommand(counter) == cmd {
			return counter, counter, true
		}
	}
	cfg, err := r.Store.GetActiveCustomCounters(ctx, userID)
	if err != nil {
		slog.Debug("chat bot: custom counter lookup failed",
			slog.String("user_id", userID), slog.Any("err", err))
		return "", "", false
	}
	if cfg == nil {
		return "", "", false
	}
	for key, def := range cfg.Counters {
		if commandFor(key, def) != cmd {
			continue
		}
		label := def.Name
		if label == "" {
			label = key
		}
		return key, label, true
	}
	return "", "", false
}

func commandFor(key string, def models.CustomCounterDefinition) string {
	c := def.Command
	if c == "" {
		c = key
	}
	c = strings.ToLower(c)
	if !strings.HasPrefix(c, "!") {
		c = "!" + c
	}
	return c
}

// enabled resolves per-game override, then profile default, then enabled.
func (r *Responder) enabled(ctx context.Context, userID, cmd string) bool {
	p, err := r.Store.GetProfile(ctx, userID)
	if err != nil {
		p = nil
	}
	def := p.CommandEnabledByDefault(cmd)
	cfg, err := r.Store.GetActiveChatCommands(ctx, userID)
	if err != nil {
		return def
	}
	return cfg.Enabled(cmd, def)
}
