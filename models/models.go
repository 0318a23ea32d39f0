// Package models defines the shared records persisted by the stores and
// exchanged with overlay clients: profiles, game contexts, counters, chat
// command overrides, custom counter definitions, and the game library.
package models

import (
	"strings"
	"time"
)

// Core counter names. These are fixed; everything else is a custom counter.
const (
	CounterDeaths  = "deaths"
	CounterSwears  = "swears"
	CounterScreams = "screams"
	CounterBits    = "bits"
)

// CoreCounters lists the built-in counters in display order.
var CoreCounters = []string{CounterDeaths, CounterSwears, CounterScreams, CounterBits}

// CoreCommand returns the canonical chat command for a core counter ("deaths" -> "!deaths").
func CoreCommand(counter string) string { return "!" + counter }

// IsCoreCounter reports whether name is one of the four built-in counters.
func IsCoreCounter(name string) bool {
	switch name {
	case CounterDeaths, CounterSwears, CounterScreams, CounterBits:
		return true
	}
	return false
}

// SameGameID compares two platform category ids case-insensitively.
func SameGameID(a, b string) bool { return strings.EqualFold(a, b) }

// CounterVisibility holds which core counters an overlay renders.
type CounterVisibility struct {
	Deaths  bool `json:"deaths"`
	Swears  bool `json:"swears"`
	Screams bool `json:"screams"`
	Bits    bool `json:"bits"`
}

// Profile is the per-user account record. The switch orchestrator reads it for
// default content classification labels and chat command defaults, and writes
// only the overlay counter visibility.
type Profile struct {
	UserID      string `json:"user_id"`
	TwitchLogin string `json:"twitch_login"`
	DisplayName string `json:"display_name"`

	// DefaultCCLs are the content classification labels applied when the
	// active game has no library override. nil means none configured.
	DefaultCCLs []string `json:"default_ccls,omitempty"`

	Visibility CounterVisibility `json:"visibility"`

	// ChatCommandDefaults is the baseline enablement per chat command when no
	// per-game override exists. A command absent from the map defaults to
	// enabled.
	ChatCommandDefaults map[string]bool `json:"chat_command_defaults,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CommandEnabledByDefault resolves the baseline enablement for a chat command.
func (p *Profile) CommandEnabledByDefault(command string) bool {
	if p == nil || p.ChatCommandDefaults == nil {
		return true
	}
	if v, ok := p.ChatCommandDefaults[command]; ok {
		return v
	}
	return true
}

// GameContext records which game is currently attributed to a user's session.
// One row per user, overwritten on every switch, never deleted.
type GameContext struct {
	UserID    string    `json:"user_id"`
	GameID    string    `json:"game_id"`
	GameName  string    `json:"game_name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Counter is a user's counter snapshot: the four core counts plus custom
// counts by name. It exists live (active state) and archived per game.
type Counter struct {
	OwnerID          string         `json:"owner_id"`
	Deaths           int            `json:"deaths"`
	Swears           int            `json:"swears"`
	Screams          int            `json:"screams"`
	Bits             int            `json:"bits"`
	Custom           map[string]int `json:"custom"`
	LastCategoryName string         `json:"last_category_name,omitempty"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// NewCounter returns an empty counter owned by userID. Custom is always a
// non-nil map so callers can assign without a nil check.
func NewCounter(userID string) *Counter {
	return &Counter{OwnerID: userID, Custom: map[string]int{}}
}

// Core returns the named core count, or 0 for unknown names.
func (c *Counter) Core(name string) int {
	switch name {
	case CounterDeaths:
		return c.Deaths
	case CounterSwears:
		return c.Swears
	case CounterScreams:
		return c.Screams
	case CounterBits:
		return c.Bits
	}
	return 0
}

// SetCore assigns the named core count; unknown names are ignored.
func (c *Counter) SetCore(name string, v int) {
	switch name {
	case CounterDeaths:
		c.Deaths = v
	case CounterSwears:
		c.Swears = v
	case CounterScreams:
		c.Screams = v
	case CounterBits:
		c.Bits = v
	}
}

// CommandOverride is a per-command enablement override. Presence in a
// ChatCommandConfig map is itself meaningful: an absent entry means "use the
// default enablement", which is why overrides are never stored as plain
// booleans beside a flag.
type CommandOverride struct {
	Enabled bool `json:"enabled"`
}

// ChatCommandConfig is a sparse override map for chat commands.
type ChatCommandConfig struct {
	Commands map[string]CommandOverride `json:"commands"`
}

// NewChatCommandConfig returns a config with an empty, non-nil override map.
func NewChatCommandConfig() *ChatCommandConfig {
	return &ChatCommandConfig{Commands: map[string]CommandOverride{}}
}

// Enabled resolves a command against the override map and a profile default.
func (c *ChatCommandConfig) Enabled(command string, def bool) bool {
	if c == nil || c.Commands == nil {
		return def
	}
	if ov, ok := c.Commands[command]; ok {
		return ov.Enabled
	}
	return def
}

// CustomCounterDefinition describes a user-defined counter for one game.
type CustomCounterDefinition struct {
	Name      string    `json:"name"`
	Command   string    `json:"command,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CustomCounterConfig holds a game's custom counter definitions by id.
type CustomCounterConfig struct {
	Counters map[string]CustomCounterDefinition `json:"counters"`
}

// NewCustomCounterConfig returns a config with an empty, non-nil definition
// map. A fresh game always starts from this, never from nil.
func NewCustomCounterConfig() *CustomCounterConfig {
	return &CustomCounterConfig{Counters: map[string]CustomCounterDefinition{}}
}

// CoreCounterSelection declares which core counters are relevant to one game.
// Absence of a row means "not yet decided for this game".
type CoreCounterSelection struct {
	UserID         string    `json:"user_id"`
	GameID         string    `json:"game_id"`
	DeathsEnabled  bool      `json:"deaths_enabled"`
	SwearsEnabled  bool      `json:"swears_enabled"`
	ScreamsEnabled bool      `json:"screams_enabled"`
	BitsEnabled    bool      `json:"bits_enabled"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Visibility converts the selection into overlay visibility settings.
func (s *CoreCounterSelection) Visibility() CounterVisibility {
	return CounterVisibility{
		Deaths:  s.DeathsEnabled,
		Swears:  s.SwearsEnabled,
		Screams: s.ScreamsEnabled,
		Bits:    s.BitsEnabled,
	}
}

// SelectionFromVisibility seeds a selection from current overlay visibility.
func SelectionFromVisibility(userID, gameID string, v CounterVisibility) *CoreCounterSelection {
	return &CoreCounterSelection{
		UserID:         userID,
		GameID:         gameID,
		DeathsEnabled:  v.Deaths,
		SwearsEnabled:  v.Swears,
		ScreamsEnabled: v.Screams,
		BitsEnabled:    v.Bits,
	}
}

// Enabled returns the selection state for a core counter name.
func (s *CoreCounterSelection) Enabled(counter string) bool {
	switch counter {
	case CounterDeaths:
		return s.DeathsEnabled
	case CounterSwears:
		return s.SwearsEnabled
	case CounterScreams:
		return s.ScreamsEnabled
	case CounterBits:
		return s.BitsEnabled
	}
	return false
}

// GameLibraryItem is the per-user-per-game metadata cache entry.
//
// CCLs is a per-game content classification override: nil means "no override"
// (fall through to the profile default), while a non-nil empty slice means
// "explicitly no labels for this game". The distinction survives the JSON and
// database NULL round-trips, so it must not be collapsed.
type GameLibraryItem struct {
	UserID     string    `json:"user_id"`
	GameID     string    `json:"game_id"`
	GameName   string    `json:"game_name"`
	BoxArtURL  string    `json:"box_art_url,omitempty"`
	CCLs       []string  `json:"ccls"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}
