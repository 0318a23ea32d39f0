// Package gameswitch implements the game switch orchestrator: the component
// invoked whenever a broadcaster's active category changes. It retires the
// outgoing game's live state, restores or seeds the incoming game's state,
// reconciles core counter enablement and content classification labels, and
// pushes updates to overlay clients and the streaming platform.
//
// There is no transaction spanning the stores. The orchestrator sequences
// writes so the least reversible step (archiving the old active state) happens
// before anything destructive, and it tolerates any single dependency failing:
// a broken repository degrades one feature, never the whole switch.
package gameswitch

import (
	"context"

	"github.com/onnwee/stream-tender/backend/models"
)

// The consumed contracts. The store package implements all storage interfaces
// on one struct; they are declared separately because the stores fail
// independently and the orchestrator must degrade per store, not wholesale.

// ContextStore holds the single current-game record per user.
type ContextStore interface {
	GetGameContext(ctx context.Context, userID string) (*models.GameContext, error)
	SaveGameContext(ctx context.Context, gc *models.GameContext) error
}

// GameCounterStore archives counter snapshots per (user, game).
type GameCounterStore interface {
	GetGameCounter(ctx context.Context, userID, gameID string) (*models.Counter, error)
	SaveGameCounter(ctx context.Context, userID, gameID string, c *models.Counter) error
}

// GameChatCommandStore archives chat command override maps per (user, game).
type GameChatCommandStore interface {
	GetGameChatCommands(ctx context.Context, userID, gameID string) (*models.ChatCommandConfig, error)
	SaveGameChatCommands(ctx context.Context, userID, gameID string, cfg *models.ChatCommandConfig) error
}

// GameCustomCounterStore archives custom counter definitions per (user, game).
type GameCustomCounterStore interface {
	GetGameCustomCounters(ctx context.Context, userID, gameID string) (*models.CustomCounterConfig, error)
	SaveGameCustomCounters(ctx context.Context, userID, gameID string, cfg *models.CustomCounterConfig) error
}

// SelectionStore holds the per-game core counter enablement records.
type SelectionStore interface {
	GetCoreSelection(ctx context.Context, userID, gameID string) (*models.CoreCounterSelection, error)
	SaveCoreSelection(ctx context.Context, sel *models.CoreCounterSelection) error
}

// ActiveStateStore holds the live triple overlays and chat read from.
type ActiveStateStore interface {
	GetActiveCounter(ctx context.Context, userID string) (*models.Counter, error)
	SaveActiveCounter(ctx context.Context, c *models.Counter) error
	GetActiveChatCommands(ctx context.Context, userID string) (*models.ChatCommandConfig, error)
	SaveActiveChatCommands(ctx context.Context, userID string, cfg *models.ChatCommandConfig) error
	GetActiveCustomCounters(ctx context.Context, userID string) (*models.CustomCounterConfig, error)
	SaveActiveCustomCounters(ctx context.Context, userID string, cfg *models.CustomCounterConfig) error
}

// LibraryStore caches per-game display metadata and the CCL override.
type LibraryStore interface {
	GetLibraryItem(ctx context.Context, userID, gameID string) (*models.GameLibraryItem, error)
	UpsertLibraryItem(ctx context.Context, item *models.GameLibraryItem) error
}

// ProfileStore reads the user record; the orchestrator writes back only the
// overlay counter visibility.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	SaveProfile(ctx context.Context, p *models.Profile) error
}

// ChannelUpdater pushes category and content classification labels to the
// streaming platform. Best-effort: the orchestrator catches every error.
// labels nil means "leave labels untouched"; a non-nil empty slice clears them.
type ChannelUpdater interface {
	UpdateChannelInformation(ctx context.Context, userID, gameID string, labels []string) error
}

// Notifier pushes events to connected overlay and chat clients. Delivery is
// fire-and-forget and at-least-once; consumers must tolerate duplicates.
type Notifier interface {
	NotifySettingsUpdate(userID string, settings models.CounterVisibility)
	NotifyCounterUpdate(userID string, counter *models.Counter)
	NotifyCustomAlert(userID, alertType string, payload any)
}

// AlertChatCommandsUpdated is the custom alert type carrying the reconciled
// chat command override map.
const AlertChatCommandsUpdated = "chat_commands_updated"

// Orchestrator wires the ports. Channel and Notifier may be nil; the
// corresponding side effects are then skipped.
type Orchestrator struct {
	Contexts           ContextStore
	GameCounters       GameCounterStore
	GameChatCommands   GameChatCommandStore
	GameCustomCounters GameCustomCounterStore
	Selections         SelectionStore
	Active             ActiveStateStore
	Library            LibraryStore
	Profiles           ProfileStore
	Channel            ChannelUpdater
	Notifier           Notifier
}
