package gameswitch

import (
	"context"
	"log/slog"

	"github.com/onnwee/stream-tender/backend/models"
	"github.com/onnwee/stream-tender/backend/telemetry"
)

// Load-or-seed helpers for the per-game stores. Each follows the same rule:
// a record found is restored as-is, a confirmed absence is seeded with the
// safe default (and the seed persisted so it happens once per game), and a
// read error falls back to the default in memory without writing, so a
// transient failure can never overwrite an archive that may still exist.

func (o *Orchestrator) loadOrSeedCounter(ctx context.Context, log *slog.Logger, userID, gameID string) *models.Counter {
	c, err := o.GameCounters.GetGameCounter(ctx, userID, gameID)
	if err != nil {
		log.Warn("game counter read failed, starting from zero", slog.Any("error", err))
		telemetry.CountStoreFailure("game_counters")
		return models.NewCounter(userID)
	}
	if c != nil {
		c.OwnerID = userID
		if c.Custom == nil {
			c.Custom = map[string]int{}
		}
		return c
	}
	seeded := models.NewCounter(userID)
	if err := o.GameCounters.SaveGameCounter(ctx, userID, gameID, seeded); err != nil {
		log.Warn("game counter seed write failed", slog.Any("error", err))
		telemetry.CountStoreFailure("game_counters")
	}
	return seeded
}

func (o *Orchestrator) loadOrSeedChatCommands(ctx context.Context, log *slog.Logger, userID, gameID string) *models.ChatCommandConfig {
	cfg, err := o.GameChatCommands.GetGameChatCommands(ctx, userID, gameID)
	if err != nil {
		log.Warn("game chat command read failed, starting empty", slog.Any("error", err))
		telemetry.CountStoreFailure("game_chat_commands")
		return models.NewChatCommandConfig()
	}
	if cfg != nil {
		if cfg.Commands == nil {
			cfg.Commands = map[string]models.CommandOverride{}
		}
		return cfg
	}
	seeded := models.NewChatCommandConfig()
	if err := o.GameChatCommands.SaveGameChatCommands(ctx, userID, gameID, seeded); err != nil {
		log.Warn("game chat command seed write failed", slog.Any("error", err))
		telemetry.CountStoreFailure("game_chat_commands")
	}
	return seeded
}

func (o *Orchestrator) loadOrSeedCustomCounters(ctx context.Context, log *slog.Logger, userID, gameID string) *models.CustomCounterConfig {
	cfg, err := o.GameCustomCounters.GetGameCustomCounters(ctx, userID, gameID)
	if err != nil {
		log.Warn("game custom counter read failed, starting empty", slog.Any("error", err))
		telemetry.CountStoreFailure("game_custom_counters")
		return models.NewCustomCounterConfig()
	}
	if cfg != nil {
		if cfg.Counters == nil {
			cfg.Counters = map[string]models.CustomCounterDefinition{}
		}
		return cfg
	}
	seeded := models.NewCustomCounterConfig()
	if err := o.GameCustomCounters.SaveGameCustomCounters(ctx, userID, gameID, seeded); err != nil {
		log.Warn("game custom counter seed write failed", slog.Any("error", err))
		telemetry.CountStoreFailure("game_custom_counters")
	}
	return seeded
}

// ensureSelection seeds a core counter selection from the user's current
// overlay visibility when none exists yet. Reports whether it wrote a seed;
// a read error seeds nothing, since an existing record might be hiding
// behind the failure.
func (o *Orchestrator) ensureSelection(ctx context.Context, log *slog.Logger, userID, gameID string) bool {
	sel, err := o.Selections.GetCoreSelection(ctx, userID, gameID)
	if err != nil {
		log.Warn("core selection read failed, leaving selection alone", slog.Any("error", err))
		telemetry.CountStoreFailure("selections")
		return false
	}
	if sel != nil {
		return false
	}
	seeded := models.SelectionFromVisibility(userID, gameID, o.currentVisibility(ctx, log, userID))
	if err := o.Selections.SaveCoreSelection(ctx, seeded); err != nil {
		log.Warn("core selection seed write failed", slog.Any("error", err))
		telemetry.CountStoreFailure("selections")
		return false
	}
	log.Debug("seeded core selection from profile visibility")
	return true
}

// currentVisibility reads the user's overlay visibility; without a profile
// every core counter defaults to shown.
func (o *Orchestrator) currentVisibility(ctx context.Context, log *slog.Logger, userID string) models.CounterVisibility {
	p, err := o.Profiles.GetProfile(ctx, userID)
	if err != nil {
		log.Warn("profile read failed, seeding selection with defaults", slog.Any("error", err))
		telemetry.CountStoreFailure("profiles")
		p = nil
	}
	if p == nil {
		return models.CounterVisibility{Deaths: true, Swears: true, Screams: true, Bits: true}
	}
	return p.Visibility
}
