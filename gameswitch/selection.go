package gameswitch

import (
	"context"
	"log/slog"

	"github.com/onnwee/stream-tender/backend/models"
	"github.com/onnwee/stream-tender/backend/telemetry"
)

// ApplyActiveCoreCountersSelection projects the stored per-game selection of
// core counters onto the user's live state: overlay visibility on the profile
// and disable overrides in the active chat command map. Without a stored
// selection it is a no-op; callers that want a selection must seed one first.
//
// The projection is idempotent. Repeated calls converge to the same profile
// visibility and the same override map, and re-emit both events so overlay
// and chat clients that missed one can catch up.
func (o *Orchestrator) ApplyActiveCoreCountersSelection(ctx context.Context, userID, gameID string) {
	log := telemetry.LoggerWithCorr(ctx).With(
		slog.String("component", "gameswitch"),
		slog.String("user_id", userID),
		slog.String("game_id", gameID),
	)

	sel, err := o.Selections.GetCoreSelection(ctx, userID, gameID)
	if err != nil {
		log.Warn("core selection read failed, skipping apply", slog.Any("error", err))
		telemetry.CountStoreFailure("selections")
		return
	}
	if sel == nil {
		log.Debug("no core selection for game, nothing to apply")
		return
	}

	vis := sel.Visibility()
	o.applyVisibility(ctx, log, userID, vis)
	o.reconcileChatCommands(ctx, log, userID, sel)
}

// applyVisibility overwrites the profile's overlay visibility with the
// selection's and announces the new settings. The event fires even when the
// profile write fails so overlays still converge on reconnect.
func (o *Orchestrator) applyVisibility(ctx context.Context, log *slog.Logger, userID string, vis models.CounterVisibility) {
	p, err := o.Profiles.GetProfile(ctx, userID)
	if err != nil {
		log.Warn("profile read failed, broadcasting visibility without persisting", slog.Any("error", err))
		telemetry.CountStoreFailure("profiles")
		p = nil
	}
	if p == nil {
		p = &models.Profile{UserID: userID}
	}
	p.Visibility = vis
	if err := o.Profiles.SaveProfile(ctx, p); err != nil {
		log.Error("profile visibility write failed", slog.Any("error", err))
		telemetry.CountStoreFailure("profiles")
	}
	o.notifySettings(userID, vis)
}

// reconcileChatCommands makes the active override map agree with the
// selection for the four core commands: an enabled counter must have no
// override (the default allows it), a disabled one gets an explicit
// enabled=false entry. Overrides for custom commands are left alone.
func (o *Orchestrator) reconcileChatCommands(ctx context.Context, log *slog.Logger, userID string, sel *models.CoreCounterSelection) {
	cfg, err := o.Active.GetActiveChatCommands(ctx, userID)
	if err != nil {
		log.Warn("active chat command read failed, rebuilding from selection", slog.Any("error", err))
		telemetry.CountStoreFailure("active")
		cfg = nil
	}
	if cfg == nil {
		cfg = models.NewChatCommandConfig()
	}
	if cfg.Commands == nil {
		cfg.Commands = map[string]models.CommandOverride{}
	}

	for _, name := range models.CoreCounters {
		command := models.CoreCommand(name)
		if sel.Enabled(name) {
			delete(cfg.Commands, command)
		} else {
			cfg.Commands[command] = models.CommandOverride{Enabled: false}
		}
	}

	if err := o.Active.SaveActiveChatCommands(ctx, userID, cfg); err != nil {
		log.Error("active chat command write failed", slog.Any("error", err))
		telemetry.CountStoreFailure("active")
	}
	o.notifyChatCommands(userID, cfg)
}
