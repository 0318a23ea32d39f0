package gameswitch

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/stream-tender/backend/models"
	"github.com/onnwee/stream-tender/backend/telemetry"
)

// HandleGameDetected is the single entry point for category changes. It never
// returns an error: every dependency failure is logged and absorbed, and the
// transition still ends with a game context write and an overlay notification.
// Callers must serialize invocations per user (see UserSerializer); calls for
// different users are safe to run concurrently.
func (o *Orchestrator) HandleGameDetected(ctx context.Context, userID, gameID, gameName, boxArtURL string) {
	ctx, span := telemetry.StartSpan(ctx, "gameswitch", "gameswitch.handle_game_detected",
		attribute.String("user_id", userID),
		attribute.String("game_id", gameID),
	)
	defer span.End()

	log := telemetry.LoggerWithCorr(ctx).With(
		slog.String("component", "gameswitch"),
		slog.String("user_id", userID),
		slog.String("game_id", gameID),
	)

	if userID == "" || gameID == "" {
		log.Warn("ignoring category detection with empty user or game id")
		return
	}

	start := time.Now()
	defer func() { telemetry.ObserveSwitchDuration(time.Since(start)) }()

	cur, err := o.Contexts.GetGameContext(ctx, userID)
	if err != nil {
		// Treat as a first detection. Worst case we re-seed state that
		// already exists, which the seed helpers refuse to overwrite.
		log.Warn("game context read failed, treating as first detection", slog.Any("error", err))
		telemetry.CountStoreFailure("context")
		cur = nil
	}

	if cur != nil && models.SameGameID(cur.GameID, gameID) {
		o.handleSameGame(ctx, log, userID, gameID, gameName, boxArtURL)
		telemetry.CountGameSwitch("same")
		telemetry.SetSpanSuccess(span)
		return
	}

	o.handleGameChanged(ctx, log, cur, userID, gameID, gameName, boxArtURL)
	telemetry.CountGameSwitch("changed")
	telemetry.SetSpanSuccess(span)
}

// handleSameGame refreshes metadata without touching live counters. The
// category id is unchanged (ignoring case), so archiving or reloading state
// would only lose increments recorded since the last poll.
func (o *Orchestrator) handleSameGame(ctx context.Context, log *slog.Logger, userID, gameID, gameName, boxArtURL string) {
	log.Debug("category unchanged, refreshing metadata", slog.String("game_name", gameName))

	o.refreshLibrary(ctx, log, userID, gameID, gameName, boxArtURL)

	// Users upgraded from before per-game selections exist may have an
	// active game with no selection record. Seed and apply it once.
	if o.ensureSelection(ctx, log, userID, gameID) {
		o.ApplyActiveCoreCountersSelection(ctx, userID, gameID)
	}

	// The platform occasionally renames categories in place; keep the
	// stored display name current.
	if err := o.Contexts.SaveGameContext(ctx, &models.GameContext{UserID: userID, GameID: gameID, GameName: gameName}); err != nil {
		log.Error("game context write failed", slog.Any("error", err))
		telemetry.CountStoreFailure("context")
	}

	counter, err := o.Active.GetActiveCounter(ctx, userID)
	if err != nil {
		log.Warn("active counter read failed", slog.Any("error", err))
		telemetry.CountStoreFailure("active")
		counter = models.NewCounter(userID)
	}
	if counter == nil {
		counter = models.NewCounter(userID)
	}
	o.notifyCounter(userID, counter)
}

// handleGameChanged runs the full switch: archive the outgoing game's live
// state, restore or seed the incoming game's, and fan out the side effects.
// Steps are ordered so the archive happens before anything overwrites the
// active state; a cancelled context aborts between steps, never mid-write.
func (o *Orchestrator) handleGameChanged(ctx context.Context, log *slog.Logger, old *models.GameContext, userID, gameID, gameName, boxArtURL string) {
	if old != nil {
		log.Info("game changed, switching state",
			slog.String("old_game_id", old.GameID),
			slog.String("old_game_name", old.GameName),
			slog.String("game_name", gameName),
		)
		o.archiveActiveState(ctx, log, userID, old)
	} else {
		log.Info("first category detection for user", slog.String("game_name", gameName))
	}
	if ctx.Err() != nil {
		log.Warn("switch aborted before activation", slog.Any("error", ctx.Err()))
		return
	}

	o.refreshLibrary(ctx, log, userID, gameID, gameName, boxArtURL)

	counter := o.loadOrSeedCounter(ctx, log, userID, gameID)
	chatCmds := o.loadOrSeedChatCommands(ctx, log, userID, gameID)
	customCtrs := o.loadOrSeedCustomCounters(ctx, log, userID, gameID)
	o.ensureSelection(ctx, log, userID, gameID)

	if err := o.Active.SaveActiveCounter(ctx, counter); err != nil {
		log.Error("active counter install failed", slog.Any("error", err))
		telemetry.CountStoreFailure("active")
	}
	if err := o.Active.SaveActiveChatCommands(ctx, userID, chatCmds); err != nil {
		log.Error("active chat command install failed", slog.Any("error", err))
		telemetry.CountStoreFailure("active")
	}
	if err := o.Active.SaveActiveCustomCounters(ctx, userID, customCtrs); err != nil {
		log.Error("active custom counter install failed", slog.Any("error", err))
		telemetry.CountStoreFailure("active")
	}

	o.ApplyActiveCoreCountersSelection(ctx, userID, gameID)

	o.pushChannelUpdate(ctx, log, userID, gameID)

	if err := o.Contexts.SaveGameContext(ctx, &models.GameContext{UserID: userID, GameID: gameID, GameName: gameName}); err != nil {
		log.Error("game context write failed", slog.Any("error", err))
		telemetry.CountStoreFailure("context")
	}

	// Announce the new state last. The apply step may have rewritten the
	// command map, so re-read it; a listener treats the latest event as
	// truth and must not be left holding the pre-reconcile map.
	if final, err := o.Active.GetActiveChatCommands(ctx, userID); err == nil && final != nil {
		chatCmds = final
	}
	o.notifyCounter(userID, counter)
	o.notifyChatCommands(userID, chatCmds)
}

// archiveActiveState snapshots the live triple under the outgoing game id.
// The three writes are independent; losing one loses that piece for the old
// game but must not block retiring the rest.
func (o *Orchestrator) archiveActiveState(ctx context.Context, log *slog.Logger, userID string, old *models.GameContext) {
	counter, err := o.Active.GetActiveCounter(ctx, userID)
	if err != nil {
		log.Warn("active counter read failed, skipping counter archive", slog.Any("error", err))
		telemetry.CountStoreFailure("active")
	} else if counter != nil {
		counter.LastCategoryName = old.GameName
		if err := o.GameCounters.SaveGameCounter(ctx, userID, old.GameID, counter); err != nil {
			log.Error("counter archive failed", slog.String("old_game_id", old.GameID), slog.Any("error", err))
			telemetry.CountStoreFailure("game_counters")
		}
	}

	cmds, err := o.Active.GetActiveChatCommands(ctx, userID)
	if err != nil {
		log.Warn("active chat command read failed, skipping archive", slog.Any("error", err))
		telemetry.CountStoreFailure("active")
	} else if cmds != nil {
		if err := o.GameChatCommands.SaveGameChatCommands(ctx, userID, old.GameID, cmds); err != nil {
			log.Error("chat command archive failed", slog.String("old_game_id", old.GameID), slog.Any("error", err))
			telemetry.CountStoreFailure("game_chat_commands")
		}
	}

	defs, err := o.Active.GetActiveCustomCounters(ctx, userID)
	if err != nil {
		log.Warn("active custom counter read failed, skipping archive", slog.Any("error", err))
		telemetry.CountStoreFailure("active")
	} else if defs != nil {
		if err := o.GameCustomCounters.SaveGameCustomCounters(ctx, userID, old.GameID, defs); err != nil {
			log.Error("custom counter archive failed", slog.String("old_game_id", old.GameID), slog.Any("error", err))
			telemetry.CountStoreFailure("game_custom_counters")
		}
	}
}

// refreshLibrary upserts the game's library entry. The store keeps createdAt
// and any CCL override; only display metadata and lastSeenAt move.
func (o *Orchestrator) refreshLibrary(ctx context.Context, log *slog.Logger, userID, gameID, gameName, boxArtURL string) {
	item := &models.GameLibraryItem{
		UserID:    userID,
		GameID:    gameID,
		GameName:  gameName,
		BoxArtURL: boxArtURL,
	}
	if err := o.Library.UpsertLibraryItem(ctx, item); err != nil {
		log.Error("library upsert failed", slog.Any("error", err))
		telemetry.CountStoreFailure("library")
	}
}

// pushChannelUpdate resolves labels and pushes category + labels to the
// platform. A nil updater or a failed call downgrades to a log line.
func (o *Orchestrator) pushChannelUpdate(ctx context.Context, log *slog.Logger, userID, gameID string) {
	if o.Channel == nil {
		telemetry.CountChannelUpdate("skipped")
		return
	}
	labels := o.ResolveContentLabels(ctx, userID, gameID)
	if err := o.Channel.UpdateChannelInformation(ctx, userID, gameID, labels); err != nil {
		log.Warn("channel update failed", slog.Any("error", err))
		telemetry.CountChannelUpdate("error")
		return
	}
	telemetry.CountChannelUpdate("ok")
}

func (o *Orchestrator) notifyCounter(userID string, c *models.Counter) {
	if o.Notifier == nil || c == nil {
		return
	}
	o.Notifier.NotifyCounterUpdate(userID, c)
}

func (o *Orchestrator) notifySettings(userID string, v models.CounterVisibility) {
	if o.Notifier == nil {
		return
	}
	o.Notifier.NotifySettingsUpdate(userID, v)
}

func (o *Orchestrator) notifyChatCommands(userID string, cfg *models.ChatCommandConfig) {
	if o.Notifier == nil || cfg == nil {
		return
	}
	o.Notifier.NotifyCustomAlert(userID, AlertChatCommandsUpdated, cfg.Commands)
}
