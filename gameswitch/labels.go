package gameswitch

import (
	"context"
	"log/slog"

	"github.com/onnwee/stream-tender/backend/telemetry"
)

// ResolveContentLabels decides which content classification labels to push
// for a (user, game) pair. The game's library override wins when set, even
// when it is an empty list: that is the streamer saying "this game needs no
// labels", and it must not fall through to the account default. With no
// override the profile's default labels apply, and with neither the result
// is nil, which callers translate to "do not touch labels at all".
func (o *Orchestrator) ResolveContentLabels(ctx context.Context, userID, gameID string) []string {
	log := telemetry.LoggerWithCorr(ctx).With(
		slog.String("component", "gameswitch"),
		slog.String("user_id", userID),
		slog.String("game_id", gameID),
	)

	item, err := o.Library.GetLibraryItem(ctx, userID, gameID)
	if err != nil {
		log.Warn("library read failed during label resolution", slog.Any("error", err))
		telemetry.CountStoreFailure("library")
		item = nil
	}
	if item != nil && item.CCLs != nil {
		return item.CCLs
	}

	p, err := o.Profiles.GetProfile(ctx, userID)
	if err != nil {
		log.Warn("profile read failed during label resolution", slog.Any("error", err))
		telemetry.CountStoreFailure("profiles")
		p = nil
	}
	if p != nil && len(p.DefaultCCLs) > 0 {
		return p.DefaultCCLs
	}
	return nil
}
