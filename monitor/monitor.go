// Package monitor watches the live category of every enrolled broadcaster and
// feeds sightings to the game switch orchestrator. It only detects; deciding
// what a category change means is the orchestrator's job.
package monitor

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/onnwee/stream-tender/backend/gameswitch"
	"github.com/onnwee/stream-tender/backend/models"
	"github.com/onnwee/stream-tender/backend/telemetry"
	"github.com/onnwee/stream-tender/backend/twitchapi"
)

// streamQueryBatch is the Helix cap on user ids per streams query.
const streamQueryBatch = 100

// StreamSource is the slice of the Helix client the monitor needs.
type StreamSource interface {
	GetStreams(ctx context.Context, userIDs []string) ([]twitchapi.StreamInfo, error)
	GetGame(ctx context.Context, gameID string) (*twitchapi.GameInfo, error)
}

// ProfileLister enumerates the broadcasters to poll.
type ProfileLister interface {
	ListProfileIDs(ctx context.Context) ([]string, error)
}

// Detector receives category sightings.
type Detector interface {
	HandleGameDetected(ctx context.Context, userID, gameID, gameName, boxArtURL string)
}

type sighting struct {
	gameID   string
	gameName string
}

// Monitor polls stream status on a ticker and dispatches new category
// sightings. Sightings are remembered in-process per user; a user going
// offline clears the memory so the next live session touches the library
// again.
type Monitor struct {
	Profiles   ProfileLister
	Streams    StreamSource
	Detector   Detector
	Serializer *gameswitch.UserSerializer
	DB         *sql.DB // nil skips kv bookkeeping

	mu       sync.Mutex
	lastSeen map[string]sighting
}

// Start runs the poll loop until ctx is cancelled.
// Env knobs:
//
//	CATEGORY_POLL_INTERVAL (default 30s)
func (m *Monitor) Start(ctx context.Context) {
	interval := 30 * time.Second
	if s := os.Getenv("CATEGORY_POLL_INTERVAL"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			interval = d
		}
	}
	slog.Info("category monitor starting", slog.Duration("interval", interval))
	// Kick an immediate poll so enrolled streams are picked up right after boot.
	m.pollOnce(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("category monitor stopped")
			return
		case <-ticker.C:
			m.pollOnce(ctx)
		}
	}
}

func (m *Monitor) pollOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	telemetry.TimeFunc(telemetry.CategoryPollDuration, func() {
		m.cycle(ctx)
	})
	telemetry.CountCategoryPoll()
	m.heartbeat(ctx)
}

func (m *Monitor) cycle(ctx context.Context) {
	ids, err := m.Profiles.ListProfileIDs(ctx)
	if err != nil {
		slog.Warn("category monitor: list profiles", slog.Any("err", err))
		return
	}
	if len(ids) == 0 {
		return
	}

	live := make(map[string]twitchapi.StreamInfo, len(ids))
	polled := make(map[string]bool, len(ids))
	for start := 0; start < len(ids); start += streamQueryBatch {
		end := start + streamQueryBatch
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]
		streams, err := m.Streams.GetStreams(ctx, batch)
		if err != nil {
			// Leave these users' sightings alone; a failed lookup is not
			// the same as being offline.
			slog.Warn("category monitor: stream lookup", slog.Any("err", err))
			continue
		}
		for _, id := range batch {
			polled[id] = true
		}
		for _, s := range streams {
			live[s.UserID] = s
		}
	}

	for _, userID := range ids {
		if !polled[userID] {
			continue
		}
		s, ok := live[userID]
		if !ok {
			m.forget(userID)
			continue
		}
		if s.GameID == "" {
			// Live without a category set.
			continue
		}
		if m.seen(userID, s.GameID, s.GameName) {
			continue
		}
		m.dispatch(ctx, userID, s.GameID, s.GameName, m.lookupBoxArt(ctx, s.GameID))
	}
}

// seen reports whether this exact sighting was already dispatched and records
// it otherwise. Game ids compare case-insensitively; a renamed category with
// the same id counts as new so the library name refreshes.
func (m *Monitor) seen(userID, gameID, gameName string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.lastSeen[userID]
	if ok && models.SameGameID(prev.gameID, gameID) && prev.gameName == gameName {
		return true
	}
	if m.lastSeen == nil {
		m.lastSeen = make(map[string]sighting)
	}
	m.lastSeen[userID] = sighting{gameID: gameID, gameName: gameName}
	return false
}

func (m *Monitor) forget(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lastSeen, userID)
}

func (m *Monitor) lookupBoxArt(ctx context.Context, gameID string) string {
	game, err := m.Streams.GetGame(ctx, gameID)
	if err != nil {
		slog.Debug("category monitor: box art lookup", slog.String("game_id", gameID), slog.Any("err", err))
		return ""
	}
	if game == nil {
		return ""
	}
	return game.BoxArtURL
}

func (m *Monitor) dispatch(ctx context.Context, userID, gameID, gameName, boxArtURL string) {
	slog.Info("category monitor: new category sighting",
		slog.String("user_id", userID),
		slog.String("game_id", gameID),
		slog.String("game_name", gameName))
	run := func() {
		m.Detector.HandleGameDetected(ctx, userID, gameID, gameName, boxArtURL)
	}
	if m.Serializer != nil {
		m.Serializer.Do(userID, run)
		return
	}
	run()
}

func (m *Monitor) heartbeat(ctx context.Context) {
	if m.DB == nil {
		return
	}
	_, _ = m.DB.ExecContext(ctx, `INSERT INTO kv (key,value,updated_at) VALUES ('job_category_monitor_last', to_char(NOW() AT TIME ZONE 'UTC','YYYY-MM-DD"T"HH24:MI:SS.MS"Z"'), NOW())
		ON CONFLICT(key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()`)
}
