package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/onnwee/stream-tender/backend/models"
)

// GetLibraryItem loads the cached metadata for (user, game); (nil, nil) when
// the game has never been sighted.
func (s *Store) GetLibraryItem(ctx context.Context, userID, gameID string) (*models.GameLibraryItem, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT user_id, game_id, COALESCE(game_name,''), COALESCE(box_art_url,''),
		       ccls, created_at, COALESCE(last_seen_at, created_at)
		FROM game_library WHERE user_id = $1 AND LOWER(game_id) = LOWER($2)`, userID, gameID)
	return scanLibraryItem(row)
}

// UpsertLibraryItem records a sighting of a game: created_at is written once
// and then immutable, game_name and last_seen_at refresh every time, and
// box_art_url refreshes only when the sighting carried one. The ccls override
// is owned by SetLibraryCCLs and is never touched here.
func (s *Store) UpsertLibraryItem(ctx context.Context, item *models.GameLibraryItem) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO game_library(user_id, game_id, game_name, box_art_url, created_at, last_seen_at)
		VALUES($1,$2,$3,$4,NOW(),NOW())
		ON CONFLICT(user_id, LOWER(game_id)) DO UPDATE SET
		  game_name=EXCLUDED.game_name,
		  box_art_url=CASE WHEN EXCLUDED.box_art_url IS NOT NULL AND EXCLUDED.box_art_url <> ''
		                   THEN EXCLUDED.box_art_url ELSE game_library.box_art_url END,
		  last_seen_at=NOW()`,
		item.UserID, item.GameID, item.GameName, nullString(item.BoxArtURL))
	if err != nil {
		return fmt.Errorf("upsert library item: %w", err)
	}
	return nil
}

// SetLibraryCCLs writes the per-game content classification override.
// labels nil clears the override (fall back to the profile default); a
// non-nil empty slice stores an explicit "no labels for this game".
func (s *Store) SetLibraryCCLs(ctx context.Context, userID, gameID string, labels []string) error {
	var param any
	if labels != nil {
		v, err := jsonbParam(labels)
		if err != nil {
			return err
		}
		param = v
	}
	res, err := s.DB.ExecContext(ctx, `
		UPDATE game_library SET ccls = $3::jsonb
		WHERE user_id = $1 AND LOWER(game_id) = LOWER($2)`,
		userID, gameID, param)
	if err != nil {
		return fmt.Errorf("set library ccls: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("set library ccls: no library entry for game %q", gameID)
	}
	return nil
}

// ListLibrary returns the user's game library, most recently seen first.
func (s *Store) ListLibrary(ctx context.Context, userID string) ([]models.GameLibraryItem, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT user_id, game_id, COALESCE(game_name,''), COALESCE(box_art_url,''),
		       ccls, created_at, COALESCE(last_seen_at, created_at)
		FROM game_library WHERE user_id = $1
		ORDER BY last_seen_at DESC NULLS LAST, game_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list library: %w", err)
	}
	defer rows.Close()

	var items []models.GameLibraryItem
	for rows.Next() {
		item, err := scanLibraryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func scanLibraryItem(row rowScanner) (*models.GameLibraryItem, error) {
	var item models.GameLibraryItem
	var cclsRaw []byte
	err := row.Scan(&item.UserID, &item.GameID, &item.GameName, &item.BoxArtURL,
		&cclsRaw, &item.CreatedAt, &item.LastSeenAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan library item: %w", err)
	}
	// A stored '[]' must surface as an empty, non-nil slice: it means
	// "explicitly no labels", while nil means "no override at all".
	if len(cclsRaw) > 0 && string(cclsRaw) != "null" {
		ccls := []string{}
		if err := scanJSONB(cclsRaw, &ccls); err != nil {
			return nil, err
		}
		item.CCLs = ccls
	}
	return &item, nil
}
