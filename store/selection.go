package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/onnwee/stream-tender/backend/models"
)

// GetCoreSelection loads the core counter selection for (user, game);
// (nil, nil) means the selection has not been decided yet.
func (s *Store) GetCoreSelection(ctx context.Context, userID, gameID string) (*models.CoreCounterSelection, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT user_id, game_id, deaths_enabled, swears_enabled, screams_enabled, bits_enabled,
		       COALESCE(updated_at, NOW())
		FROM game_core_selections WHERE user_id = $1 AND LOWER(game_id) = LOWER($2)`, userID, gameID)

	var sel models.CoreCounterSelection
	err := row.Scan(&sel.UserID, &sel.GameID, &sel.DeathsEnabled, &sel.SwearsEnabled,
		&sel.ScreamsEnabled, &sel.BitsEnabled, &sel.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get core selection: %w", err)
	}
	return &sel, nil
}

// SaveCoreSelection upserts the core counter selection for (user, game).
func (s *Store) SaveCoreSelection(ctx context.Context, sel *models.CoreCounterSelection) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO game_core_selections(user_id, game_id, deaths_enabled, swears_enabled, screams_enabled, bits_enabled, updated_at)
		VALUES($1,$2,$3,$4,$5,$6,NOW())
		ON CONFLICT(user_id, LOWER(game_id)) DO UPDATE SET
		  deaths_enabled=EXCLUDED.deaths_enabled,
		  swears_enabled=EXCLUDED.swears_enabled,
		  screams_enabled=EXCLUDED.screams_enabled,
		  bits_enabled=EXCLUDED.bits_enabled,
		  updated_at=NOW()`,
		sel.UserID, sel.GameID, sel.DeathsEnabled, sel.SwearsEnabled, sel.ScreamsEnabled, sel.BitsEnabled)
	if err != nil {
		return fmt.Errorf("save core selection: %w", err)
	}
	return nil
}
