package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/onnwee/stream-tender/backend/models"
)

// GetGameContext loads the user's current game context; (nil, nil) before the
// first detection.
func (s *Store) GetGameContext(ctx context.Context, userID string) (*models.GameContext, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT user_id, game_id, COALESCE(game_name,''), updated_at
		FROM game_contexts WHERE user_id = $1`, userID)

	var gc models.GameContext
	err := row.Scan(&gc.UserID, &gc.GameID, &gc.GameName, &gc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get game context: %w", err)
	}
	return &gc, nil
}

// SaveGameContext overwrites the single context row for the user.
func (s *Store) SaveGameContext(ctx context.Context, gc *models.GameContext) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO game_contexts(user_id, game_id, game_name, updated_at)
		VALUES($1,$2,$3,NOW())
		ON CONFLICT(user_id) DO UPDATE SET
		  game_id=EXCLUDED.game_id,
		  game_name=EXCLUDED.game_name,
		  updated_at=NOW()`,
		gc.UserID, gc.GameID, gc.GameName)
	if err != nil {
		return fmt.Errorf("save game context: %w", err)
	}
	return nil
}
