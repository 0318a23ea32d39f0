package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/onnwee/stream-tender/backend/models"
)

// GetGameCounter loads the archived counter snapshot for (user, game);
// (nil, nil) when the game has never been archived.
func (s *Store) GetGameCounter(ctx context.Context, userID, gameID string) (*models.Counter, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT user_id, deaths, swears, screams, bits, custom,
		       COALESCE(last_category_name,''), COALESCE(updated_at, NOW())
		FROM game_counters WHERE user_id = $1 AND LOWER(game_id) = LOWER($2)`, userID, gameID)
	return scanCounter(row)
}

// SaveGameCounter archives a counter snapshot under (user, game).
func (s *Store) SaveGameCounter(ctx context.Context, userID, gameID string, c *models.Counter) error {
	customParam, err := jsonbParam(nonNilCustom(c.Custom))
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO game_counters(user_id, game_id, deaths, swears, screams, bits, custom, last_category_name, updated_at)
		VALUES($1,$2,$3,$4,$5,$6,$7::jsonb,$8,NOW())
		ON CONFLICT(user_id, LOWER(game_id)) DO UPDATE SET
		  deaths=EXCLUDED.deaths,
		  swears=EXCLUDED.swears,
		  screams=EXCLUDED.screams,
		  bits=EXCLUDED.bits,
		  custom=EXCLUDED.custom,
		  last_category_name=EXCLUDED.last_category_name,
		  updated_at=NOW()`,
		userID, gameID, c.Deaths, c.Swears, c.Screams, c.Bits, customParam, nullString(c.LastCategoryName))
	if err != nil {
		return fmt.Errorf("save game counter: %w", err)
	}
	return nil
}

// GetGameChatCommands loads the archived chat command overrides for
// (user, game); (nil, nil) when absent.
func (s *Store) GetGameChatCommands(ctx context.Context, userID, gameID string) (*models.ChatCommandConfig, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT commands FROM game_chat_commands
		WHERE user_id = $1 AND LOWER(game_id) = LOWER($2)`, userID, gameID)

	var raw []byte
	err := row.Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get game chat commands: %w", err)
	}
	cfg := models.NewChatCommandConfig()
	if err := scanJSONB(raw, &cfg.Commands); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveGameChatCommands archives a chat command override map under (user, game).
func (s *Store) SaveGameChatCommands(ctx context.Context, userID, gameID string, cfg *models.ChatCommandConfig) error {
	commands := map[string]models.CommandOverride{}
	if cfg != nil && cfg.Commands != nil {
		commands = cfg.Commands
	}
	param, err := jsonbParam(commands)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO game_chat_commands(user_id, game_id, commands, updated_at)
		VALUES($1,$2,$3::jsonb,NOW())
		ON CONFLICT(user_id, LOWER(game_id)) DO UPDATE SET
		  commands=EXCLUDED.commands, updated_at=NOW()`,
		userID, gameID, param)
	if err != nil {
		return fmt.Errorf("save game chat commands: %w", err)
	}
	return nil
}

// GetGameCustomCounters loads the archived custom counter definitions for
// (user, game); (nil, nil) when absent.
func (s *Store) GetGameCustomCounters(ctx context.Context, userID, gameID string) (*models.CustomCounterConfig, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT counters FROM game_custom_counters
		WHERE user_id = $1 AND LOWER(game_id) = LOWER($2)`, userID, gameID)

	var raw []byte
	err := row.Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get game custom counters: %w", err)
	}
	cfg := models.NewCustomCounterConfig()
	if err := scanJSONB(raw, &cfg.Counters); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveGameCustomCounters archives custom counter definitions under (user, game).
func (s *Store) SaveGameCustomCounters(ctx context.Context, userID, gameID string, cfg *models.CustomCounterConfig) error {
	counters := map[string]models.CustomCounterDefinition{}
	if cfg != nil && cfg.Counters != nil {
		counters = cfg.Counters
	}
	param, err := jsonbParam(counters)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO game_custom_counters(user_id, game_id, counters, updated_at)
		VALUES($1,$2,$3::jsonb,NOW())
		ON CONFLICT(user_id, LOWER(game_id)) DO UPDATE SET
		  counters=EXCLUDED.counters, updated_at=NOW()`,
		userID, gameID, param)
	if err != nil {
		return fmt.Errorf("save game custom counters: %w", err)
	}
	return nil
}
