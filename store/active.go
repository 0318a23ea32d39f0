package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/onnwee/stream-tender/backend/models"
)

// GetActiveCounter loads the user's live counter snapshot; (nil, nil) when
// none exists yet.
func (s *Store) GetActiveCounter(ctx context.Context, userID string) (*models.Counter, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT user_id, deaths, swears, screams, bits, custom,
		       COALESCE(last_category_name,''), COALESCE(updated_at, NOW())
		FROM active_counters WHERE user_id = $1`, userID)
	return scanCounter(row)
}

// SaveActiveCounter overwrites the user's live counter snapshot.
func (s *Store) SaveActiveCounter(ctx context.Context, c *models.Counter) error {
	customParam, err := jsonbParam(nonNilCustom(c.Custom))
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO active_counters(user_id, deaths, swears, screams, bits, custom, last_category_name, updated_at)
		VALUES($1,$2,$3,$4,$5,$6::jsonb,$7,NOW())
		ON CONFLICT(user_id) DO UPDATE SET
		  deaths=EXCLUDED.deaths,
		  swears=EXCLUDED.swears,
		  screams=EXCLUDED.screams,
		  bits=EXCLUDED.bits,
		  custom=EXCLUDED.custom,
		  last_category_name=EXCLUDED.last_category_name,
		  updated_at=NOW()`,
		c.OwnerID, c.Deaths, c.Swears, c.Screams, c.Bits, customParam, nullString(c.LastCategoryName))
	if err != nil {
		return fmt.Errorf("save active counter: %w", err)
	}
	return nil
}

// IncrementActiveCore adjusts one core count by delta (clamped at zero) and
// returns the updated snapshot. A missing row is created first so the chat bot
// can count before the first game switch.
func (s *Store) IncrementActiveCore(ctx context.Context, userID, name string, delta int) (*models.Counter, error) {
	if !models.IsCoreCounter(name) {
		return nil, fmt.Errorf("unknown core counter %q", name)
	}
	// name is validated against the fixed counter set above, so it is safe to
	// splice into the column position.
	q := fmt.Sprintf(`
		INSERT INTO active_counters(user_id, %[1]s, updated_at)
		VALUES($1, GREATEST(0, $2), NOW())
		ON CONFLICT(user_id) DO UPDATE SET
		  %[1]s = GREATEST(0, active_counters.%[1]s + $2),
		  updated_at = NOW()
		RETURNING user_id, deaths, swears, screams, bits, custom,
		          COALESCE(last_category_name,''), COALESCE(updated_at, NOW())`, name)
	row := s.DB.QueryRowContext(ctx, q, userID, delta)
	return scanCounter(row)
}

// IncrementActiveCustom adjusts a custom counter by delta (clamped at zero)
// and returns the updated snapshot.
func (s *Store) IncrementActiveCustom(ctx context.Context, userID, name string, delta int) (*models.Counter, error) {
	row := s.DB.QueryRowContext(ctx, `
		INSERT INTO active_counters(user_id, custom, updated_at)
		VALUES($1, jsonb_build_object($2::text, GREATEST(0, $3::int)), NOW())
		ON CONFLICT(user_id) DO UPDATE SET
		  custom = jsonb_set(COALESCE(active_counters.custom, '{}'::jsonb), ARRAY[$2::text],
		           to_jsonb(GREATEST(0, COALESCE((active_counters.custom->>$2)::int, 0) + $3::int))),
		  updated_at = NOW()
		RETURNING user_id, deaths, swears, screams, bits, custom,
		          COALESCE(last_category_name,''), COALESCE(updated_at, NOW())`,
		userID, name, delta)
	return scanCounter(row)
}

// GetActiveChatCommands loads the live chat command override map; (nil, nil)
// when none exists yet.
func (s *Store) GetActiveChatCommands(ctx context.Context, userID string) (*models.ChatCommandConfig, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT commands FROM active_chat_commands WHERE user_id = $1`, userID)

	var raw []byte
	err := row.Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active chat commands: %w", err)
	}
	cfg := models.NewChatCommandConfig()
	if err := scanJSONB(raw, &cfg.Commands); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveActiveChatCommands overwrites the live chat command override map.
func (s *Store) SaveActiveChatCommands(ctx context.Context, userID string, cfg *models.ChatCommandConfig) error {
	commands := map[string]models.CommandOverride{}
	if cfg != nil && cfg.Commands != nil {
		commands = cfg.Commands
	}
	param, err := jsonbParam(commands)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO active_chat_commands(user_id, commands, updated_at)
		VALUES($1,$2::jsonb,NOW())
		ON CONFLICT(user_id) DO UPDATE SET commands=EXCLUDED.commands, updated_at=NOW()`,
		userID, param)
	if err != nil {
		return fmt.Errorf("save active chat commands: %w", err)
	}
	return nil
}

// GetActiveCustomCounters loads the live custom counter definitions; (nil, nil)
// when none exist yet.
func (s *Store) GetActiveCustomCounters(ctx context.Context, userID string) (*models.CustomCounterConfig, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT counters FROM active_custom_counters WHERE user_id = $1`, userID)

	var raw []byte
	err := row.Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active custom counters: %w", err)
	}
	cfg := models.NewCustomCounterConfig()
	if err := scanJSONB(raw, &cfg.Counters); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveActiveCustomCounters overwrites the live custom counter definitions.
func (s *Store) SaveActiveCustomCounters(ctx context.Context, userID string, cfg *models.CustomCounterConfig) error {
	counters := map[string]models.CustomCounterDefinition{}
	if cfg != nil && cfg.Counters != nil {
		counters = cfg.Counters
	}
	param, err := jsonbParam(counters)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO active_custom_counters(user_id, counters, updated_at)
		VALUES($1,$2::jsonb,NOW())
		ON CONFLICT(user_id) DO UPDATE SET counters=EXCLUDED.counters, updated_at=NOW()`,
		userID, param)
	if err != nil {
		return fmt.Errorf("save active custom counters: %w", err)
	}
	return nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCounter(row rowScanner) (*models.Counter, error) {
	var c models.Counter
	var customRaw []byte
	err := row.Scan(&c.OwnerID, &c.Deaths, &c.Swears, &c.Screams, &c.Bits,
		&customRaw, &c.LastCategoryName, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan counter: %w", err)
	}
	c.Custom = map[string]int{}
	if err := scanJSONB(customRaw, &c.Custom); err != nil {
		return nil, err
	}
	return &c, nil
}

func nonNilCustom(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}
