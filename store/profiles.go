package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/onnwee/stream-tender/backend/models"
)

// GetProfile loads a profile; (nil, nil) when the user is unknown.
func (s *Store) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT user_id, COALESCE(twitch_login,''), COALESCE(display_name,''),
		       default_ccls, show_deaths, show_swears, show_screams, show_bits,
		       chat_command_defaults, created_at, COALESCE(updated_at, created_at)
		FROM profiles WHERE user_id = $1`, userID)

	var p models.Profile
	var cclsRaw, defaultsRaw []byte
	err := row.Scan(&p.UserID, &p.TwitchLogin, &p.DisplayName,
		&cclsRaw, &p.Visibility.Deaths, &p.Visibility.Swears, &p.Visibility.Screams, &p.Visibility.Bits,
		&defaultsRaw, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	if err := scanJSONB(cclsRaw, &p.DefaultCCLs); err != nil {
		return nil, err
	}
	if err := scanJSONB(defaultsRaw, &p.ChatCommandDefaults); err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveProfile upserts the full profile row.
func (s *Store) SaveProfile(ctx context.Context, p *models.Profile) error {
	var cclsParam any
	if p.DefaultCCLs != nil {
		v, err := jsonbParam(p.DefaultCCLs)
		if err != nil {
			return err
		}
		cclsParam = v
	}
	var defaultsParam any
	if p.ChatCommandDefaults != nil {
		v, err := jsonbParam(p.ChatCommandDefaults)
		if err != nil {
			return err
		}
		defaultsParam = v
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO profiles(user_id, twitch_login, display_name, default_ccls,
		                     show_deaths, show_swears, show_screams, show_bits,
		                     chat_command_defaults, created_at, updated_at)
		VALUES($1,$2,$3,$4::jsonb,$5,$6,$7,$8,$9::jsonb,NOW(),NOW())
		ON CONFLICT(user_id) DO UPDATE SET
		  twitch_login=EXCLUDED.twitch_login,
		  display_name=EXCLUDED.display_name,
		  default_ccls=EXCLUDED.default_ccls,
		  show_deaths=EXCLUDED.show_deaths,
		  show_swears=EXCLUDED.show_swears,
		  show_screams=EXCLUDED.show_screams,
		  show_bits=EXCLUDED.show_bits,
		  chat_command_defaults=EXCLUDED.chat_command_defaults,
		  updated_at=NOW()`,
		p.UserID, p.TwitchLogin, p.DisplayName, cclsParam,
		p.Visibility.Deaths, p.Visibility.Swears, p.Visibility.Screams, p.Visibility.Bits,
		defaultsParam)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// EnsureProfile creates a minimal profile row on first login without touching
// an existing row's settings beyond refreshing the Twitch identity.
func (s *Store) EnsureProfile(ctx context.Context, userID, twitchLogin, displayName string) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO profiles(user_id, twitch_login, display_name, created_at, updated_at)
		VALUES($1,$2,$3,NOW(),NOW())
		ON CONFLICT(user_id) DO UPDATE SET
		  twitch_login=EXCLUDED.twitch_login,
		  display_name=EXCLUDED.display_name,
		  updated_at=NOW()`,
		userID, twitchLogin, displayName)
	if err != nil {
		return fmt.Errorf("ensure profile: %w", err)
	}
	return nil
}

// ListChatChannels maps each enrolled Twitch login (lowercased, as IRC
// reports channels) to its user id. Profiles without a login are skipped;
// they finish OAuth before the bot can join them.
func (s *Store) ListChatChannels(ctx context.Context) (map[string]string, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT LOWER(twitch_login), user_id FROM profiles
		WHERE COALESCE(twitch_login,'') <> ''`)
	if err != nil {
		return nil, fmt.Errorf("list chat channels: %w", err)
	}
	defer rows.Close()
	channels := map[string]string{}
	for rows.Next() {
		var login, id string
		if err := rows.Scan(&login, &id); err != nil {
			return nil, err
		}
		channels[login] = id
	}
	return channels, rows.Err()
}

// ListProfileIDs returns every known user id. The stream monitor polls these.
func (s *Store) ListProfileIDs(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT user_id FROM profiles ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
