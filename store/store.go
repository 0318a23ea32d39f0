// Package store implements the Postgres-backed repositories behind the game
// switch orchestrator: profiles, game contexts, the active state triple, the
// per-game archives, core counter selections, and the game library.
//
// Absent rows are reported as (nil, nil), never as an error. Game ids are
// matched case-insensitively; upserts conflict on the lower(game_id) unique
// indexes so "AbC" and "abc" address the same row.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// Store wraps a *sql.DB with the repository methods. One instance serves all
// entities; the orchestrator consumes it through narrow per-store interfaces.
type Store struct {
	DB *sql.DB
}

func New(db *sql.DB) *Store { return &Store{DB: db} }

// jsonbParam marshals v into the text form passed to a $n::jsonb parameter.
func jsonbParam(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal jsonb: %w", err)
	}
	return string(b), nil
}

// scanJSONB unmarshals a jsonb column into v; nil or SQL NULL input leaves v untouched.
func scanJSONB(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("unmarshal jsonb: %w", err)
	}
	return nil
}

// nullString maps "" to SQL NULL for optional text columns.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
