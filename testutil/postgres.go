package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/onnwee/stream-tender/backend/db"
)

// SetupTestDB creates a test database connection, runs migrations, and wipes
// the domain tables so every test starts from a known state.
// It skips the test if TEST_PG_DSN environment variable is not set.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	database, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Migrate(context.Background(), database); err != nil {
		database.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	cleanTables(t, database)
	t.Cleanup(func() {
		database.Close()
	})
	return database
}

func cleanTables(t *testing.T, database *sql.DB) {
	t.Helper()
	tables := []string{
		"game_library", "game_core_selections", "game_custom_counters",
		"game_chat_commands", "game_counters", "active_custom_counters",
		"active_chat_commands", "active_counters", "game_contexts",
		"oauth_tokens", "kv", "profiles",
	}
	for _, tbl := range tables {
		if _, err := database.Exec("DELETE FROM " + tbl); err != nil {
			t.Fatalf("failed to clean table %s: %v", tbl, err)
		}
	}
}
