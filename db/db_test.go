package db

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func TestMigrate(t *testing.T) {
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set; skipping postgres migration test")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func TestKVRoundTrip(t *testing.T) {
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	ctx := context.Background()
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if v, err := GetKV(ctx, db, "test_missing_key"); err != nil || v != "" {
		t.Errorf("GetKV(missing) = (%q, %v), want (\"\", nil)", v, err)
	}

	if err := SetKV(ctx, db, "test_heartbeat", "2026-01-02T03:04:05Z"); err != nil {
		t.Fatalf("SetKV: %v", err)
	}
	if err := SetKV(ctx, db, "test_heartbeat", "2026-01-02T03:05:05Z"); err != nil {
		t.Fatalf("SetKV update: %v", err)
	}
	v, err := GetKV(ctx, db, "test_heartbeat")
	if err != nil {
		t.Fatalf("GetKV: %v", err)
	}
	if v != "2026-01-02T03:05:05Z" {
		t.Errorf("GetKV = %q, want updated value", v)
	}
}

func TestListOAuthUsers(t *testing.T) {
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	ctx := context.Background()
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM oauth_tokens WHERE provider = 'test-list-provider'`); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	for _, uid := range []string{"u2", "u1"} {
		if err := UpsertOAuthToken(ctx, db, "test-list-provider", uid, "a", "r", nowPlusHour(), "chat:read"); err != nil {
			t.Fatalf("UpsertOAuthToken(%s): %v", uid, err)
		}
	}

	ids, err := ListOAuthUsers(ctx, db, "test-list-provider")
	if err != nil {
		t.Fatalf("ListOAuthUsers: %v", err)
	}
	if len(ids) != 2 || ids[0] != "u1" || ids[1] != "u2" {
		t.Errorf("ListOAuthUsers = %v, want [u1 u2]", ids)
	}
}
