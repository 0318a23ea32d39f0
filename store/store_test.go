package store

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/onnwee/stream-tender/backend/db"
	"github.com/onnwee/stream-tender/backend/models"
)

// setupStore opens the test database, migrates it, and wipes the given user's
// rows so tests are repeatable.
func setupStore(t *testing.T, userID string) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set; skipping store tests")
	}
	database, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	ctx := context.Background()
	if err := db.Migrate(ctx, database); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, table := range []string{
		"profiles", "game_contexts", "active_counters", "active_chat_commands",
		"active_custom_counters", "game_counters", "game_chat_commands",
		"game_custom_counters", "game_core_selections", "game_library",
	} {
		if _, err := database.ExecContext(ctx, `DELETE FROM `+table+` WHERE user_id = $1`, userID); err != nil {
			t.Fatalf("wipe %s: %v", table, err)
		}
	}
	return New(database)
}

func TestProfileRoundTrip(t *testing.T) {
	s := setupStore(t, "store_profile_user")
	ctx := context.Background()

	if p, err := s.GetProfile(ctx, "store_profile_user"); err != nil || p != nil {
		t.Fatalf("GetProfile(absent) = (%v, %v), want (nil, nil)", p, err)
	}

	in := &models.Profile{
		UserID:      "store_profile_user",
		TwitchLogin: "tendertester",
		DisplayName: "TenderTester",
		DefaultCCLs: []string{"Gambling"},
		Visibility:  models.CounterVisibility{Deaths: true, Screams: true},
		ChatCommandDefaults: map[string]bool{
			"!swears": false,
		},
	}
	if err := s.SaveProfile(ctx, in); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	out, err := s.GetProfile(ctx, "store_profile_user")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if out == nil {
		t.Fatal("GetProfile returned nil after save")
	}
	if out.TwitchLogin != "tendertester" || out.DisplayName != "TenderTester" {
		t.Errorf("identity fields lost: %+v", out)
	}
	if len(out.DefaultCCLs) != 1 || out.DefaultCCLs[0] != "Gambling" {
		t.Errorf("DefaultCCLs = %v, want [Gambling]", out.DefaultCCLs)
	}
	if !out.Visibility.Deaths || out.Visibility.Swears || !out.Visibility.Screams || out.Visibility.Bits {
		t.Errorf("Visibility = %+v, want deaths+screams", out.Visibility)
	}
	if out.CommandEnabledByDefault("!swears") {
		t.Error("chat command default for !swears lost")
	}

	// Clearing the defaults stores NULL, which reads back as nil.
	in.DefaultCCLs = nil
	if err := s.SaveProfile(ctx, in); err != nil {
		t.Fatalf("SaveProfile(clear ccls): %v", err)
	}
	out, err = s.GetProfile(ctx, "store_profile_user")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if out.DefaultCCLs != nil {
		t.Errorf("cleared DefaultCCLs = %v, want nil", out.DefaultCCLs)
	}
}

func TestEnsureProfilePreservesSettings(t *testing.T) {
	s := setupStore(t, "store_ensure_user")
	ctx := context.Background()

	p := &models.Profile{
		UserID:      "store_ensure_user",
		TwitchLogin: "old_login",
		DefaultCCLs: []string{"ViolentGraphic"},
		Visibility:  models.CounterVisibility{Deaths: true},
	}
	if err := s.SaveProfile(ctx, p); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	if err := s.EnsureProfile(ctx, "store_ensure_user", "new_login", "NewName"); err != nil {
		t.Fatalf("EnsureProfile: %v", err)
	}

	out, err := s.GetProfile(ctx, "store_ensure_user")
	if err != nil || out == nil {
		t.Fatalf("GetProfile: (%v, %v)", out, err)
	}
	if out.TwitchLogin != "new_login" || out.DisplayName != "NewName" {
		t.Errorf("identity not refreshed: %+v", out)
	}
	if len(out.DefaultCCLs) != 1 || !out.Visibility.Deaths {
		t.Errorf("existing settings clobbered: %+v", out)
	}
}

func TestGameContextRoundTrip(t *testing.T) {
	s := setupStore(t, "store_ctx_user")
	ctx := context.Background()

	if gc, err := s.GetGameContext(ctx, "store_ctx_user"); err != nil || gc != nil {
		t.Fatalf("GetGameContext(absent) = (%v, %v), want (nil, nil)", gc, err)
	}

	if err := s.SaveGameContext(ctx, &models.GameContext{UserID: "store_ctx_user", GameID: "509658", GameName: "Just Chatting"}); err != nil {
		t.Fatalf("SaveGameContext: %v", err)
	}
	gc, err := s.GetGameContext(ctx, "store_ctx_user")
	if err != nil || gc == nil {
		t.Fatalf("GetGameContext: (%v, %v)", gc, err)
	}
	if gc.GameID != "509658" || gc.GameName != "Just Chatting" {
		t.Errorf("context = %+v", gc)
	}

	// One row per user: the second save overwrites.
	if err := s.SaveGameContext(ctx, &models.GameContext{UserID: "store_ctx_user", GameID: "12345", GameName: "Hades"}); err != nil {
		t.Fatalf("SaveGameContext(2): %v", err)
	}
	gc, err = s.GetGameContext(ctx, "store_ctx_user")
	if err != nil {
		t.Fatalf("GetGameContext: %v", err)
	}
	if gc.GameID != "12345" {
		t.Errorf("context not overwritten: %+v", gc)
	}
}

func TestActiveCounterIncrements(t *testing.T) {
	s := setupStore(t, "store_inc_user")
	ctx := context.Background()

	// Incrementing with no row creates one.
	c, err := s.IncrementActiveCore(ctx, "store_inc_user", models.CounterDeaths, 1)
	if err != nil {
		t.Fatalf("IncrementActiveCore: %v", err)
	}
	if c.Deaths != 1 {
		t.Errorf("deaths = %d, want 1", c.Deaths)
	}

	c, err = s.IncrementActiveCore(ctx, "store_inc_user", models.CounterDeaths, 2)
	if err != nil {
		t.Fatalf("IncrementActiveCore: %v", err)
	}
	if c.Deaths != 3 {
		t.Errorf("deaths = %d, want 3", c.Deaths)
	}

	// Decrement clamps at zero.
	c, err = s.IncrementActiveCore(ctx, "store_inc_user", models.CounterSwears, -5)
	if err != nil {
		t.Fatalf("IncrementActiveCore(-5): %v", err)
	}
	if c.Swears != 0 {
		t.Errorf("swears = %d, want 0 (clamped)", c.Swears)
	}

	if _, err := s.IncrementActiveCore(ctx, "store_inc_user", "jumps", 1); err == nil {
		t.Error("IncrementActiveCore should reject unknown core counter names")
	}

	// Custom counters live in the jsonb map.
	c, err = s.IncrementActiveCustom(ctx, "store_inc_user", "kills", 5)
	if err != nil {
		t.Fatalf("IncrementActiveCustom: %v", err)
	}
	if c.Custom["kills"] != 5 {
		t.Errorf("custom kills = %d, want 5", c.Custom["kills"])
	}
	c, err = s.IncrementActiveCustom(ctx, "store_inc_user", "kills", -2)
	if err != nil {
		t.Fatalf("IncrementActiveCustom(-2): %v", err)
	}
	if c.Custom["kills"] != 3 {
		t.Errorf("custom kills = %d, want 3", c.Custom["kills"])
	}
	if c.Deaths != 3 {
		t.Errorf("core counts disturbed by custom increment: deaths = %d", c.Deaths)
	}
}

func TestActiveStateTripleRoundTrip(t *testing.T) {
	s := setupStore(t, "store_active_user")
	ctx := context.Background()

	counter := models.NewCounter("store_active_user")
	counter.Deaths = 3
	counter.Custom["kills"] = 5
	counter.LastCategoryName = "Old Game"
	if err := s.SaveActiveCounter(ctx, counter); err != nil {
		t.Fatalf("SaveActiveCounter: %v", err)
	}
	got, err := s.GetActiveCounter(ctx, "store_active_user")
	if err != nil || got == nil {
		t.Fatalf("GetActiveCounter: (%v, %v)", got, err)
	}
	if got.Deaths != 3 || got.Custom["kills"] != 5 || got.LastCategoryName != "Old Game" {
		t.Errorf("counter round trip lost data: %+v", got)
	}

	cmds := models.NewChatCommandConfig()
	cmds.Commands["!swears"] = models.CommandOverride{Enabled: false}
	if err := s.SaveActiveChatCommands(ctx, "store_active_user", cmds); err != nil {
		t.Fatalf("SaveActiveChatCommands: %v", err)
	}
	gotCmds, err := s.GetActiveChatCommands(ctx, "store_active_user")
	if err != nil || gotCmds == nil {
		t.Fatalf("GetActiveChatCommands: (%v, %v)", gotCmds, err)
	}
	ov, ok := gotCmds.Commands["!swears"]
	if !ok || ov.Enabled {
		t.Errorf("override round trip: %+v", gotCmds.Commands)
	}

	defsIn := models.NewCustomCounterConfig()
	defsIn.Counters["c1"] = models.CustomCounterDefinition{Name: "kills", Command: "!kills"}
	if err := s.SaveActiveCustomCounters(ctx, "store_active_user", defsIn); err != nil {
		t.Fatalf("SaveActiveCustomCounters: %v", err)
	}
	gotDefs, err := s.GetActiveCustomCounters(ctx, "store_active_user")
	if err != nil || gotDefs == nil {
		t.Fatalf("GetActiveCustomCounters: (%v, %v)", gotDefs, err)
	}
	if gotDefs.Counters["c1"].Name != "kills" {
		t.Errorf("definitions round trip: %+v", gotDefs.Counters)
	}
}

func TestGameArchivesCaseInsensitive(t *testing.T) {
	s := setupStore(t, "store_game_user")
	ctx := context.Background()

	counter := models.NewCounter("store_game_user")
	counter.Deaths = 7
	if err := s.SaveGameCounter(ctx, "store_game_user", "AbC123", counter); err != nil {
		t.Fatalf("SaveGameCounter: %v", err)
	}

	// Reads match regardless of id casing.
	got, err := s.GetGameCounter(ctx, "store_game_user", "ABC123")
	if err != nil || got == nil {
		t.Fatalf("GetGameCounter(upper) = (%v, %v)", got, err)
	}
	if got.Deaths != 7 {
		t.Errorf("deaths = %d, want 7", got.Deaths)
	}

	// A differently-cased save updates the same row rather than adding one.
	counter.Deaths = 8
	if err := s.SaveGameCounter(ctx, "store_game_user", "abc123", counter); err != nil {
		t.Fatalf("SaveGameCounter(lower): %v", err)
	}
	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM game_counters WHERE user_id = $1`, "store_game_user").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("row count = %d, want 1", n)
	}
	got, err = s.GetGameCounter(ctx, "store_game_user", "AbC123")
	if err != nil || got == nil || got.Deaths != 8 {
		t.Errorf("GetGameCounter after ci update = (%+v, %v), want deaths=8", got, err)
	}

	if absent, err := s.GetGameChatCommands(ctx, "store_game_user", "never-seen"); err != nil || absent != nil {
		t.Errorf("GetGameChatCommands(absent) = (%v, %v), want (nil, nil)", absent, err)
	}
}

func TestCoreSelectionRoundTrip(t *testing.T) {
	s := setupStore(t, "store_sel_user")
	ctx := context.Background()

	if sel, err := s.GetCoreSelection(ctx, "store_sel_user", "g1"); err != nil || sel != nil {
		t.Fatalf("GetCoreSelection(absent) = (%v, %v), want (nil, nil)", sel, err)
	}

	in := &models.CoreCounterSelection{
		UserID: "store_sel_user", GameID: "g1",
		DeathsEnabled: true, ScreamsEnabled: true,
	}
	if err := s.SaveCoreSelection(ctx, in); err != nil {
		t.Fatalf("SaveCoreSelection: %v", err)
	}
	sel, err := s.GetCoreSelection(ctx, "store_sel_user", "G1")
	if err != nil || sel == nil {
		t.Fatalf("GetCoreSelection: (%v, %v)", sel, err)
	}
	if !sel.DeathsEnabled || sel.SwearsEnabled || !sel.ScreamsEnabled || sel.BitsEnabled {
		t.Errorf("selection = %+v", sel)
	}
}

func TestLibraryUpsertSemantics(t *testing.T) {
	s := setupStore(t, "store_lib_user")
	ctx := context.Background()

	item := &models.GameLibraryItem{UserID: "store_lib_user", GameID: "g1", GameName: "Old Game", BoxArtURL: "https://img/1.jpg"}
	if err := s.UpsertLibraryItem(ctx, item); err != nil {
		t.Fatalf("UpsertLibraryItem: %v", err)
	}
	first, err := s.GetLibraryItem(ctx, "store_lib_user", "G1")
	if err != nil || first == nil {
		t.Fatalf("GetLibraryItem: (%v, %v)", first, err)
	}

	time.Sleep(20 * time.Millisecond)

	// Second sighting without box art: created_at and box_art_url survive,
	// last_seen_at advances, name refreshes.
	item2 := &models.GameLibraryItem{UserID: "store_lib_user", GameID: "g1", GameName: "Old Game HD"}
	if err := s.UpsertLibraryItem(ctx, item2); err != nil {
		t.Fatalf("UpsertLibraryItem(2): %v", err)
	}
	second, err := s.GetLibraryItem(ctx, "store_lib_user", "g1")
	if err != nil || second == nil {
		t.Fatalf("GetLibraryItem: (%v, %v)", second, err)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("created_at changed: %v -> %v", first.CreatedAt, second.CreatedAt)
	}
	if !second.LastSeenAt.After(first.LastSeenAt) {
		t.Errorf("last_seen_at did not advance: %v -> %v", first.LastSeenAt, second.LastSeenAt)
	}
	if second.BoxArtURL != "https://img/1.jpg" {
		t.Errorf("box_art_url lost: %q", second.BoxArtURL)
	}
	if second.GameName != "Old Game HD" {
		t.Errorf("game_name not refreshed: %q", second.GameName)
	}
	if second.CCLs != nil {
		t.Errorf("ccls should start as nil override, got %v", second.CCLs)
	}

	// CCL override is tri-state through the store.
	if err := s.SetLibraryCCLs(ctx, "store_lib_user", "g1", []string{"Gambling"}); err != nil {
		t.Fatalf("SetLibraryCCLs: %v", err)
	}
	got, _ := s.GetLibraryItem(ctx, "store_lib_user", "g1")
	if len(got.CCLs) != 1 || got.CCLs[0] != "Gambling" {
		t.Errorf("ccls = %v, want [Gambling]", got.CCLs)
	}

	if err := s.SetLibraryCCLs(ctx, "store_lib_user", "g1", []string{}); err != nil {
		t.Fatalf("SetLibraryCCLs(empty): %v", err)
	}
	got, _ = s.GetLibraryItem(ctx, "store_lib_user", "g1")
	if got.CCLs == nil || len(got.CCLs) != 0 {
		t.Errorf("explicit empty ccls = %v, want non-nil empty", got.CCLs)
	}

	if err := s.SetLibraryCCLs(ctx, "store_lib_user", "g1", nil); err != nil {
		t.Fatalf("SetLibraryCCLs(nil): %v", err)
	}
	got, _ = s.GetLibraryItem(ctx, "store_lib_user", "g1")
	if got.CCLs != nil {
		t.Errorf("cleared ccls = %v, want nil", got.CCLs)
	}

	if err := s.SetLibraryCCLs(ctx, "store_lib_user", "never-seen", nil); err == nil {
		t.Error("SetLibraryCCLs on missing entry should error")
	}

	// Library upsert never touches an existing override.
	if err := s.SetLibraryCCLs(ctx, "store_lib_user", "g1", []string{"DrugsIntoxication"}); err != nil {
		t.Fatalf("SetLibraryCCLs: %v", err)
	}
	if err := s.UpsertLibraryItem(ctx, item2); err != nil {
		t.Fatalf("UpsertLibraryItem(3): %v", err)
	}
	got, _ = s.GetLibraryItem(ctx, "store_lib_user", "g1")
	if len(got.CCLs) != 1 || got.CCLs[0] != "DrugsIntoxication" {
		t.Errorf("upsert clobbered ccls: %v", got.CCLs)
	}

	items, err := s.ListLibrary(ctx, "store_lib_user")
	if err != nil {
		t.Fatalf("ListLibrary: %v", err)
	}
	if len(items) != 1 || items[0].GameID != "g1" {
		t.Errorf("ListLibrary = %+v", items)
	}
}
