package models

import (
	"encoding/json"
	"testing"
)

func TestSameGameID(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"509658", "509658", true},
		{"abc123", "ABC123", true},
		{"509658", "509659", false},
		{"", "", true},
	}
	for _, tt := range tests {
		if got := SameGameID(tt.a, tt.b); got != tt.want {
			t.Errorf("SameGameID(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestChatCommandConfigEnabled(t *testing.T) {
	cfg := NewChatCommandConfig()
	cfg.Commands["!swears"] = CommandOverride{Enabled: false}
	cfg.Commands["!deaths"] = CommandOverride{Enabled: true}

	if cfg.Enabled("!swears", true) {
		t.Error("override {enabled:false} should win over default true")
	}
	if !cfg.Enabled("!deaths", false) {
		t.Error("override {enabled:true} should win over default false")
	}
	if !cfg.Enabled("!screams", true) {
		t.Error("absent command should fall back to default")
	}

	var nilCfg *ChatCommandConfig
	if !nilCfg.Enabled("!deaths", true) {
		t.Error("nil config should fall back to default")
	}
}

func TestProfileCommandEnabledByDefault(t *testing.T) {
	p := &Profile{ChatCommandDefaults: map[string]bool{"!swears": false}}
	if p.CommandEnabledByDefault("!swears") {
		t.Error("explicit false default not honored")
	}
	if !p.CommandEnabledByDefault("!deaths") {
		t.Error("unlisted command should default to enabled")
	}
	var nilP *Profile
	if !nilP.CommandEnabledByDefault("!deaths") {
		t.Error("nil profile should default to enabled")
	}
}

func TestCounterCoreAccess(t *testing.T) {
	c := NewCounter("user1")
	if c.Custom == nil {
		t.Fatal("NewCounter must allocate Custom")
	}
	for i, name := range CoreCounters {
		c.SetCore(name, i+1)
	}
	if c.Deaths != 1 || c.Swears != 2 || c.Screams != 3 || c.Bits != 4 {
		t.Errorf("SetCore wrote wrong fields: %+v", c)
	}
	if got := c.Core(CounterScreams); got != 3 {
		t.Errorf("Core(screams) = %d, want 3", got)
	}
	if got := c.Core("jumps"); got != 0 {
		t.Errorf("Core(unknown) = %d, want 0", got)
	}
}

func TestSelectionVisibilityRoundTrip(t *testing.T) {
	sel := &CoreCounterSelection{UserID: "u", GameID: "g", DeathsEnabled: true, ScreamsEnabled: true}
	v := sel.Visibility()
	if !v.Deaths || v.Swears || !v.Screams || v.Bits {
		t.Errorf("Visibility() = %+v, want deaths+screams only", v)
	}
	back := SelectionFromVisibility("u", "g2", v)
	if !back.DeathsEnabled || back.SwearsEnabled || !back.ScreamsEnabled || back.BitsEnabled {
		t.Errorf("SelectionFromVisibility lost state: %+v", back)
	}
	if back.GameID != "g2" {
		t.Errorf("GameID = %q, want g2", back.GameID)
	}
}

// The library CCL override is tri-state: nil (no override), empty (explicitly
// none), populated. JSON must keep nil and empty distinguishable.
func TestGameLibraryItemCCLTriState(t *testing.T) {
	none := GameLibraryItem{UserID: "u", GameID: "g"}
	cleared := GameLibraryItem{UserID: "u", GameID: "g", CCLs: []string{}}

	noneJSON, err := json.Marshal(none)
	if err != nil {
		t.Fatal(err)
	}
	clearedJSON, err := json.Marshal(cleared)
	if err != nil {
		t.Fatal(err)
	}
	if string(noneJSON) == string(clearedJSON) {
		t.Fatalf("nil and empty CCLs marshal identically: %s", noneJSON)
	}

	var back GameLibraryItem
	if err := json.Unmarshal(clearedJSON, &back); err != nil {
		t.Fatal(err)
	}
	if back.CCLs == nil {
		t.Error("explicit empty CCLs decoded as nil")
	}
}
