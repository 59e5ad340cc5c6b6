package model

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Letta.BaseURL != "https://api.letta.com" {
		t.Errorf("letta base url = %q", cfg.Letta.BaseURL)
	}
	if cfg.Bot.RetryCeiling != 3 || cfg.Bot.RetryBackoffSec != 30 {
		t.Errorf("retry defaults = %d / %d", cfg.Bot.RetryCeiling, cfg.Bot.RetryBackoffSec)
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
letta:
  agent_id: agent-42
bluesky:
  username: gauge.bsky.social
  autofollow: true
bot:
  retry_ceiling: 5
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Letta.AgentID != "agent-42" {
		t.Errorf("agent id = %q", cfg.Letta.AgentID)
	}
	if cfg.Bluesky.Username != "gauge.bsky.social" || !cfg.Bluesky.Autofollow {
		t.Errorf("bluesky = %+v", cfg.Bluesky)
	}
	if cfg.Bot.RetryCeiling != 5 {
		t.Errorf("retry ceiling = %d, want 5", cfg.Bot.RetryCeiling)
	}
	// Untouched keys keep their defaults.
	if cfg.Bot.PollPageSize != 50 {
		t.Errorf("poll page size = %d, want 50", cfg.Bot.PollPageSize)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	want := defaultAppConfig()
	want.Bluesky.Username = "gauge.bsky.social"
	want.Letta.AgentID = "agent-42"
	if err := SaveConfig(path, want); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.Bluesky.Username != "gauge.bsky.social" || got.Letta.AgentID != "agent-42" {
		t.Errorf("round trip = %+v", got)
	}
}

func TestKindFromReason(t *testing.T) {
	tests := map[string]Kind{
		"mention":     KindMention,
		"reply":       KindReply,
		"like":        KindLike,
		"follow":      KindFollow,
		"repost":      KindRepost,
		"quote":       KindQuote,
		"starterpack": KindOther,
		"":            KindOther,
	}
	for reason, want := range tests {
		if got := KindFromReason(reason); got != want {
			t.Errorf("KindFromReason(%q) = %s, want %s", reason, got, want)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	if StatusPending.Terminal() {
		t.Error("pending must not be terminal")
	}
	for _, s := range []Status{StatusProcessed, StatusErrored, StatusSkipped} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	if Status("bogus").Valid() {
		t.Error("unknown status must not validate")
	}
}
