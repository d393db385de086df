package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOrCreateWritesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("KHABARCHAT_DATA_DIR", dir)

	cfg, path, err := LoadOrCreate()
	if err != nil {
		t.Fatalf("LoadOrCreate failed: %v", err)
	}
	if path != filepath.Join(dir, "config.json") {
		t.Errorf("unexpected config path %q", path)
	}
	if cfg.ClientID == "" {
		t.Error("expected a generated client id")
	}
	if cfg.ServerURL != DefaultServerURL {
		t.Errorf("expected default server url, got %q", cfg.ServerURL)
	}
	if cfg.ConversationPollSeconds != DefaultConversationPollSeconds {
		t.Errorf("expected default conversation poll interval, got %d", cfg.ConversationPollSeconds)
	}
	if cfg.MessagePollSeconds != DefaultMessagePollSeconds {
		t.Errorf("expected default message poll interval, got %d", cfg.MessagePollSeconds)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected config file on disk: %v", err)
	}
}

func TestLoadOrCreateIsStable(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("KHABARCHAT_DATA_DIR", dir)

	first, _, err := LoadOrCreate()
	if err != nil {
		t.Fatalf("first LoadOrCreate failed: %v", err)
	}
	second, _, err := LoadOrCreate()
	if err != nil {
		t.Fatalf("second LoadOrCreate failed: %v", err)
	}
	if first.ClientID != second.ClientID {
		t.Errorf("client id changed between loads: %q vs %q", first.ClientID, second.ClientID)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	want := &ClientConfig{
		ClientID:                "client-1",
		ServerURL:               "https://news.example.com",
		SessionToken:            "session-token",
		UserID:                  7,
		ConversationPollSeconds: 60,
		MessagePollSeconds:      10,
	}
	if err := Save(path, want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if *got != *want {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestNormalizeDefaultsFillsMissingFields(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("KHABARCHAT_DATA_DIR", dir)

	partial := &ClientConfig{ServerURL: "https://news.example.com", SessionToken: "keep-me"}
	if err := Save(filepath.Join(dir, "config.json"), partial); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	cfg, _, err := LoadOrCreate()
	if err != nil {
		t.Fatalf("LoadOrCreate failed: %v", err)
	}
	if cfg.ClientID == "" {
		t.Error("expected normalization to generate a client id")
	}
	if cfg.ServerURL != "https://news.example.com" {
		t.Errorf("expected configured server url to survive, got %q", cfg.ServerURL)
	}
	if cfg.SessionToken != "keep-me" {
		t.Errorf("expected session token to survive, got %q", cfg.SessionToken)
	}
	if cfg.ConversationPollSeconds != DefaultConversationPollSeconds {
		t.Errorf("expected default conversation poll interval, got %d", cfg.ConversationPollSeconds)
	}
}

func TestResolveDataDirHonorsOverride(t *testing.T) {
	t.Setenv("KHABARCHAT_DATA_DIR", "/tmp/khabarchat-test")

	dir, err := ResolveDataDir()
	if err != nil {
		t.Fatalf("ResolveDataDir failed: %v", err)
	}
	if dir != "/tmp/khabarchat-test" {
		t.Errorf("expected override to win, got %q", dir)
	}
}
