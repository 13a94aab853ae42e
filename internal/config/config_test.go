package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("REMOTE_URL", " https://example.test/exec ")
	t.Setenv("REMOTE_TIMEOUT", "")
	t.Setenv("SHEETSTORE_BACKEND", "Postgres")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RemoteURL != "https://example.test/exec" {
		t.Fatalf("REMOTE_URL не обрезан: %q", cfg.RemoteURL)
	}
	if cfg.RemoteTimeout != 15*time.Second {
		t.Fatalf("ожидали 15s, получили %v", cfg.RemoteTimeout)
	}
	if cfg.SheetStore.Backend != "postgres" {
		t.Fatalf("ожидали postgres, получили %q", cfg.SheetStore.Backend)
	}
	if cfg.DigestEnabled() {
		t.Fatal("дайджест не должен включаться без токена")
	}
}

func TestLoad_BadValues(t *testing.T) {
	t.Setenv("SYNC_PROBE_INTERVAL", "soon")
	t.Setenv("DIGEST_CHAT_ID", "abc")

	if _, err := Load(); err == nil {
		t.Fatal("ожидали ошибку разбора")
	}
}
