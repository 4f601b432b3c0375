package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PLATFORM_BASE_URL", "")
	t.Setenv("CHAT_POLL_INTERVAL", "")
	t.Setenv("HTTP_ADDR", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.PlatformBaseURL != "http://127.0.0.1:8000" {
		t.Errorf("PlatformBaseURL = %q, want default", cfg.PlatformBaseURL)
	}
	if cfg.PollInterval != 3*time.Second {
		t.Errorf("PollInterval = %v, want 3s", cfg.PollInterval)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.DBDsn == "" {
		t.Errorf("expected default DB_DSN, got empty")
	}
}

func TestLoadPollInterval(t *testing.T) {
	t.Setenv("CHAT_POLL_INTERVAL", "500ms")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.PollInterval != 500*time.Millisecond {
		t.Errorf("PollInterval = %v, want 500ms", cfg.PollInterval)
	}

	t.Setenv("CHAT_POLL_INTERVAL", "not-a-duration")
	if _, err := Load(); err == nil {
		t.Errorf("expected error for invalid CHAT_POLL_INTERVAL")
	}

	t.Setenv("CHAT_POLL_INTERVAL", "-3s")
	if _, err := Load(); err == nil {
		t.Errorf("expected error for negative CHAT_POLL_INTERVAL")
	}
}

func TestLoadOpenUserID(t *testing.T) {
	t.Setenv("CHAT_OPEN_USER_ID", "42")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.OpenUserID != 42 {
		t.Errorf("OpenUserID = %d, want 42", cfg.OpenUserID)
	}

	t.Setenv("CHAT_OPEN_USER_ID", "zero")
	if _, err := Load(); err == nil {
		t.Errorf("expected error for invalid CHAT_OPEN_USER_ID")
	}
}

func TestValidateChatReady(t *testing.T) {
	t.Setenv("PLATFORM_USERNAME", "teacher1")
	t.Setenv("PLATFORM_PASSWORD", "secret")
	cfg, _ := Load()
	if err := cfg.ValidateChatReady(); err != nil {
		t.Errorf("expected valid platform config, got %v", err)
	}
	if err := os.Unsetenv("PLATFORM_USERNAME"); err != nil {
		t.Fatalf("failed to unset PLATFORM_USERNAME: %v", err)
	}
	cfg, _ = Load()
	if err := cfg.ValidateChatReady(); err == nil {
		t.Errorf("expected error when missing platform envs")
	}
}
