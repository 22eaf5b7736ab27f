package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("does-not-exist.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8002 {
		t.Errorf("expected default port 8002, got %d", cfg.Server.Port)
	}
	if cfg.Server.BasePath != "/api/realtime" {
		t.Errorf("unexpected base path %q", cfg.Server.BasePath)
	}
	if cfg.Relay.FetchTimeout.Std() != 5*time.Second {
		t.Errorf("expected 5s fetch timeout, got %v", cfg.Relay.FetchTimeout)
	}
	if cfg.Relay.HistoryLimit != 50 {
		t.Errorf("expected history limit 50, got %d", cfg.Relay.HistoryLimit)
	}
	if cfg.Relay.CleanupDays != 30 {
		t.Errorf("expected cleanup after 30 days, got %d", cfg.Relay.CleanupDays)
	}
	if cfg.Redis.Host != "localhost" || cfg.Redis.Port != 6379 {
		t.Errorf("unexpected redis defaults %s:%d", cfg.Redis.Host, cfg.Redis.Port)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9100
  env: production
relay:
  fetch_timeout: 2s
  history_limit: 25
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("expected port 9100, got %d", cfg.Server.Port)
	}
	if cfg.Server.Env != "production" {
		t.Errorf("expected env production, got %q", cfg.Server.Env)
	}
	if cfg.Relay.FetchTimeout.Std() != 2*time.Second {
		t.Errorf("expected 2s fetch timeout, got %v", cfg.Relay.FetchTimeout)
	}
	if cfg.Relay.HistoryLimit != 25 {
		t.Errorf("expected history limit 25, got %d", cfg.Relay.HistoryLimit)
	}
	// Untouched sections keep their defaults.
	if cfg.Server.BasePath != "/api/realtime" {
		t.Errorf("unexpected base path %q", cfg.Server.BasePath)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9200")
	t.Setenv("DATABASE_URL", "postgres://override/db")
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("SECRET_KEY", "env-secret")
	t.Setenv("FETCH_TIMEOUT", "750ms")

	cfg, err := Load("does-not-exist.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9200 {
		t.Errorf("expected port 9200, got %d", cfg.Server.Port)
	}
	if cfg.Database.URL != "postgres://override/db" {
		t.Errorf("unexpected database url %q", cfg.Database.URL)
	}
	if cfg.Redis.Host != "redis.internal" || cfg.Redis.Port != 6380 {
		t.Errorf("unexpected redis %s:%d", cfg.Redis.Host, cfg.Redis.Port)
	}
	if cfg.Auth.SecretKey != "env-secret" {
		t.Errorf("unexpected secret %q", cfg.Auth.SecretKey)
	}
	if cfg.Relay.FetchTimeout.Std() != 750*time.Millisecond {
		t.Errorf("expected 750ms fetch timeout, got %v", cfg.Relay.FetchTimeout)
	}
}

func TestLoad_InvalidEnvValuesIgnored(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("FETCH_TIMEOUT", "soon")

	cfg, err := Load("does-not-exist.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8002 {
		t.Errorf("expected default port kept, got %d", cfg.Server.Port)
	}
	if cfg.Relay.FetchTimeout.Std() != 5*time.Second {
		t.Errorf("expected default fetch timeout kept, got %v", cfg.Relay.FetchTimeout)
	}
}
