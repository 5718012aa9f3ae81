package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"WEEKPLANNER_ENV", "APP_ENV", "WEEKPLANNER_DB_BACKEND", "WEEKPLANNER_DB_DSN", "DATABASE_URL",
		"WEEKPLANNER_JWT_SIGNING_KEY", "WEEKPLANNER_HTTP_PORT", "PORT", "WEEKPLANNER_CORS_ORIGINS",
		"WEEKPLANNER_TRACING_SAMPLE_RATE", "WEEKPLANNER_RATE_LIMIT_RPS", "WEEKPLANNER_RATE_LIMIT_BURST",
		"WEEKPLANNER_CACHE_TTL_MINUTES",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultsToSQLite(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBBackend != DatabaseSQLite || cfg.DBDSN != DefaultSQLiteDSN {
		t.Fatalf("unexpected db settings: %s %q", cfg.DBBackend, cfg.DBDSN)
	}
	if cfg.AuthEnabled() {
		t.Fatal("auth should be disabled without a signing key")
	}
	if cfg.Addr() != "0.0.0.0:8000" {
		t.Fatalf("unexpected addr %q", cfg.Addr())
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSOrigins)
	}
	if cfg.CacheTTL != 10*time.Minute {
		t.Fatalf("unexpected cache ttl %s", cfg.CacheTTL)
	}
}

func TestLoadReadsAliases(t *testing.T) {
	clearEnv(t)
	t.Setenv("WEEKPLANNER_DB_BACKEND", "Postgres")
	t.Setenv("DATABASE_URL", "host=localhost user=test dbname=test sslmode=disable")
	t.Setenv("WEEKPLANNER_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("WEEKPLANNER_CORS_ORIGINS", "http://localhost:3000, https://plan.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBBackend != DatabasePostgres {
		t.Fatalf("backend = %s", cfg.DBBackend)
	}
	if cfg.DBDSN == "" {
		t.Fatal("expected DB DSN from DATABASE_URL")
	}
	if !cfg.AuthEnabled() {
		t.Fatal("expected auth to be enabled")
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://plan.example.com" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSOrigins)
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown backend", env: map[string]string{"WEEKPLANNER_DB_BACKEND": "oracle"}},
		{name: "postgres without dsn", env: map[string]string{"WEEKPLANNER_DB_BACKEND": "postgres"}},
		{name: "sample rate out of range", env: map[string]string{"WEEKPLANNER_TRACING_SAMPLE_RATE": "1.5"}},
		{name: "negative rate limit", env: map[string]string{"WEEKPLANNER_RATE_LIMIT_RPS": "-1"}},
		{name: "production without signing key", env: map[string]string{"WEEKPLANNER_ENV": "production"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected config load to fail")
			}
		})
	}
}
