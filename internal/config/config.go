/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// DefaultSQLiteDSN is used when the sqlite backend is selected without a DSN.
const DefaultSQLiteDSN = "weekplanner.db"

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment   string
	HTTPBind      string
	HTTPPort      int
	DBBackend     DatabaseBackend
	DBDSN         string
	JWTSigningKey string // empty leaves mutating endpoints open

	// Preview cache (Redis)
	CacheEnabled  bool
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Event fan-out; empty keeps events in process
	NATSURL string

	// Snapshot archive (S3 or compatible); empty bucket disables it
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
	S3Bucket          string
	S3Endpoint        string // MinIO, Spaces, etc.
	S3UsePathStyle    bool   // required for MinIO
	S3Prefix          string

	// Local snapshot archive used when no bucket is configured; empty disables it
	SnapshotDir string

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Weekly re-plan of stored tasks; empty disables it
	ReplanCron string

	// Per-client rate limit for planning endpoints; 0 disables it
	RateLimitRPS   float64
	RateLimitBurst int

	CORSOrigins    []string
	RequestTimeout time.Duration
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:   getEnvAny([]string{"WEEKPLANNER_ENV", "APP_ENV"}, "development"),
		HTTPBind:      getEnvAny([]string{"WEEKPLANNER_HTTP_BIND", "HOST"}, "0.0.0.0"),
		HTTPPort:      getEnvIntAny([]string{"WEEKPLANNER_HTTP_PORT", "PORT"}, 8000),
		DBBackend:     DatabaseBackend(strings.ToLower(getEnvAny([]string{"WEEKPLANNER_DB_BACKEND"}, string(DatabaseSQLite)))),
		DBDSN:         getEnvAny([]string{"WEEKPLANNER_DB_DSN", "DATABASE_URL"}, ""),
		JWTSigningKey: getEnvAny([]string{"WEEKPLANNER_JWT_SIGNING_KEY"}, ""),

		CacheEnabled:  getEnvBoolAny([]string{"WEEKPLANNER_CACHE_ENABLED"}, false),
		CacheTTL:      time.Duration(getEnvIntAny([]string{"WEEKPLANNER_CACHE_TTL_MINUTES"}, 10)) * time.Minute,
		RedisAddr:     getEnvAny([]string{"WEEKPLANNER_REDIS_ADDR", "REDIS_ADDR"}, "localhost:6379"),
		RedisPassword: getEnvAny([]string{"WEEKPLANNER_REDIS_PASSWORD", "REDIS_PASSWORD"}, ""),
		RedisDB:       getEnvIntAny([]string{"WEEKPLANNER_REDIS_DB", "REDIS_DB"}, 0),

		NATSURL: getEnvAny([]string{"WEEKPLANNER_NATS_URL", "NATS_URL"}, ""),

		S3AccessKeyID:     getEnvAny([]string{"WEEKPLANNER_S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"}, ""),
		S3SecretAccessKey: getEnvAny([]string{"WEEKPLANNER_S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"}, ""),
		S3Region:          getEnvAny([]string{"WEEKPLANNER_S3_REGION", "AWS_REGION"}, "us-east-1"),
		S3Bucket:          getEnvAny([]string{"WEEKPLANNER_S3_BUCKET", "S3_BUCKET"}, ""),
		S3Endpoint:        getEnvAny([]string{"WEEKPLANNER_S3_ENDPOINT", "S3_ENDPOINT"}, ""),
		S3UsePathStyle:    getEnvBoolAny([]string{"WEEKPLANNER_S3_USE_PATH_STYLE", "S3_USE_PATH_STYLE"}, false),
		S3Prefix:          getEnvAny([]string{"WEEKPLANNER_S3_PREFIX"}, "plans/"),
		SnapshotDir:       getEnvAny([]string{"WEEKPLANNER_SNAPSHOT_DIR"}, ""),

		TracingEnabled:    getEnvBoolAny([]string{"WEEKPLANNER_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"WEEKPLANNER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"WEEKPLANNER_TRACING_SAMPLE_RATE"}, 1.0),

		ReplanCron: getEnvAny([]string{"WEEKPLANNER_REPLAN_CRON"}, ""),

		RateLimitRPS:   getEnvFloatAny([]string{"WEEKPLANNER_RATE_LIMIT_RPS"}, 0),
		RateLimitBurst: getEnvIntAny([]string{"WEEKPLANNER_RATE_LIMIT_BURST"}, 20),

		CORSOrigins:    splitList(getEnvAny([]string{"WEEKPLANNER_CORS_ORIGINS"}, "*")),
		RequestTimeout: time.Duration(getEnvIntAny([]string{"WEEKPLANNER_REQUEST_TIMEOUT_SECONDS"}, 60)) * time.Second,
	}

	switch cfg.DBBackend {
	case DatabasePostgres, DatabaseMySQL:
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("WEEKPLANNER_DB_DSN or DATABASE_URL must be provided for the %s backend", cfg.DBBackend)
		}
	case DatabaseSQLite:
		if cfg.DBDSN == "" {
			cfg.DBDSN = DefaultSQLiteDSN
		}
	default:
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid http port %d", cfg.HTTPPort)
	}
	if cfg.TracingSampleRate < 0 || cfg.TracingSampleRate > 1 {
		return nil, fmt.Errorf("WEEKPLANNER_TRACING_SAMPLE_RATE must be between 0 and 1, got %v", cfg.TracingSampleRate)
	}
	if cfg.RateLimitRPS < 0 || cfg.RateLimitBurst < 1 {
		return nil, fmt.Errorf("rate limit must be non-negative with a burst of at least 1")
	}
	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("WEEKPLANNER_CACHE_TTL_MINUTES must be positive")
	}
	if strings.EqualFold(cfg.Environment, "production") && cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("WEEKPLANNER_JWT_SIGNING_KEY must be provided in production")
	}

	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTPBind, c.HTTPPort)
}

// AuthEnabled reports whether mutating endpoints require a bearer token.
func (c *Config) AuthEnabled() bool {
	return c.JWTSigningKey != ""
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
