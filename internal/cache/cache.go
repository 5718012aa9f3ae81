/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based cache for plan previews.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/weekplanner/internal/schedule"
	"github.com/friendsincode/weekplanner/internal/scheduling"
	"github.com/friendsincode/weekplanner/internal/telemetry"
)

// DefaultPreviewTTL bounds how long a cached preview is served.
const DefaultPreviewTTL = 10 * time.Minute

// KeyPreview prefixes preview entries; the request fingerprint follows.
const KeyPreview = "weekplanner:cache:preview:"

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	PreviewTTL    time.Duration

	// DisableOnError trips the breaker on the first Redis error.
	DisableOnError bool
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		PreviewTTL:     DefaultPreviewTTL,
		DisableOnError: true,
	}
}

// Cache provides Redis-backed caching with graceful fallback.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool
}

// New creates a cache. An unreachable Redis yields a disabled cache, not an error.
func New(cfg Config, logger zerolog.Logger) *Cache {
	if cfg.PreviewTTL <= 0 {
		cfg.PreviewTTL = DefaultPreviewTTL
	}
	c := &Cache{
		logger: logger.With().Str("component", "cache").Logger(),
		config: cfg,
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		c.logger.Warn().Err(err).Msg("Redis cache unavailable, previews will not be cached")
		c.disabled = true
		return c
	}

	c.client = client
	c.logger.Info().Str("addr", cfg.RedisAddr).Dur("ttl", cfg.PreviewTTL).Msg("Redis cache initialized")
	return c
}

// Disabled returns a cache that never stores anything.
func Disabled(logger zerolog.Logger) *Cache {
	return &Cache{
		logger:   logger.With().Str("component", "cache").Logger(),
		config:   DefaultConfig(),
		disabled: true,
	}
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

func (c *Cache) handleError(err error, operation string) {
	if err == nil || errors.Is(err, redis.Nil) {
		return
	}

	telemetry.PlanCacheTotal.WithLabelValues("error").Inc()
	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}

// Fingerprint identifies a preview request. The resolved week is part of the
// key because deadline eligibility depends on it.
func Fingerprint(req scheduling.Request, weekStart time.Time) (string, error) {
	// encoding/json writes map keys in sorted order, so equal requests hash equally.
	data, err := json.Marshal(struct {
		Request   scheduling.Request `json:"request"`
		WeekStart string             `json:"week"`
	}{req, weekStart.UTC().Format("2006-01-02")})
	if err != nil {
		return "", fmt.Errorf("fingerprint request: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// GetPreview returns a cached result for fingerprint.
func (c *Cache) GetPreview(ctx context.Context, fingerprint string) (*schedule.Result, bool) {
	if !c.IsAvailable() {
		return nil, false
	}

	data, err := c.client.Get(ctx, KeyPreview+fingerprint).Bytes()
	if errors.Is(err, redis.Nil) {
		telemetry.PlanCacheTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		c.handleError(err, "get")
		return nil, false
	}

	var result schedule.Result
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Debug().Err(err).Str("fingerprint", fingerprint).Msg("failed to unmarshal cached preview")
		telemetry.PlanCacheTotal.WithLabelValues("miss").Inc()
		return nil, false
	}

	telemetry.PlanCacheTotal.WithLabelValues("hit").Inc()
	return &result, true
}

// SetPreview stores a result under fingerprint.
func (c *Cache) SetPreview(ctx context.Context, fingerprint string, result *schedule.Result) error {
	if !c.IsAvailable() || result == nil {
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal preview: %w", err)
	}
	if err := c.client.Set(ctx, KeyPreview+fingerprint, data, c.config.PreviewTTL).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}
	return nil
}

// Ping reports whether Redis answers.
func (c *Cache) Ping(ctx context.Context) error {
	if c.client == nil {
		return errors.New("cache disabled")
	}
	return c.client.Ping(ctx).Err()
}

// Client returns the Redis client, or nil when the cache is disabled.
func (c *Cache) Client() *redis.Client {
	if !c.IsAvailable() {
		return nil
	}
	return c.client
}
