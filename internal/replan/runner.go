/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package replan re-runs the stored plan on a cron schedule so deadline
// eligibility follows the calendar.
package replan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single replan run.
const DefaultTimeout = 2 * time.Minute

// lockPrefix namespaces the per-firing lock key.
const lockPrefix = "weekplanner:lock:replan:"

// Job is one replan run.
type Job func(ctx context.Context) error

// Locker lets only one instance run a given firing.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisLocker implements Locker with SET NX on a shared Redis.
type RedisLocker struct {
	client *redis.Client
	owner  string
}

// NewRedisLocker creates a locker; owner is stored as the lock value.
func NewRedisLocker(client *redis.Client, owner string) *RedisLocker {
	return &RedisLocker{client: client, owner: owner}
}

// TryLock acquires key for ttl, returning false when another owner holds it.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, key, l.owner, ttl).Result()
}

// Runner fires Job on a cron spec.
type Runner struct {
	spec    string
	job     Job
	locker  Locker
	timeout time.Duration
	parser  cron.Parser
	logger  zerolog.Logger
}

// New validates spec (standard five-field cron or a descriptor such as
// "@weekly") and creates a runner.
func New(spec string, job Job, logger zerolog.Logger) (*Runner, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(spec); err != nil {
		return nil, fmt.Errorf("invalid replan cron spec %q: %w", spec, err)
	}
	if job == nil {
		return nil, errors.New("replan job is required")
	}
	return &Runner{
		spec:    spec,
		job:     job,
		timeout: DefaultTimeout,
		parser:  parser,
		logger:  logger.With().Str("component", "replan").Logger(),
	}, nil
}

// SetLocker makes firings exclusive across instances.
func (r *Runner) SetLocker(l Locker) {
	r.locker = l
}

// Next returns the first firing after t.
func (r *Runner) Next(t time.Time) time.Time {
	sched, err := r.parser.Parse(r.spec)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(t)
}

// Run schedules the job until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithParser(r.parser),
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(r.spec, func() { r.fire(ctx, time.Now().UTC()) }); err != nil {
		return fmt.Errorf("schedule replan: %w", err)
	}

	c.Start()
	r.logger.Info().Str("spec", r.spec).Time("next", r.Next(time.Now().UTC())).Msg("replan scheduler started")

	<-ctx.Done()
	<-c.Stop().Done()
	r.logger.Info().Msg("replan scheduler stopped")
	return nil
}

func (r *Runner) fire(ctx context.Context, at time.Time) {
	if ctx.Err() != nil {
		return
	}
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if r.locker != nil {
		key := lockPrefix + at.Truncate(time.Minute).Format("200601021504")
		ok, err := r.locker.TryLock(runCtx, key, r.timeout)
		if err != nil {
			r.logger.Warn().Err(err).Msg("replan lock unavailable, running anyway")
		} else if !ok {
			r.logger.Debug().Str("key", key).Msg("replan already claimed by another instance")
			return
		}
	}

	start := time.Now()
	if err := r.job(runCtx); err != nil {
		r.logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("replan failed")
		return
	}
	r.logger.Info().Dur("elapsed", time.Since(start)).Msg("replan finished")
}
