/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package scheduling is the planner entry point: it validates a request,
// allocates tasks into availability and assembles the response.
package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/friendsincode/weekplanner/internal/allocator"
	"github.com/friendsincode/weekplanner/internal/availability"
	"github.com/friendsincode/weekplanner/internal/clock"
	"github.com/friendsincode/weekplanner/internal/demand"
	"github.com/friendsincode/weekplanner/internal/schedule"
	"github.com/friendsincode/weekplanner/internal/telemetry"
)

const tracerName = "weekplanner/scheduling"

// Request is a plan request as received from clients.
type Request struct {
	Tasks         []demand.RawTask                  `json:"tasks" yaml:"tasks"`
	AvailableTime map[string][]availability.RawSlot `json:"available_time" yaml:"available_time"`
	WeekStart     string                            `json:"week_start,omitempty" yaml:"week_start,omitempty"`
}

// Plan is a computed plan together with the validated inputs it came from.
type Plan struct {
	Result    *schedule.Result
	Tasks     []demand.Task
	Index     *availability.Index
	WeekStart time.Time
}

// Engine runs plans. It holds no per-request state and is safe for concurrent use.
type Engine struct {
	now       func() time.Time
	selfCheck bool
	logger    zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used when a request has no week_start.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSelfCheck validates every computed result against its inputs and logs
// any violation. Meant for development setups.
func WithSelfCheck(enabled bool) Option {
	return func(e *Engine) { e.selfCheck = enabled }
}

// NewEngine creates a plan engine.
func NewEngine(logger zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		now:    time.Now,
		logger: logger.With().Str("component", "planner").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WeekOf resolves the Monday the request is anchored to.
func (e *Engine) WeekOf(req Request) (time.Time, error) {
	if strings.TrimSpace(req.WeekStart) == "" {
		return clock.WeekStart(e.now()), nil
	}
	date, err := clock.ParseDate(req.WeekStart)
	if err != nil {
		return time.Time{}, fmt.Errorf("week_start: %w", err)
	}
	return clock.WeekStart(date), nil
}

// Plan validates req and returns the assembled schedule. Validation errors
// are returned before any allocation happens; partial and infeasible
// outcomes are successful results.
func (e *Engine) Plan(ctx context.Context, req Request) (*schedule.Result, error) {
	plan, err := e.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return plan.Result, nil
}

// Run is Plan but also returns the validated tasks and availability.
func (e *Engine) Run(ctx context.Context, req Request) (*Plan, error) {
	_, span := telemetry.StartSpan(ctx, tracerName, "planner.plan")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		telemetry.PlanDuration.Observe(time.Since(start).Seconds())
	}()

	weekStart, err := e.WeekOf(req)
	if err != nil {
		return nil, e.reject(span, err)
	}

	index, err := availability.Build(req.AvailableTime)
	if err != nil {
		return nil, e.reject(span, err)
	}

	tasks, err := demand.Build(req.Tasks)
	if err != nil {
		return nil, e.reject(span, err)
	}

	alloc := allocator.Allocate(index, tasks, weekStart)
	result := schedule.Assemble(alloc)

	telemetry.PlanRunsTotal.WithLabelValues(string(result.Status)).Inc()
	telemetry.PlanScheduledMinutes.Observe(float64(result.ScheduledMinutes()))
	telemetry.AddSpanAttributes(span, map[string]any{
		"planner.week_start": result.WeekStart,
		"planner.tasks":      len(tasks),
		"planner.slots":      index.SlotCount(),
		"planner.capacity":   index.TotalCapacity(),
		"planner.segments":   result.SegmentCount(),
		"planner.status":     string(result.Status),
	})

	e.logger.Debug().
		Str("week_start", result.WeekStart).
		Int("tasks", len(tasks)).
		Int("slots", index.SlotCount()).
		Int("capacity_minutes", index.TotalCapacity()).
		Int("segments", result.SegmentCount()).
		Str("status", string(result.Status)).
		Msg("plan computed")

	plan := &Plan{Result: result, Tasks: tasks, Index: index, WeekStart: weekStart}
	if e.selfCheck {
		e.checkPlan(plan)
	}
	return plan, nil
}

// checkPlan reports violations in a computed plan. They never fail the run.
func (e *Engine) checkPlan(plan *Plan) []Violation {
	violations := ValidateResult(plan.Index, plan.Tasks, plan.Result)
	for _, v := range violations {
		telemetry.PlanViolationsTotal.WithLabelValues(string(v.Kind)).Inc()
		e.logger.Error().
			Str("kind", string(v.Kind)).
			Str("day", v.Day).
			Str("task", v.Task).
			Str("week_start", plan.Result.WeekStart).
			Msg(v.Message)
	}
	return violations
}

func (e *Engine) reject(span trace.Span, err error) error {
	telemetry.PlanRunsTotal.WithLabelValues("rejected").Inc()
	telemetry.RecordError(span, err)
	e.logger.Debug().Err(err).Str("code", ErrorCode(err)).Msg("plan request rejected")
	return err
}
