/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package planner ties the plan engine to persistence, the preview cache,
// the snapshot archive and the event bus.
package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/weekplanner/internal/cache"
	"github.com/friendsincode/weekplanner/internal/events"
	"github.com/friendsincode/weekplanner/internal/models"
	"github.com/friendsincode/weekplanner/internal/schedule"
	"github.com/friendsincode/weekplanner/internal/scheduling"
	"github.com/friendsincode/weekplanner/internal/storage"
	"github.com/friendsincode/weekplanner/internal/store"
	"github.com/friendsincode/weekplanner/internal/telemetry"
)

var (
	// ErrPersist wraps database failures while storing or deleting plans.
	ErrPersist = errors.New("persist plan")

	// ErrNothingToReplan is returned when no tasks are stored.
	ErrNothingToReplan = errors.New("no stored tasks to replan")
)

// Meta describes who asked for a change.
type Meta struct {
	Trigger   models.PlanTrigger
	Actor     string
	IPAddress string
}

// Service runs, stores and announces plans.
type Service struct {
	engine   *scheduling.Engine
	store    *store.Store
	bus      events.Broker
	cache    *cache.Cache
	archiver *storage.Archiver
	now      func() time.Time
	logger   zerolog.Logger
}

// NewService creates the planner service.
func NewService(engine *scheduling.Engine, st *store.Store, bus events.Broker, logger zerolog.Logger) *Service {
	return &Service{
		engine: engine,
		store:  st,
		bus:    bus,
		now:    time.Now,
		logger: logger.With().Str("component", "planner_service").Logger(),
	}
}

// SetCache enables preview caching.
func (s *Service) SetCache(c *cache.Cache) {
	s.cache = c
}

// SetArchiver enables snapshot archiving of committed plans.
func (s *Service) SetArchiver(a *storage.Archiver) {
	s.archiver = a
}

// Preview computes a plan without storing it. The second return value
// reports whether the result came from the cache.
func (s *Service) Preview(ctx context.Context, req scheduling.Request) (*schedule.Result, bool, error) {
	if s.cache == nil || !s.cache.IsAvailable() {
		result, err := s.engine.Plan(ctx, req)
		return result, false, err
	}

	week, err := s.engine.WeekOf(req)
	if err != nil {
		return nil, false, err
	}
	key, err := cache.Fingerprint(req, week)
	if err != nil {
		return nil, false, err
	}
	if result, ok := s.cache.GetPreview(ctx, key); ok {
		return result, true, nil
	}

	result, err := s.engine.Plan(ctx, req)
	if err != nil {
		return nil, false, err
	}
	if err := s.cache.SetPreview(ctx, key, result); err != nil {
		s.logger.Debug().Err(err).Msg("failed to cache preview")
	}
	return result, false, nil
}

// Commit computes a plan, replaces the stored plan with it, archives a
// snapshot and publishes the matching event.
func (s *Service) Commit(ctx context.Context, req scheduling.Request, meta Meta) (*scheduling.Plan, *models.PlanRun, error) {
	plan, err := s.engine.Run(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	if meta.Trigger == "" {
		meta.Trigger = models.PlanTriggerAPI
	}
	runID := store.NewRunID(s.now())

	var snapshotKey string
	if s.archiver != nil {
		snapshotKey, err = s.archiver.Archive(ctx, storage.Snapshot{
			RunID:   runID,
			Trigger: string(meta.Trigger),
			Request: req,
			Result:  plan.Result,
		})
		if err != nil {
			// The plan is still stored without a snapshot.
			s.logger.Warn().Err(err).Str("run", runID).Msg("failed to archive plan snapshot")
			snapshotKey = ""
		}
	}

	run, err := s.store.SavePlan(ctx, store.SaveInput{
		RunID:       runID,
		Plan:        plan,
		Trigger:     meta.Trigger,
		SnapshotKey: snapshotKey,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrPersist, err)
	}

	eventType := events.EventScheduleCreated
	if meta.Trigger == models.PlanTriggerReplan {
		eventType = events.EventScheduleReplanned
	}
	s.publish(eventType, meta, "plan_run", run.ID, events.Payload{
		"week_start":        plan.Result.WeekStart,
		"status":            string(plan.Result.Status),
		"scheduled_minutes": run.ScheduledMinutes,
		"snapshot_key":      snapshotKey,
	})

	s.logger.Info().
		Str("run", run.ID).
		Str("trigger", string(meta.Trigger)).
		Str("week_start", plan.Result.WeekStart).
		Str("status", string(plan.Result.Status)).
		Msg("plan stored")

	return plan, run, nil
}

// Replan recomputes the stored tasks and availability against the current
// week and stores the result.
func (s *Service) Replan(ctx context.Context) (*models.PlanRun, error) {
	req, err := s.store.LoadRequest(ctx, "")
	if err != nil {
		telemetry.ReplanRunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if len(req.Tasks) == 0 {
		telemetry.ReplanRunsTotal.WithLabelValues("skipped").Inc()
		return nil, ErrNothingToReplan
	}

	_, run, err := s.Commit(ctx, req, Meta{Trigger: models.PlanTriggerReplan, Actor: "system"})
	if err != nil {
		telemetry.ReplanRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	telemetry.ReplanRunsTotal.WithLabelValues("ok").Inc()
	return run, nil
}

// DeleteTask removes a stored task and its schedule entries.
func (s *Service) DeleteTask(ctx context.Context, id string, meta Meta) error {
	task, err := s.store.DeleteTask(ctx, id)
	if err != nil {
		return s.deleteError(err)
	}
	s.publish(events.EventTaskDeleted, meta, "task", task.ID, events.Payload{"task_name": task.Name})
	return nil
}

// DeleteEntry removes one stored schedule entry.
func (s *Service) DeleteEntry(ctx context.Context, id string, meta Meta) error {
	entry, err := s.store.DeleteEntry(ctx, id)
	if err != nil {
		return s.deleteError(err)
	}
	s.publish(events.EventEntryDeleted, meta, "schedule_entry", entry.ID, events.Payload{
		"task_name":  entry.TaskName,
		"day":        entry.Day,
		"start_time": entry.StartTime,
		"end_time":   entry.EndTime,
	})
	return nil
}

func (s *Service) deleteError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrPersist, err)
}

func (s *Service) publish(eventType events.EventType, meta Meta, resourceType, resourceID string, payload events.Payload) {
	if s.bus == nil {
		return
	}
	payload["actor"] = meta.Actor
	payload["resource_type"] = resourceType
	payload["resource_id"] = resourceID
	if meta.IPAddress != "" {
		payload["ip_address"] = meta.IPAddress
	}
	s.bus.Publish(eventType, payload)
	telemetry.EventsPublished.WithLabelValues(string(eventType)).Inc()
}
