/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package store persists the latest plan: its tasks, availability and
// scheduled entries, plus a history of plan runs.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/friendsincode/weekplanner/internal/availability"
	"github.com/friendsincode/weekplanner/internal/clock"
	"github.com/friendsincode/weekplanner/internal/demand"
	"github.com/friendsincode/weekplanner/internal/models"
	"github.com/friendsincode/weekplanner/internal/scheduling"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = models.ErrNotFound

// Store is a gorm-backed repository.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// New creates a store on db.
func New(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// NewRunID returns a time-ordered plan run identifier.
func NewRunID(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String()
}

// SaveInput is one computed plan to persist.
type SaveInput struct {
	RunID       string // generated when empty
	Plan        *scheduling.Plan
	Trigger     models.PlanTrigger
	SnapshotKey string
}

// SavePlan replaces the stored tasks, time slots and schedule with plan in a
// single transaction and records the run.
func (s *Store) SavePlan(ctx context.Context, in SaveInput) (*models.PlanRun, error) {
	if in.Plan == nil || in.Plan.Result == nil {
		return nil, fmt.Errorf("save plan: nothing to save")
	}
	runID := in.RunID
	if runID == "" {
		runID = NewRunID(s.now())
	}

	run := &models.PlanRun{
		ID:               runID,
		WeekStart:        in.Plan.WeekStart,
		Status:           string(in.Plan.Result.Status),
		Message:          in.Plan.Result.Message,
		ScheduledMinutes: in.Plan.Result.ScheduledMinutes(),
		Trigger:          in.Trigger,
		SnapshotKey:      in.SnapshotKey,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.ScheduleEntry{}, &models.Task{}, &models.TimeSlot{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("clear %T: %w", model, err)
			}
		}

		taskIDs := make(map[string]string, len(in.Plan.Tasks))
		if len(in.Plan.Tasks) > 0 {
			rows := make([]models.Task, 0, len(in.Plan.Tasks))
			for _, t := range in.Plan.Tasks {
				id := uuid.NewString()
				taskIDs[t.Name] = id
				rows = append(rows, models.Task{
					ID:          id,
					Name:        t.Name,
					HoursPerDay: t.HoursPerDay,
					Deadline:    t.Deadline,
					Position:    t.Order,
				})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("insert tasks: %w", err)
			}
		}

		if slots := slotRows(in.Plan.Index); len(slots) > 0 {
			if err := tx.Create(&slots).Error; err != nil {
				return fmt.Errorf("insert time slots: %w", err)
			}
		}

		var entries []models.ScheduleEntry
		for _, daily := range in.Plan.Result.Schedule {
			date, err := clock.ParseDate(daily.Date)
			if err != nil {
				return fmt.Errorf("schedule date: %w", err)
			}
			for _, seg := range daily.Tasks {
				taskID, ok := taskIDs[seg.TaskName]
				if !ok {
					continue
				}
				entries = append(entries, models.ScheduleEntry{
					ID:        uuid.NewString(),
					RunID:     runID,
					TaskID:    taskID,
					TaskName:  seg.TaskName,
					Day:       daily.Day,
					Date:      date,
					StartTime: seg.StartTime,
					EndTime:   seg.EndTime,
					Duration:  seg.Duration,
				})
			}
		}
		if len(entries) > 0 {
			if err := tx.Create(&entries).Error; err != nil {
				return fmt.Errorf("insert schedule: %w", err)
			}
		}

		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("insert plan run: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

func slotRows(index *availability.Index) []models.TimeSlot {
	if index == nil {
		return nil
	}
	var rows []models.TimeSlot
	for _, day := range index.Days() {
		for _, slot := range index.Slots(day) {
			rows = append(rows, models.TimeSlot{
				ID:        uuid.NewString(),
				Day:       day.String(),
				StartTime: slot.Start.String(),
				EndTime:   slot.End.String(),
				Position:  len(rows),
			})
		}
	}
	return rows
}

// ListTasks returns stored tasks in request order.
func (s *Store) ListTasks(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	if err := s.db.WithContext(ctx).Order("position ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListSlots returns stored availability, Monday first, each day by start time.
func (s *Store) ListSlots(ctx context.Context) ([]models.TimeSlot, error) {
	var slots []models.TimeSlot
	if err := s.db.WithContext(ctx).Order("position ASC").Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return slots, nil
}

// ListSchedule returns stored schedule entries in calendar and time order.
func (s *Store) ListSchedule(ctx context.Context) ([]models.ScheduleEntry, error) {
	var entries []models.ScheduleEntry
	if err := s.db.WithContext(ctx).Order("date ASC").Order("start_time ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list schedule: %w", err)
	}
	return entries, nil
}

// LatestRun returns the most recent plan run.
func (s *Store) LatestRun(ctx context.Context) (*models.PlanRun, error) {
	var run models.PlanRun
	err := s.db.WithContext(ctx).Order("id DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest plan run: %w", err)
	}
	return &run, nil
}

// ListRuns returns up to limit plan runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]models.PlanRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var runs []models.PlanRun
	if err := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("list plan runs: %w", err)
	}
	return runs, nil
}

// DeleteTask removes a task and its schedule entries.
func (s *Store) DeleteTask(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&task, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.ScheduleEntry{}).Error; err != nil {
			return fmt.Errorf("delete task schedule: %w", err)
		}
		return tx.Delete(&task).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteEntry removes one schedule entry.
func (s *Store) DeleteEntry(ctx context.Context, id string) (*models.ScheduleEntry, error) {
	var entry models.ScheduleEntry
	err := s.db.WithContext(ctx).First(&entry, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find schedule entry: %w", err)
	}
	if err := s.db.WithContext(ctx).Delete(&entry).Error; err != nil {
		return nil, fmt.Errorf("delete schedule entry: %w", err)
	}
	return &entry, nil
}

// LoadRequest rebuilds a plan request from the stored tasks and availability.
// weekStart may be empty to let the engine pick the current week.
func (s *Store) LoadRequest(ctx context.Context, weekStart string) (scheduling.Request, error) {
	tasks, err := s.ListTasks(ctx)
	if err != nil {
		return scheduling.Request{}, err
	}
	slots, err := s.ListSlots(ctx)
	if err != nil {
		return scheduling.Request{}, err
	}

	req := scheduling.Request{
		Tasks:         make([]demand.RawTask, 0, len(tasks)),
		AvailableTime: make(map[string][]availability.RawSlot),
		WeekStart:     weekStart,
	}
	for _, t := range tasks {
		raw := demand.RawTask{Name: t.Name, HoursPerDay: t.HoursPerDay}
		if t.Deadline != nil {
			d := t.Deadline.UTC().Format(clock.DateLayout)
			raw.Deadline = &d
		}
		req.Tasks = append(req.Tasks, raw)
	}
	for _, sl := range slots {
		req.AvailableTime[sl.Day] = append(req.AvailableTime[sl.Day], availability.RawSlot{Start: sl.StartTime, End: sl.EndTime})
	}
	return req, nil
}

// Audit writes one audit log row.
func (s *Store) Audit(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// ListAudit returns audit rows, newest first.
func (s *Store) ListAudit(ctx context.Context, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []models.AuditLog
	if err := s.db.WithContext(ctx).Order("timestamp DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list audit log: %w", err)
	}
	return rows, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
