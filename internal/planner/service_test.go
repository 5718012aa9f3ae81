/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package planner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/weekplanner/internal/availability"
	"github.com/friendsincode/weekplanner/internal/db"
	"github.com/friendsincode/weekplanner/internal/demand"
	"github.com/friendsincode/weekplanner/internal/events"
	"github.com/friendsincode/weekplanner/internal/models"
	"github.com/friendsincode/weekplanner/internal/scheduling"
	"github.com/friendsincode/weekplanner/internal/storage"
	"github.com/friendsincode/weekplanner/internal/store"
)

type fixture struct {
	svc      *Service
	store    *store.Store
	bus      *events.Bus
	archiver *storage.Archiver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	now := func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC) }
	engine := scheduling.NewEngine(zerolog.Nop(), scheduling.WithClock(now))
	st := store.New(gdb)
	bus := events.NewBus()
	archiver := storage.NewArchiver(storage.NewFilesystemStore(t.TempDir(), zerolog.Nop()), "plans", zerolog.Nop())

	svc := NewService(engine, st, bus, zerolog.Nop())
	svc.SetArchiver(archiver)
	return &fixture{svc: svc, store: st, bus: bus, archiver: archiver}
}

func strPtr(s string) *string { return &s }

func request() scheduling.Request {
	return scheduling.Request{
		Tasks: []demand.RawTask{
			{Name: "Read", HoursPerDay: 1},
			{Name: "Write", HoursPerDay: 1, Deadline: strPtr("2026-10-13")},
		},
		AvailableTime: map[string][]availability.RawSlot{
			"Monday":  {{Start: "09:00", End: "11:00"}},
			"Tuesday": {{Start: "09:00", End: "11:00"}},
		},
		WeekStart: "2026-10-12",
	}
}

func receive(t *testing.T, sub events.Subscriber) events.Payload {
	t.Helper()
	select {
	case p := <-sub:
		return p
	case <-time.After(time.Second):
		t.Fatal("no event published")
		return nil
	}
}

func TestCommitStoresArchivesAndPublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.bus.Subscribe(events.EventScheduleCreated)

	plan, run, err := f.svc.Commit(ctx, request(), Meta{Actor: "alice", IPAddress: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if run.Trigger != models.PlanTriggerAPI || run.Status != string(plan.Result.Status) {
		t.Fatalf("unexpected run %+v", run)
	}

	if run.SnapshotKey == "" {
		t.Fatal("snapshot key not recorded")
	}
	snap, err := f.archiver.Load(ctx, run.SnapshotKey)
	if err != nil {
		t.Fatalf("Load snapshot: %v", err)
	}
	if snap.RunID != run.ID || snap.Result.Message != plan.Result.Message {
		t.Fatalf("snapshot does not match run: %+v", snap)
	}

	entries, err := f.store.ListSchedule(ctx)
	if err != nil || len(entries) != plan.Result.SegmentCount() {
		t.Fatalf("entries = %d (%v), want %d", len(entries), err, plan.Result.SegmentCount())
	}

	p := receive(t, sub)
	if p["resource_id"] != run.ID || p["actor"] != "alice" || p["ip_address"] != "10.0.0.1" || p["week_start"] != "2026-10-12" {
		t.Fatalf("unexpected payload %v", p)
	}
}

func TestCommitRejectsInvalidRequestWithoutStoring(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := request()
	req.AvailableTime["Monday"] = []availability.RawSlot{{Start: "09:00", End: "11:00"}, {Start: "10:00", End: "12:00"}}

	_, _, err := f.svc.Commit(ctx, req, Meta{})
	if scheduling.ErrorCode(err) != scheduling.CodeOverlap {
		t.Fatalf("error = %v, want overlap", err)
	}
	if _, err := f.store.LatestRun(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("a run was stored: %v", err)
	}
}

func TestReplan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Replan(ctx); !errors.Is(err, ErrNothingToReplan) {
		t.Fatalf("error = %v, want ErrNothingToReplan", err)
	}

	_, first, err := f.svc.Commit(ctx, request(), Meta{Actor: "alice"})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	sub := f.bus.Subscribe(events.EventScheduleReplanned)
	run, err := f.svc.Replan(ctx)
	if err != nil {
		t.Fatalf("Replan: %v", err)
	}
	if run.Trigger != models.PlanTriggerReplan || run.ID == first.ID {
		t.Fatalf("unexpected replan run %+v", run)
	}
	if run.WeekStart.Format("2006-01-02") != "2026-10-12" {
		t.Fatalf("replan week = %s", run.WeekStart)
	}
	if p := receive(t, sub); p["actor"] != "system" {
		t.Fatalf("unexpected payload %v", p)
	}

	runs, _ := f.store.ListRuns(ctx, 10)
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
}

func TestDeleteTaskAndEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, _, err := f.svc.Commit(ctx, request(), Meta{}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if err := f.svc.DeleteTask(ctx, "missing", Meta{}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}

	taskSub := f.bus.Subscribe(events.EventTaskDeleted)
	tasks, _ := f.store.ListTasks(ctx)
	if err := f.svc.DeleteTask(ctx, tasks[0].ID, Meta{Actor: "bob"}); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if p := receive(t, taskSub); p["task_name"] != tasks[0].Name || p["actor"] != "bob" {
		t.Fatalf("unexpected payload %v", p)
	}

	entrySub := f.bus.Subscribe(events.EventEntryDeleted)
	entries, _ := f.store.ListSchedule(ctx)
	if len(entries) == 0 {
		t.Fatal("expected remaining entries")
	}
	if err := f.svc.DeleteEntry(ctx, entries[0].ID, Meta{}); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if p := receive(t, entrySub); p["resource_type"] != "schedule_entry" {
		t.Fatalf("unexpected payload %v", p)
	}
}

func TestPreviewWithoutCache(t *testing.T) {
	f := newFixture(t)
	result, cached, err := f.svc.Preview(context.Background(), request())
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if cached || result.WeekStart != "2026-10-12" {
		t.Fatalf("unexpected preview %+v cached=%v", result, cached)
	}
	if _, err := f.store.LatestRun(context.Background()); !errors.Is(err, store.ErrNotFound) {
		t.Fatal("preview must not store anything")
	}
}
