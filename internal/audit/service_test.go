/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/weekplanner/internal/events"
	"github.com/friendsincode/weekplanner/internal/models"
)

type memoryWriter struct {
	mu   sync.Mutex
	rows []models.AuditLog
}

func (w *memoryWriter) Audit(_ context.Context, entry *models.AuditLog) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows = append(w.rows, *entry)
	return nil
}

func (w *memoryWriter) snapshot() []models.AuditLog {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]models.AuditLog(nil), w.rows...)
}

func TestServiceRecordsPlannerEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewBus()
	writer := &memoryWriter{}
	svc := NewService(writer, bus, zerolog.Nop())

	done := make(chan struct{})
	subs := svc.subscribe()
	go func() {
		svc.run(ctx, subs)
		close(done)
	}()

	bus.Publish(events.EventTaskDeleted, events.Payload{
		"actor":         "alice",
		"resource_type": "task",
		"resource_id":   "t1",
		"ip_address":    "10.0.0.1",
		"task_name":     "Read",
	})

	deadline := time.Now().Add(2 * time.Second)
	var rows []models.AuditLog
	for time.Now().Before(deadline) {
		if rows = writer.snapshot(); len(rows) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}

	got := rows[0]
	if got.Action != models.AuditActionTaskDelete || got.Actor != "alice" || got.ResourceID != "t1" || got.IPAddress != "10.0.0.1" {
		t.Fatalf("unexpected row %+v", got)
	}
	if got.Details["task_name"] != "Read" || len(got.Details) != 1 {
		t.Fatalf("details = %v", got.Details)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
	}
}

func TestLogDefaultsActorToSystem(t *testing.T) {
	writer := &memoryWriter{}
	svc := NewService(writer, events.NewBus(), zerolog.Nop())

	svc.logAuditEntry(context.Background(), models.AuditActionPlanReplan, events.Payload{"run_id": "r1"})

	rows := writer.snapshot()
	if len(rows) != 1 || rows[0].Actor != "system" || rows[0].Details["run_id"] != "r1" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}
