/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audit

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/friendsincode/weekplanner/internal/events"
	"github.com/friendsincode/weekplanner/internal/models"
)

// Writer persists audit rows.
type Writer interface {
	Audit(ctx context.Context, entry *models.AuditLog) error
}

// actions maps the planner events to the audit action they record.
var actions = map[events.EventType]models.AuditAction{
	events.EventScheduleCreated:   models.AuditActionPlanCreate,
	events.EventScheduleReplanned: models.AuditActionPlanReplan,
	events.EventTaskDeleted:       models.AuditActionTaskDelete,
	events.EventEntryDeleted:      models.AuditActionScheduleEntryDelete,
}

// Service handles audit logging by subscribing to events and storing audit entries.
type Service struct {
	writer Writer
	bus    events.Broker
	logger zerolog.Logger
}

// NewService creates a new audit service.
func NewService(writer Writer, bus events.Broker, logger zerolog.Logger) *Service {
	return &Service{
		writer: writer,
		bus:    bus,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

type subscription struct {
	eventType events.EventType
	ch        events.Subscriber
}

// Start subscribes to planner events and records them until ctx is done.
func (s *Service) Start(ctx context.Context) {
	s.run(ctx, s.subscribe())
}

func (s *Service) subscribe() []subscription {
	subs := make([]subscription, 0, len(events.PlannerEvents))
	for _, et := range events.PlannerEvents {
		subs = append(subs, subscription{eventType: et, ch: s.bus.Subscribe(et)})
	}
	return subs
}

func (s *Service) run(ctx context.Context, subs []subscription) {
	defer func() {
		for _, sub := range subs {
			s.bus.Unsubscribe(sub.eventType, sub.ch)
		}
	}()

	// Fan the per-type channels into one loop.
	type delivery struct {
		eventType events.EventType
		payload   events.Payload
	}
	merged := make(chan delivery)
	for _, sub := range subs {
		go func(sub subscription) {
			for {
				select {
				case <-ctx.Done():
					return
				case payload, ok := <-sub.ch:
					if !ok {
						return
					}
					select {
					case merged <- delivery{sub.eventType, payload}:
					case <-ctx.Done():
						return
					}
				}
			}
		}(sub)
	}

	s.logger.Info().Int("events", len(subs)).Msg("audit service started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("audit service stopping")
			return
		case d := <-merged:
			s.logAuditEntry(ctx, actions[d.eventType], d.payload)
		}
	}
}

// logAuditEntry creates an audit log entry from an event payload.
func (s *Service) logAuditEntry(ctx context.Context, action models.AuditAction, payload events.Payload) {
	entry := &models.AuditLog{
		Action:  action,
		Actor:   "system",
		Details: make(map[string]any),
	}

	for k, v := range payload {
		str, isString := v.(string)
		switch {
		case k == "actor" && isString && str != "":
			entry.Actor = str
		case k == "resource_type" && isString:
			entry.ResourceType = str
		case k == "resource_id" && isString:
			entry.ResourceID = str
		case k == "ip_address" && isString:
			entry.IPAddress = str
		default:
			entry.Details[k] = v
		}
	}

	if err := s.Log(ctx, entry); err != nil {
		s.logger.Error().Err(err).
			Str("action", string(action)).
			Msg("failed to log audit entry")
	}
}

// Log records an audit entry directly.
func (s *Service) Log(ctx context.Context, entry *models.AuditLog) error {
	if entry.Details == nil {
		entry.Details = make(map[string]any)
	}
	if err := s.writer.Audit(ctx, entry); err != nil {
		return err
	}

	s.logger.Debug().
		Str("action", string(entry.Action)).
		Str("id", entry.ID).
		Msg("audit entry logged")
	return nil
}
