/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/teambition/rrule-go"

	"github.com/friendsincode/weekplanner/internal/clock"
	"github.com/friendsincode/weekplanner/internal/models"
)

// MaxExportWeeks bounds how many weekly repetitions an export may contain.
const MaxExportWeeks = 52

// ErrNothingToExport is returned when no plan has been stored yet.
var ErrNothingToExport = errors.New("no stored schedule")

// EntrySource provides the stored schedule. LatestRun returns
// models.ErrNotFound when no plan has been stored.
type EntrySource interface {
	ListSchedule(ctx context.Context) ([]models.ScheduleEntry, error)
	LatestRun(ctx context.Context) (*models.PlanRun, error)
}

// ExportService renders the stored schedule for calendar clients.
type ExportService struct {
	source EntrySource
	now    func() time.Time
	logger zerolog.Logger
}

// NewExportService creates a new export service.
func NewExportService(source EntrySource, logger zerolog.Logger) *ExportService {
	return &ExportService{
		source: source,
		now:    time.Now,
		logger: logger.With().Str("component", "schedule_export").Logger(),
	}
}

// ExportResult is a rendered export.
type ExportResult struct {
	Data        []byte
	Filename    string
	ContentType string
}

// ExportToICal renders the stored schedule as an iCalendar feed. With weeks
// greater than one every entry repeats weekly that many times.
func (s *ExportService) ExportToICal(ctx context.Context, weeks int) (*ExportResult, error) {
	if weeks < 1 || weeks > MaxExportWeeks {
		return nil, fmt.Errorf("weeks must be between 1 and %d", MaxExportWeeks)
	}

	run, entries, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString("BEGIN:VCALENDAR\r\n")
	buf.WriteString("VERSION:2.0\r\n")
	buf.WriteString("PRODID:-//Weekplanner//Schedule Export//EN\r\n")
	buf.WriteString("X-WR-CALNAME:Weekly plan\r\n")
	buf.WriteString("CALSCALE:GREGORIAN\r\n")
	buf.WriteString("METHOD:PUBLISH\r\n")

	stamp := formatICalTime(s.now())
	events := 0
	for _, entry := range entries {
		start, end, err := entryBounds(entry)
		if err != nil {
			s.logger.Warn().Err(err).Str("entry", entry.ID).Msg("skipping malformed schedule entry")
			continue
		}

		occurrences := []time.Time{start}
		if weeks > 1 {
			rule, err := rrule.NewRRule(rrule.ROption{Freq: rrule.WEEKLY, Count: weeks, Dtstart: start})
			if err != nil {
				return nil, fmt.Errorf("weekly rule for %s: %w", entry.ID, err)
			}
			occurrences = rule.All()
		}

		length := end.Sub(start)
		for i, occ := range occurrences {
			buf.WriteString("BEGIN:VEVENT\r\n")
			fmt.Fprintf(&buf, "UID:%s-%d@weekplanner\r\n", entry.ID, i)
			fmt.Fprintf(&buf, "DTSTAMP:%s\r\n", stamp)
			fmt.Fprintf(&buf, "DTSTART:%s\r\n", formatICalTime(occ))
			fmt.Fprintf(&buf, "DTEND:%s\r\n", formatICalTime(occ.Add(length)))
			fmt.Fprintf(&buf, "SUMMARY:%s\r\n", escapeICalText(entry.TaskName))
			fmt.Fprintf(&buf, "DESCRIPTION:%s\r\n", escapeICalText(fmt.Sprintf("%d min, plan %s", entry.Duration, run.ID)))
			buf.WriteString("END:VEVENT\r\n")
			events++
		}
	}

	buf.WriteString("END:VCALENDAR\r\n")

	s.logger.Debug().Str("run", run.ID).Int("events", events).Msg("iCal export rendered")

	return &ExportResult{
		Data:        buf.Bytes(),
		Filename:    fmt.Sprintf("weekplanner-%s.ics", run.WeekStart.UTC().Format(clock.DateLayout)),
		ContentType: "text/calendar; charset=utf-8",
	}, nil
}

func (s *ExportService) load(ctx context.Context) (*models.PlanRun, []models.ScheduleEntry, error) {
	run, err := s.source.LatestRun(ctx)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil, ErrNothingToExport
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load plan run: %w", err)
	}
	entries, err := s.source.ListSchedule(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load schedule: %w", err)
	}
	return run, entries, nil
}

// entryBounds anchors an entry's wall-clock times to its date.
func entryBounds(e models.ScheduleEntry) (time.Time, time.Time, error) {
	start, err := clock.Parse(e.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := clock.Parse(e.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	date := e.Date.UTC()
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.Add(time.Duration(start.Minutes()) * time.Minute),
		midnight.Add(time.Duration(end.Minutes()) * time.Minute), nil
}

func formatICalTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

func escapeICalText(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
