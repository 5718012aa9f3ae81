/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package schedule turns an allocation into the day-grouped planner response
// and exports stored schedules.
package schedule

import (
	"fmt"
	"sort"
	"strings"

	"github.com/friendsincode/weekplanner/internal/allocator"
	"github.com/friendsincode/weekplanner/internal/clock"
)

// Status summarises how well the demand fit into the available time.
type Status string

const (
	StatusOK         Status = "ok"
	StatusPartial    Status = "partial"
	StatusInfeasible Status = "infeasible"
)

// Segment is one scheduled block in wire form. Duration is in minutes.
type Segment struct {
	TaskName  string `json:"task_name"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Duration  int    `json:"duration"`
}

// DailySchedule holds one day's segments ordered by start time.
type DailySchedule struct {
	Day   string    `json:"day"`
	Date  string    `json:"date"`
	Tasks []Segment `json:"tasks"`
}

// Shortfall reports an eligible day on which a task missed its quota.
type Shortfall struct {
	TaskName         string `json:"task_name"`
	Day              string `json:"day"`
	Date             string `json:"date"`
	RequiredMinutes  int    `json:"required_minutes"`
	AllocatedMinutes int    `json:"allocated_minutes"`
}

// Result is the planner response.
type Result struct {
	Schedule    []DailySchedule `json:"schedule"`
	Status      Status          `json:"status"`
	Message     string          `json:"message"`
	WeekStart   string          `json:"week_start"`
	Shortfalls  []Shortfall     `json:"shortfalls"`
	Unscheduled []string        `json:"unscheduled_tasks"`
}

// ScheduledMinutes returns the total minutes placed across the week.
func (r *Result) ScheduledMinutes() int {
	total := 0
	for _, day := range r.Schedule {
		for _, seg := range day.Tasks {
			total += seg.Duration
		}
	}
	return total
}

// SegmentCount returns the number of scheduled segments.
func (r *Result) SegmentCount() int {
	n := 0
	for _, day := range r.Schedule {
		n += len(day.Tasks)
	}
	return n
}

// Assemble groups the allocation by day and derives status and message.
// Days without segments are omitted; days appear Monday through Sunday.
func Assemble(alloc *allocator.Allocation) *Result {
	byDay := make(map[clock.Day][]allocator.Segment)
	for _, seg := range alloc.Segments {
		byDay[seg.Day] = append(byDay[seg.Day], seg)
	}

	result := &Result{
		Schedule:    []DailySchedule{},
		WeekStart:   alloc.WeekStart.Format(clock.DateLayout),
		Shortfalls:  make([]Shortfall, 0, len(alloc.Shortfalls)),
		Unscheduled: make([]string, 0, len(alloc.Starved)),
	}

	for _, day := range clock.Week {
		segs := byDay[day]
		if len(segs) == 0 {
			continue
		}
		sort.SliceStable(segs, func(i, j int) bool {
			return segs[i].Start < segs[j].Start
		})

		daily := DailySchedule{
			Day:   day.String(),
			Date:  day.Date(alloc.WeekStart).Format(clock.DateLayout),
			Tasks: make([]Segment, 0, len(segs)),
		}
		for _, seg := range segs {
			daily.Tasks = append(daily.Tasks, Segment{
				TaskName:  seg.Task,
				StartTime: seg.Start.String(),
				EndTime:   seg.End.String(),
				Duration:  seg.Minutes(),
			})
		}
		result.Schedule = append(result.Schedule, daily)
	}

	for _, sf := range alloc.Shortfalls {
		result.Shortfalls = append(result.Shortfalls, Shortfall{
			TaskName:         sf.Task,
			Day:              sf.Day.String(),
			Date:             sf.Date.Format(clock.DateLayout),
			RequiredMinutes:  sf.Required,
			AllocatedMinutes: sf.Allocated,
		})
	}
	result.Unscheduled = append(result.Unscheduled, alloc.Starved...)

	result.Status, result.Message = summarize(alloc, len(result.Schedule))
	return result
}

func summarize(alloc *allocator.Allocation, days int) (Status, string) {
	starved := make(map[string]bool, len(alloc.Starved))
	for _, name := range alloc.Starved {
		starved[name] = true
	}

	var short []string
	for _, sf := range alloc.Shortfalls {
		if starved[sf.Task] {
			continue
		}
		short = append(short, fmt.Sprintf("%s on %s (%d/%d min)", sf.Task, sf.Day, sf.Allocated, sf.Required))
	}

	switch {
	case len(alloc.Starved) > 0:
		msg := "no time could be allocated for: " + strings.Join(alloc.Starved, ", ")
		if len(short) > 0 {
			msg += "; some tasks fell short: " + strings.Join(short, "; ")
		}
		return StatusInfeasible, msg
	case len(short) > 0:
		return StatusPartial, "some tasks fell short: " + strings.Join(short, "; ")
	default:
		return StatusOK, fmt.Sprintf("scheduled %d task(s) across %d day(s)", len(alloc.Minutes), days)
	}
}
