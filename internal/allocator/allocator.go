/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package allocator places prioritised daily task quotas into free time windows.
//
// Placement is greedy first-fit, one day at a time in calendar order. Within a
// day, tasks are served in priority order and each one consumes free time from
// the earliest remaining windows until its quota is met or the day is full.
// Unmet quota is dropped for that day; it never carries over.
package allocator

import (
	"time"

	"github.com/friendsincode/weekplanner/internal/availability"
	"github.com/friendsincode/weekplanner/internal/clock"
	"github.com/friendsincode/weekplanner/internal/demand"
)

// Segment is one contiguous span of a slot assigned to a task.
type Segment struct {
	Task  string
	Day   clock.Day
	Start clock.Time
	End   clock.Time
}

// Minutes returns the segment length.
func (s Segment) Minutes() int {
	return int(s.End - s.Start)
}

// Shortfall records an eligible day on which a task missed its quota.
type Shortfall struct {
	Task      string
	Day       clock.Day
	Date      time.Time
	Required  int
	Allocated int
}

// Allocation is the outcome of one allocation run.
type Allocation struct {
	WeekStart  time.Time
	Segments   []Segment      // in allocation order: day, then priority, then time
	Shortfalls []Shortfall    // in day order, then priority order
	Minutes    map[string]int // minutes received across the week per task
	Starved    []string       // tasks that received nothing all week, priority order
	Eligible   map[string]int // number of eligible days per task
}

// interval is a remaining free span inside one slot.
type interval struct {
	start clock.Time
	end   clock.Time
}

// dayState tracks the free sub-intervals of one day, in chronological order.
type dayState struct {
	free []interval
}

func newDayState(slots []availability.Slot) *dayState {
	free := make([]interval, len(slots))
	for i, s := range slots {
		free[i] = interval{start: s.Start, end: s.End}
	}
	return &dayState{free: free}
}

// take carves up to want minutes out of the earliest free intervals and
// returns the spans it consumed. Each span lies inside a single slot.
func (ds *dayState) take(want int) []interval {
	var taken []interval
	kept := ds.free[:0]
	for _, iv := range ds.free {
		if want == 0 {
			kept = append(kept, iv)
			continue
		}
		length := int(iv.end - iv.start)
		use := length
		if want < use {
			use = want
		}
		taken = append(taken, interval{start: iv.start, end: iv.start + clock.Time(use)})
		want -= use
		if use < length {
			kept = append(kept, interval{start: iv.start + clock.Time(use), end: iv.end})
		}
	}
	ds.free = kept
	return taken
}

// Allocate runs the greedy daily placement. tasks must already be in priority
// order (demand.Build guarantees this). weekStart anchors weekdays to dates.
func Allocate(idx *availability.Index, tasks []demand.Task, weekStart time.Time) *Allocation {
	result := &Allocation{
		WeekStart: weekStart,
		Minutes:   make(map[string]int, len(tasks)),
		Eligible:  make(map[string]int, len(tasks)),
	}
	for _, task := range tasks {
		result.Minutes[task.Name] = 0
		result.Eligible[task.Name] = 0
	}

	for _, day := range idx.Days() {
		date := day.Date(weekStart)
		state := newDayState(idx.Slots(day))
		free := idx.Capacity(day)

		for _, task := range tasks {
			if !task.EligibleOn(date) {
				continue
			}
			result.Eligible[task.Name]++

			remaining := task.MinutesPerDay
			if free > 0 {
				for _, span := range state.take(remaining) {
					result.Segments = append(result.Segments, Segment{
						Task:  task.Name,
						Day:   day,
						Start: span.start,
						End:   span.end,
					})
					remaining -= int(span.end - span.start)
				}
			}

			allocated := task.MinutesPerDay - remaining
			free -= allocated
			result.Minutes[task.Name] += allocated
			if remaining > 0 {
				result.Shortfalls = append(result.Shortfalls, Shortfall{
					Task:      task.Name,
					Day:       day,
					Date:      date,
					Required:  task.MinutesPerDay,
					Allocated: allocated,
				})
			}
		}
	}

	for _, task := range tasks {
		if result.Minutes[task.Name] == 0 {
			result.Starved = append(result.Starved, task.Name)
		}
	}

	return result
}
