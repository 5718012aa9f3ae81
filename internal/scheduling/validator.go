/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"fmt"
	"sort"

	"github.com/friendsincode/weekplanner/internal/availability"
	"github.com/friendsincode/weekplanner/internal/clock"
	"github.com/friendsincode/weekplanner/internal/demand"
	"github.com/friendsincode/weekplanner/internal/schedule"
)

// ViolationKind names a broken schedule rule.
type ViolationKind string

const (
	ViolationMalformed   ViolationKind = "malformed"
	ViolationOverlap     ViolationKind = "overlap"
	ViolationOutsideSlot ViolationKind = "outside_slot"
	ViolationOverQuota   ViolationKind = "over_quota"
	ViolationUnknown     ViolationKind = "unknown_task"
	ViolationIneligible  ViolationKind = "past_deadline"
)

// Violation describes one broken rule in a result.
type Violation struct {
	Kind    ViolationKind `json:"kind"`
	Day     string        `json:"day"`
	Task    string        `json:"task_name,omitempty"`
	Message string        `json:"message"`
}

// item is a parsed result segment.
type item struct {
	task       string
	day        clock.Day
	start, end clock.Time
}

// ValidateResult checks a result against the availability and tasks it was
// computed from: segments are well formed, sit inside one slot, never
// overlap on a day, respect deadlines and never exceed a task's daily quota.
// A nil slice means the result is valid.
func ValidateResult(index *availability.Index, tasks []demand.Task, result *schedule.Result) []Violation {
	var violations []Violation

	byName := make(map[string]demand.Task, len(tasks))
	for _, t := range tasks {
		byName[t.Name] = t
	}

	weekStart, err := clock.ParseDate(result.WeekStart)
	if err != nil {
		return []Violation{{Kind: ViolationMalformed, Message: fmt.Sprintf("week_start %q is not a date", result.WeekStart)}}
	}

	for _, daily := range result.Schedule {
		day, err := clock.ParseDay(daily.Day)
		if err != nil {
			violations = append(violations, Violation{Kind: ViolationMalformed, Day: daily.Day, Message: err.Error()})
			continue
		}
		if date, err := clock.ParseDate(daily.Date); err != nil || clock.DayOf(date) != day || !clock.WeekStart(date).Equal(weekStart) {
			violations = append(violations, Violation{Kind: ViolationMalformed, Day: daily.Day, Message: fmt.Sprintf("date %q is not the %s of week %s", daily.Date, daily.Day, result.WeekStart)})
		}

		items := make([]item, 0, len(daily.Tasks))
		used := make(map[string]int)
		for _, seg := range daily.Tasks {
			it, problem := parseSegment(day, seg)
			if problem != "" {
				violations = append(violations, Violation{Kind: ViolationMalformed, Day: daily.Day, Task: seg.TaskName, Message: problem})
				continue
			}
			items = append(items, it)

			if _, ok := index.Containing(day, it.start, it.end); !ok {
				violations = append(violations, Violation{
					Kind:    ViolationOutsideSlot,
					Day:     daily.Day,
					Task:    it.task,
					Message: fmt.Sprintf("%s %s-%s is not inside any available slot", it.task, it.start, it.end),
				})
			}

			task, known := byName[it.task]
			if !known {
				violations = append(violations, Violation{Kind: ViolationUnknown, Day: daily.Day, Task: it.task, Message: fmt.Sprintf("%s was not requested", it.task)})
				continue
			}
			if !task.EligibleOn(day.Date(weekStart)) {
				violations = append(violations, Violation{Kind: ViolationIneligible, Day: daily.Day, Task: it.task, Message: fmt.Sprintf("%s is scheduled after its deadline", it.task)})
			}
			used[it.task] += int(it.end - it.start)
		}

		violations = append(violations, checkOverlaps(daily.Day, items)...)

		names := make([]string, 0, len(used))
		for name := range used {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			task, ok := byName[name]
			if ok && used[name] > task.MinutesPerDay {
				violations = append(violations, Violation{
					Kind:    ViolationOverQuota,
					Day:     daily.Day,
					Task:    name,
					Message: fmt.Sprintf("%s has %d minutes, quota is %d", name, used[name], task.MinutesPerDay),
				})
			}
		}
	}

	return violations
}

func parseSegment(day clock.Day, seg schedule.Segment) (item, string) {
	start, err := clock.Parse(seg.StartTime)
	if err != nil {
		return item{}, err.Error()
	}
	end, err := clock.Parse(seg.EndTime)
	if err != nil {
		return item{}, err.Error()
	}
	if start >= end {
		return item{}, fmt.Sprintf("%s %s-%s has no length", seg.TaskName, start, end)
	}
	if seg.Duration != int(end-start) {
		return item{}, fmt.Sprintf("%s duration %d does not match %s-%s", seg.TaskName, seg.Duration, start, end)
	}
	return item{task: seg.TaskName, day: day, start: start, end: end}, ""
}

// checkOverlaps reports every pair of intersecting segments on one day.
func checkOverlaps(day string, items []item) []Violation {
	sorted := make([]item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return clock.Compare(sorted[i].start, sorted[j].start) < 0 })

	var violations []Violation
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted) && sorted[j].start < sorted[i].end; j++ {
			a, b := sorted[i], sorted[j]
			violations = append(violations, Violation{
				Kind:    ViolationOverlap,
				Day:     day,
				Task:    a.task,
				Message: fmt.Sprintf("%s %s-%s overlaps %s %s-%s", a.task, a.start, a.end, b.task, b.start, b.end),
			})
		}
	}
	return violations
}
