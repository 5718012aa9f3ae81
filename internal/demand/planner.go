/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package demand validates raw tasks and orders them by scheduling priority.
package demand

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/friendsincode/weekplanner/internal/clock"
)

// MaxHoursPerDay caps a task's daily quota.
const MaxHoursPerDay = 24

var (
	// ErrInvalidTask indicates an empty or duplicate name or a bad daily quota.
	ErrInvalidTask = errors.New("invalid task")

	// ErrInvalidDeadline indicates a deadline that is not a calendar date.
	ErrInvalidDeadline = errors.New("invalid deadline")
)

// RawTask is a task as received on the wire.
type RawTask struct {
	Name        string  `json:"task_name" yaml:"task_name"`
	HoursPerDay float64 `json:"hours_per_day" yaml:"hours_per_day"`
	Deadline    *string `json:"deadline,omitempty" yaml:"deadline,omitempty"`
}

// Task is a validated task ready for allocation.
type Task struct {
	Name          string
	HoursPerDay   float64
	MinutesPerDay int
	Deadline      *time.Time // midnight UTC, nil when undated
	Order         int        // position in the request
}

// EligibleOn reports whether the task may be scheduled on date (deadline inclusive).
func (t Task) EligibleOn(date time.Time) bool {
	if t.Deadline == nil {
		return true
	}
	return !date.After(*t.Deadline)
}

// TaskError describes why a task was rejected.
type TaskError struct {
	Index  int
	Name   string
	Reason string
	Err    error
}

func (e *TaskError) Error() string {
	name := e.Name
	if strings.TrimSpace(name) == "" {
		name = fmt.Sprintf("#%d", e.Index)
	}
	return fmt.Sprintf("task %q: %s", name, e.Reason)
}

func (e *TaskError) Unwrap() error { return e.Err }

// Build validates every task and returns them in priority order: earlier
// deadlines first, undated tasks last, input order breaking ties.
func Build(raw []RawTask) ([]Task, error) {
	tasks := make([]Task, 0, len(raw))
	seen := make(map[string]int, len(raw))

	for i, rt := range raw {
		name := strings.TrimSpace(rt.Name)
		if name == "" {
			return nil, &TaskError{Index: i, Name: rt.Name, Reason: "task_name is required", Err: ErrInvalidTask}
		}
		if first, dup := seen[name]; dup {
			return nil, &TaskError{Index: i, Name: name, Reason: fmt.Sprintf("duplicate task_name (also task #%d)", first), Err: ErrInvalidTask}
		}
		seen[name] = i

		minutes, reason := quotaMinutes(rt.HoursPerDay)
		if reason != "" {
			return nil, &TaskError{Index: i, Name: name, Reason: reason, Err: ErrInvalidTask}
		}

		task := Task{
			Name:          name,
			HoursPerDay:   rt.HoursPerDay,
			MinutesPerDay: minutes,
			Order:         i,
		}

		if rt.Deadline != nil && strings.TrimSpace(*rt.Deadline) != "" {
			deadline, err := clock.ParseDate(*rt.Deadline)
			if err != nil {
				return nil, &TaskError{Index: i, Name: name, Reason: fmt.Sprintf("deadline %q is not YYYY-MM-DD", *rt.Deadline), Err: ErrInvalidDeadline}
			}
			task.Deadline = &deadline
		}

		tasks = append(tasks, task)
	}

	SortByPriority(tasks)
	return tasks, nil
}

func quotaMinutes(hours float64) (int, string) {
	switch {
	case math.IsNaN(hours) || math.IsInf(hours, 0):
		return 0, "hours_per_day must be a finite number"
	case hours <= 0:
		return 0, "hours_per_day must be greater than 0"
	case hours > MaxHoursPerDay:
		return 0, fmt.Sprintf("hours_per_day must not exceed %d", MaxHoursPerDay)
	}
	minutes := int(math.Round(hours * 60))
	if minutes == 0 {
		return 0, "hours_per_day is shorter than one minute"
	}
	return minutes, ""
}

// SortByPriority orders tasks in place by deadline, undated last, stable on input order.
func SortByPriority(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return Less(tasks[i], tasks[j])
	})
}

// Less reports whether a is scheduled before b.
func Less(a, b Task) bool {
	switch {
	case a.Deadline != nil && b.Deadline != nil:
		if !a.Deadline.Equal(*b.Deadline) {
			return a.Deadline.Before(*b.Deadline)
		}
	case a.Deadline != nil:
		return true
	case b.Deadline != nil:
		return false
	}
	return a.Order < b.Order
}
