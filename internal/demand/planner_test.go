/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package demand

import (
	"errors"
	"math"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestBuildPriorityOrder(t *testing.T) {
	tasks, err := Build([]RawTask{
		{Name: "Undated A", HoursPerDay: 1},
		{Name: "Late", HoursPerDay: 1, Deadline: strPtr("2026-10-20")},
		{Name: "Undated B", HoursPerDay: 1},
		{Name: "Early", HoursPerDay: 1, Deadline: strPtr("2026-10-14")},
		{Name: "Late twin", HoursPerDay: 1, Deadline: strPtr("2026-10-20")},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := []string{"Early", "Late", "Late twin", "Undated A", "Undated B"}
	for i, task := range tasks {
		if task.Name != want[i] {
			t.Fatalf("tasks[%d] = %q, want %q (full order %v)", i, task.Name, want[i], names(tasks))
		}
	}
}

func names(tasks []Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Name
	}
	return out
}

func TestBuildQuotaMinutes(t *testing.T) {
	tests := []struct {
		hours float64
		want  int
	}{
		{hours: 2, want: 120},
		{hours: 0.5, want: 30},
		{hours: 1.25, want: 75},
		{hours: 1.0 / 3.0, want: 20},
		{hours: 24, want: 1440},
	}
	for _, tt := range tests {
		tasks, err := Build([]RawTask{{Name: "t", HoursPerDay: tt.hours}})
		if err != nil {
			t.Fatalf("Build(%v): %v", tt.hours, err)
		}
		if tasks[0].MinutesPerDay != tt.want {
			t.Errorf("hours %v -> %d minutes, want %d", tt.hours, tasks[0].MinutesPerDay, tt.want)
		}
	}
}

func TestBuildRejectsInvalidTasks(t *testing.T) {
	tests := []struct {
		name    string
		raw     []RawTask
		wantErr error
	}{
		{name: "empty name", raw: []RawTask{{Name: "", HoursPerDay: 1}}, wantErr: ErrInvalidTask},
		{name: "blank name", raw: []RawTask{{Name: "   ", HoursPerDay: 1}}, wantErr: ErrInvalidTask},
		{name: "duplicate name", raw: []RawTask{{Name: "Write", HoursPerDay: 1}, {Name: "Write", HoursPerDay: 2}}, wantErr: ErrInvalidTask},
		{name: "duplicate after trim", raw: []RawTask{{Name: "Write", HoursPerDay: 1}, {Name: " Write ", HoursPerDay: 2}}, wantErr: ErrInvalidTask},
		{name: "zero hours", raw: []RawTask{{Name: "a", HoursPerDay: 0}}, wantErr: ErrInvalidTask},
		{name: "negative hours", raw: []RawTask{{Name: "a", HoursPerDay: -1}}, wantErr: ErrInvalidTask},
		{name: "more than a day", raw: []RawTask{{Name: "a", HoursPerDay: 25}}, wantErr: ErrInvalidTask},
		{name: "not a number", raw: []RawTask{{Name: "a", HoursPerDay: math.NaN()}}, wantErr: ErrInvalidTask},
		{name: "below one minute", raw: []RawTask{{Name: "a", HoursPerDay: 0.001}}, wantErr: ErrInvalidTask},
		{name: "bad deadline", raw: []RawTask{{Name: "a", HoursPerDay: 1, Deadline: strPtr("next friday")}}, wantErr: ErrInvalidDeadline},
		{name: "impossible date", raw: []RawTask{{Name: "a", HoursPerDay: 1, Deadline: strPtr("2026-13-01")}}, wantErr: ErrInvalidDeadline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := Build(tt.raw)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Build error = %v, want %v", err, tt.wantErr)
			}
			if tasks != nil {
				t.Fatalf("Build returned tasks alongside an error")
			}
			var taskErr *TaskError
			if !errors.As(err, &taskErr) {
				t.Fatalf("error %T is not *TaskError", err)
			}
		})
	}
}

func TestBuildEmptyDeadlineIsUndated(t *testing.T) {
	tasks, err := Build([]RawTask{{Name: "a", HoursPerDay: 1, Deadline: strPtr("")}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if tasks[0].Deadline != nil {
		t.Fatalf("empty deadline parsed as %v", tasks[0].Deadline)
	}
}

func TestEligibleOnIsInclusive(t *testing.T) {
	tasks, err := Build([]RawTask{{Name: "a", HoursPerDay: 1, Deadline: strPtr("2026-10-14")}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	task := tasks[0]

	before := time.Date(2026, 10, 13, 0, 0, 0, 0, time.UTC)
	same := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	after := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

	if !task.EligibleOn(before) || !task.EligibleOn(same) {
		t.Fatal("task should be eligible up to and including its deadline")
	}
	if task.EligibleOn(after) {
		t.Fatal("task should not be eligible after its deadline")
	}
}
