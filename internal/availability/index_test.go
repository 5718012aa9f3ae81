/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package availability

import (
	"errors"
	"testing"

	"github.com/friendsincode/weekplanner/internal/clock"
)

func TestBuildSortsSlotsPerDay(t *testing.T) {
	idx, err := Build(map[string][]RawSlot{
		"Monday": {
			{Start: "14:00", End: "15:00"},
			{Start: "09:00", End: "10:00"},
			{Start: "10:00", End: "11:30"},
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	slots := idx.Slots(clock.Monday)
	want := []string{"09:00-10:00", "10:00-11:30", "14:00-15:00"}
	if len(slots) != len(want) {
		t.Fatalf("slots len = %d, want %d", len(slots), len(want))
	}
	for i, s := range slots {
		if s.String() != want[i] {
			t.Errorf("slot[%d] = %s, want %s", i, s, want[i])
		}
	}
	if got := idx.Capacity(clock.Monday); got != 210 {
		t.Errorf("Capacity(Monday) = %d, want 210", got)
	}
}

func TestBuildRejectsOverlap(t *testing.T) {
	_, err := Build(map[string][]RawSlot{
		"Monday": {
			{Start: "09:00", End: "10:00"},
			{Start: "09:30", End: "10:30"},
		},
	})
	if !errors.Is(err, ErrOverlap) {
		t.Fatalf("Build error = %v, want ErrOverlap", err)
	}

	var overlap *OverlapError
	if !errors.As(err, &overlap) {
		t.Fatalf("error %T is not *OverlapError", err)
	}
	if overlap.Day != clock.Monday {
		t.Errorf("overlap day = %v, want Monday", overlap.Day)
	}
	if overlap.A.String() != "09:00-10:00" || overlap.B.String() != "09:30-10:30" {
		t.Errorf("overlap slots = %s and %s", overlap.A, overlap.B)
	}
}

func TestBuildValidation(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string][]RawSlot
		wantErr error
	}{
		{
			name:    "malformed start",
			raw:     map[string][]RawSlot{"Tuesday": {{Start: "9am", End: "10:00"}}},
			wantErr: clock.ErrInvalidTime,
		},
		{
			name:    "malformed end",
			raw:     map[string][]RawSlot{"Tuesday": {{Start: "09:00", End: "25:00"}}},
			wantErr: clock.ErrInvalidTime,
		},
		{
			name:    "start equals end",
			raw:     map[string][]RawSlot{"Tuesday": {{Start: "09:00", End: "09:00"}}},
			wantErr: ErrEmptySlot,
		},
		{
			name:    "start after end",
			raw:     map[string][]RawSlot{"Tuesday": {{Start: "11:00", End: "09:00"}}},
			wantErr: ErrEmptySlot,
		},
		{
			name:    "unknown day",
			raw:     map[string][]RawSlot{"Someday": {{Start: "09:00", End: "10:00"}}},
			wantErr: clock.ErrUnknownDay,
		},
		{
			name: "same day twice in different case",
			raw: map[string][]RawSlot{
				"Monday": {{Start: "09:00", End: "10:00"}},
				"monday": {{Start: "11:00", End: "12:00"}},
			},
			wantErr: ErrDuplicateDay,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := Build(tt.raw)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Build error = %v, want %v", err, tt.wantErr)
			}
			if idx != nil {
				t.Fatalf("Build returned an index alongside an error")
			}
		})
	}
}

func TestDaysCalendarOrderSkipsEmpty(t *testing.T) {
	idx, err := Build(map[string][]RawSlot{
		"Sunday":    {{Start: "10:00", End: "11:00"}},
		"Wednesday": {},
		"monday":    {{Start: "10:00", End: "11:00"}},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	days := idx.Days()
	if len(days) != 2 || days[0] != clock.Monday || days[1] != clock.Sunday {
		t.Fatalf("Days() = %v, want [Monday Sunday]", days)
	}
	if idx.TotalCapacity() != 120 {
		t.Fatalf("TotalCapacity() = %d, want 120", idx.TotalCapacity())
	}
	if idx.SlotCount() != 2 {
		t.Fatalf("SlotCount() = %d, want 2", idx.SlotCount())
	}
}

func TestSlotsReturnsCopy(t *testing.T) {
	idx, err := Build(map[string][]RawSlot{"Friday": {{Start: "08:00", End: "09:00"}}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	slots := idx.Slots(clock.Friday)
	slots[0].End = clock.MustParse("23:00")

	if got := idx.Capacity(clock.Friday); got != 60 {
		t.Fatalf("index mutated through Slots copy: capacity = %d", got)
	}
}

func TestContaining(t *testing.T) {
	idx, err := Build(map[string][]RawSlot{"Monday": {{Start: "09:00", End: "12:00"}}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := idx.Containing(clock.Monday, clock.MustParse("09:00"), clock.MustParse("11:00")); !ok {
		t.Error("expected 09:00-11:00 to be contained")
	}
	if _, ok := idx.Containing(clock.Monday, clock.MustParse("11:00"), clock.MustParse("12:30")); ok {
		t.Error("11:00-12:30 crosses the slot boundary")
	}
	if _, ok := idx.Containing(clock.Tuesday, clock.MustParse("09:00"), clock.MustParse("10:00")); ok {
		t.Error("Tuesday has no slots")
	}
}
