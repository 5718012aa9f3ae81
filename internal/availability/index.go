/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package availability validates and indexes the weekly map of free time windows.
package availability

import (
	"errors"
	"fmt"
	"sort"

	"github.com/friendsincode/weekplanner/internal/clock"
)

var (
	// ErrEmptySlot indicates a slot whose start is not before its end.
	ErrEmptySlot = errors.New("empty slot")

	// ErrOverlap indicates two slots on the same day intersect.
	ErrOverlap = errors.New("overlapping slots")

	// ErrDuplicateDay indicates two keys naming the same weekday.
	ErrDuplicateDay = errors.New("duplicate day")
)

// RawSlot is a time window as received on the wire.
type RawSlot struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// Slot is a validated window on one day.
type Slot struct {
	Start clock.Time
	End   clock.Time
}

// Minutes returns the slot length.
func (s Slot) Minutes() int {
	return int(s.End - s.Start)
}

// Contains reports whether [start, end) lies fully inside the slot.
func (s Slot) Contains(start, end clock.Time) bool {
	return start >= s.Start && end <= s.End
}

func (s Slot) String() string {
	return s.Start.String() + "-" + s.End.String()
}

// DayError reports an invalid day key.
type DayError struct {
	Day string
	Err error
}

func (e *DayError) Error() string {
	return fmt.Sprintf("available_time[%q]: %v", e.Day, e.Err)
}

func (e *DayError) Unwrap() error { return e.Err }

// SlotError reports a malformed or empty slot.
type SlotError struct {
	Day   string
	Index int
	Slot  RawSlot
	Err   error
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("%s slot %d (%s-%s): %v", e.Day, e.Index, e.Slot.Start, e.Slot.End, e.Err)
}

func (e *SlotError) Unwrap() error { return e.Err }

// OverlapError names the two intersecting slots.
type OverlapError struct {
	Day clock.Day
	A   Slot
	B   Slot
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("%s: slot %s overlaps slot %s", e.Day, e.A, e.B)
}

func (e *OverlapError) Is(target error) bool {
	return target == ErrOverlap
}

// Index holds the validated, chronologically sorted slots of one request.
// It is never mutated after Build returns.
type Index struct {
	days map[clock.Day][]Slot
}

// Build parses, validates and sorts raw availability.
func Build(raw map[string][]RawSlot) (*Index, error) {
	idx := &Index{days: make(map[clock.Day][]Slot, len(raw))}

	// Deterministic error reporting regardless of map iteration order.
	labels := make([]string, 0, len(raw))
	for label := range raw {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	parsed := make(map[clock.Day]string, len(raw))
	for _, label := range labels {
		day, err := clock.ParseDay(label)
		if err != nil {
			return nil, &DayError{Day: label, Err: err}
		}
		if prev, dup := parsed[day]; dup {
			return nil, &DayError{Day: label, Err: fmt.Errorf("%w: same weekday as %q", ErrDuplicateDay, prev)}
		}
		parsed[day] = label

		slots, err := parseSlots(day, raw[label])
		if err != nil {
			return nil, err
		}
		if len(slots) > 0 {
			idx.days[day] = slots
		}
	}

	return idx, nil
}

func parseSlots(day clock.Day, raw []RawSlot) ([]Slot, error) {
	slots := make([]Slot, 0, len(raw))
	for i, rs := range raw {
		start, err := clock.Parse(rs.Start)
		if err != nil {
			return nil, &SlotError{Day: day.String(), Index: i, Slot: rs, Err: err}
		}
		end, err := clock.Parse(rs.End)
		if err != nil {
			return nil, &SlotError{Day: day.String(), Index: i, Slot: rs, Err: err}
		}
		if start >= end {
			return nil, &SlotError{Day: day.String(), Index: i, Slot: rs, Err: ErrEmptySlot}
		}
		slots = append(slots, Slot{Start: start, End: end})
	}

	sort.SliceStable(slots, func(i, j int) bool {
		if c := clock.Compare(slots[i].Start, slots[j].Start); c != 0 {
			return c < 0
		}
		return clock.Compare(slots[i].End, slots[j].End) < 0
	})

	for i := 0; i+1 < len(slots); i++ {
		if slots[i].End > slots[i+1].Start {
			return nil, &OverlapError{Day: day, A: slots[i], B: slots[i+1]}
		}
	}
	return slots, nil
}

// Days returns the days that have at least one slot, Monday first.
func (idx *Index) Days() []clock.Day {
	out := make([]clock.Day, 0, len(idx.days))
	for _, d := range clock.Week {
		if len(idx.days[d]) > 0 {
			out = append(out, d)
		}
	}
	return out
}

// Slots returns a copy of the day's slots in chronological order.
func (idx *Index) Slots(day clock.Day) []Slot {
	return append([]Slot(nil), idx.days[day]...)
}

// Capacity returns the total number of free minutes on day.
func (idx *Index) Capacity(day clock.Day) int {
	total := 0
	for _, s := range idx.days[day] {
		total += s.Minutes()
	}
	return total
}

// TotalCapacity sums Capacity over the week.
func (idx *Index) TotalCapacity() int {
	total := 0
	for d := range idx.days {
		total += idx.Capacity(d)
	}
	return total
}

// SlotCount returns the number of slots across the week.
func (idx *Index) SlotCount() int {
	n := 0
	for _, slots := range idx.days {
		n += len(slots)
	}
	return n
}

// Containing returns the slot on day that fully contains [start, end).
func (idx *Index) Containing(day clock.Day, start, end clock.Time) (Slot, bool) {
	for _, s := range idx.days[day] {
		if s.Contains(start, end) {
			return s, true
		}
	}
	return Slot{}, false
}
