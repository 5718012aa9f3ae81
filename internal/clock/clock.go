/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package clock models wall-clock times of day, weekdays and calendar dates
// for the weekly planner.
package clock

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MinutesPerDay is the exclusive upper bound of a Time.
const MinutesPerDay = 24 * 60

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

var (
	// ErrInvalidTime indicates a time string is not a valid HH:MM value.
	ErrInvalidTime = errors.New("invalid time")

	// ErrUnknownDay indicates a day label is not one of the seven weekdays.
	ErrUnknownDay = errors.New("unknown day")

	// ErrInvalidDate indicates a calendar date is not a valid YYYY-MM-DD value.
	ErrInvalidDate = errors.New("invalid date")
)

// Time is a minute of the day in [0, MinutesPerDay).
type Time int

// Parse reads a strict "HH:MM" string.
func Parse(text string) (Time, error) {
	if len(text) != 5 || text[2] != ':' {
		return 0, fmt.Errorf("%w: %q (use HH:MM)", ErrInvalidTime, text)
	}
	hours, ok := twoDigits(text[0:2])
	if !ok || hours > 23 {
		return 0, fmt.Errorf("%w: %q (hours must be 00-23)", ErrInvalidTime, text)
	}
	minutes, ok := twoDigits(text[3:5])
	if !ok || minutes > 59 {
		return 0, fmt.Errorf("%w: %q (minutes must be 00-59)", ErrInvalidTime, text)
	}
	return Time(hours*60 + minutes), nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(text string) Time {
	t, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return t
}

func twoDigits(s string) (int, bool) {
	if s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}

// Minutes returns the minute-of-day value.
func (t Time) Minutes() int {
	return int(t)
}

// Valid reports whether t is within a single day.
func (t Time) Valid() bool {
	return t >= 0 && t < MinutesPerDay
}

// String formats t as HH:MM.
func (t Time) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Compare orders two times: -1 if a < b, 0 if equal, +1 if a > b.
func Compare(a, b Time) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Day is a weekday in calendar order, Monday first.
type Day int

const (
	Monday Day = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// Week lists every day in calendar order.
var Week = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var dayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// ParseDay accepts an English weekday name in any letter case.
func ParseDay(label string) (Day, error) {
	trimmed := strings.TrimSpace(label)
	for i, name := range dayNames {
		if strings.EqualFold(trimmed, name) {
			return Day(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDay, label)
}

// String returns the canonical weekday name.
func (d Day) String() string {
	if d < Monday || d > Sunday {
		return fmt.Sprintf("Day(%d)", int(d))
	}
	return dayNames[d]
}

// Date returns the calendar date of d in the week starting at weekStart.
func (d Day) Date(weekStart time.Time) time.Time {
	return weekStart.AddDate(0, 0, int(d))
}

// ParseDate reads a YYYY-MM-DD calendar date at midnight UTC.
func ParseDate(text string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(text), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q (use YYYY-MM-DD)", ErrInvalidDate, text)
	}
	return t, nil
}

// WeekStart returns midnight UTC of the Monday of the week containing t.
// The calendar date of t is taken as-is, regardless of its location.
func WeekStart(t time.Time) time.Time {
	date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(date.Weekday()) + 6) % 7 // time.Sunday == 0
	return date.AddDate(0, 0, -offset)
}

// DayOf maps a calendar date to its weekday.
func DayOf(t time.Time) Day {
	return Day((int(t.Weekday()) + 6) % 7)
}
