/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package clock

import (
	"errors"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Time
		wantErr bool
	}{
		{name: "midnight", input: "00:00", want: 0},
		{name: "morning", input: "09:30", want: 570},
		{name: "last minute", input: "23:59", want: 1439},
		{name: "hour out of range", input: "24:00", wantErr: true},
		{name: "minute out of range", input: "12:60", wantErr: true},
		{name: "single digit hour", input: "9:00", wantErr: true},
		{name: "seconds", input: "09:00:00", wantErr: true},
		{name: "letters", input: "ab:cd", wantErr: true},
		{name: "wrong separator", input: "09-00", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTime) {
					t.Fatalf("Parse(%q) error = %v, want ErrInvalidTime", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("Parse(%q) = %d, want %d", tt.input, got, tt.want)
			}
			if !got.Valid() {
				t.Fatalf("Parse(%q) produced invalid time %d", tt.input, got)
			}
		})
	}
}

func TestTimeStringRoundTrip(t *testing.T) {
	for _, s := range []string{"00:00", "07:05", "12:00", "23:59"} {
		if got := MustParse(s).String(); got != s {
			t.Errorf("String() = %q, want %q", got, s)
		}
	}
}

func TestCompare(t *testing.T) {
	a, b := MustParse("09:00"), MustParse("10:00")
	if Compare(a, b) != -1 || Compare(b, a) != 1 || Compare(a, a) != 0 {
		t.Fatalf("Compare ordering broken for %v and %v", a, b)
	}
}

func TestParseDay(t *testing.T) {
	tests := []struct {
		input   string
		want    Day
		wantErr bool
	}{
		{input: "Monday", want: Monday},
		{input: "sunday", want: Sunday},
		{input: " Friday ", want: Friday},
		{input: "Funday", wantErr: true},
		{input: "Mon", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseDay(tt.input)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownDay) {
				t.Errorf("ParseDay(%q) error = %v, want ErrUnknownDay", tt.input, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseDay(%q) = %v, %v; want %v", tt.input, got, err, tt.want)
		}
	}
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{name: "monday", in: time.Date(2026, 10, 12, 15, 0, 0, 0, time.UTC), want: "2026-10-12"},
		{name: "thursday", in: time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC), want: "2026-10-12"},
		{name: "sunday", in: time.Date(2026, 10, 18, 23, 59, 0, 0, time.UTC), want: "2026-10-12"},
		{name: "across month", in: time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC), want: "2026-10-26"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeekStart(tt.in).Format(DateLayout)
			if got != tt.want {
				t.Fatalf("WeekStart(%v) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestDayDateAndDayOf(t *testing.T) {
	start := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	for _, d := range Week {
		date := d.Date(start)
		if DayOf(date) != d {
			t.Errorf("DayOf(%s) = %v, want %v", date.Format(DateLayout), DayOf(date), d)
		}
	}
	if got := Sunday.Date(start).Format(DateLayout); got != "2026-10-18" {
		t.Fatalf("Sunday.Date = %s, want 2026-10-18", got)
	}
}

func TestParseDate(t *testing.T) {
	if _, err := ParseDate("2026-02-30"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("ParseDate(2026-02-30) error = %v, want ErrInvalidDate", err)
	}
	got, err := ParseDate("2026-10-15")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if got.Location() != time.UTC || got.Hour() != 0 {
		t.Fatalf("ParseDate returned %v, want midnight UTC", got)
	}
}
