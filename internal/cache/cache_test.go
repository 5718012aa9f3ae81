/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/weekplanner/internal/availability"
	"github.com/friendsincode/weekplanner/internal/demand"
	"github.com/friendsincode/weekplanner/internal/schedule"
	"github.com/friendsincode/weekplanner/internal/scheduling"
)

func request() scheduling.Request {
	return scheduling.Request{
		Tasks: []demand.RawTask{{Name: "Read", HoursPerDay: 1}},
		AvailableTime: map[string][]availability.RawSlot{
			"Monday":  {{Start: "09:00", End: "10:00"}},
			"Tuesday": {{Start: "09:00", End: "10:00"}},
		},
	}
}

func TestFingerprint(t *testing.T) {
	week := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)

	a, err := Fingerprint(request(), week)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	b, _ := Fingerprint(request(), week)
	if a != b || len(a) != 64 {
		t.Fatalf("fingerprints differ or malformed: %q %q", a, b)
	}

	next, _ := Fingerprint(request(), week.AddDate(0, 0, 7))
	if next == a {
		t.Fatal("different weeks must not share a fingerprint")
	}

	changed := request()
	changed.Tasks[0].HoursPerDay = 2
	if c, _ := Fingerprint(changed, week); c == a {
		t.Fatal("different requests must not share a fingerprint")
	}
}

func TestDisabledCacheIsANoop(t *testing.T) {
	c := Disabled(zerolog.Nop())
	if c.IsAvailable() {
		t.Fatal("disabled cache reports available")
	}
	if err := c.SetPreview(context.Background(), "k", &schedule.Result{Status: schedule.StatusOK}); err != nil {
		t.Fatalf("SetPreview: %v", err)
	}
	if _, ok := c.GetPreview(context.Background(), "k"); ok {
		t.Fatal("disabled cache returned a hit")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNewWithUnreachableRedis(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RedisAddr = "127.0.0.1:1"
	c := New(cfg, zerolog.Nop())
	defer c.Close()

	if c.IsAvailable() {
		t.Fatal("cache should fall back to disabled")
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("Ping on disabled cache should fail")
	}
}
