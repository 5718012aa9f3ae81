/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/weekplanner/internal/schedule"
	"github.com/friendsincode/weekplanner/internal/scheduling"
)

// Snapshot is the archived record of one plan run.
type Snapshot struct {
	RunID      string             `json:"run_id"`
	Trigger    string             `json:"trigger"`
	ArchivedAt time.Time          `json:"archived_at"`
	Request    scheduling.Request `json:"request"`
	Result     *schedule.Result   `json:"result"`
}

// Archiver writes plan snapshots to an ObjectStore.
type Archiver struct {
	store  ObjectStore
	prefix string
	now    func() time.Time
	logger zerolog.Logger
}

// NewArchiver creates an archiver writing under prefix.
func NewArchiver(store ObjectStore, prefix string, logger zerolog.Logger) *Archiver {
	return &Archiver{
		store:  store,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
		logger: logger.With().Str("component", "archiver").Logger(),
	}
}

// Key returns the object key for a run: <prefix>/<week>/<run id>.json.
func (a *Archiver) Key(weekStart, runID string) string {
	return path.Join(a.prefix, weekStart, runID+".json")
}

// Archive stores a snapshot and returns its key.
func (a *Archiver) Archive(ctx context.Context, snap Snapshot) (string, error) {
	if snap.Result == nil {
		return "", fmt.Errorf("archive %s: empty result", snap.RunID)
	}
	if snap.ArchivedAt.IsZero() {
		snap.ArchivedAt = a.now().UTC()
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	key := a.Key(snap.Result.WeekStart, snap.RunID)
	if err := a.store.Put(ctx, key, data); err != nil {
		return "", err
	}
	a.logger.Debug().Str("key", key).Str("run", snap.RunID).Msg("plan snapshot archived")
	return key, nil
}

// Load reads a snapshot back.
func (a *Archiver) Load(ctx context.Context, key string) (*Snapshot, error) {
	data, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return &snap, nil
}
