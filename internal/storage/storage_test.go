/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/friendsincode/weekplanner/internal/schedule"
	"github.com/friendsincode/weekplanner/internal/scheduling"
)

func TestFilesystemStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := NewFilesystemStore(t.TempDir(), zerolog.Nop())

	if err := fs.Put(ctx, "plans/2026-10-12/run.json", []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	data, err := fs.Get(ctx, "plans/2026-10-12/run.json")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Fatalf("data = %s", data)
	}

	if _, err := fs.Get(ctx, "plans/missing.json"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("error = %v, want ErrObjectNotFound", err)
	}
}

func TestFilesystemStoreRejectsEscapingKeys(t *testing.T) {
	fs := NewFilesystemStore(t.TempDir(), zerolog.Nop())
	for _, key := range []string{"../outside.json", "/etc/passwd", "", "."} {
		if err := fs.Put(context.Background(), key, []byte("x")); err == nil {
			t.Errorf("key %q accepted", key)
		}
	}
}

func TestArchiverWritesKeyedSnapshot(t *testing.T) {
	ctx := context.Background()
	fs := NewFilesystemStore(t.TempDir(), zerolog.Nop())
	archiver := NewArchiver(fs, "/plans/", zerolog.Nop())

	key, err := archiver.Archive(ctx, Snapshot{
		RunID:   "01JABCDEF0000000000000000",
		Trigger: "api",
		Request: scheduling.Request{WeekStart: "2026-10-12"},
		Result:  &schedule.Result{Status: schedule.StatusOK, WeekStart: "2026-10-12", Message: "scheduled 0 task(s) across 0 day(s)"},
	})
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if key != "plans/2026-10-12/01JABCDEF0000000000000000.json" {
		t.Fatalf("key = %q", key)
	}

	snap, err := archiver.Load(ctx, key)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.Result.Status != schedule.StatusOK || snap.Trigger != "api" || snap.ArchivedAt.IsZero() {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	if _, err := archiver.Archive(ctx, Snapshot{RunID: "x"}); err == nil {
		t.Fatal("expected error for empty result")
	}
}

// fakeS3 answers path-style PutObject and GetObject requests.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := f.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3StoreRoundTrip(t *testing.T) {
	backend := &fakeS3{objects: make(map[string][]byte)}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	ctx := context.Background()
	store, err := NewS3Store(ctx, S3Config{
		Bucket:          "plans",
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		UsePathStyle:    true,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewS3Store: %v", err)
	}

	if err := store.Put(ctx, "2026-10-12/run.json", []byte(`{"status":"ok"}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok := backend.objects["/plans/2026-10-12/run.json"]; !ok {
		t.Fatalf("object not stored at path-style key: %v", keys(backend.objects))
	}

	data, err := store.Get(ctx, "2026-10-12/run.json")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !strings.Contains(string(data), `"status":"ok"`) {
		t.Fatalf("data = %s", data)
	}

	if _, err := store.Get(ctx, "missing.json"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("error = %v, want ErrObjectNotFound", err)
	}
}

func TestNewS3StoreRequiresBucket(t *testing.T) {
	if _, err := NewS3Store(context.Background(), S3Config{Region: "us-east-1"}, zerolog.Nop()); err == nil {
		t.Fatal("expected error without bucket")
	}
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
