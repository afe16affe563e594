package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/runlight/threadview/internal/thread"
)

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		ok   bool
		typ  EventType
	}{
		{
			name: "message created",
			raw:  `{"type":"message_created","thread_id":"t1","message":{"id":"m1","run_id":"r1","author":"assistant","body":"hi"}}`,
			ok:   true,
			typ:  EventMessageCreated,
		},
		{
			name: "run status changed",
			raw:  `{"type":"run_status_changed","thread_id":"t1","run_id":"r1","run_status":"finished"}`,
			ok:   true,
			typ:  EventRunStatusChanged,
		},
		{name: "missing type", raw: `{"thread_id":"t1"}`, ok: false},
		{name: "not json", raw: `garbage`, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := ParseEvent([]byte(tt.raw))
			if ok != tt.ok {
				t.Fatalf("ParseEvent ok = %v, want %v", ok, tt.ok)
			}
			if ok && ev.Type != tt.typ {
				t.Fatalf("Type = %q, want %q", ev.Type, tt.typ)
			}
		})
	}
}

func TestClientGetThread(t *testing.T) {
	snap := thread.Snapshot{
		Meta: thread.Meta{ID: "t1", Title: "refactor plan"},
		Runs: []thread.Run{
			{ID: "r1", Status: thread.RunFinished, Messages: []thread.Message{
				{ID: "m1", RunID: "r1", Author: thread.AuthorUser, Body: "hello"},
			}},
		},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/threads/t1" {
			t.Errorf("path = %s, want /v1/threads/t1", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sekrit" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		json.NewEncoder(w).Encode(snap)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sekrit")
	got, err := c.GetThread(context.Background(), "t1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Meta.ID != "t1" || len(got.Runs) != 1 {
		t.Fatalf("snapshot = %+v, want thread t1 with 1 run", got)
	}
}

func TestClientErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "not_found", "message": "no such thread"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	if _, err := c.GetThread(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestTailLocal_NewEvents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "thread.jsonl")

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString(`{"type":"message_created","thread_id":"t1","message":{"id":"m0"}}` + "\n")
	f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Tail seeks to end, so only appended events are delivered
	ch, err := TailLocal(ctx, path)
	if err != nil {
		t.Fatal(err)
	}

	// Give the watcher time to start
	time.Sleep(200 * time.Millisecond)

	f, err = os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString(`{"type":"run_status_changed","thread_id":"t1","run_id":"r9","run_status":"running"}` + "\n")
	f.Close()

	select {
	case ev := <-ch:
		if ev.Type != EventRunStatusChanged || ev.RunID != "r9" {
			t.Errorf("got %+v, want run_status_changed for r9", ev)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for tailed event")
	}
}

func TestReadLocal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "thread.jsonl")

	lines := []string{
		`{"type":"message_created","thread_id":"t1","message":{"id":"m0"}}`,
		`not json at all`,
		`{"thread_id":"t1","message":{"id":"typeless"}}`,
		`{"type":"run_status_changed","thread_id":"t1","run_id":"r1","run_status":"done"}`,
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	events, err := ReadLocal(path)
	if err != nil {
		t.Fatal(err)
	}
	// Malformed and typeless lines are skipped, valid ones kept in order
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Type != EventMessageCreated || events[0].Message.ID != "m0" {
		t.Errorf("events[0] = %+v, want message_created m0", events[0])
	}
	if events[1].Type != EventRunStatusChanged || events[1].RunID != "r1" {
		t.Errorf("events[1] = %+v, want run_status_changed r1", events[1])
	}
}

func TestReadLocalMissingFile(t *testing.T) {
	if _, err := ReadLocal(filepath.Join(t.TempDir(), "absent.jsonl")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
