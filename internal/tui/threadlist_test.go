package tui

import (
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/runlight/threadview/internal/thread"
)

func testThreads() []thread.Meta {
	now := time.Now()
	return []thread.Meta{
		{ID: "t1", Title: "first", UpdatedAt: now},
		{ID: "t2", Title: "second", UpdatedAt: now.Add(-time.Hour)},
		{ID: "t3", Title: "third", UpdatedAt: now.Add(-2 * time.Hour)},
	}
}

func TestThreadListCursorMovement(t *testing.T) {
	l := NewThreadList()
	l.SetThreads(testThreads())

	l.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	l.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	if l.cursor != 2 {
		t.Fatalf("cursor = %d, want 2", l.cursor)
	}

	// Clamped at the bottom.
	l.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	if l.cursor != 2 {
		t.Fatalf("cursor = %d, want clamp at 2", l.cursor)
	}

	l.Update(tea.KeyPressMsg{Code: tea.KeyUp})
	if l.cursor != 1 {
		t.Fatalf("cursor = %d, want 1", l.cursor)
	}
}

func TestThreadListSelectEmitsThread(t *testing.T) {
	l := NewThreadList()
	l.SetThreads(testThreads())
	l.Update(tea.KeyPressMsg{Code: tea.KeyDown})

	_, cmd := l.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a command from select")
	}
	msg, ok := cmd().(threadSelectedMsg)
	if !ok {
		t.Fatalf("got %T, want threadSelectedMsg", cmd())
	}
	if msg.meta.ID != "t2" {
		t.Errorf("selected %q, want t2", msg.meta.ID)
	}
}

func TestThreadListSetThreadsClampsCursor(t *testing.T) {
	l := NewThreadList()
	l.SetThreads(testThreads())
	l.cursor = 2

	l.SetThreads(testThreads()[:1])
	if l.cursor != 0 {
		t.Fatalf("cursor = %d, want 0 after shrink", l.cursor)
	}
}
