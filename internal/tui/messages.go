package tui

import (
	"time"

	"github.com/runlight/threadview/internal/feed"
	"github.com/runlight/threadview/internal/thread"
)

// threadsLoadedMsg is sent when the thread list finishes loading.
type threadsLoadedMsg struct {
	threads []thread.Meta
	err     error
}

// snapshotLoadedMsg is sent when a thread snapshot finishes hydrating.
type snapshotLoadedMsg struct {
	threadID string
	snap     *thread.Snapshot
	err      error
}

// localLoadedMsg carries the events already present in a local replay
// file when it is first opened.
type localLoadedMsg struct {
	threadID string
	events   []feed.Event
	err      error
}

// historyLoadedMsg carries a page of older runs for prepending.
type historyLoadedMsg struct {
	threadID string
	runs     []thread.Run
	err      error
}

// streamStartedMsg carries the event channel of a freshly opened
// stream.
type streamStartedMsg struct {
	threadID string
	ch       <-chan feed.Event
}

// streamEventMsg delivers one stream event; ch is passed back for the
// next read.
type streamEventMsg struct {
	ev feed.Event
	ch <-chan feed.Event
}

// streamClosedMsg is sent when an event channel closes.
type streamClosedMsg struct {
	threadID string
}

// frameMsg drives one coordinator frame: pending scroll waits and the
// session cache's deferred capture/restore work.
type frameMsg time.Time

// PopPageMsg is emitted by a page to request back-navigation.
type PopPageMsg struct{}
