package server

import (
	"sort"
	"sync"
	"time"

	"github.com/runlight/threadview/internal/feed"
	"github.com/runlight/threadview/internal/thread"
)

// Store holds thread snapshots in memory and applies incremental
// events to them so hydration always reflects everything published.
type Store struct {
	mu      sync.RWMutex
	threads map[string]*thread.Snapshot
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{threads: make(map[string]*thread.Snapshot)}
}

// List returns metadata for all threads, most recently updated first.
func (s *Store) List() []thread.Meta {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]thread.Meta, 0, len(s.threads))
	for _, snap := range s.threads {
		out = append(out, snap.Meta)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Get returns a copy of the snapshot for one thread.
func (s *Store) Get(threadID string) (*thread.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.threads[threadID]
	if !ok {
		return nil, false
	}
	cp := *snap
	cp.Runs = append([]thread.Run(nil), snap.Runs...)
	cp.Queued = append([]thread.Message(nil), snap.Queued...)
	cp.Reminders = append([]thread.Reminder(nil), snap.Reminders...)
	return &cp, true
}

// History returns up to limit runs strictly older than beforeRunID,
// in chronological order. An unknown beforeRunID yields nothing.
func (s *Store) History(threadID, beforeRunID string, limit int) []thread.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.threads[threadID]
	if !ok {
		return nil
	}
	cut := -1
	for i, r := range snap.Runs {
		if r.ID == beforeRunID {
			cut = i
			break
		}
	}
	if cut <= 0 {
		return nil
	}
	lo := cut - limit
	if limit <= 0 || lo < 0 {
		lo = 0
	}
	return append([]thread.Run(nil), snap.Runs[lo:cut]...)
}

// Put installs a full snapshot for a thread.
func (s *Store) Put(snap *thread.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[snap.Meta.ID] = snap
	activeThreads.Set(float64(len(s.threads)))
}

// Apply folds an incremental event into the stored snapshot. Unknown
// thread ids create a snapshot so events never go nowhere.
func (s *Store) Apply(ev feed.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.threads[ev.ThreadID]
	if !ok {
		snap = &thread.Snapshot{Meta: thread.Meta{ID: ev.ThreadID}}
		s.threads[ev.ThreadID] = snap
		activeThreads.Set(float64(len(s.threads)))
	}

	switch ev.Type {
	case feed.EventMessageCreated:
		if ev.Message != nil {
			appendMessage(snap, *ev.Message)
		}
	case feed.EventRunStatusChanged:
		setRunStatus(snap, ev.RunID, ev.RunStatus)
	case feed.EventQueueChanged:
		snap.Queued = ev.Queued
	case feed.EventRemindersChanged:
		snap.Reminders = ev.Reminders
	case feed.EventThreadRenamed:
		snap.Meta.Title = ev.Title
	}

	if ev.Timestamp.IsZero() {
		snap.Meta.UpdatedAt = time.Now()
	} else {
		snap.Meta.UpdatedAt = ev.Timestamp
	}
}

func appendMessage(snap *thread.Snapshot, msg thread.Message) {
	for i := range snap.Runs {
		if snap.Runs[i].ID == msg.RunID {
			snap.Runs[i].Messages = append(snap.Runs[i].Messages, msg)
			return
		}
	}
	snap.Runs = append(snap.Runs, thread.Run{
		ID:       msg.RunID,
		Status:   thread.RunRunning,
		Messages: []thread.Message{msg},
	})
}

func setRunStatus(snap *thread.Snapshot, runID string, status thread.RunStatus) {
	for i := range snap.Runs {
		if snap.Runs[i].ID == runID {
			snap.Runs[i].Status = status
			return
		}
	}
	snap.Runs = append(snap.Runs, thread.Run{ID: runID, Status: status})
}
