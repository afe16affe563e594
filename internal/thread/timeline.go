package thread

import (
	"github.com/runlight/threadview/internal/windowlist"
)

// Item key prefixes. Run items are keyed by run id so the windowing
// layer can tell prepended history from appended turns; the trailing
// pending and spacer items have fixed keys.
const (
	runKeyPrefix = "run:"
	PendingKey   = "pending"
	SpacerKey    = "spacer"
)

// Timeline accumulates one thread's runs and messages as they arrive,
// in any order, and flattens them into the item list the windowing
// layer renders. It tolerates the two realities of a live stream:
// messages may reference runs that have not arrived yet (buffered until
// the run appears), and the same message may be delivered more than
// once (deduped by id).
type Timeline struct {
	runs     []Run
	runIdx   map[string]int
	seen     map[string]struct{}
	buffered map[string][]Message

	queued    []Message
	reminders []Reminder
	hydrated  bool

	msgCount int
}

// NewTimeline returns an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{
		runIdx:   make(map[string]int),
		seen:     make(map[string]struct{}),
		buffered: make(map[string][]Message),
	}
}

// Hydrate replaces the timeline with an authoritative snapshot and
// marks hydration complete. Buffered messages are discarded: the
// snapshot supersedes anything seen on the stream before it.
func (t *Timeline) Hydrate(snap Snapshot) {
	t.runs = make([]Run, len(snap.Runs))
	copy(t.runs, snap.Runs)
	t.runIdx = make(map[string]int, len(t.runs))
	t.seen = make(map[string]struct{})
	t.buffered = make(map[string][]Message)
	t.msgCount = 0
	for i, r := range t.runs {
		t.runIdx[r.ID] = i
		for _, m := range r.Messages {
			t.seen[m.ID] = struct{}{}
			t.msgCount++
		}
	}
	t.queued = snap.Queued
	t.reminders = snap.Reminders
	t.hydrated = true
}

// Hydrated reports whether an initial snapshot has been applied.
func (t *Timeline) Hydrated() bool { return t.hydrated }

// ApplyMessage appends a message to its run. Messages for runs that do
// not exist yet are buffered and attached when the run appears; a
// message id seen before is dropped. Returns true when the visible
// transcript changed.
func (t *Timeline) ApplyMessage(m Message) bool {
	if _, dup := t.seen[m.ID]; dup {
		return false
	}
	t.seen[m.ID] = struct{}{}

	idx, ok := t.runIdx[m.RunID]
	if !ok {
		t.buffered[m.RunID] = append(t.buffered[m.RunID], m)
		return false
	}
	t.runs[idx].Messages = append(t.runs[idx].Messages, m)
	t.msgCount++
	return true
}

// ApplyRunStatus records a run status change, creating the run in
// arrival order if it is new. Any messages buffered for the run attach
// at that moment, exactly once. Returns true when the visible
// transcript changed.
func (t *Timeline) ApplyRunStatus(runID string, status RunStatus) bool {
	idx, ok := t.runIdx[runID]
	if ok {
		if t.runs[idx].Status == status {
			return false
		}
		t.runs[idx].Status = status
		return true
	}

	run := Run{ID: runID, Status: status}
	if pending := t.buffered[runID]; len(pending) > 0 {
		run.Messages = append(run.Messages, pending...)
		t.msgCount += len(pending)
		delete(t.buffered, runID)
	}
	t.runIdx[runID] = len(t.runs)
	t.runs = append(t.runs, run)
	return true
}

// PrependHistory inserts older runs ahead of everything already known,
// preserving their order. Runs and messages already present are
// skipped. Returns the number of runs actually prepended.
func (t *Timeline) PrependHistory(older []Run) int {
	var fresh []Run
	for _, r := range older {
		if _, exists := t.runIdx[r.ID]; exists {
			continue
		}
		fresh = append(fresh, r)
	}
	if len(fresh) == 0 {
		return 0
	}

	t.runs = append(fresh, t.runs...)
	t.runIdx = make(map[string]int, len(t.runs))
	for i, r := range t.runs {
		t.runIdx[r.ID] = i
	}
	for _, r := range fresh {
		for _, m := range r.Messages {
			if _, dup := t.seen[m.ID]; !dup {
				t.seen[m.ID] = struct{}{}
				t.msgCount++
			}
		}
	}
	return len(fresh)
}

// SetQueued replaces the queued-but-unsent messages.
func (t *Timeline) SetQueued(msgs []Message) { t.queued = msgs }

// SetReminders replaces the trailing reminders.
func (t *Timeline) SetReminders(rs []Reminder) { t.reminders = rs }

// Queued returns the queued messages.
func (t *Timeline) Queued() []Message { return t.queued }

// Reminders returns the trailing reminders.
func (t *Timeline) Reminders() []Reminder { return t.reminders }

// MessageCount returns the number of messages attached to runs. It is
// the quantity the auto-follow policy watches: queue and reminder
// changes do not affect it.
func (t *Timeline) MessageCount() int { return t.msgCount }

// RunCount returns the number of runs.
func (t *Timeline) RunCount() int { return len(t.runs) }

// HasPendingSection reports whether the trailing pending item renders.
func (t *Timeline) HasPendingSection() bool {
	return len(t.queued) > 0 || len(t.reminders) > 0
}

// Runs returns the runs in arrival order.
func (t *Timeline) Runs() []Run { return t.runs }

// Items flattens the thread into the windowing layer's item list:
// runs in arrival order, the pending section when non-empty, and the
// spacer always last.
func (t *Timeline) Items() []windowlist.Item {
	items := make([]windowlist.Item, 0, len(t.runs)+2)
	for _, r := range t.runs {
		items = append(items, windowlist.Item{Key: runKeyPrefix + r.ID})
	}
	if t.HasPendingSection() {
		items = append(items, windowlist.Item{Key: PendingKey})
	}
	items = append(items, windowlist.Item{Key: SpacerKey})
	return items
}

// RunAt maps a relative item index back to its run. The second return
// is false for the synthetic pending/spacer items and out-of-range
// indexes.
func (t *Timeline) RunAt(rel int) (Run, bool) {
	if rel < 0 || rel >= len(t.runs) {
		return Run{}, false
	}
	return t.runs[rel], true
}
