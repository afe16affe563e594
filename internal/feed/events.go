// Package feed delivers conversation data to the UI: REST hydration of
// full thread snapshots, a WebSocket stream of incremental events with
// automatic reconnect, and a local JSONL tail for offline replay.
package feed

import (
	"encoding/json"
	"time"

	"github.com/runlight/threadview/internal/thread"
)

// EventType identifies an incremental update on the stream.
type EventType string

const (
	EventMessageCreated   EventType = "message_created"
	EventRunStatusChanged EventType = "run_status_changed"
	EventQueueChanged     EventType = "queue_changed"
	EventRemindersChanged EventType = "reminders_changed"
	EventThreadRenamed    EventType = "thread_renamed"
	EventReconnected      EventType = "reconnected"
)

// Event is one incremental update for a thread. Exactly one payload
// field is set, according to Type.
type Event struct {
	Type      EventType         `json:"type"`
	ThreadID  string            `json:"thread_id"`
	Timestamp time.Time         `json:"timestamp"`
	Message   *thread.Message   `json:"message,omitempty"`
	RunID     string            `json:"run_id,omitempty"`
	RunStatus thread.RunStatus  `json:"run_status,omitempty"`
	Queued    []thread.Message  `json:"queued,omitempty"`
	Reminders []thread.Reminder `json:"reminders,omitempty"`
	Title     string            `json:"title,omitempty"`

	// Synthetic marks events generated client-side, such as the
	// reconnect notice, rather than received from the server.
	Synthetic bool `json:"-"`
}

// ParseEvent decodes a wire event and rejects frames without a type.
func ParseEvent(data []byte) (Event, bool) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, false
	}
	if ev.Type == "" {
		return Event{}, false
	}
	return ev, true
}
