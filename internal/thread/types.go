// Package thread models conversation threads: runs (execution turns)
// containing ordered messages, plus the queued/reminder content that
// trails the transcript. It owns the flattening of a thread into the
// opaque item list consumed by the windowing layer.
package thread

import "time"

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunPending    RunStatus = "pending"
	RunRunning    RunStatus = "running"
	RunFinished   RunStatus = "finished"
	RunFailed     RunStatus = "failed"
	RunTerminated RunStatus = "terminated"
)

// Author identifies who produced a message.
type Author string

const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
	AuthorSystem    Author = "system"
)

// Message is a single conversation message inside a run.
type Message struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Author    Author    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Run is one execution turn: an ordered list of messages and a status.
type Run struct {
	ID       string    `json:"id"`
	Status   RunStatus `json:"status"`
	Messages []Message `json:"messages"`
}

// Reminder is a scheduled note shown in the trailing pending section.
type Reminder struct {
	ID   string    `json:"id"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Meta describes a thread without its content.
type Meta struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot is the full REST representation of a thread, used for
// hydration and reconcile refetches.
type Snapshot struct {
	Meta      Meta       `json:"meta"`
	Runs      []Run      `json:"runs"`
	Queued    []Message  `json:"queued,omitempty"`
	Reminders []Reminder `json:"reminders,omitempty"`
}
