package thread

import (
	"fmt"
	"testing"
)

func msg(id, runID, body string) Message {
	return Message{ID: id, RunID: runID, Author: AuthorAssistant, Body: body}
}

func TestBufferedMessageWaitsForRun(t *testing.T) {
	tl := NewTimeline()

	// A message referencing a run that does not exist yet must not
	// become visible.
	if changed := tl.ApplyMessage(msg("m1", "run-late", "early bird")); changed {
		t.Fatal("buffered message reported as a visible change")
	}
	if tl.MessageCount() != 0 {
		t.Fatalf("message count = %d, want 0 while buffered", tl.MessageCount())
	}
	if tl.RunCount() != 0 {
		t.Fatal("no run should exist yet")
	}

	// The run arrives: the buffered message attaches exactly once.
	if changed := tl.ApplyRunStatus("run-late", RunRunning); !changed {
		t.Fatal("run creation should be a visible change")
	}
	if tl.MessageCount() != 1 {
		t.Fatalf("message count = %d, want 1 after run arrival", tl.MessageCount())
	}
	run, ok := tl.RunAt(0)
	if !ok || len(run.Messages) != 1 || run.Messages[0].ID != "m1" {
		t.Fatalf("buffered message not inside run: %+v", run)
	}

	// A later status change must not re-attach the buffer.
	tl.ApplyRunStatus("run-late", RunFinished)
	run, _ = tl.RunAt(0)
	if len(run.Messages) != 1 {
		t.Fatalf("message attached more than once: %d", len(run.Messages))
	}
}

func TestDuplicateDeliveryDedupes(t *testing.T) {
	tl := NewTimeline()
	tl.ApplyRunStatus("r1", RunRunning)

	if !tl.ApplyMessage(msg("m1", "r1", "hello")) {
		t.Fatal("first delivery should change the transcript")
	}
	if tl.ApplyMessage(msg("m1", "r1", "hello")) {
		t.Fatal("second delivery of the same id should be dropped")
	}

	run, _ := tl.RunAt(0)
	if len(run.Messages) != 1 {
		t.Fatalf("rendered %d messages with id m1, want 1", len(run.Messages))
	}
}

func TestRunStatusTransition(t *testing.T) {
	tl := NewTimeline()
	tl.ApplyRunStatus("r1", RunPending)

	if changed := tl.ApplyRunStatus("r1", RunPending); changed {
		t.Error("unchanged status should not report a change")
	}
	if changed := tl.ApplyRunStatus("r1", RunRunning); !changed {
		t.Error("status transition should report a change")
	}
	run, _ := tl.RunAt(0)
	if run.Status != RunRunning {
		t.Errorf("status = %s, want running", run.Status)
	}
}

func TestItemsOrder(t *testing.T) {
	tl := NewTimeline()
	tl.ApplyRunStatus("a", RunFinished)
	tl.ApplyRunStatus("b", RunRunning)

	items := tl.Items()
	want := []string{"run:a", "run:b", SpacerKey}
	if len(items) != len(want) {
		t.Fatalf("items = %v, want %v", items, want)
	}
	for i, k := range want {
		if items[i].Key != k {
			t.Fatalf("items[%d] = %s, want %s", i, items[i].Key, k)
		}
	}

	// The pending section appears between the runs and the spacer only
	// when queue or reminders are non-empty.
	tl.SetQueued([]Message{msg("q1", "", "queued")})
	items = tl.Items()
	if items[2].Key != PendingKey || items[3].Key != SpacerKey {
		t.Errorf("pending section misplaced: %v", items)
	}

	tl.SetQueued(nil)
	tl.SetReminders([]Reminder{{ID: "rem1", Text: "ping"}})
	if got := tl.Items(); got[2].Key != PendingKey {
		t.Errorf("reminders alone should produce the pending item: %v", got)
	}
}

func TestQueueChangesDoNotAffectMessageCount(t *testing.T) {
	tl := NewTimeline()
	tl.ApplyRunStatus("r1", RunRunning)
	tl.ApplyMessage(msg("m1", "r1", "hi"))

	before := tl.MessageCount()
	tl.SetQueued([]Message{msg("q1", "", "queued"), msg("q2", "", "more")})
	tl.SetReminders([]Reminder{{ID: "rem", Text: "later"}})
	if tl.MessageCount() != before {
		t.Error("queue/reminder updates must not change the message count")
	}
}

func TestHydrateReplacesEverything(t *testing.T) {
	tl := NewTimeline()
	tl.ApplyRunStatus("stale", RunRunning)
	tl.ApplyMessage(msg("orphan", "never-arrives", "lost"))

	tl.Hydrate(Snapshot{
		Runs: []Run{
			{ID: "r1", Status: RunFinished, Messages: []Message{msg("m1", "r1", "one")}},
			{ID: "r2", Status: RunRunning, Messages: []Message{msg("m2", "r2", "two")}},
		},
		Queued: []Message{msg("q1", "", "queued")},
	})

	if !tl.Hydrated() {
		t.Fatal("expected hydrated")
	}
	if tl.RunCount() != 2 || tl.MessageCount() != 2 {
		t.Fatalf("snapshot not applied: runs=%d msgs=%d", tl.RunCount(), tl.MessageCount())
	}

	// The discarded buffer must not resurface.
	tl.ApplyRunStatus("never-arrives", RunRunning)
	run, _ := tl.RunAt(2)
	if len(run.Messages) != 0 {
		t.Error("pre-hydration buffer leaked into a new run")
	}

	// Snapshot messages are in the dedupe set.
	if tl.ApplyMessage(msg("m1", "r1", "one")) {
		t.Error("replay of a snapshot message should be dropped")
	}
}

func TestPrependHistory(t *testing.T) {
	tl := NewTimeline()
	tl.ApplyRunStatus("new-1", RunFinished)
	tl.ApplyMessage(msg("mn", "new-1", "recent"))

	older := []Run{
		{ID: "old-1", Status: RunFinished, Messages: []Message{msg("mo1", "old-1", "a")}},
		{ID: "old-2", Status: RunFinished, Messages: []Message{msg("mo2", "old-2", "b")}},
	}
	if n := tl.PrependHistory(older); n != 2 {
		t.Fatalf("prepended %d, want 2", n)
	}

	items := tl.Items()
	wantKeys := []string{"run:old-1", "run:old-2", "run:new-1", SpacerKey}
	for i, k := range wantKeys {
		if items[i].Key != k {
			t.Fatalf("items[%d] = %s, want %s", i, items[i].Key, k)
		}
	}
	if tl.MessageCount() != 3 {
		t.Errorf("message count = %d, want 3", tl.MessageCount())
	}

	// Prepending the same page again is a no-op.
	if n := tl.PrependHistory(older); n != 0 {
		t.Errorf("duplicate history prepended %d runs", n)
	}
}

func TestLargeTimelineItemKeysUnique(t *testing.T) {
	tl := NewTimeline()
	for i := 0; i < 200; i++ {
		tl.ApplyRunStatus(fmt.Sprintf("r%d", i), RunFinished)
	}
	seen := make(map[string]bool)
	for _, it := range tl.Items() {
		if seen[it.Key] {
			t.Fatalf("duplicate item key %s", it.Key)
		}
		seen[it.Key] = true
	}
}
