package server

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/runlight/threadview/internal/feed"
	"github.com/runlight/threadview/internal/thread"
)

var demoLines = []string{
	"Looking at the failing test now.",
	"The cache key includes the query params, so the stale entry survives restarts.",
	"Pushed a fix that normalizes the key before lookup.",
	"Can you rerun the integration suite?",
	"Suite is green. Closing this out.",
	"One more thing: the retry loop needs a jitter cap.",
	"Added the cap and a regression test.",
}

// SeedDemo fills the store with a few finished threads so the list
// view has content immediately.
func SeedDemo(store *Store) {
	now := time.Now()
	for i := 1; i <= 3; i++ {
		id := fmt.Sprintf("demo-%d", i)
		snap := &thread.Snapshot{
			Meta: thread.Meta{
				ID:        id,
				Title:     fmt.Sprintf("Demo thread %d", i),
				UpdatedAt: now.Add(-time.Duration(i) * time.Hour),
			},
		}
		for r := 0; r < 2; r++ {
			runID := fmt.Sprintf("%s-run-%d", id, r)
			run := thread.Run{ID: runID, Status: thread.RunFinished}
			for m, line := range demoLines[:4] {
				author := thread.AuthorAssistant
				if m%2 == 0 {
					author = thread.AuthorUser
				}
				run.Messages = append(run.Messages, thread.Message{
					ID:        fmt.Sprintf("%s-m%d", runID, m),
					RunID:     runID,
					Author:    author,
					Body:      line,
					CreatedAt: now.Add(-time.Duration(i) * time.Hour),
				})
			}
			snap.Runs = append(snap.Runs, run)
		}
		store.Put(snap)
	}
}

// RunDemoPublisher publishes a scripted stream of events against a
// "live" thread until ctx is cancelled. It exercises every update
// shape the client handles: run creation, streamed messages, status
// transitions and queue changes.
func RunDemoPublisher(ctx context.Context, s *Server, threadID string, interval time.Duration) {
	if interval <= 0 {
		interval = 800 * time.Millisecond
	}

	s.Publish(feed.Event{
		Type:      feed.EventThreadRenamed,
		ThreadID:  threadID,
		Title:     "Live demo thread",
		Timestamp: time.Now(),
	})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runSeq := 0
	msgSeq := 0
	var runID string

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if runID == "" {
			runSeq++
			runID = fmt.Sprintf("%s-run-%d", threadID, runSeq)
			s.Publish(feed.Event{
				Type:      feed.EventRunStatusChanged,
				ThreadID:  threadID,
				RunID:     runID,
				RunStatus: thread.RunRunning,
				Timestamp: time.Now(),
			})
			continue
		}

		msgSeq++
		s.Publish(feed.Event{
			Type:     feed.EventMessageCreated,
			ThreadID: threadID,
			Message: &thread.Message{
				ID:        fmt.Sprintf("%s-m%d", runID, msgSeq),
				RunID:     runID,
				Author:    thread.AuthorAssistant,
				Body:      demoLines[rand.Intn(len(demoLines))],
				CreatedAt: time.Now(),
			},
			Timestamp: time.Now(),
		})

		// Close the run every few messages so status transitions flow
		if msgSeq%4 == 0 {
			s.Publish(feed.Event{
				Type:      feed.EventRunStatusChanged,
				ThreadID:  threadID,
				RunID:     runID,
				RunStatus: thread.RunFinished,
				Timestamp: time.Now(),
			})
			runID = ""
		}
	}
}
