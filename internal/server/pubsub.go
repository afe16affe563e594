package server

import (
	"sync"

	"github.com/runlight/threadview/internal/feed"
)

// ThreadPubSub fans out events to WebSocket subscribers watching
// specific threads.
type ThreadPubSub struct {
	mu   sync.RWMutex
	subs map[string][]*subscriber
}

type subscriber struct {
	ch     chan feed.Event
	closed bool
}

// NewThreadPubSub creates an empty pub/sub instance.
func NewThreadPubSub() *ThreadPubSub {
	return &ThreadPubSub{
		subs: make(map[string][]*subscriber),
	}
}

// Subscribe returns a channel receiving events for the given thread.
// Call the returned function to unsubscribe and close the channel.
func (ps *ThreadPubSub) Subscribe(threadID string) (<-chan feed.Event, func()) {
	ch := make(chan feed.Event, 64)
	sub := &subscriber{ch: ch}

	ps.mu.Lock()
	ps.subs[threadID] = append(ps.subs[threadID], sub)
	ps.mu.Unlock()

	unsub := func() {
		ps.mu.Lock()
		defer ps.mu.Unlock()

		subs := ps.subs[threadID]
		for i, s := range subs {
			if s == sub {
				ps.subs[threadID] = append(subs[:i], subs[i+1:]...)
				if !s.closed {
					s.closed = true
					close(s.ch)
				}
				break
			}
		}
		if len(ps.subs[threadID]) == 0 {
			delete(ps.subs, threadID)
		}
	}

	return ch, unsub
}

// Publish delivers an event to all subscribers of its thread. Slow
// consumers whose buffers are full have the event dropped.
func (ps *ThreadPubSub) Publish(ev feed.Event) {
	ps.mu.RLock()
	subs := ps.subs[ev.ThreadID]
	ps.mu.RUnlock()

	eventsPublishedTotal.WithLabelValues(string(ev.Type)).Inc()

	for _, sub := range subs {
		if sub.closed {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			eventsDroppedTotal.Inc()
		}
	}
}
