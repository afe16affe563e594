package feed

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/runlight/threadview/internal/tuilog"
)

const (
	baseReconnectDelay  = 1 * time.Second
	maxReconnectDelay   = 30 * time.Second
	maxConsecutiveFails = 5
)

// Stream connects to the event WebSocket for a thread and delivers
// events on the returned channel. It reconnects automatically with
// exponential backoff; after a reconnect it emits a synthetic
// EventReconnected so the consumer knows to re-hydrate.
func Stream(ctx context.Context, wsURL, token, threadID string) (<-chan Event, error) {
	ch := make(chan Event, 64)
	go streamLoop(ctx, wsURL, token, threadID, ch)
	return ch, nil
}

func streamLoop(ctx context.Context, wsURL, token, threadID string, ch chan<- Event) {
	defer close(ch)

	var lastTS time.Time
	consecutiveFails := 0
	connectedOnce := false

	for {
		if ctx.Err() != nil {
			return
		}

		delivered, err := streamOnce(ctx, wsURL, token, threadID, lastTS, ch, &lastTS, connectedOnce)
		if ctx.Err() != nil {
			return
		}
		if delivered {
			connectedOnce = true
			consecutiveFails = 0
		}

		consecutiveFails++
		if err != nil {
			tuilog.Log.Warn("Event stream disconnected", "thread_id", threadID, "error", err, "failures", consecutiveFails)
		}

		if consecutiveFails >= maxConsecutiveFails {
			select {
			case ch <- Event{
				Type:      EventReconnected,
				ThreadID:  threadID,
				Timestamp: time.Now(),
				Synthetic: true,
			}:
			case <-ctx.Done():
				return
			}
			consecutiveFails = 0
		}

		// Exponential backoff
		delay := time.Duration(float64(baseReconnectDelay) * math.Pow(2, float64(min(consecutiveFails-1, 5))))
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

func streamOnce(ctx context.Context, wsURL, token, threadID string, after time.Time, ch chan<- Event, lastTS *time.Time, reconnect bool) (bool, error) {
	url := wsURL + "?thread_id=" + threadID
	if !after.IsZero() {
		url += "&after=" + after.Format(time.RFC3339Nano)
	}

	opts := &websocket.DialOptions{}
	if token != "" {
		opts.HTTPHeader = http.Header{
			"Authorization": []string{"Bearer " + token},
		}
	}

	conn, _, err := websocket.Dial(ctx, url, opts)
	if err != nil {
		return false, err
	}
	defer conn.CloseNow()

	if reconnect {
		select {
		case ch <- Event{Type: EventReconnected, ThreadID: threadID, Timestamp: time.Now(), Synthetic: true}:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	delivered := false
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return delivered, err
		}

		ev, ok := ParseEvent(data)
		if !ok {
			tuilog.Log.Debug("Failed to parse stream event", "thread_id", threadID)
			continue
		}

		if !ev.Timestamp.IsZero() {
			*lastTS = ev.Timestamp
		}

		select {
		case ch <- ev:
			delivered = true
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "client closing")
			return delivered, ctx.Err()
		}
	}
}
