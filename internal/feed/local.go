package feed

import (
	"bufio"
	"context"
	"io"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/runlight/threadview/internal/tuilog"
)

// ReadLocal parses every event already present in a JSONL file, in
// order. Local replay hydrates from this before tailing the file for
// appends.
func ReadLocal(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Event
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if ev, ok := ParseEvent(sc.Bytes()); ok {
			out = append(out, ev)
		}
	}
	return out, sc.Err()
}

// TailLocal opens a JSONL event file, seeks to the end, and streams
// events as lines are appended. Useful for replaying a recorded thread
// without a server. The channel closes when ctx is cancelled or the
// file is removed.
func TailLocal(ctx context.Context, path string) (<-chan Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	// Seek to end, only new events are wanted
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		f.Close()
		return nil, err
	}

	ch := make(chan Event, 64)
	go tailLoop(ctx, f, watcher, ch)
	return ch, nil
}

func tailLoop(ctx context.Context, f *os.File, watcher *fsnotify.Watcher, ch chan<- Event) {
	defer close(ch)
	defer f.Close()
	defer watcher.Close()

	reader := bufio.NewReader(f)
	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) {
				// Debounce rapid writes
				debounce.Reset(100 * time.Millisecond)
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				return
			}

		case <-debounce.C:
			for {
				line, err := reader.ReadBytes('\n')
				if err != nil {
					break
				}
				ev, ok := ParseEvent(line)
				if !ok {
					continue
				}
				select {
				case ch <- ev:
				case <-ctx.Done():
					return
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			tuilog.Log.Warn("Local tail watcher error", "error", err)
		}
	}
}
