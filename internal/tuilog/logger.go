// Package tuilog provides file-based logging for the TUI, where
// stdout/stderr are owned by the terminal renderer.
package tuilog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Logger writes leveled key-value lines to a log file.
type Logger struct {
	mu      sync.Mutex
	file    *os.File
	enabled bool
}

var (
	// Log is the global logger instance.
	Log     = &Logger{}
	logOnce sync.Once
)

// Init points the global logger at a file. An empty path disables
// logging entirely.
func Init(path string) error {
	if path == "" {
		Log.enabled = false
		return nil
	}

	var initErr error
	logOnce.Do(func() {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			initErr = err
			return
		}
		Log.file = f
		Log.enabled = true
		Log.Info("Logger initialized", "path", path)
	})
	return initErr
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Enabled reports whether logging is active.
func (l *Logger) Enabled() bool {
	return l.enabled
}

// Writer returns the underlying io.Writer for other logging libraries.
func (l *Logger) Writer() io.Writer {
	if !l.enabled || l.file == nil {
		return io.Discard
	}
	return l.file
}

func (l *Logger) log(level string, msg string, keyvals ...any) {
	if !l.enabled || l.file == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("15:04:05.000")
	line := fmt.Sprintf("%s [%s] %s", timestamp, level, msg)

	for i := 0; i < len(keyvals)-1; i += 2 {
		line += fmt.Sprintf(" %v=%v", keyvals[i], keyvals[i+1])
	}

	fmt.Fprintln(l.file, line)
	l.file.Sync()
}

// Debug logs a debug message with optional key-value pairs.
func (l *Logger) Debug(msg string, keyvals ...any) {
	l.log("DEBUG", msg, keyvals...)
}

// Info logs an info message with optional key-value pairs.
func (l *Logger) Info(msg string, keyvals ...any) {
	l.log("INFO", msg, keyvals...)
}

// Warn logs a warning message with optional key-value pairs.
func (l *Logger) Warn(msg string, keyvals ...any) {
	l.log("WARN", msg, keyvals...)
}

// Error logs an error message with optional key-value pairs.
func (l *Logger) Error(msg string, keyvals ...any) {
	l.log("ERROR", msg, keyvals...)
}
