package i18n

import (
	"testing"
	"time"
)

func TestRelativeTime(t *testing.T) {
	Init("en")
	now := time.Now()
	tests := []struct {
		name string
		ago  time.Duration
		want string
	}{
		{"under a minute", 30 * time.Second, "just now"},
		{"one minute", 90 * time.Second, "1 min ago"},
		{"minutes", 5 * time.Minute, "5 mins ago"},
		{"one hour", 90 * time.Minute, "1 hour ago"},
		{"hours", 3 * time.Hour, "3 hours ago"},
		{"one day", 36 * time.Hour, "1 day ago"},
		{"days", 72 * time.Hour, "3 days ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RelativeTime(now.Add(-tt.ago)); got != tt.want {
				t.Errorf("RelativeTime(-%v) = %q, want %q", tt.ago, got, tt.want)
			}
		})
	}
}

func TestRelativeTimeShort(t *testing.T) {
	Init("en")
	now := time.Now()

	if got := RelativeTimeShort(time.Time{}); got != "" {
		t.Errorf("zero time = %q, want empty", got)
	}

	tests := []struct {
		name string
		ago  time.Duration
		want string
	}{
		{"same day", 3 * time.Hour, "today"},
		{"one day", 36 * time.Hour, "1d ago"},
		{"days", 5 * 24 * time.Hour, "5d ago"},
		{"months", 60 * 24 * time.Hour, "2mo ago"},
		{"years", 400 * 24 * time.Hour, "1y ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RelativeTimeShort(now.Add(-tt.ago)); got != tt.want {
				t.Errorf("RelativeTimeShort(-%v) = %q, want %q", tt.ago, got, tt.want)
			}
		})
	}
}
