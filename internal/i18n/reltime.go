package i18n

import (
	"fmt"
	"time"
)

const day = 24 * time.Hour

// RelativeTime renders how long ago t was, in full words. Thread
// headers use this form.
func RelativeTime(t time.Time) string {
	since := time.Since(t)
	if since < time.Minute {
		return T("common.time.justNow", "just now")
	}
	if since < time.Hour {
		return agoPhrase(int(since.Minutes()),
			"common.time.oneMinAgo", "1 min ago",
			"common.time.minsAgo", "%d mins ago")
	}
	if since < day {
		return agoPhrase(int(since.Hours()),
			"common.time.oneHourAgo", "1 hour ago",
			"common.time.hoursAgo", "%d hours ago")
	}
	return agoPhrase(int(since.Hours()/24),
		"common.time.oneDayAgo", "1 day ago",
		"common.time.daysAgo", "%d days ago")
}

// agoPhrase picks the singular or plural message for a unit count.
func agoPhrase(n int, oneKey, oneFallback, manyKey, manyFallback string) string {
	if n == 1 {
		return T(oneKey, oneFallback)
	}
	return Tf(manyKey, manyFallback, n)
}

// RelativeTimeShort is the compact form shown in the thread list
// column. A zero time renders as an empty cell.
func RelativeTimeShort(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	since := time.Since(t)
	switch {
	case since < day:
		return T("common.time.short.today", "today")
	case since < 2*day:
		return T("common.time.short.oneDayAgo", "1d ago")
	case since < 30*day:
		return fmt.Sprintf("%dd ago", int(since/day))
	case since < 365*day:
		return fmt.Sprintf("%dmo ago", int(since/(30*day)))
	default:
		return fmt.Sprintf("%dy ago", int(since/(365*day)))
	}
}
