package scrollstate

// Stabilizer waits for a transcript's content height to stop changing
// before a scroll target is trusted. It is fed one observation per
// frame; it settles once the height has been unchanged for
// DebounceFrames consecutive observations, or unconditionally after
// MaxChecks observations so pathological content that never stops
// re-flowing cannot block forward progress.
//
// The zero value is not usable; construct with NewStabilizer.
type Stabilizer struct {
	debounceFrames int
	maxChecks      int

	lastHeight int
	stableRun  int
	checks     int
	settled    bool
	observed   bool
}

const (
	// DefaultDebounceFrames is how many consecutive unchanged
	// observations count as stable. Tuning constant, overridable via
	// config.
	DefaultDebounceFrames = 3
	// DefaultMaxChecks bounds the wait for content that never settles.
	DefaultMaxChecks = 60
)

// NewStabilizer creates a stabilizer. Non-positive arguments fall back
// to the defaults.
func NewStabilizer(debounceFrames, maxChecks int) *Stabilizer {
	if debounceFrames <= 0 {
		debounceFrames = DefaultDebounceFrames
	}
	if maxChecks <= 0 {
		maxChecks = DefaultMaxChecks
	}
	return &Stabilizer{
		debounceFrames: debounceFrames,
		maxChecks:      maxChecks,
	}
}

// Reset discards all observations, restarting the wait.
func (s *Stabilizer) Reset() {
	s.lastHeight = 0
	s.stableRun = 0
	s.checks = 0
	s.settled = false
	s.observed = false
}

// Observe records one frame's content height and returns true once the
// height is considered stable. Further observations after settling are
// no-ops.
func (s *Stabilizer) Observe(height int) bool {
	if s.settled {
		return true
	}
	s.checks++

	if s.observed && height == s.lastHeight {
		s.stableRun++
	} else {
		s.stableRun = 1
	}
	s.lastHeight = height
	s.observed = true

	if s.stableRun >= s.debounceFrames || s.checks >= s.maxChecks {
		s.settled = true
	}
	return s.settled
}

// Settled reports whether the wait has resolved.
func (s *Stabilizer) Settled() bool { return s.settled }
