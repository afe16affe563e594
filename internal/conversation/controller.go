// Package conversation coordinates one active transcript: when the
// initial scroll happens, when new content pulls the view to the
// bottom, when a cached position is restored, and when the loading
// indicator shows. It drives a windowed list surface but never owns
// rendering.
package conversation

import (
	"github.com/runlight/threadview/internal/scrollstate"
	"github.com/runlight/threadview/internal/windowlist"
)

// Surface is the scrollable transcript the controller steers. The
// windowlist engine satisfies it; tests substitute a recording fake.
type Surface interface {
	SetItems(items []windowlist.Item)
	ItemCount() int
	ContentHeight() int
	AtBottom() bool
	Restore(pos *scrollstate.Position)
	ScrollTo(loc *windowlist.Location)
}

// State is the controller's lifecycle phase for the active thread.
type State int

const (
	// StateAwaitingHydration: thread selected, data not yet loaded.
	StateAwaitingHydration State = iota
	// StateInitialScrollPending: hydrated, first scroll not yet landed.
	StateInitialScrollPending
	// StateSettled: steady state; only auto-follow moves the view.
	StateSettled
)

// pendingAction is what happens when the height-stabilization wait
// resolves.
type pendingAction int

const (
	actionNone pendingAction = iota
	actionRestore
	actionInitialScroll
	actionFollow
)

// Options carries the tuning constants (see config).
type Options struct {
	StabilizerDebounceFrames int
	StabilizerMaxChecks      int
}

// Controller is the per-thread scroll policy state machine. It is
// single-threaded: all methods are called from the UI event loop.
type Controller struct {
	surface Surface
	opts    Options

	threadID       string
	state          State
	restorePending bool
	loaderVisible  bool

	hydrated       bool
	atBottomAtOpen bool
	prevMsgCount   int

	initialScrollRequested bool

	// One height-stabilization wait at a time. reqID increases on every
	// new scroll request; a settling wait whose id is stale is dropped.
	stab       *scrollstate.Stabilizer
	waitAction pendingAction
	waitPos    *scrollstate.Position
	reqID      uint64
	waitReqID  uint64
	closed     bool
}

// New creates a controller over the given surface.
func New(surface Surface, opts Options) *Controller {
	return &Controller{
		surface: surface,
		opts:    opts,
		stab:    scrollstate.NewStabilizer(opts.StabilizerDebounceFrames, opts.StabilizerMaxChecks),
	}
}

// SetThread switches the controller to a new thread identity. All
// counters and scroll flags reset before any other logic runs, so
// state from the previous thread never leaks in. atBottomAtOpen
// records whether this thread should pin to the bottom when first
// shown.
func (c *Controller) SetThread(threadID string, atBottomAtOpen bool) {
	if threadID == c.threadID {
		return
	}
	c.threadID = threadID
	c.state = StateAwaitingHydration
	c.restorePending = false
	c.loaderVisible = true
	c.hydrated = false
	c.atBottomAtOpen = atBottomAtOpen
	c.prevMsgCount = 0
	c.initialScrollRequested = false
	c.cancelWait()
}

// ThreadID returns the active thread id.
func (c *Controller) ThreadID() string { return c.threadID }

// State returns the current lifecycle phase.
func (c *Controller) State() State { return c.state }

// LoaderVisible reports whether the host should show a loading
// indicator over the transcript.
func (c *Controller) LoaderVisible() bool { return c.loaderVisible }

// RestorePending reports whether a cached position is waiting to be
// applied.
func (c *Controller) RestorePending() bool { return c.restorePending }

// UpdateData feeds the latest flattened items into the surface and
// applies the hydration and auto-follow policy. msgCount counts run
// messages only; queue/reminder-only updates keep it unchanged and
// never trigger a scroll write.
func (c *Controller) UpdateData(items []windowlist.Item, msgCount int, hasPending, hydrated bool) {
	if c.closed {
		return
	}

	wasAtBottom := c.surface.AtBottom()
	c.surface.SetItems(items)

	grew := msgCount > c.prevMsgCount
	c.prevMsgCount = msgCount

	if hydrated && !c.hydrated {
		c.hydrated = true
		if c.state == StateAwaitingHydration && !c.restorePending {
			c.beginInitialScroll(msgCount, hasPending)
		}
	}

	// Auto-follow: only in steady state, only when the viewer was at
	// the bottom before the update, and only for threads opened at the
	// bottom.
	if grew && c.hydrated && c.state == StateSettled &&
		wasAtBottom && c.atBottomAtOpen {
		c.beginWait(actionFollow)
	}
}

// RequestRestore queues a cached position for application once the
// surface is ready. A nil (or fully sanitized-away) position is
// ignored. showLoader=false is the silent restore used on thread
// switches.
func (c *Controller) RequestRestore(pos *scrollstate.Position, showLoader bool) {
	if c.closed {
		return
	}
	if count := c.surface.ItemCount(); count > 0 {
		// Sanitize against what is present now; it is re-clamped again
		// at apply time in case items change while we wait.
		pos = pos.Sanitize(count)
	} else {
		// Items not there yet; hold the raw intent and sanitize when
		// they arrive.
		pos = pos.Clone()
	}
	if pos == nil {
		return
	}
	c.restorePending = true
	c.loaderVisible = showLoader
	c.waitPos = pos
	c.beginWait(actionRestore)
}

// OnFrame advances any outstanding height-stabilization wait by one
// frame. The host calls it on every tick while WaitPending reports
// true.
func (c *Controller) OnFrame() {
	if c.closed || c.waitAction == actionNone {
		return
	}
	if !c.stab.Observe(c.surface.ContentHeight()) {
		return
	}
	if c.waitReqID != c.reqID {
		// A newer request superseded this wait while it was settling.
		c.waitAction = actionNone
		return
	}
	if c.waitAction == actionRestore && c.surface.ItemCount() == 0 {
		// Settled but nothing to restore into yet; hold the wait open.
		c.stab.Reset()
		return
	}

	action := c.waitAction
	c.waitAction = actionNone

	switch action {
	case actionRestore:
		c.surface.Restore(c.waitPos.Sanitize(c.surface.ItemCount()))
		c.waitPos = nil
		c.restorePending = false
		c.loaderVisible = false
		c.state = StateSettled
	case actionInitialScroll:
		c.surface.ScrollTo(&windowlist.Location{Index: windowlist.LastItem, Align: windowlist.AlignEnd})
		// Loader stays visible until the surface reports at-bottom, so
		// it does not disappear before the scroll visually lands. The
		// at-bottom notification only fires on transitions; a view
		// that was already at the end (content fits the viewport)
		// never transitions, so read the surface directly too.
		if c.surface.AtBottom() {
			c.state = StateSettled
			c.loaderVisible = false
		}
	case actionFollow:
		c.surface.ScrollTo(&windowlist.Location{Index: windowlist.LastItem, Align: windowlist.AlignEnd})
	}
}

// WaitPending reports whether a stabilization wait needs frames.
func (c *Controller) WaitPending() bool {
	return !c.closed && c.waitAction != actionNone
}

// NotifyAtBottom is wired to the surface's at-bottom change
// notification. It completes the initial scroll once the viewport
// visually reaches the end.
func (c *Controller) NotifyAtBottom(at bool) {
	if c.closed {
		return
	}
	if at && c.state == StateInitialScrollPending && c.initialScrollRequested {
		c.state = StateSettled
		c.loaderVisible = false
	}
}

// Close tears the controller down, invalidating outstanding waits so
// they can never act on a disposed surface.
func (c *Controller) Close() {
	c.closed = true
	c.cancelWait()
}

func (c *Controller) beginInitialScroll(msgCount int, hasPending bool) {
	// Nothing to scroll to: settle immediately.
	if msgCount == 0 && !hasPending {
		c.state = StateSettled
		c.loaderVisible = false
		return
	}
	// The thread was last closed scrolled away from the bottom;
	// respect that and skip the initial scroll.
	if !c.atBottomAtOpen {
		c.state = StateSettled
		c.loaderVisible = false
		return
	}
	c.state = StateInitialScrollPending
	c.initialScrollRequested = true
	c.beginWait(actionInitialScroll)
}

func (c *Controller) beginWait(action pendingAction) {
	c.reqID++
	c.waitReqID = c.reqID
	c.waitAction = action
	c.stab.Reset()
}

func (c *Controller) cancelWait() {
	c.reqID++
	c.waitAction = actionNone
	c.waitPos = nil
	c.stab.Reset()
}
