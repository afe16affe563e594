// Package sessioncache keeps several conversations alive at once so
// switching threads neither loses the reading position nor forces a
// re-hydration. It is a fixed-capacity LRU over per-thread entries,
// plus the frame-deferred capture/restore choreography that runs on
// every thread switch.
package sessioncache

import (
	"github.com/runlight/threadview/internal/scrollstate"
	"github.com/runlight/threadview/internal/thread"
	"github.com/runlight/threadview/internal/windowlist"
)

// DefaultCapacity is the maximum number of resident thread entries.
const DefaultCapacity = 10

// Handle is the imperative per-thread surface a rendered conversation
// exposes to the cache.
type Handle interface {
	CaptureScrollState() *scrollstate.Position
	RestoreScrollState(pos *scrollstate.Position, showLoader bool)
	IsAtBottom() bool
}

// Persister receives captured positions for durable storage. Optional.
type Persister interface {
	SaveScrollState(threadID string, pos *scrollstate.Position, atBottomAtOpen bool)
	DeleteScrollState(threadID string)
}

// Entry is the cached state for one thread.
type Entry struct {
	ThreadID          string
	Items             []windowlist.Item
	Queued            []thread.Message
	Reminders         []thread.Reminder
	HydrationComplete bool

	// AtBottomAtOpen records whether the thread should pin to the
	// bottom when first shown. Set once on creation (or from persisted
	// state) and updated on capture.
	AtBottomAtOpen bool

	// Position is the last captured scroll position, if any.
	Position *scrollstate.Position

	touched uint64
}

// pendingRestore is queued against a thread whose rendering handle
// does not exist yet, and applied the first time one attaches.
type pendingRestore struct {
	pos        *scrollstate.Position
	showLoader bool
}

// Cache owns the map of thread id to entry. It is single-threaded,
// driven from the UI event loop; Tick runs once per frame.
type Cache struct {
	capacity  int
	clock     uint64
	entries   map[string]*Entry
	handles   map[string]Handle
	pending   map[string]*pendingRestore
	captures  []string // thread ids with a capture scheduled
	persister Persister

	activeThread string
}

// New creates a cache. capacity <= 0 falls back to DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[string]*Entry),
		handles:  make(map[string]Handle),
		pending:  make(map[string]*pendingRestore),
	}
}

// SetPersister attaches durable storage for captured positions.
func (c *Cache) SetPersister(p Persister) { c.persister = p }

// Len returns the number of resident entries.
func (c *Cache) Len() int { return len(c.entries) }

// Get returns the entry for a thread id, if resident.
func (c *Cache) Get(threadID string) (*Entry, bool) {
	e, ok := c.entries[threadID]
	return e, ok
}

// Contains reports residency without touching recency.
func (c *Cache) Contains(threadID string) bool {
	_, ok := c.entries[threadID]
	return ok
}

// Seed installs previously persisted state for a thread before its
// first activation, so a restart restores reading positions.
func (c *Cache) Seed(threadID string, pos *scrollstate.Position, atBottomAtOpen bool) {
	e := c.ensure(threadID)
	e.Position = pos.Clone()
	e.AtBottomAtOpen = atBottomAtOpen
}

// Activate ensures an entry exists for the thread, marks it most
// recently used, and merges in the latest data. A previously stored
// Position and AtBottomAtOpen flag are preserved. Returns the entry.
func (c *Cache) Activate(threadID string, items []windowlist.Item, queued []thread.Message, reminders []thread.Reminder, hydrationComplete bool) *Entry {
	e := c.ensure(threadID)
	e.Items = items
	e.Queued = queued
	e.Reminders = reminders
	e.HydrationComplete = hydrationComplete
	c.touch(e)
	c.evictOverCapacity()
	return e
}

// SwitchTo records a thread switch: the outgoing thread's position is
// captured (deferred to the next frame, before any restore runs) and
// the incoming thread's cached position, if any, is queued for a
// silent restore.
func (c *Cache) SwitchTo(threadID string) {
	prev := c.activeThread
	c.activeThread = threadID
	if prev != "" && prev != threadID && c.Contains(prev) {
		c.scheduleCapture(prev)
	}

	e := c.ensure(threadID)
	c.touch(e)
	if e.Position != nil {
		c.RequestRestore(threadID, e.Position, false)
	}
	c.evictOverCapacity()
}

// ActiveThread returns the currently active thread id.
func (c *Cache) ActiveThread() string { return c.activeThread }

// RegisterHandle attaches the rendering handle for a thread. Any
// queued restore applies on the next Tick.
func (c *Cache) RegisterHandle(threadID string, h Handle) {
	c.handles[threadID] = h
}

// UnregisterHandle detaches a thread's rendering handle.
func (c *Cache) UnregisterHandle(threadID string) {
	delete(c.handles, threadID)
}

// Handle returns the live rendering handle for a thread, if attached.
func (c *Cache) Handle(threadID string) (Handle, bool) {
	h, ok := c.handles[threadID]
	return h, ok
}

// RequestRestore queues a restore for a thread. Restores coalesce: a
// newer request for the same thread replaces a pending one.
func (c *Cache) RequestRestore(threadID string, pos *scrollstate.Position, showLoader bool) {
	if pos == nil {
		return
	}
	c.pending[threadID] = &pendingRestore{pos: pos.Clone(), showLoader: showLoader}
}

// PendingRestore reports whether a restore is queued for a thread.
func (c *Cache) PendingRestore(threadID string) bool {
	_, ok := c.pending[threadID]
	return ok
}

// CaptureNow captures a thread's position into its entry immediately,
// bypassing the frame deferral. Used on shutdown.
func (c *Cache) CaptureNow(threadID string) {
	c.capture(threadID)
}

// Tick runs one frame of deferred work: scheduled captures first (a
// capture must observe state before any restore for the same thread
// applies), then queued restores for threads with live handles.
func (c *Cache) Tick() {
	if len(c.captures) > 0 {
		scheduled := c.captures
		c.captures = nil
		for _, id := range scheduled {
			c.capture(id)
		}
	}

	for id, pr := range c.pending {
		h, ok := c.handles[id]
		if !ok {
			continue
		}
		delete(c.pending, id)
		h.RestoreScrollState(pr.pos, pr.showLoader)
	}
}

// Evict removes a thread entry outright: entry, queued restore and any
// scheduled capture all go.
func (c *Cache) Evict(threadID string) {
	delete(c.entries, threadID)
	delete(c.pending, threadID)
	c.dropScheduledCapture(threadID)
}

func (c *Cache) ensure(threadID string) *Entry {
	e, ok := c.entries[threadID]
	if !ok {
		e = &Entry{ThreadID: threadID, AtBottomAtOpen: true}
		c.entries[threadID] = e
		c.touch(e)
	}
	return e
}

func (c *Cache) touch(e *Entry) {
	c.clock++
	e.touched = c.clock
}

func (c *Cache) scheduleCapture(threadID string) {
	for _, id := range c.captures {
		if id == threadID {
			return
		}
	}
	c.captures = append(c.captures, threadID)
}

func (c *Cache) dropScheduledCapture(threadID string) {
	for i, id := range c.captures {
		if id == threadID {
			c.captures = append(c.captures[:i], c.captures[i+1:]...)
			return
		}
	}
}

func (c *Cache) capture(threadID string) {
	e, ok := c.entries[threadID]
	if !ok {
		return
	}
	h, ok := c.handles[threadID]
	if !ok {
		return
	}
	pos := h.CaptureScrollState()
	if pos == nil {
		return
	}
	e.Position = pos
	e.AtBottomAtOpen = h.IsAtBottom()
	if c.persister != nil {
		c.persister.SaveScrollState(threadID, pos, e.AtBottomAtOpen)
	}
}

// evictOverCapacity drops least-recently-used entries until the cache
// fits. The active thread is never evicted.
func (c *Cache) evictOverCapacity() {
	for len(c.entries) > c.capacity {
		var victim *Entry
		for _, e := range c.entries {
			if e.ThreadID == c.activeThread {
				continue
			}
			if victim == nil || e.touched < victim.touched {
				victim = e
			}
		}
		if victim == nil {
			return
		}
		c.Evict(victim.ThreadID)
	}
}
