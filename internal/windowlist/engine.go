// Package windowlist maps a logically unbounded transcript onto a small
// rendered window. It owns the stable-index translation that keeps item
// identity fixed when older history is prepended, and the imperative
// capture/restore/scroll primitives consumed by the conversation layer.
//
// The engine is a plain state object with no UI dependency: the caller
// feeds it the current items via SetItems, supplies rendered heights
// through a Measurer, and asks for the window of items to materialize.
// All scroll math is in lines, the terminal's scroll unit.
package windowlist

import (
	"sort"

	"github.com/runlight/threadview/internal/scrollstate"
)

// Item is an opaque list element. The engine never inspects content,
// only count, order and key identity.
type Item struct {
	Key string
}

// Measurer reports the rendered height, in lines, of the item at a
// relative index. Heights may change between calls (streaming content
// grows); the engine re-measures on every recompute.
type Measurer interface {
	ItemHeight(rel int) int
}

// Align controls where a scrolled-to item lands in the viewport.
type Align int

const (
	AlignStart Align = iota
	AlignCenter
	AlignEnd
)

// LastItem is a sentinel index meaning "the final item".
const LastItem = -1

// Location describes a scroll-to target.
type Location struct {
	// Index is a relative item index, or LastItem.
	Index int
	// Align picks the viewport edge the item is aligned to.
	Align Align
	// OffsetLines nudges the final position by a line delta.
	OffsetLines int
}

// firstIndexHeadroom is where logical numbering starts. Starting high
// leaves room to absorb prepends without ever renumbering an item that
// has already been handed out.
const firstIndexHeadroom = 1 << 20

// defaultOverscan is how many lines beyond the viewport the window
// extends on each side.
const defaultOverscan = 40

// Options tunes an Engine.
type Options struct {
	// BottomToleranceLines is the distance from the true bottom still
	// considered "at bottom". Defaults to 1.
	BottomToleranceLines int
	// OverscanLines extends the materialized window beyond the visible
	// viewport. Defaults to 40.
	OverscanLines int
}

// Engine is the windowed list state for one transcript. Not safe for
// concurrent use; it is driven from the UI event loop.
type Engine struct {
	measurer Measurer

	items      []Item
	baseOffset int
	firstKey   string

	viewHeight int
	scrollTop  int

	heights []int
	offsets []int // offsets[i] = top line of item i; len(items)+1 entries
	dirty   bool

	atBottom   bool
	onAtBottom func(bool)

	degraded  bool
	overscan  int
	tolerance int
}

// New creates an engine over the given measurer.
func New(m Measurer, opts Options) *Engine {
	tol := opts.BottomToleranceLines
	if tol <= 0 {
		tol = 1
	}
	overscan := opts.OverscanLines
	if overscan <= 0 {
		overscan = defaultOverscan
	}
	return &Engine{
		measurer:   m,
		baseOffset: firstIndexHeadroom,
		overscan:   overscan,
		tolerance:  tol,
		atBottom:   true,
	}
}

// SetViewHeight sets the visible viewport height in lines.
func (e *Engine) SetViewHeight(h int) {
	if h == e.viewHeight {
		return
	}
	e.viewHeight = h
	e.dirty = true
	e.clampScroll()
	e.updateAtBottom()
}

// SetItems replaces the item list, detecting prepends by key identity:
// if the count grew and the key of item 0 changed, the items in front
// of the previous first key are treated as prepended and baseOffset
// shrinks by that many, so every previously rendered item keeps its
// logical index. Growth with an unchanged first key is an append.
func (e *Engine) SetItems(items []Item) {
	prepended := 0
	if len(items) > len(e.items) && len(e.items) > 0 &&
		len(items) > 0 && items[0].Key != e.firstKey {
		prepended = countPrepended(items, e.firstKey)
	}

	prevOffsets := e.offsets
	e.items = items
	if len(items) > 0 {
		e.firstKey = items[0].Key
	} else {
		e.firstKey = ""
	}
	if prepended > 0 {
		e.baseOffset -= prepended
	}
	e.dirty = true

	if prepended > 0 && len(prevOffsets) > 0 {
		// Keep the visible window anchored on the same items by
		// advancing the scroll offset past the new history.
		e.recompute()
		e.scrollTop += e.offsets[prepended]
	}
	e.clampScroll()
	e.updateAtBottom()
}

func countPrepended(items []Item, prevFirstKey string) int {
	for i, it := range items {
		if it.Key == prevFirstKey {
			return i
		}
	}
	// Previous head vanished entirely; treat as full replacement.
	return 0
}

// ItemCount returns the current item count.
func (e *Engine) ItemCount() int { return len(e.items) }

// LogicalIndex converts a relative index to the stable logical index.
func (e *Engine) LogicalIndex(rel int) int { return e.baseOffset + rel }

// RelativeIndex converts a logical index back to a position in the
// current items array. The second return is false when the index falls
// outside the array.
func (e *Engine) RelativeIndex(logical int) (int, bool) {
	rel := logical - e.baseOffset
	if rel < 0 || rel >= len(e.items) {
		return 0, false
	}
	return rel, true
}

// InvalidateHeights discards cached line offsets, forcing a re-measure
// on the next read. Call after a width change or content update.
func (e *Engine) InvalidateHeights() {
	e.dirty = true
}

// ContentHeight returns the total rendered height in lines.
func (e *Engine) ContentHeight() int {
	e.recompute()
	if len(e.offsets) == 0 {
		return 0
	}
	return e.offsets[len(e.offsets)-1]
}

// ScrollTop returns the current scroll offset from the top, in lines.
func (e *Engine) ScrollTop() int { return e.scrollTop }

// ScrollLines moves the viewport by a line delta (user scrolling).
func (e *Engine) ScrollLines(delta int) {
	e.scrollTop += delta
	e.clampScroll()
	e.updateAtBottom()
}

// AtBottom reports whether the viewport is within tolerance of the
// true bottom.
func (e *Engine) AtBottom() bool { return e.atBottom }

// OnAtBottomChanged registers a change notification for the at-bottom
// flag. The callback fires only on transitions, never redundantly.
func (e *Engine) OnAtBottomChanged(fn func(bool)) { e.onAtBottom = fn }

// SetDegraded switches the engine into the unvirtualized fallback:
// Window always spans the full list and capture runs as a linear scan
// over item offsets. The public contract is unchanged.
func (e *Engine) SetDegraded() { e.degraded = true }

// Degraded reports whether the fallback mode is active.
func (e *Engine) Degraded() bool { return e.degraded }

// Window returns the relative index range [start, end) to materialize
// plus the padding, in lines, replacing the unrendered items above and
// below. In degraded mode the range covers everything.
func (e *Engine) Window() (start, end, padTop, padBottom int) {
	e.recompute()
	n := len(e.items)
	if n == 0 {
		return 0, 0, 0, 0
	}
	if e.degraded {
		return 0, n, 0, 0
	}

	lo := e.scrollTop - e.overscan
	hi := e.scrollTop + e.viewHeight + e.overscan
	if lo < 0 {
		lo = 0
	}

	start = e.indexAtLine(lo)
	end = e.indexAtLine(hi) + 1
	if end > n {
		end = n
	}
	padTop = e.offsets[start]
	padBottom = e.offsets[n] - e.offsets[end]
	return start, end, padTop, padBottom
}

// Capture reads the current position without mutating any state.
// Returns nil when no meaningful position exists.
func (e *Engine) Capture() *scrollstate.Position {
	if len(e.items) == 0 || e.viewHeight <= 0 {
		return nil
	}
	e.recompute()

	idx := e.topmostVisible()
	pos := scrollstate.Position{
		Index:     scrollstate.Int(idx),
		Offset:    scrollstate.Int(e.scrollTop - e.offsets[idx]),
		ScrollTop: scrollstate.Int(e.scrollTop),
		AtBottom:  e.atBottom,
	}
	return pos.Sanitize(len(e.items))
}

// Restore scrolls without animation to a previously captured position.
// Precedence when several fields are present: Index (+Offset) first,
// else ScrollTop, else AtBottom. Index is re-clamped against the
// current item count; restoring the same sanitized position twice is a
// no-op the second time.
func (e *Engine) Restore(pos *scrollstate.Position) {
	pos = pos.Sanitize(len(e.items))
	if pos == nil {
		return
	}
	e.recompute()

	switch {
	case pos.Index != nil:
		target := e.offsets[*pos.Index]
		if pos.Offset != nil {
			target += *pos.Offset
		}
		e.scrollTop = target
	case pos.ScrollTop != nil:
		e.scrollTop = *pos.ScrollTop
	case pos.AtBottom:
		e.scrollToBottomLocked()
	}
	e.clampScroll()
	e.updateAtBottom()
}

// ScrollTo moves the viewport so the item at loc.Index is visible with
// the requested alignment. A nil location is a no-op, never a panic.
func (e *Engine) ScrollTo(loc *Location) {
	if loc == nil || len(e.items) == 0 {
		return
	}
	e.recompute()

	idx := loc.Index
	if idx == LastItem || idx > len(e.items)-1 {
		idx = len(e.items) - 1
	}
	if idx < 0 {
		idx = 0
	}

	top := e.offsets[idx]
	h := e.heights[idx]
	switch loc.Align {
	case AlignStart:
		e.scrollTop = top
	case AlignCenter:
		e.scrollTop = top - (e.viewHeight-h)/2
	case AlignEnd:
		e.scrollTop = top + h - e.viewHeight
	}
	e.scrollTop += loc.OffsetLines
	e.clampScroll()
	e.updateAtBottom()
}

// recompute refreshes the height prefix sums when dirty.
func (e *Engine) recompute() {
	if !e.dirty && len(e.offsets) == len(e.items)+1 {
		return
	}
	n := len(e.items)
	if cap(e.heights) < n || cap(e.offsets) < n+1 {
		e.heights = make([]int, n)
		e.offsets = make([]int, n+1)
	}
	e.heights = e.heights[:n]
	e.offsets = e.offsets[:n+1]

	total := 0
	for i := 0; i < n; i++ {
		h := 1
		if e.measurer != nil {
			if mh := e.measurer.ItemHeight(i); mh > 0 {
				h = mh
			}
		}
		e.heights[i] = h
		e.offsets[i] = total
		total += h
	}
	e.offsets[n] = total
	e.dirty = false
}

// indexAtLine returns the index of the item containing the given line.
// Degraded capture uses a linear scan; the windowed path uses a binary
// search over the prefix sums.
func (e *Engine) indexAtLine(line int) int {
	n := len(e.items)
	if n == 0 {
		return 0
	}
	if line <= 0 {
		return 0
	}
	if line >= e.offsets[n] {
		return n - 1
	}
	if e.degraded {
		for i := 0; i < n; i++ {
			if e.offsets[i+1] > line {
				return i
			}
		}
		return n - 1
	}
	// First item whose end is past the line.
	return sort.Search(n, func(i int) bool { return e.offsets[i+1] > line })
}

func (e *Engine) topmostVisible() int {
	return e.indexAtLine(e.scrollTop)
}

func (e *Engine) maxScroll() int {
	m := e.ContentHeight() - e.viewHeight
	if m < 0 {
		m = 0
	}
	return m
}

func (e *Engine) clampScroll() {
	if e.scrollTop < 0 {
		e.scrollTop = 0
	}
	if m := e.maxScroll(); e.scrollTop > m {
		e.scrollTop = m
	}
}

func (e *Engine) scrollToBottomLocked() {
	e.scrollTop = e.maxScroll()
}

func (e *Engine) updateAtBottom() {
	at := e.maxScroll()-e.scrollTop <= e.tolerance
	if at != e.atBottom {
		e.atBottom = at
		if e.onAtBottom != nil {
			e.onAtBottom(at)
		}
	}
}
