package windowlist

import (
	"fmt"
	"testing"

	"github.com/runlight/threadview/internal/scrollstate"
)

// fixedMeasurer assigns every item the same height.
type fixedMeasurer struct {
	height int
}

func (m fixedMeasurer) ItemHeight(int) int { return m.height }

// variableMeasurer returns per-index heights.
type variableMeasurer struct {
	heights []int
}

func (m variableMeasurer) ItemHeight(rel int) int {
	if rel < len(m.heights) {
		return m.heights[rel]
	}
	return 1
}

func keys(prefix string, n int) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{Key: fmt.Sprintf("%s-%d", prefix, i)}
	}
	return items
}

func TestLogicalIndexStableUnderPrepend(t *testing.T) {
	e := New(fixedMeasurer{height: 2}, Options{})
	e.SetViewHeight(10)

	base := keys("run", 5)
	e.SetItems(base)

	// Remember where item "run-0" lives in logical space.
	logical := e.LogicalIndex(0)

	// Prepend in several batches of different sizes.
	items := base
	for _, k := range []int{1, 3, 7} {
		older := keys(fmt.Sprintf("old%d", k), k)
		items = append(append([]Item{}, older...), items...)
		e.SetItems(items)

		rel, ok := e.RelativeIndex(logical)
		if !ok {
			t.Fatalf("after prepend of %d: logical index %d not resolvable", k, logical)
		}
		if items[rel].Key != "run-0" {
			t.Fatalf("after prepend of %d: logical index %d resolves to %q, want run-0", k, logical, items[rel].Key)
		}
	}
}

func TestPrependKeepsVisibleWindowAnchored(t *testing.T) {
	e := New(fixedMeasurer{height: 3}, Options{})
	e.SetViewHeight(6)

	items := keys("run", 10)
	e.SetItems(items)
	e.Restore(&scrollstate.Position{Index: scrollstate.Int(4), Offset: scrollstate.Int(1)})

	before := e.Capture()
	if before == nil || *before.Index != 4 || *before.Offset != 1 {
		t.Fatalf("setup capture unexpected: %+v", before)
	}

	older := keys("old", 6)
	e.SetItems(append(append([]Item{}, older...), items...))

	after := e.Capture()
	if after == nil {
		t.Fatal("capture after prepend returned nil")
	}
	// Same item (now shifted by 6 relative positions), same offset into it.
	if *after.Index != 10 || *after.Offset != 1 {
		t.Errorf("window drifted after prepend: got index=%d offset=%d, want 10/1",
			*after.Index, *after.Offset)
	}
}

func TestAppendDoesNotShiftBaseOffset(t *testing.T) {
	e := New(fixedMeasurer{height: 1}, Options{})
	e.SetViewHeight(5)

	e.SetItems(keys("run", 3))
	logical := e.LogicalIndex(0)

	e.SetItems(keys("run", 8)) // same first key, pure growth

	rel, ok := e.RelativeIndex(logical)
	if !ok || rel != 0 {
		t.Errorf("append moved item 0: rel=%d ok=%v", rel, ok)
	}
}

func TestCaptureNilWhenEmptyOrUnmeasured(t *testing.T) {
	e := New(fixedMeasurer{height: 1}, Options{})
	if e.Capture() != nil {
		t.Error("capture with no items should be nil")
	}

	e.SetItems(keys("run", 3))
	// View height never set: no meaningful position yet.
	if e.Capture() != nil {
		t.Error("capture before viewport measurement should be nil")
	}
}

func TestRestorePrecedence(t *testing.T) {
	m := fixedMeasurer{height: 4}

	t.Run("index wins over scrollTop", func(t *testing.T) {
		e := New(m, Options{})
		e.SetViewHeight(8)
		e.SetItems(keys("run", 20))
		e.Restore(&scrollstate.Position{
			Index:     scrollstate.Int(5),
			Offset:    scrollstate.Int(2),
			ScrollTop: scrollstate.Int(63),
		})
		if got := e.ScrollTop(); got != 5*4+2 {
			t.Errorf("scrollTop = %d, want %d", got, 5*4+2)
		}
	})

	t.Run("scrollTop wins over atBottom", func(t *testing.T) {
		e := New(m, Options{})
		e.SetViewHeight(8)
		e.SetItems(keys("run", 20))
		e.Restore(&scrollstate.Position{ScrollTop: scrollstate.Int(12), AtBottom: true})
		if got := e.ScrollTop(); got != 12 {
			t.Errorf("scrollTop = %d, want 12", got)
		}
	})

	t.Run("atBottom alone scrolls to end", func(t *testing.T) {
		e := New(m, Options{})
		e.SetViewHeight(8)
		e.SetItems(keys("run", 20))
		e.Restore(&scrollstate.Position{AtBottom: true})
		if got, want := e.ScrollTop(), 20*4-8; got != want {
			t.Errorf("scrollTop = %d, want %d", got, want)
		}
		if !e.AtBottom() {
			t.Error("expected at-bottom after restore")
		}
	})

	t.Run("index reclamped against shrunken list", func(t *testing.T) {
		e := New(m, Options{})
		e.SetViewHeight(8)
		e.SetItems(keys("run", 4))
		e.Restore(&scrollstate.Position{Index: scrollstate.Int(50)})
		if got, want := e.ScrollTop(), 4*4-8; got != want {
			t.Errorf("scrollTop = %d, want clamp to %d", got, want)
		}
	})
}

func TestRestoreIdempotent(t *testing.T) {
	e := New(variableMeasurer{heights: []int{3, 1, 5, 2, 4, 1, 1, 6}}, Options{})
	e.SetViewHeight(7)
	e.SetItems(keys("run", 8))

	pos := &scrollstate.Position{Index: scrollstate.Int(3), Offset: scrollstate.Int(1)}
	e.Restore(pos)
	first := e.ScrollTop()
	e.Restore(pos)
	if e.ScrollTop() != first {
		t.Errorf("second restore moved the viewport: %d vs %d", e.ScrollTop(), first)
	}
}

func TestScrollToAlignment(t *testing.T) {
	e := New(fixedMeasurer{height: 2}, Options{})
	e.SetViewHeight(10)
	e.SetItems(keys("run", 50))

	e.ScrollTo(&Location{Index: 20, Align: AlignStart})
	if got := e.ScrollTop(); got != 40 {
		t.Errorf("start align scrollTop = %d, want 40", got)
	}

	e.ScrollTo(&Location{Index: 20, Align: AlignEnd})
	if got := e.ScrollTop(); got != 40+2-10 {
		t.Errorf("end align scrollTop = %d, want %d", got, 32)
	}

	e.ScrollTo(&Location{Index: 20, Align: AlignCenter})
	if got := e.ScrollTop(); got != 40-(10-2)/2 {
		t.Errorf("center align scrollTop = %d, want %d", got, 36)
	}

	e.ScrollTo(&Location{Index: LastItem, Align: AlignEnd})
	if !e.AtBottom() {
		t.Error("scroll to last item end-aligned should land at bottom")
	}

	// Absent location must be a no-op, not a panic.
	before := e.ScrollTop()
	e.ScrollTo(nil)
	if e.ScrollTop() != before {
		t.Error("nil location moved the viewport")
	}
}

func TestAtBottomNotification(t *testing.T) {
	e := New(fixedMeasurer{height: 1}, Options{})

	var transitions []bool
	e.OnAtBottomChanged(func(at bool) { transitions = append(transitions, at) })

	e.SetViewHeight(5)
	e.SetItems(keys("run", 30))
	// Content now exceeds the viewport and we are pinned at the top.
	if e.AtBottom() {
		t.Fatal("expected not at bottom after overflow")
	}

	e.ScrollTo(&Location{Index: LastItem, Align: AlignEnd})
	if !e.AtBottom() {
		t.Fatal("expected at bottom")
	}

	e.ScrollLines(-10)
	if e.AtBottom() {
		t.Fatal("expected not at bottom after scrolling up")
	}

	want := []bool{false, true, false}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", transitions, want)
		}
	}
}

func TestWindowCoversViewportPlusOverscan(t *testing.T) {
	e := New(fixedMeasurer{height: 2}, Options{OverscanLines: 4})
	e.SetViewHeight(10)
	e.SetItems(keys("run", 100))

	e.Restore(&scrollstate.Position{ScrollTop: scrollstate.Int(50)})

	start, end, padTop, padBottom := e.Window()
	if start != 23 { // (50-4)/2
		t.Errorf("window start = %d, want 23", start)
	}
	if end != 33 { // item containing line 63, inclusive
		t.Errorf("window end = %d, want 33", end)
	}
	if padTop != 46 {
		t.Errorf("padTop = %d, want 46", padTop)
	}
	if padBottom != 200-66 {
		t.Errorf("padBottom = %d, want %d", padBottom, 134)
	}

	// Padding plus window heights must reconstruct the full content.
	if padTop+(end-start)*2+padBottom != e.ContentHeight() {
		t.Error("window does not partition the content height")
	}
}

func TestDegradedModeSameContract(t *testing.T) {
	e := New(variableMeasurer{heights: []int{2, 3, 1, 4, 2, 2, 5, 1, 3, 2}}, Options{})
	e.SetViewHeight(6)
	e.SetItems(keys("run", 10))
	e.SetDegraded()

	start, end, padTop, padBottom := e.Window()
	if start != 0 || end != 10 || padTop != 0 || padBottom != 0 {
		t.Errorf("degraded window should span everything, got %d..%d pads %d/%d",
			start, end, padTop, padBottom)
	}

	pos := &scrollstate.Position{Index: scrollstate.Int(4), Offset: scrollstate.Int(1)}
	e.Restore(pos)
	got := e.Capture()
	if got == nil || *got.Index != 4 || *got.Offset != 1 {
		t.Errorf("degraded capture/restore round trip broken: %+v", got)
	}
}

func TestEmptyListWindow(t *testing.T) {
	e := New(fixedMeasurer{height: 1}, Options{})
	e.SetViewHeight(10)
	e.SetItems(nil)

	start, end, padTop, padBottom := e.Window()
	if start != 0 || end != 0 || padTop != 0 || padBottom != 0 {
		t.Error("empty list should produce an empty window")
	}
	if e.ContentHeight() != 0 {
		t.Error("empty list should have zero content height")
	}
}

func TestViewHeightBeforeItems(t *testing.T) {
	e := New(nil, Options{})

	// The first terminal size arrives before any data does.
	e.SetViewHeight(20)

	if e.ContentHeight() != 0 {
		t.Errorf("content height = %d, want 0", e.ContentHeight())
	}
	if got := e.Capture(); got != nil {
		t.Errorf("capture with no items = %+v, want nil", got)
	}
	start, end, _, _ := e.Window()
	if start != 0 || end != 0 {
		t.Errorf("window = [%d,%d), want empty", start, end)
	}
}
