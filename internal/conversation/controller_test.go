package conversation

import (
	"testing"

	"github.com/runlight/threadview/internal/scrollstate"
	"github.com/runlight/threadview/internal/windowlist"
)

// fakeSurface records scroll writes instead of rendering.
type fakeSurface struct {
	items         []windowlist.Item
	contentHeight int
	atBottom      bool

	restores  []*scrollstate.Position
	scrollTos []*windowlist.Location
}

func (f *fakeSurface) SetItems(items []windowlist.Item) { f.items = items }
func (f *fakeSurface) ItemCount() int                   { return len(f.items) }
func (f *fakeSurface) ContentHeight() int               { return f.contentHeight }
func (f *fakeSurface) AtBottom() bool                   { return f.atBottom }
func (f *fakeSurface) Restore(p *scrollstate.Position)  { f.restores = append(f.restores, p) }
func (f *fakeSurface) ScrollTo(l *windowlist.Location)  { f.scrollTos = append(f.scrollTos, l) }

func (f *fakeSurface) scrollWrites() int { return len(f.restores) + len(f.scrollTos) }

func items(n int) []windowlist.Item {
	out := make([]windowlist.Item, n)
	for i := range out {
		out[i] = windowlist.Item{Key: string(rune('a' + i))}
	}
	return out
}

// settle drives frames until no wait remains (the stabilizer default
// debounce is 3 unchanged observations).
func settle(c *Controller) {
	for i := 0; i < 10 && c.WaitPending(); i++ {
		c.OnFrame()
	}
}

func newTestController(f *fakeSurface) *Controller {
	return New(f, Options{StabilizerDebounceFrames: 2, StabilizerMaxChecks: 10})
}

func TestInitialScrollHappyPath(t *testing.T) {
	f := &fakeSurface{contentHeight: 0}
	c := newTestController(f)
	c.SetThread("t1", true)

	if c.State() != StateAwaitingHydration || !c.LoaderVisible() {
		t.Fatal("expected awaiting hydration with loader visible")
	}

	f.contentHeight = 40
	c.UpdateData(items(5), 8, false, true)
	if c.State() != StateInitialScrollPending {
		t.Fatalf("state = %v, want initial scroll pending", c.State())
	}
	if !c.LoaderVisible() {
		t.Fatal("loader must stay visible until the scroll lands")
	}

	settle(c)
	if len(f.scrollTos) != 1 {
		t.Fatalf("scroll writes = %d, want 1", len(f.scrollTos))
	}
	loc := f.scrollTos[0]
	if loc.Index != windowlist.LastItem || loc.Align != windowlist.AlignEnd {
		t.Errorf("initial scroll target = %+v, want last item bottom-aligned", loc)
	}

	// Loader holds until the viewport visually reaches the bottom.
	if !c.LoaderVisible() {
		t.Fatal("loader hidden before at-bottom was reported")
	}
	f.atBottom = true
	c.NotifyAtBottom(true)
	if c.State() != StateSettled || c.LoaderVisible() {
		t.Error("expected settled with loader hidden after at-bottom")
	}
}

func TestEmptyThreadSkipsScroll(t *testing.T) {
	f := &fakeSurface{}
	c := newTestController(f)
	c.SetThread("t1", true)

	c.UpdateData(items(1), 0, false, true) // spacer only, no messages
	if c.State() != StateSettled || c.LoaderVisible() {
		t.Fatal("empty hydrated thread should settle immediately")
	}
	if f.scrollWrites() != 0 {
		t.Errorf("scroll writes = %d, want 0", f.scrollWrites())
	}
}

func TestReopenedAwayFromBottomSkipsInitialScroll(t *testing.T) {
	f := &fakeSurface{contentHeight: 100}
	c := newTestController(f)
	c.SetThread("t1", false) // previously closed mid-history

	c.UpdateData(items(10), 20, false, true)
	if c.State() != StateSettled || c.LoaderVisible() {
		t.Fatal("expected settle without scrolling")
	}
	settle(c)
	if f.scrollWrites() != 0 {
		t.Errorf("scroll writes = %d, want 0", f.scrollWrites())
	}
}

func TestAutoFollowGating(t *testing.T) {
	t.Run("not at bottom: never scrolls", func(t *testing.T) {
		f := &fakeSurface{contentHeight: 100, atBottom: true}
		c := newTestController(f)
		c.SetThread("t1", true)
		c.UpdateData(items(5), 5, false, true)
		settle(c)
		c.NotifyAtBottom(true)
		f.scrollTos = nil

		f.atBottom = false
		c.UpdateData(items(6), 8, false, true)
		settle(c)
		if f.scrollWrites() != 0 {
			t.Errorf("scroll writes = %d, want 0 while reading history", f.scrollWrites())
		}
	})

	t.Run("at bottom: exactly one scroll write to the last item", func(t *testing.T) {
		f := &fakeSurface{contentHeight: 100, atBottom: true}
		c := newTestController(f)
		c.SetThread("t1", true)
		c.UpdateData(items(5), 5, false, true)
		settle(c)
		c.NotifyAtBottom(true)
		f.scrollTos = nil

		c.UpdateData(items(6), 8, false, true)
		settle(c)
		if len(f.scrollTos) != 1 {
			t.Fatalf("scroll writes = %d, want exactly 1", len(f.scrollTos))
		}
		if loc := f.scrollTos[0]; loc.Index != windowlist.LastItem {
			t.Errorf("auto-follow target = %+v, want last item", loc)
		}
	})

	t.Run("queue-only update never scrolls", func(t *testing.T) {
		f := &fakeSurface{contentHeight: 100, atBottom: true}
		c := newTestController(f)
		c.SetThread("t1", true)
		c.UpdateData(items(5), 5, false, true)
		settle(c)
		c.NotifyAtBottom(true)
		f.scrollTos = nil

		// Pending section appeared but the message count is unchanged.
		c.UpdateData(items(6), 5, true, true)
		settle(c)
		if f.scrollWrites() != 0 {
			t.Errorf("scroll writes = %d, want 0 for queue-only update", f.scrollWrites())
		}
	})

	t.Run("atBottomAtOpen=false gates follow even at live bottom", func(t *testing.T) {
		f := &fakeSurface{contentHeight: 100, atBottom: true}
		c := newTestController(f)
		c.SetThread("t1", false)
		c.UpdateData(items(5), 5, false, true)
		settle(c)

		// Viewer happens to be at the bottom right now, but the thread
		// was opened away from it.
		c.UpdateData(items(6), 8, false, true)
		settle(c)
		if f.scrollWrites() != 0 {
			t.Errorf("scroll writes = %d, want 0 when open-time flag is false", f.scrollWrites())
		}
	})
}

func TestRestoreWaitsForItemsAndStabilization(t *testing.T) {
	f := &fakeSurface{contentHeight: 0}
	c := newTestController(f)
	c.SetThread("t1", true)

	pos := &scrollstate.Position{Index: scrollstate.Int(5), Offset: scrollstate.Int(12)}
	c.RequestRestore(pos, false)
	if !c.RestorePending() {
		t.Fatal("expected restore pending")
	}
	if c.LoaderVisible() {
		t.Fatal("silent restore must suppress the loader")
	}

	// No items yet: frames pass, nothing applies.
	c.OnFrame()
	c.OnFrame()
	c.OnFrame()
	if len(f.restores) != 0 {
		t.Fatal("restore applied before items were present")
	}

	f.items = items(10)
	f.contentHeight = 80
	settle(c)
	if len(f.restores) != 1 {
		t.Fatalf("restores = %d, want 1", len(f.restores))
	}
	got := f.restores[0]
	if got == nil || *got.Index != 5 || *got.Offset != 12 {
		t.Errorf("restored %+v, want index 5 offset 12", got)
	}
	if c.State() != StateSettled || c.RestorePending() || c.LoaderVisible() {
		t.Error("expected settled, restore cleared, loader hidden")
	}
}

func TestRestoreSupersededByNewerRequest(t *testing.T) {
	f := &fakeSurface{contentHeight: 50, items: items(10)}
	c := newTestController(f)
	c.SetThread("t1", true)

	c.RequestRestore(&scrollstate.Position{Index: scrollstate.Int(2)}, false)
	c.OnFrame() // wait in flight

	c.RequestRestore(&scrollstate.Position{Index: scrollstate.Int(7)}, false)
	settle(c)

	if len(f.restores) != 1 {
		t.Fatalf("restores = %d, want 1 (old wait discarded)", len(f.restores))
	}
	if *f.restores[0].Index != 7 {
		t.Errorf("restored index %d, want the newer request's 7", *f.restores[0].Index)
	}
}

func TestThreadSwitchResetsState(t *testing.T) {
	f := &fakeSurface{contentHeight: 100, atBottom: true}
	c := newTestController(f)
	c.SetThread("a", true)
	c.UpdateData(items(5), 50, false, true)
	settle(c)
	c.NotifyAtBottom(true)
	f.scrollTos = nil

	// Switch identities; thread b has fewer messages. If the message
	// counter leaked from a, this would read as shrinkage; if reset, b
	// hydrates fresh.
	c.SetThread("b", true)
	if c.State() != StateAwaitingHydration {
		t.Fatal("thread switch should reset to awaiting hydration")
	}
	c.UpdateData(items(3), 2, false, true)
	if c.State() != StateInitialScrollPending {
		t.Fatalf("state = %v, want initial scroll for thread b", c.State())
	}
	settle(c)
	if len(f.scrollTos) != 1 {
		t.Errorf("scroll writes = %d, want 1 initial scroll for b", len(f.scrollTos))
	}
}

func TestCloseInvalidatesWaits(t *testing.T) {
	f := &fakeSurface{contentHeight: 50, items: items(5)}
	c := newTestController(f)
	c.SetThread("t1", true)
	c.RequestRestore(&scrollstate.Position{AtBottom: true}, false)
	c.OnFrame()

	c.Close()
	for i := 0; i < 10; i++ {
		c.OnFrame()
	}
	if f.scrollWrites() != 0 {
		t.Errorf("scroll writes after close = %d, want 0", f.scrollWrites())
	}
}

func TestMalformedRestoreIsIgnored(t *testing.T) {
	f := &fakeSurface{contentHeight: 50, items: items(5)}
	c := newTestController(f)
	c.SetThread("t1", true)

	c.RequestRestore(nil, true)
	c.RequestRestore(&scrollstate.Position{Offset: scrollstate.Int(3)}, true) // offset without index
	settle(c)

	if c.RestorePending() {
		t.Error("malformed input should not enter restore pending")
	}
	if f.scrollWrites() != 0 {
		t.Errorf("scroll writes = %d, want 0", f.scrollWrites())
	}
}

func TestSettlesAgainstRealEngineWhenContentFits(t *testing.T) {
	e := windowlist.New(nil, windowlist.Options{})
	e.SetViewHeight(10)

	c := New(e, Options{StabilizerDebounceFrames: 2, StabilizerMaxChecks: 10})
	e.OnAtBottomChanged(c.NotifyAtBottom)

	c.SetThread("t1", true)
	c.UpdateData(items(3), 3, false, true)

	// Three one-line items in a ten-line viewport: the view is at the
	// bottom from the start and no at-bottom transition ever fires.
	for i := 0; i < 50 && c.WaitPending(); i++ {
		c.OnFrame()
	}

	if c.State() != StateSettled {
		t.Fatalf("state = %d, want StateSettled", c.State())
	}
	if c.LoaderVisible() {
		t.Fatal("loader still visible after initial scroll landed")
	}

	// Steady state: growth while at the bottom auto-follows.
	c.UpdateData(items(4), 4, false, true)
	if !c.WaitPending() {
		t.Fatal("auto-follow wait not scheduled after settling")
	}
}
