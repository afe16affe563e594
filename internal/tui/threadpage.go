package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/runlight/threadview/internal/config"
	"github.com/runlight/threadview/internal/conversation"
	"github.com/runlight/threadview/internal/feed"
	"github.com/runlight/threadview/internal/i18n"
	"github.com/runlight/threadview/internal/scrollstate"
	"github.com/runlight/threadview/internal/thread"
	"github.com/runlight/threadview/internal/tuilog"
	"github.com/runlight/threadview/internal/windowlist"
)

// lineRenderer measures and materializes transcript items for the
// page. itemRenderer is the production implementation.
type lineRenderer interface {
	windowlist.Measurer
	SetWidth(w int) bool
	Lines(rel int) []string
}

// ThreadPage is the conversation view for one thread. Pages stay
// mounted while hidden so a revisited thread re-renders instantly;
// the shell routes thread-scoped messages here by id.
type ThreadPage struct {
	threadID string
	title    string

	tl       *thread.Timeline
	renderer lineRenderer
	engine   *windowlist.Engine
	ctrl     *conversation.Controller

	client *feed.Client
	wsURL  string
	token  string
	cancel context.CancelFunc

	// Local replay: events come from a JSONL file instead of the
	// server, so thread-id filtering and history paging are off.
	local     bool
	localPath string

	width  int
	height int
	ready  bool
	keys   viewerKeyMap

	streamLost     bool
	historyLoading bool
	historyDone    bool
}

const (
	historyPageRuns = 20

	// localThreadID names the single synthetic thread a replay file
	// is shown under.
	localThreadID = "local"
)

// NewThreadPage builds a page wired to the backend for one thread.
func NewThreadPage(threadID, title string, client *feed.Client, wsURL, token string, vcfg config.ViewerConfig) *ThreadPage {
	tl := thread.NewTimeline()
	renderer := newItemRenderer(tl)
	engine := windowlist.New(renderer, windowlist.Options{
		BottomToleranceLines: vcfg.BottomToleranceLines,
		OverscanLines:        vcfg.OverscanLines,
	})
	ctrl := conversation.New(engine, conversation.Options{
		StabilizerDebounceFrames: vcfg.StabilizerDebounceFrames,
		StabilizerMaxChecks:      vcfg.StabilizerMaxChecks,
	})
	engine.OnAtBottomChanged(ctrl.NotifyAtBottom)

	return &ThreadPage{
		threadID: threadID,
		title:    title,
		tl:       tl,
		renderer: renderer,
		engine:   engine,
		ctrl:     ctrl,
		client:   client,
		wsURL:    wsURL,
		token:    token,
		keys:     defaultViewerKeyMap(),
	}
}

// NewLocalThreadPage builds a page that replays a JSONL event file:
// existing events hydrate the transcript, appended lines stream in.
func NewLocalThreadPage(path string, vcfg config.ViewerConfig) *ThreadPage {
	p := NewThreadPage(localThreadID, filepath.Base(path), nil, "", "", vcfg)
	p.local = true
	p.localPath = path
	return p
}

// Open (re)activates the page for viewing. atBottomAtOpen decides
// whether the initial scroll pins to the end.
func (p *ThreadPage) Open(atBottomAtOpen bool) {
	p.ctrl.SetThread(p.threadID, atBottomAtOpen)
	if p.tl.Hydrated() {
		p.pushData()
	}
}

// ThreadID returns the page's thread id.
func (p *ThreadPage) ThreadID() string { return p.threadID }

// Title returns the current thread title.
func (p *ThreadPage) Title() string { return p.title }

// Hydrated reports whether the snapshot has loaded.
func (p *ThreadPage) Hydrated() bool { return p.tl.Hydrated() }

// CaptureScrollState reads the current position for the session cache.
func (p *ThreadPage) CaptureScrollState() *scrollstate.Position {
	return p.engine.Capture()
}

// RestoreScrollState queues a cached position for application.
func (p *ThreadPage) RestoreScrollState(pos *scrollstate.Position, showLoader bool) {
	p.ctrl.RequestRestore(pos, showLoader)
}

// IsAtBottom reports whether the view is pinned to the end.
func (p *ThreadPage) IsAtBottom() bool { return p.engine.AtBottom() }

// Close cancels the stream and invalidates pending scroll work.
func (p *ThreadPage) Close() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.ctrl.Close()
}

func (p *ThreadPage) Init() tea.Cmd {
	tuilog.Log.Info("ThreadPage.Init", "thread_id", p.threadID)
	if p.local {
		return tea.Batch(p.loadLocal(), p.tailLocal())
	}
	return tea.Batch(p.hydrate(), p.connectStream())
}

func (p *ThreadPage) loadLocal() tea.Cmd {
	threadID := p.threadID
	path := p.localPath
	return func() tea.Msg {
		events, err := feed.ReadLocal(path)
		return localLoadedMsg{threadID: threadID, events: events, err: err}
	}
}

func (p *ThreadPage) tailLocal() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel

		ch, err := feed.TailLocal(ctx, p.localPath)
		if err != nil {
			tuilog.Log.Error("ThreadPage: local tail failed", "path", p.localPath, "error", err)
			return streamClosedMsg{threadID: p.threadID}
		}
		return streamStartedMsg{threadID: p.threadID, ch: ch}
	}
}

func (p *ThreadPage) hydrate() tea.Cmd {
	threadID := p.threadID
	client := p.client
	return func() tea.Msg {
		snap, err := client.GetThread(context.Background(), threadID)
		return snapshotLoadedMsg{threadID: threadID, snap: snap, err: err}
	}
}

func (p *ThreadPage) connectStream() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel

		url := fmt.Sprintf("%s/v1/threads/%s/events", p.wsURL, p.threadID)
		ch, err := feed.Stream(ctx, url, p.token, p.threadID)
		if err != nil {
			tuilog.Log.Error("ThreadPage: stream connect failed", "thread_id", p.threadID, "error", err)
			return streamClosedMsg{threadID: p.threadID}
		}
		return streamStartedMsg{threadID: p.threadID, ch: ch}
	}
}

func waitForEvent(threadID string, ch <-chan feed.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return streamClosedMsg{threadID: threadID}
		}
		return streamEventMsg{ev: ev, ch: ch}
	}
}

func (p *ThreadPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case snapshotLoadedMsg:
		if msg.threadID != p.threadID {
			return p, nil
		}
		if msg.err != nil {
			tuilog.Log.Error("ThreadPage: hydration failed", "thread_id", p.threadID, "error", msg.err)
			return p, nil
		}
		tuilog.Log.Info("ThreadPage: hydrated", "thread_id", p.threadID, "runs", len(msg.snap.Runs))
		if msg.snap.Meta.Title != "" {
			p.title = msg.snap.Meta.Title
		}
		p.tl.Hydrate(*msg.snap)
		p.pushData()

	case streamStartedMsg:
		if msg.threadID != p.threadID {
			return p, nil
		}
		p.streamLost = false
		cmds = append(cmds, waitForEvent(p.threadID, msg.ch))

	case localLoadedMsg:
		if msg.threadID != p.threadID {
			return p, nil
		}
		if msg.err != nil {
			tuilog.Log.Error("ThreadPage: local replay failed", "path", p.localPath, "error", msg.err)
			return p, nil
		}
		p.tl.Hydrate(thread.Snapshot{Meta: thread.Meta{ID: p.threadID, Title: p.title}})
		for _, ev := range msg.events {
			p.applyEvent(ev)
		}
		p.pushData()

	case streamEventMsg:
		if msg.ev.ThreadID == p.threadID || p.local {
			if cmd := p.applyEvent(msg.ev); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
		cmds = append(cmds, waitForEvent(p.threadID, msg.ch))

	case streamClosedMsg:
		if msg.threadID == p.threadID {
			p.streamLost = true
		}

	case frameMsg:
		p.ctrl.OnFrame()

	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		p.ready = true
		if p.renderer.SetWidth(p.width - 2) {
			p.engine.InvalidateHeights()
		}
		p.engine.SetViewHeight(p.contentHeight())

	case historyLoadedMsg:
		if msg.threadID != p.threadID {
			return p, nil
		}
		p.historyLoading = false
		if msg.err != nil {
			tuilog.Log.Warn("ThreadPage: history load failed", "thread_id", p.threadID, "error", msg.err)
			return p, nil
		}
		if len(msg.runs) == 0 {
			p.historyDone = true
			return p, nil
		}
		if p.tl.PrependHistory(msg.runs) > 0 {
			p.pushData()
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, p.keys.Up):
			p.engine.ScrollLines(-1)
			cmds = append(cmds, p.maybeLoadHistory())
		case key.Matches(msg, p.keys.Down):
			p.engine.ScrollLines(1)
		case key.Matches(msg, p.keys.PgUp):
			p.engine.ScrollLines(-p.contentHeight())
			cmds = append(cmds, p.maybeLoadHistory())
		case key.Matches(msg, p.keys.PgDown):
			p.engine.ScrollLines(p.contentHeight())
		case key.Matches(msg, p.keys.Home):
			p.engine.ScrollTo(&windowlist.Location{Index: 0, Align: windowlist.AlignStart})
			cmds = append(cmds, p.maybeLoadHistory())
		case key.Matches(msg, p.keys.End):
			p.engine.ScrollTo(&windowlist.Location{Index: windowlist.LastItem, Align: windowlist.AlignEnd})
		case key.Matches(msg, p.keys.Back):
			return p, func() tea.Msg { return PopPageMsg{} }
		}
	}

	return p, tea.Batch(cmds...)
}

// maybeLoadHistory pages in older runs when the user has scrolled to
// the very top. The engine absorbs the prepend without moving the
// visible window.
func (p *ThreadPage) maybeLoadHistory() tea.Cmd {
	if p.local || p.historyLoading || p.historyDone || !p.tl.Hydrated() {
		return nil
	}
	if p.engine.ScrollTop() > 0 || p.tl.RunCount() == 0 {
		return nil
	}
	oldest := p.tl.Runs()[0].ID
	p.historyLoading = true

	threadID := p.threadID
	client := p.client
	return func() tea.Msg {
		runs, err := client.GetHistory(context.Background(), threadID, oldest, historyPageRuns)
		return historyLoadedMsg{threadID: threadID, runs: runs, err: err}
	}
}

// applyEvent folds one stream event into the timeline and refeeds the
// engine when anything changed. A reconnect notice triggers a full
// re-hydration because deltas may have been missed.
func (p *ThreadPage) applyEvent(ev feed.Event) tea.Cmd {
	changed := false
	switch ev.Type {
	case feed.EventMessageCreated:
		if ev.Message != nil {
			changed = p.tl.ApplyMessage(*ev.Message)
		}
	case feed.EventRunStatusChanged:
		changed = p.tl.ApplyRunStatus(ev.RunID, ev.RunStatus)
	case feed.EventQueueChanged:
		p.tl.SetQueued(ev.Queued)
		changed = true
	case feed.EventRemindersChanged:
		p.tl.SetReminders(ev.Reminders)
		changed = true
	case feed.EventThreadRenamed:
		p.title = ev.Title
	case feed.EventReconnected:
		p.streamLost = false
		if p.local {
			return nil
		}
		tuilog.Log.Info("ThreadPage: reconnected, re-hydrating", "thread_id", p.threadID)
		return p.hydrate()
	}

	if changed {
		p.pushData()
	}
	return nil
}

// pushData feeds the flattened items into the scroll controller.
func (p *ThreadPage) pushData() {
	p.engine.InvalidateHeights()
	p.ctrl.UpdateData(p.tl.Items(), p.tl.MessageCount(), p.tl.HasPendingSection(), p.tl.Hydrated())
}

// WaitPending reports whether the page needs coordinator frames.
func (p *ThreadPage) WaitPending() bool { return p.ctrl.WaitPending() }

func (p *ThreadPage) contentHeight() int {
	h := p.height - 4
	if h < 1 {
		h = 1
	}
	return h
}

// renderContent wraps visibleContent in a panic boundary. Markdown
// rendering runs arbitrary third-party code over arbitrary message
// bytes; if it blows up, the engine drops to its unvirtualized
// fallback and the frame is retried once before giving up.
func (p *ThreadPage) renderContent() (out string) {
	defer func() {
		if r := recover(); r != nil {
			tuilog.Log.Error("ThreadPage: render panic", "thread_id", p.threadID, "panic", r)
			out = p.renderFallback()
		}
	}()
	return p.visibleContent()
}

func (p *ThreadPage) renderFallback() (out string) {
	p.engine.SetDegraded()
	defer func() {
		if r := recover(); r != nil {
			tuilog.Log.Error("ThreadPage: fallback render panic", "thread_id", p.threadID, "panic", r)
			out = loaderStyle.Render(i18n.T("tui.thread.renderfail", "Unable to render transcript"))
		}
	}()
	return p.visibleContent()
}

// visibleContent assembles the windowed slice of the transcript: only
// the items the engine asks to materialize are rendered, and only the
// viewport's lines of those are returned.
func (p *ThreadPage) visibleContent() string {
	start, end, padTop, _ := p.engine.Window()
	if end <= start {
		return loaderStyle.Render(i18n.T("tui.thread.empty", "No messages yet"))
	}

	var lines []string
	for i := start; i < end; i++ {
		lines = append(lines, p.renderer.Lines(i)...)
	}

	off := p.engine.ScrollTop() - padTop
	if off < 0 {
		off = 0
	}
	if off > len(lines) {
		off = len(lines)
	}
	hi := off + p.contentHeight()
	if hi > len(lines) {
		hi = len(lines)
	}
	visible := lines[off:hi]

	for len(visible) < p.contentHeight() {
		visible = append(visible, "")
	}
	return strings.Join(visible, "\n")
}

func (p *ThreadPage) View() tea.View {
	if !p.ready {
		v := tea.NewView(i18n.T("tui.loading", "Loading..."))
		v.AltScreen = true
		return v
	}

	title := titleStyle.Render(p.title)
	status := ""
	switch {
	case p.ctrl.LoaderVisible():
		status = loaderStyle.Render("  " + i18n.T("tui.loading", "Loading..."))
	case p.streamLost:
		status = runFailedStyle.Render("  " + i18n.T("tui.thread.disconnected", "Connection lost, retrying..."))
	case p.engine.AtBottom():
		status = infoStyle.Render("  live")
	}
	header := title + status

	var content string
	if p.ctrl.LoaderVisible() && p.engine.ItemCount() == 0 {
		content = loaderStyle.Render(i18n.T("tui.loading", "Loading..."))
	} else {
		content = p.renderContent()
	}

	position := ""
	if total := p.engine.ContentHeight(); total > 0 {
		pct := float64(p.engine.ScrollTop()+p.contentHeight()) / float64(total) * 100
		if pct > 100 {
			pct = 100
		}
		position = infoStyle.Render(fmt.Sprintf("%3.0f%%", pct))
	}
	help := helpStyle.Render("↑/↓: scroll • g/G: top/bottom • tab: next thread • esc: back • q: quit")
	footerWidth := p.width - lipgloss.Width(position) - 2
	if footerWidth < 0 {
		footerWidth = 0
	}
	footer := help + lipgloss.NewStyle().Width(footerWidth).Align(lipgloss.Right).Render(position)

	v := tea.NewView(header + "\n\n" + content + "\n" + footer)
	v.AltScreen = true
	return v
}
