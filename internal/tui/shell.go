package tui

import (
	"context"
	"time"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"

	"github.com/runlight/threadview/internal/config"
	"github.com/runlight/threadview/internal/feed"
	"github.com/runlight/threadview/internal/i18n"
	"github.com/runlight/threadview/internal/sessioncache"
	"github.com/runlight/threadview/internal/statestore"
	"github.com/runlight/threadview/internal/thread"
	"github.com/runlight/threadview/internal/tuilog"
)

const frameInterval = time.Second / 30

// Shell is the main TUI container: the thread list plus every mounted
// thread page. Pages for recently viewed threads stay alive in the
// session cache so switching back is instant and keeps the reading
// position.
type Shell struct {
	width  int
	height int

	cfg    config.Config
	client *feed.Client
	cache  *sessioncache.Cache
	store  *statestore.Store

	list      *ThreadList
	pages     map[string]*ThreadPage
	order     []string
	active    string
	loading   bool
	localPath string
	keys      viewerKeyMap
}

// NewShell creates the shell. store may be nil to disable persistence.
func NewShell(cfg config.Config, store *statestore.Store) *Shell {
	cache := sessioncache.New(cfg.Viewer.CacheCapacity)
	if store != nil {
		cache.SetPersister(store)
	}
	return &Shell{
		cfg:     cfg,
		client:  feed.NewClient(cfg.Server.BaseURL, cfg.Server.Token),
		cache:   cache,
		store:   store,
		list:    NewThreadList(),
		pages:   make(map[string]*ThreadPage),
		loading: true,
		keys:    defaultViewerKeyMap(),
	}
}

// NewLocalShell creates a shell that replays a single JSONL event file
// instead of talking to a server. There is no thread list and no
// persistence; quitting the page quits the program.
func NewLocalShell(cfg config.Config, path string) *Shell {
	return &Shell{
		cfg:       cfg,
		cache:     sessioncache.New(cfg.Viewer.CacheCapacity),
		list:      NewThreadList(),
		pages:     make(map[string]*ThreadPage),
		localPath: path,
		keys:      defaultViewerKeyMap(),
	}
}

func frameTick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (s *Shell) Init() tea.Cmd {
	tuilog.Log.Info("Shell.Init: starting")
	if s.localPath != "" {
		return tea.Batch(s.openLocal(), frameTick())
	}
	return tea.Batch(s.loadThreads(), frameTick())
}

// openLocal mounts the single file-backed page and makes it active.
func (s *Shell) openLocal() tea.Cmd {
	page := NewLocalThreadPage(s.localPath, s.cfg.Viewer)
	s.pages[localThreadID] = page
	s.cache.RegisterHandle(localThreadID, page)
	s.cache.SwitchTo(localThreadID)
	s.cache.Activate(localThreadID, nil, nil, nil, false)
	page.Open(true)
	s.active = localThreadID
	s.order = []string{localThreadID}
	return page.Init()
}

func (s *Shell) loadThreads() tea.Cmd {
	client := s.client
	return func() tea.Msg {
		threads, err := client.ListThreads(context.Background())
		return threadsLoadedMsg{threads: threads, err: err}
	}
}

func (s *Shell) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.list.Update(msg)
		// Hidden pages keep receiving sizes so their engines stay
		// consistent for capture.
		for _, page := range s.pages {
			page.Update(msg)
		}
		return s, nil

	case threadsLoadedMsg:
		s.loading = false
		if msg.err != nil {
			tuilog.Log.Error("Shell: thread list load failed", "error", msg.err)
			return s, nil
		}
		s.list.SetThreads(msg.threads)
		s.order = s.order[:0]
		for _, t := range msg.threads {
			s.order = append(s.order, t.ID)
		}
		return s, nil

	case threadSelectedMsg:
		return s, s.openThread(msg.meta)

	case frameMsg:
		for _, page := range s.pages {
			page.Update(msg)
		}
		s.cache.Tick()
		return s, frameTick()

	case PopPageMsg:
		if s.localPath != "" {
			// No list to fall back to in replay mode.
			return s, tea.Quit
		}
		if s.active != "" {
			s.cache.CaptureNow(s.active)
			s.active = ""
		}
		return s, nil

	case localLoadedMsg:
		if page, ok := s.pages[msg.threadID]; ok {
			_, cmd := page.Update(msg)
			cmds = append(cmds, cmd)
		}
		return s, tea.Batch(cmds...)

	case snapshotLoadedMsg:
		if page, ok := s.pages[msg.threadID]; ok {
			_, cmd := page.Update(msg)
			cmds = append(cmds, cmd)
		}
		return s, tea.Batch(cmds...)

	case historyLoadedMsg:
		if page, ok := s.pages[msg.threadID]; ok {
			_, cmd := page.Update(msg)
			cmds = append(cmds, cmd)
		}
		return s, tea.Batch(cmds...)

	case streamStartedMsg:
		if page, ok := s.pages[msg.threadID]; ok {
			_, cmd := page.Update(msg)
			cmds = append(cmds, cmd)
		}
		return s, tea.Batch(cmds...)

	case streamClosedMsg:
		if page, ok := s.pages[msg.threadID]; ok {
			_, cmd := page.Update(msg)
			cmds = append(cmds, cmd)
		}
		return s, tea.Batch(cmds...)

	case streamEventMsg:
		// Events route to the owning page even while it is hidden, so
		// background threads keep accumulating content.
		if page, ok := s.pages[msg.ev.ThreadID]; ok {
			_, cmd := page.Update(msg)
			cmds = append(cmds, cmd)
		} else if s.localPath != "" {
			// Replayed files carry whatever thread id the recorder
			// wrote; the single local page takes them all.
			if page, ok := s.pages[localThreadID]; ok {
				_, cmd := page.Update(msg)
				cmds = append(cmds, cmd)
			}
		}
		return s, tea.Batch(cmds...)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, s.keys.Quit):
			if s.active != "" {
				s.cache.CaptureNow(s.active)
			}
			return s, tea.Quit
		case key.Matches(msg, s.keys.NextThread) && s.active != "":
			return s, s.cycleThread(1)
		case key.Matches(msg, s.keys.PrevThread) && s.active != "":
			return s, s.cycleThread(-1)
		}
	}

	// Everything else goes to the visible page.
	if s.active != "" {
		if page, ok := s.pages[s.active]; ok {
			_, cmd := page.Update(msg)
			cmds = append(cmds, cmd)
		}
	} else {
		_, cmd := s.list.Update(msg)
		cmds = append(cmds, cmd)
	}
	return s, tea.Batch(cmds...)
}

// openThread mounts (or revisits) a thread page, runs the session
// cache switch choreography and makes the page visible.
func (s *Shell) openThread(meta thread.Meta) tea.Cmd {
	var cmds []tea.Cmd

	page, ok := s.pages[meta.ID]
	if !ok {
		title := meta.Title
		if title == "" {
			title = meta.ID
		}
		page = NewThreadPage(meta.ID, title, s.client, s.cfg.Server.WSURL, s.cfg.Server.Token, s.cfg.Viewer)
		s.pages[meta.ID] = page
		s.cache.RegisterHandle(meta.ID, page)

		// First sight of this thread: seed any persisted position
		// before the switch decides what to restore.
		if !s.cache.Contains(meta.ID) && s.store != nil {
			if pos, atBottom, err := s.store.LoadScrollState(meta.ID); err == nil && pos != nil {
				s.cache.Seed(meta.ID, pos, atBottom)
			}
		}
		cmds = append(cmds, page.Init())
	}

	s.cache.SwitchTo(meta.ID)
	entry := s.cache.Activate(meta.ID, nil, nil, nil, page.Hydrated())
	page.Open(entry.AtBottomAtOpen)
	s.active = meta.ID

	if s.width > 0 && s.height > 0 {
		page.Update(tea.WindowSizeMsg{Width: s.width, Height: s.height})
	}

	// Unmount pages the cache evicted.
	for id, pg := range s.pages {
		if id != s.active && !s.cache.Contains(id) {
			tuilog.Log.Info("Shell: unmounting evicted thread", "thread_id", id)
			pg.Close()
			s.cache.UnregisterHandle(id)
			delete(s.pages, id)
		}
	}

	return tea.Batch(cmds...)
}

func (s *Shell) cycleThread(step int) tea.Cmd {
	if len(s.order) == 0 {
		return nil
	}
	cur := 0
	for i, id := range s.order {
		if id == s.active {
			cur = i
			break
		}
	}
	next := (cur + step + len(s.order)) % len(s.order)
	id := s.order[next]
	meta := thread.Meta{ID: id}
	for _, t := range s.list.threads {
		if t.ID == id {
			meta = t
			break
		}
	}
	return s.openThread(meta)
}

func (s *Shell) View() tea.View {
	if s.loading {
		v := tea.NewView(i18n.T("tui.loading", "Loading..."))
		v.AltScreen = true
		return v
	}

	if s.active != "" {
		if page, ok := s.pages[s.active]; ok {
			return page.View()
		}
	}
	return s.list.View()
}
