package tui

import (
	"fmt"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"

	"github.com/runlight/threadview/internal/i18n"
	"github.com/runlight/threadview/internal/thread"
)

// threadSelectedMsg is emitted when a thread is chosen from the list.
type threadSelectedMsg struct {
	meta thread.Meta
}

// ThreadList is the thread picker page.
type ThreadList struct {
	threads []thread.Meta
	cursor  int
	width   int
	height  int
	keys    listKeyMap
}

// NewThreadList creates an empty picker; threads arrive via SetThreads.
func NewThreadList() *ThreadList {
	return &ThreadList{keys: defaultListKeyMap()}
}

// SetThreads replaces the listed threads, keeping the cursor in range.
func (l *ThreadList) SetThreads(threads []thread.Meta) {
	l.threads = threads
	if l.cursor >= len(threads) {
		l.cursor = len(threads) - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
}

func (l *ThreadList) Init() tea.Cmd { return nil }

func (l *ThreadList) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		l.width = msg.Width
		l.height = msg.Height

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, l.keys.Up):
			if l.cursor > 0 {
				l.cursor--
			}
		case key.Matches(msg, l.keys.Down):
			if l.cursor < len(l.threads)-1 {
				l.cursor++
			}
		case key.Matches(msg, l.keys.Select):
			if l.cursor < len(l.threads) {
				meta := l.threads[l.cursor]
				return l, func() tea.Msg { return threadSelectedMsg{meta: meta} }
			}
		case key.Matches(msg, l.keys.Quit):
			return l, tea.Quit
		}
	}
	return l, nil
}

func (l *ThreadList) View() tea.View {
	title := titleStyle.Render(i18n.Tf("tui.threads.title", "%d threads", len(l.threads)))

	rows := title + "\n\n"
	for i, t := range l.threads {
		name := t.Title
		if name == "" {
			name = t.ID
		}
		line := fmt.Sprintf("  %s  %s", name, listMetaStyle.Render(i18n.RelativeTimeShort(t.UpdatedAt)))
		if i == l.cursor {
			line = listSelectedStyle.Render("> " + name + "  " + i18n.RelativeTimeShort(t.UpdatedAt))
		} else {
			line = listNormalStyle.Render(line)
		}
		rows += line + "\n"
	}

	rows += "\n" + helpStyle.Render("↑/↓: move • enter: open • q: quit")

	v := tea.NewView(rows)
	v.AltScreen = true
	return v
}
