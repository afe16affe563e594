package tui

import (
	"os"

	tea "charm.land/bubbletea/v2"
	"golang.org/x/term"

	"github.com/runlight/threadview/internal/config"
	"github.com/runlight/threadview/internal/statestore"
)

func termSizeOpts() []tea.ProgramOption {
	var opts []tea.ProgramOption
	for _, fd := range []int{int(os.Stdout.Fd()), int(os.Stdin.Fd()), int(os.Stderr.Fd())} {
		if term.IsTerminal(fd) {
			w, h, err := term.GetSize(fd)
			if err == nil && w > 0 && h > 0 {
				opts = append(opts, tea.WithWindowSize(w, h))
				break
			}
		}
	}
	return opts
}

// Run starts the thread viewer. store may be nil to disable scroll
// state persistence.
func Run(cfg config.Config, store *statestore.Store) error {
	shell := NewShell(cfg, store)
	p := tea.NewProgram(shell, termSizeOpts()...)
	_, err := p.Run()
	return err
}

// RunLocal starts the viewer on a JSONL event file instead of a
// server: the file is replayed into a single page and then tailed for
// appends.
func RunLocal(cfg config.Config, path string) error {
	shell := NewLocalShell(cfg, path)
	p := tea.NewProgram(shell, termSizeOpts()...)
	_, err := p.Run()
	return err
}
