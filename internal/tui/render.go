package tui

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/x/ansi"

	"github.com/runlight/threadview/internal/i18n"
	"github.com/runlight/threadview/internal/thread"
)

// Shared glamour renderer (created lazily)
var sharedRenderer *glamour.TermRenderer
var sharedRendererWidth int

func getRenderer(width int) *glamour.TermRenderer {
	if sharedRenderer == nil || sharedRendererWidth != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStylePath("dark"),
			glamour.WithWordWrap(width),
		)
		if err == nil {
			sharedRenderer = r
			sharedRendererWidth = width
		}
	}
	return sharedRenderer
}

type renderedItem struct {
	fingerprint string
	lines       []string
}

// itemRenderer turns timeline items into terminal lines and reports
// their heights to the windowing engine. Rendered output is cached per
// item key; a width change drops the whole cache.
type itemRenderer struct {
	tl    *thread.Timeline
	width int
	cache map[string]renderedItem
}

func newItemRenderer(tl *thread.Timeline) *itemRenderer {
	return &itemRenderer{
		tl:    tl,
		width: 80,
		cache: make(map[string]renderedItem),
	}
}

// SetWidth updates the render width, invalidating the cache when it
// changes.
func (r *itemRenderer) SetWidth(w int) bool {
	if w < 20 {
		w = 20
	}
	if w == r.width {
		return false
	}
	r.width = w
	r.cache = make(map[string]renderedItem)
	return true
}

// ItemHeight reports the rendered height in lines for the item at a
// relative index.
func (r *itemRenderer) ItemHeight(rel int) int {
	return len(r.Lines(rel))
}

// Lines returns the rendered lines for the item at a relative index.
func (r *itemRenderer) Lines(rel int) []string {
	runs := r.tl.RunCount()
	switch {
	case rel < runs:
		run, ok := r.tl.RunAt(rel)
		if !ok {
			return []string{""}
		}
		return r.renderRun(run)
	case rel == runs && r.tl.HasPendingSection():
		return r.renderPending()
	default:
		// Trailing spacer
		return []string{""}
	}
}

func (r *itemRenderer) renderRun(run thread.Run) []string {
	fp := fmt.Sprintf("run:%d:%s:%d", len(run.Messages), run.Status, r.width)
	key := "run:" + run.ID
	if c, ok := r.cache[key]; ok && c.fingerprint == fp {
		return c.lines
	}

	var b strings.Builder
	b.WriteString(r.renderRunHeader(run))
	b.WriteString("\n")

	contentWidth := r.width - 4
	for _, msg := range run.Messages {
		b.WriteString(r.renderMessage(msg, contentWidth))
		b.WriteString("\n")
	}

	lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
	r.cache[key] = renderedItem{fingerprint: fp, lines: lines}
	return lines
}

func (r *itemRenderer) renderRunHeader(run thread.Run) string {
	status := i18n.T("tui.status."+string(run.Status), string(run.Status))
	style := runHeaderStyle
	if run.Status == thread.RunFailed || run.Status == thread.RunTerminated {
		style = runFailedStyle
	}
	label := fmt.Sprintf("── %s · %s ", ansi.Truncate(run.ID, 24, "…"), status)
	fill := r.width - lipgloss.Width(label)
	if fill > 0 {
		label += strings.Repeat("─", fill)
	}
	return style.Render(label)
}

func (r *itemRenderer) renderMessage(msg thread.Message, width int) string {
	switch msg.Author {
	case thread.AuthorAssistant:
		label := assistantLabelStyle.Render(i18n.T("tui.label.assistant", "Assistant"))
		text := msg.Body
		if renderer := getRenderer(width); renderer != nil {
			if rendered, err := renderer.Render(text); err == nil {
				text = strings.TrimSpace(rendered)
			}
		}
		return label + "\n" + messageBlockStyle.Width(width).Render(text)
	case thread.AuthorUser:
		label := userLabelStyle.Render(i18n.T("tui.label.user", "User"))
		return label + "\n" + messageBlockStyle.Width(width).Render(msg.Body)
	default:
		label := systemLabelStyle.Render(i18n.T("tui.label.system", "System"))
		return label + "\n" + messageBlockStyle.Width(width).Render(msg.Body)
	}
}

func (r *itemRenderer) renderPending() []string {
	queued := r.tl.Queued()
	reminders := r.tl.Reminders()
	fp := fmt.Sprintf("pending:%d:%d:%d", len(queued), len(reminders), r.width)
	if c, ok := r.cache[thread.PendingKey]; ok && c.fingerprint == fp {
		return c.lines
	}

	var b strings.Builder
	if len(queued) > 0 {
		b.WriteString(pendingHeaderStyle.Render(i18n.T("tui.thread.queued", "Queued")))
		b.WriteString("\n")
		for _, q := range queued {
			b.WriteString(pendingItemStyle.Render(ansi.Truncate(q.Body, r.width-4, "…")))
			b.WriteString("\n")
		}
	}
	if len(reminders) > 0 {
		b.WriteString(pendingHeaderStyle.Render(i18n.T("tui.thread.reminders", "Reminders")))
		b.WriteString("\n")
		for _, rem := range reminders {
			b.WriteString(pendingItemStyle.Render(ansi.Truncate(rem.Text, r.width-4, "…")))
			b.WriteString("\n")
		}
	}

	lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
	r.cache[thread.PendingKey] = renderedItem{fingerprint: fp, lines: lines}
	return lines
}
