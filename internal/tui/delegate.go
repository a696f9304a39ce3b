package tui

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	tea "github.com/charmbracelet/bubbletea"

	"mp3cover/internal/audiotag"
)

// historyItem is one finished inject shown in the session history.
type historyItem struct {
	audio string
	image string
	res   audiotag.Result
	err   error
	at    time.Time
}

func (h historyItem) FilterValue() string { return filepath.Base(h.audio) }

type historyDelegate struct {
	compact bool
}

func newHistoryDelegate() *historyDelegate {
	return &historyDelegate{}
}

func (d *historyDelegate) Height() int {
	if d.compact {
		return 1
	}
	return 2
}

func (d *historyDelegate) Spacing() int { return 0 }

func (d *historyDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d *historyDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(historyItem)
	if !ok || m.Width() <= 0 {
		return
	}

	mark, markStyle := "✓ ", okStyle
	if it.err != nil {
		mark, markStyle = "✗ ", errorStyle
	}
	titleStyle := valueStyle
	if index == m.Index() {
		titleStyle = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
	}

	textW := max(0, m.Width()-lipgloss.Width(mark))
	title := ansi.Truncate(filepath.Base(it.audio), textW, "...")

	var desc string
	if it.err != nil {
		desc = audiotag.Describe(it.err)
	} else {
		desc = fmt.Sprintf("%s · %s · %s", filepath.Base(it.image), it.res.MIMEType, formatBytes(int64(it.res.Bytes)))
	}
	desc = it.at.Format("15:04:05") + " " + desc

	if d.compact {
		line := ansi.Truncate(title+"  "+desc, textW, "...")
		_, _ = fmt.Fprint(w, markStyle.Render(mark)+titleStyle.Render(line))
		return
	}
	line1 := markStyle.Render(mark) + titleStyle.Render(title)
	line2 := "  " + faintStyle.Render(ansi.Truncate(desc, textW, "..."))
	_, _ = fmt.Fprintf(w, "%s\n%s", line1, line2)
}
