package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

var (
	colorCyan     = lipgloss.Color("#00FFFF")
	colorMagenta  = lipgloss.Color("#FF00FF")
	colorGreen    = lipgloss.Color("#00FF41")
	colorHotPink  = lipgloss.Color("#FF006E")
	colorAmber    = lipgloss.Color("#FFB000")
	colorBgHeader = lipgloss.Color("#1A0A2E")
	colorFg       = lipgloss.Color("#E0E0E0")
	colorMuted    = lipgloss.Color("#6B7280")
	colorFaint    = lipgloss.Color("#374151")
	colorBorder   = lipgloss.Color("#00BFFF")
)

// pulseColors is the divider colour cycle.
var pulseColors = []lipgloss.Color{
	lipgloss.Color("#00FF41"),
	lipgloss.Color("#00D4FF"),
	lipgloss.Color("#B300FF"),
	lipgloss.Color("#FF006E"),
}

var (
	headerFillStyle  = lipgloss.NewStyle().Background(colorBgHeader)
	headerTitleStyle = headerFillStyle.Foreground(colorCyan).Bold(true)
	headerSubStyle   = headerFillStyle.Foreground(colorMagenta)
	headerLabelStyle = headerFillStyle.Foreground(colorMuted)
	headerValueStyle = headerFillStyle.Foreground(colorCyan).Bold(true)

	panelStyle       = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(colorBorder).Padding(0, 1)
	activePanelStyle = panelStyle.BorderForeground(colorMagenta)
	panelTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorMagenta)

	labelStyle = lipgloss.NewStyle().Foreground(colorMuted)
	valueStyle = lipgloss.NewStyle().Foreground(colorFg)
	faintStyle = lipgloss.NewStyle().Foreground(colorFaint)
	infoStyle  = lipgloss.NewStyle().Foreground(colorAmber)
	errorStyle = lipgloss.NewStyle().Foreground(colorHotPink).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)

	footerKeyStyle  = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
	footerDescStyle = lipgloss.NewStyle().Foreground(colorFaint)
)

func renderHeader(width int, left, right string) string {
	if width <= 0 {
		return left + " " + right
	}
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + headerFillStyle.Render(strings.Repeat(" ", gap)) + right
}

func renderDivider(width int, c lipgloss.Color) string {
	if width <= 0 {
		return ""
	}
	return lipgloss.NewStyle().Foreground(c).Render(strings.Repeat("═", width))
}

func renderFooterKeys(width int, pairs ...string) string {
	parts := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, footerKeyStyle.Render(pairs[i])+" "+footerDescStyle.Render(pairs[i+1]))
	}
	line := strings.Join(parts, footerDescStyle.Render("  "))
	if width > 0 {
		return lipgloss.NewStyle().Width(width).Render(line)
	}
	return line
}

func renderPanel(title string, width int, content string, active bool) string {
	body := content
	if strings.TrimSpace(title) != "" {
		body = panelTitleStyle.Render(title) + "\n" + content
	}
	s := panelStyle
	if active {
		s = activePanelStyle
	}
	if width > 0 {
		s = s.Width(width)
	}
	return s.Render(body)
}

func renderField(label, value string, width int) string {
	l := labelStyle.Render(fmt.Sprintf("%-8s", label))
	return l + valueStyle.Render(ansi.Truncate(value, max(0, width-lipgloss.Width(l)), "..."))
}

func renderStatusLine(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return okStyle.Render(s)
}

func renderErrorLine(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return errorStyle.Render("ERROR: " + s)
}

func renderInfoLine(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return infoStyle.Render(s)
}

// displayName shortens a file name for status lines.
func displayName(name string) string {
	return ansi.Truncate(name, 30, "...")
}

func formatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	if n < 1024*1024 {
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	}
	if n < 1024*1024*1024 {
		return fmt.Sprintf("%.2f MB", float64(n)/(1024*1024))
	}
	return fmt.Sprintf("%.2f GB", float64(n)/(1024*1024*1024))
}
