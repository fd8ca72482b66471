package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/tarmac/internal/logtail"
)

// renderActivity renders the tail of the JSON log below the table.
func (m Model) renderActivity() string {
	inner := m.width - 2
	rows := activityHeight - 2
	bg := NewBgStyle(m.theme.SurfaceAlt)
	styles := m.theme.Styles()

	entries := m.activity
	if len(entries) > rows {
		entries = entries[len(entries)-rows:]
	}

	lines := make([]string, 0, rows)
	for _, e := range entries {
		lines = append(lines, bg.FillLine(m.formatActivity(e, inner, styles, bg), inner))
	}
	if len(lines) == 0 {
		lines = append(lines, bg.FillLine(bg.Render("No activity yet", styles.FaintText), inner))
	}
	return m.renderTitledBox("Activity · "+truncateMiddle(m.logPath, 40), strings.Join(lines, "\n"), m.width, activityHeight, false)
}

// formatActivity renders one entry as clock, level and message, with the
// level colored by severity.
func (m Model) formatActivity(e logtail.Entry, width int, styles Styles, bg BgStyle) string {
	out := bg.Space()
	avail := width - 1
	if !e.Time.IsZero() {
		clock := e.Time.Local().Format("15:04:05")
		out += bg.Render(clock, styles.MutedText) + bg.Space()
		avail -= len(clock) + 1
	}
	if e.Level != "" {
		out += bg.Render(padRight(e.Level, 5), m.levelStyle(e.Level, styles)) + bg.Space()
		avail -= 6
	}
	e.Time, e.Level = time.Time{}, ""
	return out + bg.Render(truncate(logtail.Format(e), max(avail, 1)), styles.Text)
}

func (m Model) levelStyle(level string, styles Styles) lipgloss.Style {
	switch level {
	case "ERROR", "DPANIC", "PANIC", "FATAL":
		return styles.DangerText
	case "WARN":
		return styles.WarningText
	case "DEBUG":
		return styles.FaintText
	default:
		return styles.SuccessText
	}
}
