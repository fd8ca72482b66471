package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/tarmac/internal/flight"
)

type column struct {
	title string
	width int
	right bool
	value func(flight.Record) string
}

// columns lists the table columns in display order. Company absorbs any
// extra width.
var columns = []column{
	{title: "Date", width: 10, value: flight.Record.DisplayDate},
	{title: "Movement", width: 9, value: func(r flight.Record) string { return r.Type.Label() }},
	{title: "Company", width: 18, value: func(r flight.Record) string { return r.Company }},
	{title: "Flight", width: 8, value: func(r flight.Record) string { return r.FlightNumber }},
	{title: "Registration", width: 12, value: func(r flight.Record) string { return r.Registration }},
	{title: "Authorization", width: 13, value: func(r flight.Record) string { return r.AuthorizationNumber }},
	{title: "Pax", width: 6, right: true, value: func(r flight.Record) string { return thousands(r.Passengers) }},
	{title: "Babies", width: 6, right: true, value: func(r flight.Record) string { return thousands(r.Babies) }},
}

// renderTable renders the flights box at the given outer height.
func (m Model) renderTable(height int) string {
	styles := m.theme.Styles()
	title := fmt.Sprintf("Flights %s/%s", thousands(len(m.result.Visible)), thousands(m.result.Total))
	inner := m.width - 2

	if len(m.result.Visible) == 0 {
		msg := "No flights recorded"
		if m.result.Total > 0 {
			msg = "No flights match the filters"
		}
		empty := lipgloss.Place(inner, max(height-2, 1), lipgloss.Center, lipgloss.Center,
			styles.MutedText.Background(lipgloss.Color(m.theme.FocusBg)).Render(msg),
			lipgloss.WithWhitespaceBackground(lipgloss.Color(m.theme.FocusBg)))
		return m.renderTitledBox(title, empty, m.width, height, true)
	}

	widths := columnWidths(inner - 2)
	lines := []string{m.formatHeaderRow(widths, inner)}

	rows := max(height-3, 1)
	end := min(m.offset+rows, len(m.result.Visible))
	for i := m.offset; i < end; i++ {
		lines = append(lines, m.formatRow(m.result.Visible[i], widths, inner, i == m.selectedRow))
	}
	return m.renderTitledBox(title, strings.Join(lines, "\n"), m.width, height, true)
}

// columnWidths fits the columns into width, growing or shrinking Company.
func columnWidths(width int) []int {
	widths := make([]int, len(columns))
	used := 0
	for i, c := range columns {
		widths[i] = c.width
		used += c.width + 1
	}
	widths[2] = max(widths[2]+width-used, 6)
	return widths
}

func (m Model) formatHeaderRow(widths []int, inner int) string {
	bg := NewBgStyle(m.theme.FocusBg)
	style := m.theme.Styles().MutedText.Bold(true)
	cells := make([]string, len(columns))
	for i, c := range columns {
		cells[i] = bg.Render(align(c.title, widths[i], c.right), style)
	}
	return bg.FillLine(bg.Space()+strings.Join(cells, bg.Space()), inner)
}

// formatRow renders one record. The selected row uses the selection colors
// for every cell so it stays readable.
func (m Model) formatRow(r flight.Record, widths []int, inner int, selected bool) string {
	bgColor := m.theme.FocusBg
	if selected {
		bgColor = m.theme.SelectionBg
	}
	bg := NewBgStyle(bgColor)
	styles := m.theme.Styles()

	cells := make([]string, len(columns))
	for i, c := range columns {
		style := styles.Text
		switch {
		case selected:
			style = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		case c.title == "Movement":
			style = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.MovementColor(r.Type)))
		case c.title == "Date" || c.title == "Authorization":
			style = styles.MutedText
		}
		cells[i] = bg.Render(align(c.value(r), widths[i], c.right), style)
	}
	return bg.FillLine(bg.Space()+strings.Join(cells, bg.Space()), inner)
}

func align(s string, width int, right bool) string {
	s = truncate(s, width)
	if !right {
		return padRight(s, width)
	}
	if n := len([]rune(s)); n < width {
		return strings.Repeat(" ", width-n) + s
	}
	return s
}

// renderTitledBox renders content in a box with the title embedded in the
// top border: ┌─── Title ───┐.
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	borderColorStr, bgColorStr := m.theme.Border, m.theme.SurfaceAlt
	if focused {
		borderColorStr, bgColorStr = m.theme.BorderFocus, m.theme.FocusBg
	}
	bg := NewBgStyle(bgColorStr)
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColorStr))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	innerWidth := max(width-2, 0)
	title = truncate(title, max(innerWidth-4, 0))
	titleLen := len([]rune(title))
	leftPad := max((innerWidth-titleLen-2)/2, 0)
	rightPad := max(innerWidth-titleLen-2-leftPad, 0)

	top := bg.Render("┌", borderStyle) +
		bg.Render(strings.Repeat("─", leftPad), borderStyle) +
		bg.Render(" "+title+" ", titleStyle) +
		bg.Render(strings.Repeat("─", rightPad), borderStyle) +
		bg.Render("┐", borderStyle)
	bottom := bg.Render("└", borderStyle) +
		bg.Render(strings.Repeat("─", innerWidth), borderStyle) +
		bg.Render("┘", borderStyle)

	contentStyle := lipgloss.NewStyle().Width(innerWidth).MaxWidth(innerWidth).
		Background(lipgloss.Color(bgColorStr))
	contentLines := strings.Split(content, "\n")
	boxHeight := max(height-2, 0)

	lines := make([]string, 0, boxHeight)
	for i := 0; i < boxHeight; i++ {
		var line string
		if i < len(contentLines) {
			line = contentLines[i]
		}
		lines = append(lines,
			bg.Render("│", borderStyle)+contentStyle.Render(line)+bg.Render("│", borderStyle))
	}
	return top + "\n" + strings.Join(lines, "\n") + "\n" + bottom
}
