package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/tarmac/internal/flight"
)

// renderHeader renders the status bar: connection state, counts, totals
// and the undo countdown.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < 100
	snap := m.snapshot

	parts := []string{bg.Render("tarmac", styles.Logo)}

	backend := strings.ToUpper(m.backend)
	if backend == "" {
		backend = "STORE"
	}
	switch {
	case snap.IsOffline():
		parts = append(parts, bg.Render("● "+backend+" "+classifyConnectionError(snap.LastError), styles.DangerText))
	case snap.Subscribed:
		parts = append(parts, bg.Render("● "+backend+" LIVE", styles.SuccessText))
	default:
		parts = append(parts, bg.Render("● "+backend+" IDLE", styles.WarningText))
	}
	if m.fallback {
		parts = append(parts, bg.Render("LOCAL FALLBACK", styles.WarningText.Bold(true)))
	}

	parts = append(parts,
		bg.Render("Flights:", styles.MutedText)+bg.Space()+
			bg.Render(fmt.Sprintf("%s/%s", thousands(len(m.result.Visible)), thousands(m.result.Total)), styles.Text),
	)

	paxLabel, babyLabel := "Passengers:", "Babies:"
	if compact {
		paxLabel, babyLabel = "Pax:", "Inf:"
	}
	parts = append(parts,
		bg.Render(paxLabel, styles.MutedText)+bg.Space()+
			bg.Render(thousands(m.result.Totals.Passengers), styles.AccentText)+
			bg.Spaces(2)+
			bg.Render(babyLabel, styles.MutedText)+bg.Space()+
			bg.Render(thousands(m.result.Totals.Babies), styles.AccentText),
	)

	if snap.UndoAvailable() {
		remaining := snap.Undo.ExpiresAt.Sub(m.now())
		label := fmt.Sprintf("Undo %s (%s)", truncate(snap.Undo.Record.FlightNumber, 12), countdown(remaining))
		parts = append(parts, bg.Render(label, styles.WarningText.Bold(true)))
	}

	if ts := relativeTime(snap.UpdatedAt, m.now()); ts != "" && !compact {
		parts = append(parts, bg.Render(ts, styles.MutedText))
	}

	if snap.LastError != nil && !snap.IsOffline() {
		maxErr := 60
		if compact {
			maxErr = 30
		}
		parts = append(parts,
			bg.Render("ERROR", styles.DangerText)+bg.Space()+
				bg.Render(truncate(snap.LastError.Error(), maxErr), styles.DangerText))
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		Render(bg.Join(parts, "  "))
}

// renderCommandBar renders the key hints.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	commands := []cmd{
		{"n", "New"},
		{"e", "Edit"},
		{"d", "Delete"},
		{"u", "Undo"},
		{"f", movementFilterLabel(m.criteria.Type)},
		{"m/M", "Month"},
		{"c", "Company"},
		{"/", "Filters"},
		{"r", "Reset"},
		{"?", "More"},
	}
	if !m.snapshot.Subscribed {
		commands = append(commands, cmd{"R", "Reconnect"})
	}

	colon := bg.Sep(":")
	segments := make([]string, 0, len(commands)+2)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	if m.gate != nil && !m.gate.Authenticated() {
		segments = append(segments, bg.Render("locked", styles.WarningText))
	}
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}

// renderFooter shows the current toast, or the active filters.
func (m Model) renderFooter() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	var content string
	if t := m.toast; t != nil {
		style := styles.InfoText
		switch t.level {
		case toastSuccess:
			style = styles.SuccessText
		case toastError:
			style = styles.DangerText
		}
		content = bg.Render(truncate(t.text, max(m.width-4, 10)), style)
	} else {
		style := styles.FaintText
		if m.criteria.Active() {
			style = styles.AccentText
		}
		content = bg.Render("Filter:", styles.MutedText) + bg.Space() +
			bg.Render(truncate(m.criteria.Describe(), max(m.width-12, 10)), style)
	}
	return styles.Header.Width(m.width).Render(content)
}

// movementFilterLabel names the current movement filter for the command bar.
func movementFilterLabel(v string) string {
	switch flight.ParseMovement(v) {
	case flight.Departure:
		return "Dep"
	case flight.Arrival:
		return "Arr"
	default:
		return "All"
	}
}
