package ui

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/tarmac/internal/flight"
	"github.com/five82/tarmac/internal/view"
)

// filtersAppliedMsg replaces the active criteria.
type filtersAppliedMsg view.Criteria

// nextMovement cycles the movement filter: all, departures, arrivals.
func nextMovement(current string) string {
	switch flight.ParseMovement(current) {
	case flight.Departure:
		return string(flight.Arrival)
	case flight.Arrival:
		return view.All
	default:
		return string(flight.Departure)
	}
}

// shiftMonth moves the month filter by step, passing through "all" (0)
// between December and January.
func shiftMonth(current time.Month, step int) time.Month {
	m := (int(current) + step) % 13
	if m < 0 {
		m += 13
	}
	return time.Month(m)
}

// nextCompany cycles the company filter through "all" and the catalogue.
func nextCompany(current string) string {
	names := flight.AirlineNames()
	if current == "" || strings.EqualFold(current, view.All) {
		return names[0]
	}
	for i, n := range names {
		if n == current {
			if i == len(names)-1 {
				return view.All
			}
			return names[i+1]
		}
	}
	return view.All
}

// filterEditor is the modal behind "/". Enter applies every field at once.
type filterEditor struct {
	fields fieldSet
	errs   map[string]string
}

func newFilterEditor(c view.Criteria) *filterEditor {
	months := []string{"0"}
	monthLabels := []string{"All months"}
	for m := time.January; m <= time.December; m++ {
		months = append(months, strconv.Itoa(int(m)))
		monthLabels = append(monthLabels, m.String())
	}
	companies := append([]string{view.All}, flight.AirlineNames()...)
	companyLabels := append([]string{"All companies"}, flight.AirlineNames()...)
	movements := []string{view.All, string(flight.Departure), string(flight.Arrival)}
	movementLabels := []string{"All movements", flight.Departure.Label(), flight.Arrival.Label()}

	e := &filterEditor{
		fields: newFieldSet(
			choiceField("month", "Month", months, monthLabels),
			choiceField("company", "Company", companies, companyLabels),
			choiceField("type", "Movement", movements, movementLabels),
			textField("dateFrom", "From", "YYYY-MM-DD", 10),
			textField("dateTo", "To", "YYYY-MM-DD", 10),
			textField("registration", "Registration", "contains...", 12),
			textField("flightNumber", "Flight number", "contains...", 12),
		),
	}
	e.set("month", strconv.Itoa(int(c.Month)))
	e.set("company", orAll(c.Company))
	e.set("type", orAll(c.Type))
	e.set("dateFrom", c.DateFrom)
	e.set("dateTo", c.DateTo)
	e.set("registration", c.Registration)
	e.set("flightNumber", c.FlightNumber)
	return e
}

func orAll(v string) string {
	if strings.TrimSpace(v) == "" {
		return view.All
	}
	return v
}

func (e *filterEditor) set(k, v string) {
	if f := e.fields.byKey(k); f != nil {
		f.setValue(v)
	}
}

func (e *filterEditor) get(k string) string {
	if f := e.fields.byKey(k); f != nil {
		return strings.TrimSpace(f.value())
	}
	return ""
}

func (e *filterEditor) criteria() view.Criteria {
	month, _ := strconv.Atoi(e.get("month"))
	return view.Criteria{
		Month:        time.Month(month),
		Company:      e.get("company"),
		DateFrom:     e.get("dateFrom"),
		DateTo:       e.get("dateTo"),
		Type:         e.get("type"),
		Registration: e.get("registration"),
		FlightNumber: e.get("flightNumber"),
	}
}

func (e *filterEditor) validate() map[string]string {
	errs := make(map[string]string)
	for _, k := range []string{"dateFrom", "dateTo"} {
		if v := e.get(k); v != "" {
			if _, ok := flight.ParseDate(v); !ok {
				errs[k] = "date must be YYYY-MM-DD"
			}
		}
	}
	return errs
}

// Update implements Modal.
func (e *filterEditor) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return e, nil, false
	}
	switch {
	case key.Matches(keyMsg, keys.Escape):
		return e, nil, true
	case key.Matches(keyMsg, keys.Confirm):
		if errs := e.validate(); len(errs) > 0 {
			e.errs = errs
			return e, nil, false
		}
		c := e.criteria()
		return e, func() tea.Msg { return filtersAppliedMsg(c) }, true
	}
	cmd, _ := e.fields.handleKey(keyMsg, keys)
	return e, cmd, false
}

// View implements Modal.
func (e *filterEditor) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	errFor := func(k string) string { return e.errs[k] }

	var b strings.Builder
	b.WriteString(styles.MutedText.Render("Leave text fields blank to disable them."))
	b.WriteString("\n\n")
	b.WriteString(e.fields.render(styles, 16, errFor))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("Enter: Apply  •  Tab: Next  •  ←/→: Choose  •  Esc: Cancel"))
	return renderModal(theme, width, height, 62, "Filters", b.String())
}
