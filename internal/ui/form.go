package ui

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/tarmac/internal/flight"
)

// formSubmittedMsg carries a validated input out of the flight form. ID is
// empty for a new flight.
type formSubmittedMsg struct {
	ID    string
	Input flight.Input
}

// flightForm is the create/edit modal. Input is validated before it leaves
// the form, so invalid data never reaches the engine.
type flightForm struct {
	id        string
	timestamp int64
	fields    fieldSet
	errs      flight.FieldErrors
}

func newFlightForm(rec *flight.Record, defaultCompany string, today time.Time) *flightForm {
	companies := flight.AirlineNames()
	movements := []string{string(flight.Departure), string(flight.Arrival)}

	f := &flightForm{
		fields: newFieldSet(
			textField("authorizationNumber", "Authorization", "SNA26-1234", 10),
			textField("date", "Date", "YYYY-MM-DD", 10),
			choiceField("company", "Company", companies, nil),
			textField("registration", "Registration", "5T-CLC", 12),
			textField("flightNumber", "Flight number", "TK-601", 12),
			choiceField("type", "Movement", movements, []string{flight.Departure.Label(), flight.Arrival.Label()}),
			textField("passengers", "Passengers", "0", 6),
			textField("babies", "Babies", "0", 6),
		),
	}

	if rec == nil {
		company := defaultCompany
		if !flight.IsAirline(company) {
			company = companies[0]
		}
		f.set("date", today.Format(flight.DateLayout))
		f.set("company", company)
		f.set("flightNumber", flight.SuggestFlightNumber(company, ""))
		f.set("type", string(flight.Departure))
		return f
	}

	f.id = rec.ID
	f.timestamp = rec.Timestamp
	f.set("authorizationNumber", rec.AuthorizationNumber)
	f.set("date", rec.Date)
	f.set("company", rec.Company)
	f.set("registration", rec.Registration)
	f.set("flightNumber", rec.FlightNumber)
	f.set("type", string(rec.Type))
	f.set("passengers", strconv.Itoa(rec.Passengers))
	f.set("babies", strconv.Itoa(rec.Babies))
	return f
}

func (f *flightForm) set(k, v string) {
	if fld := f.fields.byKey(k); fld != nil {
		fld.setValue(v)
	}
}

func (f *flightForm) get(k string) string {
	if fld := f.fields.byKey(k); fld != nil {
		return fld.value()
	}
	return ""
}

// input builds the normalized payload from the current field values.
func (f *flightForm) input() flight.Input {
	return flight.Normalize(flight.Input{
		AuthorizationNumber: f.get("authorizationNumber"),
		Date:                f.get("date"),
		Company:             f.get("company"),
		Registration:        f.get("registration"),
		FlightNumber:        f.get("flightNumber"),
		Type:                flight.Movement(f.get("type")),
		Passengers:          flight.ParseCount(f.get("passengers")),
		Babies:              flight.ParseCount(f.get("babies")),
		Timestamp:           f.timestamp,
	})
}

// Update implements Modal.
func (f *flightForm) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return f, nil, false
	}

	switch {
	case key.Matches(keyMsg, keys.Escape):
		return f, nil, true
	case key.Matches(keyMsg, keys.Confirm):
		in := f.input()
		if err := flight.Validate(in); err != nil {
			f.errs = flight.FieldErrorsOf(err)
			if len(f.errs) == 0 {
				f.errs = flight.FieldErrors{{Field: "authorizationNumber", Message: err.Error()}}
			}
			return f, nil, false
		}
		submitted := formSubmittedMsg{ID: f.id, Input: in}
		return f, func() tea.Msg { return submitted }, true
	}

	cmd, changed := f.fields.handleKey(keyMsg, keys)
	if changed && f.fields.focused().key == "company" {
		f.set("flightNumber", flight.SuggestFlightNumber(f.get("company"), f.get("flightNumber")))
	}
	return f, cmd, false
}

// View implements Modal.
func (f *flightForm) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	title := "New flight"
	if f.id != "" {
		title = "Edit flight"
	}

	var b strings.Builder
	b.WriteString(f.fields.render(styles, 16, f.errs.For))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("Enter: Save  •  Tab: Next  •  ←/→: Choose  •  Esc: Cancel"))
	return renderModal(theme, width, height, 62, title, b.String())
}
