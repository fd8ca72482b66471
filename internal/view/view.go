// Package view derives the ordered, filtered projection of the flight
// collection that the console renders. Compute is pure: it never mutates its
// input and returns identical output for identical input, so callers can
// re-run it after every change.
package view

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/five82/tarmac/internal/flight"
)

// All is the filter value meaning "no constraint" for enumerated filters.
const All = "ALL"

// Criteria holds the active filters. The zero value matches every record.
type Criteria struct {
	Month        time.Month // 1-12; 0 means all months
	Company      string
	DateFrom     string // inclusive YYYY-MM-DD
	DateTo       string // inclusive YYYY-MM-DD
	Type         string
	Registration string
	FlightNumber string
}

// Totals sums the passenger counts of the visible records.
type Totals struct {
	Passengers int
	Babies     int
}

// Result is the projection rendered by the console.
type Result struct {
	Visible []flight.Record
	Totals  Totals
	Total   int // size of the unfiltered collection
}

// Reset returns the default criteria.
func (c Criteria) Reset() Criteria {
	return Criteria{}
}

// Active reports whether any clause constrains the collection.
func (c Criteria) Active() bool {
	return c.Month != 0 ||
		!isAll(c.Company) ||
		strings.TrimSpace(c.DateFrom) != "" ||
		strings.TrimSpace(c.DateTo) != "" ||
		!isAll(c.Type) ||
		strings.TrimSpace(c.Registration) != "" ||
		strings.TrimSpace(c.FlightNumber) != ""
}

// Describe renders the active clauses as a short summary.
func (c Criteria) Describe() string {
	var parts []string
	if c.Month != 0 {
		parts = append(parts, c.Month.String())
	}
	if !isAll(c.Company) {
		parts = append(parts, c.Company)
	}
	if from, to := strings.TrimSpace(c.DateFrom), strings.TrimSpace(c.DateTo); from != "" || to != "" {
		parts = append(parts, fmt.Sprintf("%s..%s", from, to))
	}
	if !isAll(c.Type) {
		parts = append(parts, flight.ParseMovement(c.Type).Label())
	}
	if reg := strings.TrimSpace(c.Registration); reg != "" {
		parts = append(parts, "reg~"+reg)
	}
	if vol := strings.TrimSpace(c.FlightNumber); vol != "" {
		parts = append(parts, "flight~"+vol)
	}
	if len(parts) == 0 {
		return "All flights"
	}
	return strings.Join(parts, " · ")
}

// Match reports whether r satisfies every active clause.
func (c Criteria) Match(r flight.Record) bool {
	if c.Month != 0 && r.Month() != c.Month {
		return false
	}
	if !isAll(c.Company) && r.Company != c.Company {
		return false
	}
	if from := strings.TrimSpace(c.DateFrom); from != "" && r.Date < from {
		return false
	}
	if to := strings.TrimSpace(c.DateTo); to != "" && r.Date > to {
		return false
	}
	if !isAll(c.Type) && r.Type != flight.ParseMovement(c.Type) {
		return false
	}
	if reg := strings.ToLower(strings.TrimSpace(c.Registration)); reg != "" &&
		!strings.Contains(strings.ToLower(r.Registration), reg) {
		return false
	}
	if vol := strings.ToLower(strings.TrimSpace(c.FlightNumber)); vol != "" &&
		!strings.Contains(strings.ToLower(r.FlightNumber), vol) {
		return false
	}
	return true
}

// Compute filters records by c and orders them by date then timestamp, both
// descending. Totals cover only the visible records.
func Compute(records []flight.Record, c Criteria) Result {
	visible := make([]flight.Record, 0, len(records))
	for _, r := range records {
		if c.Match(r) {
			visible = append(visible, r)
		}
	}

	sort.SliceStable(visible, func(i, j int) bool {
		return Less(visible[i], visible[j])
	})

	var totals Totals
	for _, r := range visible {
		totals.Passengers += r.Passengers
		totals.Babies += r.Babies
	}

	return Result{Visible: visible, Totals: totals, Total: len(records)}
}

// Less orders a before b when a is the more recent movement: later date
// first, then later timestamp. Records with an unparsable date sort last.
func Less(a, b flight.Record) bool {
	da, okA := a.ParsedDate()
	db, okB := b.ParsedDate()
	if okA != okB {
		return okA
	}
	if !da.Equal(db) {
		return da.After(db)
	}
	return a.Timestamp > b.Timestamp
}

func isAll(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, All)
}
