package flight

import (
	"regexp"
	"strings"
)

// Airline is an operator served by the airport.
type Airline struct {
	Name   string
	Prefix string
}

// Airlines is the fixed catalogue of operators, in display order.
var Airlines = []Airline{
	{Name: "Mauritania Airlines", Prefix: "L6"},
	{Name: "Air Sénégal", Prefix: "HC"},
	{Name: "Turkish Airlines", Prefix: "TK"},
	{Name: "Binter", Prefix: "NT"},
	{Name: "Air Algérie", Prefix: "AH"},
	{Name: "ASKY", Prefix: "KP"},
	{Name: "Royal Air Maroc", Prefix: "AT"},
	{Name: "Tunisair", Prefix: "TU"},
	{Name: "Air France", Prefix: "AF"},
}

var barePrefix = regexp.MustCompile(`^[A-Z0-9]+-$`)

// AirlineNames returns the catalogue names in display order.
func AirlineNames() []string {
	names := make([]string, len(Airlines))
	for i, a := range Airlines {
		names[i] = a.Name
	}
	return names
}

// IsAirline reports whether name is in the catalogue.
func IsAirline(name string) bool {
	_, ok := lookupAirline(name)
	return ok
}

// Prefix returns the flight number prefix for company, or "".
func Prefix(company string) string {
	a, ok := lookupAirline(company)
	if !ok {
		return ""
	}
	return a.Prefix
}

// SuggestFlightNumber returns the value the flight number field should hold
// after company changes. The current value is only replaced when it is empty
// or nothing more than a bare prefix such as "TK-".
func SuggestFlightNumber(company, current string) string {
	prefix := Prefix(company)
	trimmed := strings.TrimSpace(current)
	if prefix == "" {
		return current
	}
	if trimmed == "" || barePrefix.MatchString(strings.ToUpper(trimmed)) {
		return prefix + "-"
	}
	return current
}

// NextAirline cycles through the catalogue. step may be negative. An unknown
// name starts from the first entry.
func NextAirline(current string, step int) string {
	idx := -1
	for i, a := range Airlines {
		if a.Name == current {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Airlines[0].Name
	}
	n := len(Airlines)
	return Airlines[((idx+step)%n+n)%n].Name
}

func lookupAirline(name string) (Airline, bool) {
	for _, a := range Airlines {
		if a.Name == name {
			return a, true
		}
	}
	return Airline{}, false
}
