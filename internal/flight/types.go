package flight

import (
	"strings"
	"time"
)

// DateLayout is the wire and storage layout of Record.Date.
const DateLayout = "2006-01-02"

// Movement is the direction of a flight movement.
type Movement string

const (
	Departure Movement = "DEPARTURE"
	Arrival   Movement = "ARRIVAL"
)

// ParseMovement normalizes a movement value. The short DEP/ARR forms written
// by older clients are accepted. Unknown values are returned uppercased so
// validation can reject them.
func ParseMovement(value string) Movement {
	switch v := strings.ToUpper(strings.TrimSpace(value)); v {
	case "DEP", "DEPART", string(Departure):
		return Departure
	case "ARR", "ARRIVEE", string(Arrival):
		return Arrival
	default:
		return Movement(v)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Movement) UnmarshalText(text []byte) error {
	*m = ParseMovement(string(text))
	return nil
}

// Label returns the display label for the movement.
func (m Movement) Label() string {
	switch m {
	case Departure:
		return "Departure"
	case Arrival:
		return "Arrival"
	default:
		return string(m)
	}
}

// Input is the payload submitted to the record store on create and update.
type Input struct {
	AuthorizationNumber string   `json:"authorizationNumber" bson:"authorizationNumber" validate:"required,authno"`
	Date                string   `json:"date" bson:"date" validate:"required,datetime=2006-01-02"`
	Company             string   `json:"company" bson:"company" validate:"required,airline"`
	Registration        string   `json:"registration" bson:"registration" validate:"required,registration"`
	FlightNumber        string   `json:"flightNumber" bson:"flightNumber" validate:"required"`
	Type                Movement `json:"type" bson:"type" validate:"required,oneof=DEPARTURE ARRIVAL"`
	Passengers          int      `json:"passengers" bson:"passengers" validate:"gte=0"`
	Babies              int      `json:"babies" bson:"babies" validate:"gte=0"`
	Timestamp           int64    `json:"timestamp,omitempty" bson:"timestamp,omitempty"`
}

// Record is a persisted flight movement.
type Record struct {
	ID string `json:"id"`
	Input
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// ParsedDate returns Date as a civil date. The boolean is false when Date is
// not a valid ISO date.
func (r Record) ParsedDate() (time.Time, bool) {
	return ParseDate(r.Date)
}

// Month returns the calendar month of Date, or zero when Date is invalid.
func (r Record) Month() time.Month {
	d, ok := ParseDate(r.Date)
	if !ok {
		return 0
	}
	return d.Month()
}

// DisplayDate renders Date in dd/mm/yyyy form, falling back to the raw value.
func (r Record) DisplayDate() string {
	d, ok := ParseDate(r.Date)
	if !ok {
		return r.Date
	}
	return d.Format("02/01/2006")
}

// ParseDate parses an ISO YYYY-MM-DD date in UTC.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// StampNow sets Timestamp to now in Unix milliseconds when it is unset.
func (in Input) StampNow(now time.Time) Input {
	if in.Timestamp == 0 {
		in.Timestamp = now.UnixMilli()
	}
	return in
}

// Clone returns a copy of records. A nil or empty slice yields nil.
func Clone(records []Record) []Record {
	if len(records) == 0 {
		return nil
	}
	dup := make([]Record, len(records))
	copy(dup, records)
	return dup
}

// IndexOf returns the position of id in records, or -1.
func IndexOf(records []Record, id string) int {
	for i := range records {
		if records[i].ID == id {
			return i
		}
	}
	return -1
}
