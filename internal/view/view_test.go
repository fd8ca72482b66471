package view

import (
	"reflect"
	"testing"
	"time"

	"github.com/five82/tarmac/internal/flight"
)

func rec(id, date string, typ flight.Movement, pax, babies int, ts int64) flight.Record {
	return flight.Record{
		ID: id,
		Input: flight.Input{
			Date:       date,
			Type:       typ,
			Passengers: pax,
			Babies:     babies,
			Timestamp:  ts,
		},
	}
}

func sample() []flight.Record {
	return []flight.Record{
		rec("1", "2024-03-01", flight.Departure, 100, 2, 10),
		rec("2", "2024-03-02", flight.Arrival, 50, 0, 20),
	}
}

func ids(records []flight.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestCompute_FiltersByTypeAndTotalsVisible(t *testing.T) {
	res := Compute(sample(), Criteria{Type: "DEPARTURE"})
	if got := ids(res.Visible); !reflect.DeepEqual(got, []string{"1"}) {
		t.Fatalf("visible = %v, want [1]", got)
	}
	if res.Totals != (Totals{Passengers: 100, Babies: 2}) {
		t.Fatalf("totals = %+v, want {100 2}", res.Totals)
	}
	if res.Total != 2 {
		t.Fatalf("Total = %d, want 2", res.Total)
	}
}

func TestCompute_OrdersByDateThenTimestampDescending(t *testing.T) {
	records := []flight.Record{
		rec("a", "2024-03-01", flight.Departure, 1, 0, 5),
		rec("b", "2024-03-02", flight.Arrival, 1, 0, 1),
		rec("c", "2024-03-01", flight.Arrival, 1, 0, 9),
		rec("d", "2024-02-28", flight.Departure, 1, 0, 100),
		rec("e", "2024-03-01", flight.Departure, 1, 0, 0),
	}
	res := Compute(records, Criteria{})
	want := []string{"b", "c", "a", "e", "d"}
	if got := ids(res.Visible); !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestCompute_EqualKeysKeepInputOrder(t *testing.T) {
	records := []flight.Record{
		rec("x", "2024-03-01", flight.Departure, 1, 0, 7),
		rec("y", "2024-03-01", flight.Departure, 1, 0, 7),
	}
	if got := ids(Compute(records, Criteria{}).Visible); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Fatalf("order = %v, want [x y]", got)
	}
}

func TestCompute_DoesNotMutateInputAndIsDeterministic(t *testing.T) {
	records := sample()
	before := flight.Clone(records)

	first := Compute(records, Criteria{})
	second := Compute(records, Criteria{})

	if !reflect.DeepEqual(records, before) {
		t.Fatalf("input mutated: %v", ids(records))
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Compute not deterministic: %+v vs %+v", first, second)
	}
	if got := ids(first.Visible); !reflect.DeepEqual(got, []string{"2", "1"}) {
		t.Fatalf("order = %v, want [2 1]", got)
	}
}

func TestCompute_Clauses(t *testing.T) {
	records := []flight.Record{
		{ID: "1", Input: flight.Input{Date: "2024-01-15", Company: "Air France", Registration: "F-HBXA", FlightNumber: "AF-700", Type: flight.Departure, Passengers: 10}},
		{ID: "2", Input: flight.Input{Date: "2024-03-02", Company: "Binter", Registration: "EC-NVK", FlightNumber: "NT-120", Type: flight.Arrival, Passengers: 20}},
		{ID: "3", Input: flight.Input{Date: "2024-03-20", Company: "Air France", Registration: "F-HBXB", FlightNumber: "AF-701", Type: flight.Arrival, Passengers: 30}},
	}
	cases := []struct {
		name     string
		criteria Criteria
		want     []string
	}{
		{"zero value", Criteria{}, []string{"3", "2", "1"}},
		{"ALL placeholders", Criteria{Company: "ALL", Type: "ALL"}, []string{"3", "2", "1"}},
		{"month", Criteria{Month: time.March}, []string{"3", "2"}},
		{"company", Criteria{Company: "Air France"}, []string{"3", "1"}},
		{"date from inclusive", Criteria{DateFrom: "2024-03-02"}, []string{"3", "2"}},
		{"date to inclusive", Criteria{DateTo: "2024-03-02"}, []string{"2", "1"}},
		{"legacy type value", Criteria{Type: "ARR"}, []string{"3", "2"}},
		{"registration substring", Criteria{Registration: " hbx "}, []string{"3", "1"}},
		{"flight number substring", Criteria{FlightNumber: "af-70"}, []string{"3", "1"}},
		{"combined", Criteria{Company: "Air France", Month: time.March, Type: "ARRIVAL"}, []string{"3"}},
		{"no match", Criteria{Registration: "ZZ"}, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ids(Compute(records, tc.criteria).Visible)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("visible = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCompute_EmptyCollection(t *testing.T) {
	res := Compute(nil, Criteria{Type: "DEPARTURE"})
	if len(res.Visible) != 0 || res.Totals != (Totals{}) || res.Total != 0 {
		t.Fatalf("Compute(nil) = %+v, want empty result", res)
	}
}

func TestCriteria_ActiveAndDescribe(t *testing.T) {
	var c Criteria
	if c.Active() {
		t.Fatalf("zero criteria reported active")
	}
	if got := c.Describe(); got != "All flights" {
		t.Fatalf("Describe = %q, want All flights", got)
	}

	c = Criteria{Month: time.March, Type: "DEPARTURE", Registration: "5T"}
	if !c.Active() {
		t.Fatalf("criteria not reported active")
	}
	if got, want := c.Describe(), "March · Departure · reg~5T"; got != want {
		t.Fatalf("Describe = %q, want %q", got, want)
	}
	if c.Reset().Active() {
		t.Fatalf("Reset left criteria active")
	}
}
