package ui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/tarmac/internal/engine"
	"github.com/five82/tarmac/internal/flight"
	"github.com/five82/tarmac/internal/outcome"
	"github.com/five82/tarmac/internal/view"
)

var fixedNow = time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

type fakeEngine struct {
	mu      sync.Mutex
	snap    engine.Snapshot
	updates chan struct{}

	created []flight.Input
	updated map[string]flight.Input
	deleted []string
	undone  int

	undoResult   bool
	err          error
	subscribes   int
	subscribeErr error
}

func newFakeEngine(records ...flight.Record) *fakeEngine {
	return &fakeEngine{
		snap:    engine.Snapshot{Records: records, Subscribed: true},
		updates: make(chan struct{}, 1),
		updated: make(map[string]flight.Input),
	}
}

func (f *fakeEngine) Snapshot() engine.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeEngine) Updates() <-chan struct{} { return f.updates }

func (f *fakeEngine) setRecords(records ...flight.Record) {
	f.mu.Lock()
	f.snap.Records = records
	f.mu.Unlock()
}

func (f *fakeEngine) Create(_ context.Context, in flight.Input) (flight.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return flight.Record{}, f.err
	}
	f.created = append(f.created, in)
	return flight.Record{ID: "new", Input: in}, nil
}

func (f *fakeEngine) Update(_ context.Context, id string, in flight.Input) (flight.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return flight.Record{}, f.err
	}
	f.updated[id] = in
	return flight.Record{ID: id, Input: in}, nil
}

func (f *fakeEngine) Delete(_ context.Context, id string) (flight.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return flight.Record{}, f.err
	}
	f.deleted = append(f.deleted, id)
	for _, r := range f.snap.Records {
		if r.ID == id {
			return r, nil
		}
	}
	return flight.Record{}, outcome.New(outcome.KindRecordNotFound, "delete", nil)
}

func (f *fakeEngine) Undo(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.undone++
	return f.undoResult, f.err
}

func (f *fakeEngine) Subscribe(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribes++
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.snap.Subscribed = true
	return nil
}

type fakeGate struct {
	allow bool
	calls int
}

func (g *fakeGate) RunIfAuthenticated(ctx context.Context, action func(ctx context.Context) error) (bool, error) {
	g.calls++
	if !g.allow {
		return false, outcome.New(outcome.KindAuthCancelled, "run", nil)
	}
	return true, action(ctx)
}

func (g *fakeGate) Authenticated() bool { return g.allow }

func sampleRecords() []flight.Record {
	return []flight.Record{
		{ID: "1", Input: flight.Input{Date: "2024-03-01", Company: "Turkish Airlines", FlightNumber: "TK-601", Type: flight.Departure, Passengers: 100, Babies: 2, Timestamp: 10}},
		{ID: "2", Input: flight.Input{Date: "2024-03-02", Company: "Air France", FlightNumber: "AF-100", Type: flight.Arrival, Passengers: 50, Timestamp: 20}},
		{ID: "3", Input: flight.Input{Date: "2024-02-15", Company: "Binter", FlightNumber: "NT-12", Type: flight.Departure, Passengers: 30, Babies: 1, Timestamp: 5}},
	}
}

func newTestModel(t *testing.T, eng *fakeEngine, g *fakeGate) Model {
	t.Helper()
	opts := Options{
		Engine:    eng,
		PrefsPath: filepath.Join(t.TempDir(), "prefs.toml"),
		Now:       func() time.Time { return fixedNow },
	}
	if g != nil {
		opts.Gate = g
	}
	m := New(opts)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	return next.(Model)
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func press(m Model, k string) (Model, tea.Cmd) {
	next, cmd := m.Update(keyMsg(k))
	return next.(Model), cmd
}

// deliver runs cmd and feeds its message back into the model.
func deliver(t *testing.T, m Model, cmd tea.Cmd) (Model, tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatalf("expected a command, got nil")
	}
	next, out := m.Update(cmd())
	return next.(Model), out
}

func visibleIDs(m Model) []string {
	ids := make([]string, 0, len(m.result.Visible))
	for _, r := range m.result.Visible {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestNew_OrdersRowsAndTotals(t *testing.T) {
	m := newTestModel(t, newFakeEngine(sampleRecords()...), nil)

	if got := strings.Join(visibleIDs(m), ","); got != "2,1,3" {
		t.Fatalf("visible = %s, want 2,1,3", got)
	}
	if m.result.Totals.Passengers != 180 || m.result.Totals.Babies != 3 || m.result.Total != 3 {
		t.Fatalf("result = %+v", m.result)
	}
	if m.selectedID != "2" {
		t.Fatalf("selectedID = %q, want first row", m.selectedID)
	}
}

func TestDelete_RunsThroughGateWithOneNotification(t *testing.T) {
	eng := newFakeEngine(sampleRecords()...)
	g := &fakeGate{allow: true}
	m := newTestModel(t, eng, g)

	m, cmd := press(m, "d")
	m, _ = deliver(t, m, cmd)

	if g.calls != 1 {
		t.Fatalf("gate calls = %d, want 1", g.calls)
	}
	if len(eng.deleted) != 1 || eng.deleted[0] != "2" {
		t.Fatalf("deleted = %v, want [2]", eng.deleted)
	}
	if m.toast == nil || m.toast.level != toastSuccess || !strings.Contains(m.toast.text, "AF-100 deleted") {
		t.Fatalf("toast = %+v, want delete notification", m.toast)
	}
	if !m.toast.expires.Equal(fixedNow.Add(toastDuration)) {
		t.Fatalf("toast expires = %v", m.toast.expires)
	}
}

func TestDelete_CancelledAuthenticationLeavesRecords(t *testing.T) {
	eng := newFakeEngine(sampleRecords()...)
	m := newTestModel(t, eng, &fakeGate{allow: false})

	m, cmd := press(m, "d")
	m, _ = deliver(t, m, cmd)

	if len(eng.deleted) != 0 {
		t.Fatalf("deleted = %v, want none", eng.deleted)
	}
	if m.toast == nil || m.toast.text != "Action cancelled" || m.toast.level != toastInfo {
		t.Fatalf("toast = %+v, want cancellation notice", m.toast)
	}
}

func TestDelete_StoreFailureShowsError(t *testing.T) {
	eng := newFakeEngine(sampleRecords()...)
	eng.err = outcome.New(outcome.KindStoreUnavailable, "delete", errors.New("dial tcp: connection refused"))
	m := newTestModel(t, eng, &fakeGate{allow: true})

	m, cmd := press(m, "d")
	m, _ = deliver(t, m, cmd)

	if m.toast == nil || m.toast.level != toastError || m.toast.text != "Record store unavailable" {
		t.Fatalf("toast = %+v, want store unavailable", m.toast)
	}
}

func TestUndo_NothingToUndo(t *testing.T) {
	eng := newFakeEngine(sampleRecords()...)
	m := newTestModel(t, eng, &fakeGate{allow: false})

	m, cmd := press(m, "u")
	m, _ = deliver(t, m, cmd)

	if eng.undone != 1 {
		t.Fatalf("undo calls = %d, want 1 (undo is not gated)", eng.undone)
	}
	if m.toast == nil || m.toast.text != "Nothing to undo" {
		t.Fatalf("toast = %+v", m.toast)
	}
}

func TestUndo_RestoredNamesFlight(t *testing.T) {
	eng := newFakeEngine(sampleRecords()...)
	eng.undoResult = true
	eng.snap.Undo = &engine.UndoSlot{Record: sampleRecords()[0], ExpiresAt: fixedNow.Add(7 * time.Second), Armed: true}
	m := newTestModel(t, eng, nil)

	if header := m.renderHeader(); !strings.Contains(header, "7s") {
		t.Fatalf("header missing undo countdown: %q", header)
	}

	m, cmd := press(m, "u")
	m, _ = deliver(t, m, cmd)
	if m.toast == nil || m.toast.text != "Flight TK-601 restored" {
		t.Fatalf("toast = %+v", m.toast)
	}
}

func TestFilterKeys(t *testing.T) {
	m := newTestModel(t, newFakeEngine(sampleRecords()...), nil)

	m, _ = press(m, "f")
	if m.criteria.Type != string(flight.Departure) {
		t.Fatalf("Type = %q, want DEPARTURE", m.criteria.Type)
	}
	if got := strings.Join(visibleIDs(m), ","); got != "1,3" {
		t.Fatalf("visible = %s, want 1,3", got)
	}
	if m.result.Totals.Passengers != 130 {
		t.Fatalf("passengers = %d, want 130", m.result.Totals.Passengers)
	}

	m, _ = press(m, "m")
	m, _ = press(m, "m")
	m, _ = press(m, "m")
	if m.criteria.Month != time.March {
		t.Fatalf("Month = %v, want March", m.criteria.Month)
	}
	if got := strings.Join(visibleIDs(m), ","); got != "1" {
		t.Fatalf("visible = %s, want 1", got)
	}

	m, _ = press(m, "r")
	if m.criteria.Active() {
		t.Fatalf("criteria still active after reset: %+v", m.criteria)
	}
	if m.toast == nil || m.toast.text != "Filters reset" {
		t.Fatalf("toast = %+v, want reset notice", m.toast)
	}
	if len(m.result.Visible) != 3 {
		t.Fatalf("visible = %d, want all rows", len(m.result.Visible))
	}
}

func TestSelection_FollowsRecordAcrossUpdates(t *testing.T) {
	eng := newFakeEngine(sampleRecords()...)
	m := newTestModel(t, eng, nil)

	m, _ = press(m, "j")
	if m.selectedID != "1" {
		t.Fatalf("selectedID = %q, want 1", m.selectedID)
	}

	newer := flight.Record{ID: "4", Input: flight.Input{Date: "2024-04-01", Type: flight.Arrival, FlightNumber: "HC-1"}}
	eng.setRecords(append(sampleRecords(), newer)...)
	next, _ := m.Update(engineUpdatedMsg{})
	m = next.(Model)

	if m.selectedID != "1" || m.selectedRow != 2 {
		t.Fatalf("selection = %q@%d, want 1@2", m.selectedID, m.selectedRow)
	}

	eng.setRecords(sampleRecords()[1:]...)
	next, _ = m.Update(engineUpdatedMsg{})
	m = next.(Model)
	if m.selectedRow != 1 || m.selectedID != "3" {
		t.Fatalf("selection after removal = %q@%d, want 3@1", m.selectedID, m.selectedRow)
	}
}

func TestForm_InvalidInputStaysOpen(t *testing.T) {
	eng := newFakeEngine()
	m := newTestModel(t, eng, &fakeGate{allow: true})

	m, _ = press(m, "n")
	form, ok := m.modal.(*flightForm)
	if !ok {
		t.Fatalf("modal = %T, want *flightForm", m.modal)
	}

	m, cmd := press(m, "enter")
	if cmd != nil {
		t.Fatalf("invalid form produced a command")
	}
	if m.modal == nil {
		t.Fatalf("form closed on invalid input")
	}
	if form.errs.For("authorizationNumber") == "" || form.errs.For("registration") == "" {
		t.Fatalf("errs = %#v, want authorization and registration errors", form.errs)
	}
	if len(eng.created) != 0 {
		t.Fatalf("engine received %d creates", len(eng.created))
	}
}

func TestForm_SubmitCreatesFlight(t *testing.T) {
	eng := newFakeEngine()
	m := newTestModel(t, eng, &fakeGate{allow: true})

	m, _ = press(m, "n")
	form := m.modal.(*flightForm)
	if got := form.get("date"); got != "2024-03-05" {
		t.Fatalf("default date = %q, want today", got)
	}
	form.set("authorizationNumber", "sna26-42")
	form.set("registration", "tc-jja")
	form.set("flightNumber", "l6-501")
	form.set("passengers", "120")

	m, cmd := press(m, "enter")
	if m.modal != nil {
		t.Fatalf("form still open after valid submit")
	}
	m, cmd = deliver(t, m, cmd)
	m, _ = deliver(t, m, cmd)

	if len(eng.created) != 1 {
		t.Fatalf("created = %d, want 1", len(eng.created))
	}
	in := eng.created[0]
	if in.AuthorizationNumber != "SNA26-42" || in.Registration != "TC-JJA" || in.Passengers != 120 {
		t.Fatalf("created input = %+v", in)
	}
	if in.Timestamp != fixedNow.UnixMilli() {
		t.Fatalf("Timestamp = %d, want %d", in.Timestamp, fixedNow.UnixMilli())
	}
	if m.toast == nil || m.toast.text != "Flight L6-501 created" {
		t.Fatalf("toast = %+v", m.toast)
	}
}

func TestForm_EditKeepsIDAndTimestamp(t *testing.T) {
	records := sampleRecords()
	for i := range records {
		records[i].AuthorizationNumber = "SNA26-1"
		records[i].Registration = "5T-CLC"
	}
	eng := newFakeEngine(records...)
	m := newTestModel(t, eng, &fakeGate{allow: true})

	m, _ = press(m, "e")
	form := m.modal.(*flightForm)
	form.set("passengers", "55")

	m, cmd := press(m, "enter")
	m, cmd = deliver(t, m, cmd)
	m, _ = deliver(t, m, cmd)

	in, ok := eng.updated["2"]
	if !ok {
		t.Fatalf("updated = %v, want id 2", eng.updated)
	}
	if in.Passengers != 55 || in.Timestamp != 20 {
		t.Fatalf("updated input = %+v", in)
	}
	if m.toast == nil || m.toast.text != "Flight AF-100 updated" {
		t.Fatalf("toast = %+v", m.toast)
	}
}

func TestForm_CompanyChangeSuggestsPrefix(t *testing.T) {
	m := newTestModel(t, newFakeEngine(), nil)
	m, _ = press(m, "n")
	form := m.modal.(*flightForm)
	form.fields.setFocus(2) // company

	first := form.get("company")
	m, _ = press(m, "right")
	if form.get("company") == first {
		t.Fatalf("company did not change")
	}
	want := flight.Prefix(form.get("company")) + "-"
	if got := form.get("flightNumber"); got != want {
		t.Fatalf("flightNumber = %q, want %q", got, want)
	}
}

func TestFilterEditor_AppliesCriteria(t *testing.T) {
	m := newTestModel(t, newFakeEngine(sampleRecords()...), nil)

	m, _ = press(m, "/")
	editor, ok := m.modal.(*filterEditor)
	if !ok {
		t.Fatalf("modal = %T, want *filterEditor", m.modal)
	}
	editor.set("dateFrom", "2024-03-01")
	editor.set("flightNumber", "tk")

	m, cmd := press(m, "enter")
	m, _ = deliver(t, m, cmd)

	want := view.Criteria{Company: view.All, Type: view.All, DateFrom: "2024-03-01", FlightNumber: "tk"}
	if m.criteria != want {
		t.Fatalf("criteria = %+v, want %+v", m.criteria, want)
	}
	if got := strings.Join(visibleIDs(m), ","); got != "1" {
		t.Fatalf("visible = %s, want 1", got)
	}
}

func TestFilterEditor_RejectsBadDate(t *testing.T) {
	m := newTestModel(t, newFakeEngine(), nil)
	m, _ = press(m, "/")
	editor := m.modal.(*filterEditor)
	editor.set("dateTo", "03/2024")

	m, cmd := press(m, "enter")
	if cmd != nil || m.modal == nil {
		t.Fatalf("editor closed with an invalid date")
	}
	if editor.errs["dateTo"] == "" {
		t.Fatalf("errs = %v, want dateTo error", editor.errs)
	}
}

func TestTick_ExpiresToast(t *testing.T) {
	m := newTestModel(t, newFakeEngine(), nil)
	m.notify(infoToast("hello"))

	next, _ := m.Update(tickMsg(fixedNow.Add(time.Second)))
	m = next.(Model)
	if m.toast == nil {
		t.Fatalf("toast expired early")
	}
	next, _ = m.Update(tickMsg(fixedNow.Add(toastDuration)))
	m = next.(Model)
	if m.toast != nil {
		t.Fatalf("toast = %+v, want expired", m.toast)
	}
}

func TestView_RendersEmptyAndPopulated(t *testing.T) {
	m := newTestModel(t, newFakeEngine(), nil)
	if out := m.View(); !strings.Contains(out, "No flights recorded") {
		t.Fatalf("empty view missing placeholder")
	}

	m = newTestModel(t, newFakeEngine(sampleRecords()...), nil)
	out := m.View()
	for _, want := range []string{"tarmac", "AF-100", "02/03/2024", "180"} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q", want)
		}
	}
}

func TestReconnect_RestartsEndedSubscription(t *testing.T) {
	eng := newFakeEngine(sampleRecords()...)
	eng.snap.Subscribed = false
	m := newTestModel(t, eng, &fakeGate{allow: false})

	if bar := m.renderCommandBar(); !strings.Contains(bar, "Reconnect") {
		t.Fatalf("command bar missing reconnect hint: %q", bar)
	}

	m, cmd := press(m, "R")
	m, _ = deliver(t, m, cmd)

	if eng.subscribes != 1 {
		t.Fatalf("Subscribe calls = %d, want 1", eng.subscribes)
	}
	if !m.snapshot.Subscribed {
		t.Fatalf("snapshot not refreshed after reconnect")
	}
	if m.toast == nil || m.toast.level != toastSuccess || m.toast.text != "Live updates restored" {
		t.Fatalf("toast = %+v, want reconnect notice", m.toast)
	}
}

func TestReconnect_FailureShowsError(t *testing.T) {
	eng := newFakeEngine()
	eng.snap.Subscribed = false
	eng.subscribeErr = outcome.New(outcome.KindStoreUnavailable, "subscribe", errors.New("connection refused"))
	m := newTestModel(t, eng, nil)

	m, cmd := press(m, "R")
	m, _ = deliver(t, m, cmd)

	if m.toast == nil || m.toast.level != toastError || m.toast.text != "Record store unavailable" {
		t.Fatalf("toast = %+v, want store unavailable", m.toast)
	}
}

func TestReconnect_NoopWhileLive(t *testing.T) {
	eng := newFakeEngine(sampleRecords()...)
	m := newTestModel(t, eng, nil)

	m, cmd := press(m, "R")
	if cmd != nil {
		t.Fatalf("reconnect while live produced a command")
	}
	if eng.subscribes != 0 {
		t.Fatalf("Subscribe calls = %d, want 0", eng.subscribes)
	}
	if m.toast == nil || m.toast.level != toastInfo {
		t.Fatalf("toast = %+v, want info notice", m.toast)
	}
}
