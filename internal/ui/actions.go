package ui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/tarmac/internal/flight"
	"github.com/five82/tarmac/internal/outcome"
)

type actionKind int

const (
	actionCreate actionKind = iota
	actionUpdate
	actionDelete
	actionUndo
	actionReconnect
)

// actionResultMsg reports the end of one mutating action. Each action
// produces exactly one of these and therefore exactly one notification.
type actionResultMsg struct {
	kind     actionKind
	record   flight.Record
	restored bool
	err      error
}

type toastLevel int

const (
	toastInfo toastLevel = iota
	toastSuccess
	toastError
)

type toast struct {
	text    string
	level   toastLevel
	expires time.Time
}

func infoToast(text string) *toast    { return &toast{text: text, level: toastInfo} }
func successToast(text string) *toast { return &toast{text: text, level: toastSuccess} }
func errorToast(text string) *toast   { return &toast{text: text, level: toastError} }

func (r actionResultMsg) notification() *toast {
	if r.err != nil {
		if outcome.KindOf(r.err) == outcome.KindAuthCancelled {
			return infoToast(outcome.Message(r.err))
		}
		return errorToast(outcome.Message(r.err))
	}
	label := r.record.FlightNumber
	if label == "" {
		label = r.record.ID
	}
	switch r.kind {
	case actionCreate:
		return successToast(fmt.Sprintf("Flight %s created", label))
	case actionUpdate:
		return successToast(fmt.Sprintf("Flight %s updated", label))
	case actionDelete:
		return successToast(fmt.Sprintf("Flight %s deleted · u to undo", label))
	case actionReconnect:
		return successToast("Live updates restored")
	default:
		if !r.restored {
			return infoToast("Nothing to undo")
		}
		return successToast(fmt.Sprintf("Flight %s restored", label))
	}
}

// guarded runs action behind the gate in a command goroutine, so the gate
// can prompt through the SecretPrompter while Update keeps running.
func (m Model) guarded(kind actionKind, rec flight.Record, action func(ctx context.Context) (flight.Record, error)) tea.Cmd {
	if m.engine == nil {
		return nil
	}
	ctx, g := m.ctx, m.gate
	return func() tea.Msg {
		result := actionResultMsg{kind: kind, record: rec}
		run := func(ctx context.Context) error {
			out, err := action(ctx)
			if err == nil && out.ID != "" {
				result.record = out
			}
			return err
		}
		if g == nil {
			result.err = run(ctx)
			return result
		}
		_, result.err = g.RunIfAuthenticated(ctx, run)
		return result
	}
}

func (m Model) createCmd(in flight.Input) tea.Cmd {
	in = in.StampNow(m.now())
	eng := m.engine
	return m.guarded(actionCreate, flight.Record{Input: in}, func(ctx context.Context) (flight.Record, error) {
		return eng.Create(ctx, in)
	})
}

func (m Model) updateCmd(id string, in flight.Input) tea.Cmd {
	eng := m.engine
	return m.guarded(actionUpdate, flight.Record{ID: id, Input: in}, func(ctx context.Context) (flight.Record, error) {
		return eng.Update(ctx, id, in)
	})
}

func (m Model) deleteCmd(rec flight.Record) tea.Cmd {
	eng := m.engine
	return m.guarded(actionDelete, rec, func(ctx context.Context) (flight.Record, error) {
		return eng.Delete(ctx, rec.ID)
	})
}

// undoCmd restores the undo slot. Undo is not gated: only an authenticated
// operator can have filled the slot.
func (m Model) undoCmd() tea.Cmd {
	if m.engine == nil {
		return nil
	}
	var rec flight.Record
	if slot := m.snapshot.Undo; slot != nil {
		rec = slot.Record
	}
	ctx, eng := m.ctx, m.engine
	return func() tea.Msg {
		restored, err := eng.Undo(ctx)
		return actionResultMsg{kind: actionUndo, record: rec, restored: restored, err: err}
	}
}

// reconnectCmd restarts the engine subscription after it ended or never
// started. It is not gated: it reads the store and changes nothing.
func (m Model) reconnectCmd() tea.Cmd {
	if m.engine == nil {
		return nil
	}
	ctx, eng := m.ctx, m.engine
	return func() tea.Msg {
		return actionResultMsg{kind: actionReconnect, err: eng.Subscribe(ctx)}
	}
}
