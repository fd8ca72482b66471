package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/five82/tarmac/internal/flight"
	"github.com/five82/tarmac/internal/metrics"
	"github.com/five82/tarmac/internal/outcome"
	"github.com/five82/tarmac/internal/store"
	"github.com/five82/tarmac/internal/view"
)

// DefaultUndoWindow is how long a deleted record stays restorable.
const DefaultUndoWindow = 10 * time.Second

// UndoSlot holds the most recently deleted record.
type UndoSlot struct {
	Record    flight.Record
	ExpiresAt time.Time
	// Armed is true once the store confirmed the delete and the expiry timer
	// is running. An unarmed slot belongs to a delete the store rejected.
	Armed bool
}

// Snapshot is a copy of the engine state for rendering.
type Snapshot struct {
	Records             []flight.Record
	Undo                *UndoSlot
	LastError           error
	UpdatedAt           time.Time
	Subscribed          bool
	ConsecutiveFailures int
}

// IsOffline reports whether the push stream has failed repeatedly since the
// last applied collection.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// UndoAvailable reports whether an undo would restore a record.
func (s Snapshot) UndoAvailable() bool {
	return s.Undo != nil && s.Undo.Armed
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithMetrics attaches instruments.
func WithMetrics(m *metrics.Registry) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithUndoWindow overrides DefaultUndoWindow.
func WithUndoWindow(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.undoWindow = d
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine owns the local copy of the flight collection and the undo slot. It
// applies pushed collections from the store and performs mutations on the
// caller's behalf.
type Engine struct {
	store      store.RecordStore
	log        *zap.SugaredLogger
	metrics    *metrics.Registry
	undoWindow time.Duration
	now        func() time.Time
	updates    chan struct{}

	mu         sync.Mutex
	records    []flight.Record
	slot       *UndoSlot
	timer      *time.Timer
	timerGen   uint64
	undoing    bool
	lastErr    error
	updatedAt  time.Time
	subscribed bool
	cancelSub  context.CancelFunc
	failures   int
}

// New returns an engine bound to s. A nil store is allowed; every operation
// then fails with StoreUnavailable.
func New(s store.RecordStore, opts ...Option) *Engine {
	e := &Engine{
		store:      s,
		log:        zap.NewNop().Sugar(),
		undoWindow: DefaultUndoWindow,
		now:        time.Now,
		updates:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Updates signals after every state change. Signals coalesce: a receiver
// that falls behind sees one pending signal, not a backlog.
func (e *Engine) Updates() <-chan struct{} {
	return e.updates
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		Records:             flight.Clone(e.records),
		LastError:           e.lastErr,
		UpdatedAt:           e.updatedAt,
		Subscribed:          e.subscribed,
		ConsecutiveFailures: e.failures,
	}
	if e.slot != nil {
		slot := *e.slot
		snap.Undo = &slot
	}
	return snap
}

// View computes the visible projection of the current collection.
func (e *Engine) View(c view.Criteria) view.Result {
	e.mu.Lock()
	records := flight.Clone(e.records)
	e.mu.Unlock()
	return view.Compute(records, c)
}

// Subscribe opens the store subscription. Only one may be active; a second
// call fails with AlreadySubscribed until the first ends. Push errors are
// recorded in Snapshot.LastError and do not end the subscription.
func (e *Engine) Subscribe(ctx context.Context) error {
	const op = "subscribe"
	if e.store == nil {
		return outcome.New(outcome.KindStoreUnavailable, op, nil)
	}

	e.mu.Lock()
	if e.subscribed {
		e.mu.Unlock()
		return outcome.New(outcome.KindAlreadySubscribed, op, nil)
	}
	e.subscribed = true
	e.mu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	events, err := e.store.Subscribe(subCtx)
	if err != nil {
		cancel()
		failure := classify(op, err)
		e.mu.Lock()
		e.subscribed = false
		e.lastErr = failure
		e.failures++
		e.mu.Unlock()
		e.log.Warnw("subscribe failed", "error", err)
		e.signal()
		return failure
	}

	e.mu.Lock()
	e.cancelSub = cancel
	e.mu.Unlock()
	e.signal()

	go e.consume(subCtx, cancel, events)
	return nil
}

// Unsubscribe ends the active subscription, if any.
func (e *Engine) Unsubscribe() {
	e.mu.Lock()
	cancel := e.cancelSub
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Close ends the subscription and stops the undo timer.
func (e *Engine) Close() {
	e.Unsubscribe()
	e.mu.Lock()
	e.stopTimerLocked()
	e.mu.Unlock()
}

func (e *Engine) consume(ctx context.Context, cancel context.CancelFunc, events <-chan store.Event) {
	defer func() {
		cancel()
		e.mu.Lock()
		e.subscribed = false
		e.cancelSub = nil
		e.mu.Unlock()
		e.log.Infow("subscription ended")
		e.signal()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Err != nil {
				e.applyPushError(ev.Err)
				continue
			}
			e.applySnapshot(ev.Records)
		}
	}
}

// applySnapshot replaces the local collection wholesale. Any optimistic
// removal still waiting for the store to catch up is overwritten.
func (e *Engine) applySnapshot(records []flight.Record) {
	e.mu.Lock()
	e.records = flight.Clone(records)
	e.lastErr = nil
	e.failures = 0
	e.updatedAt = e.now()
	n := len(e.records)
	e.mu.Unlock()

	e.metrics.SnapshotApplied(n)
	e.log.Debugw("snapshot applied", "records", n)
	e.signal()
}

func (e *Engine) applyPushError(err error) {
	failure := classify("subscribe", err)
	e.mu.Lock()
	e.lastErr = failure
	e.failures++
	e.updatedAt = e.now()
	e.mu.Unlock()

	e.metrics.PushError()
	e.log.Warnw("push stream error", "error", err)
	e.signal()
}

// Create submits a new record. The local collection changes only when the
// store pushes the updated collection.
func (e *Engine) Create(ctx context.Context, in flight.Input) (flight.Record, error) {
	const op = "create"
	if e.store == nil {
		return flight.Record{}, outcome.New(outcome.KindStoreUnavailable, op, nil)
	}

	started := time.Now()
	rec, err := e.store.Create(ctx, in)
	e.metrics.ObserveStoreOp(op, started, err)
	if err != nil {
		e.log.Errorw("create failed", "flight", in.FlightNumber, "error", err)
		return flight.Record{}, classify(op, err)
	}
	e.log.Infow("record created", "id", rec.ID, "flight", rec.FlightNumber)
	return rec, nil
}

// Update replaces the payload of an existing record. It fails with
// RecordNotFound, without calling the store, when id is not in the local
// collection.
func (e *Engine) Update(ctx context.Context, id string, in flight.Input) (flight.Record, error) {
	const op = "update"
	if e.store == nil {
		return flight.Record{}, outcome.New(outcome.KindStoreUnavailable, op, nil)
	}

	e.mu.Lock()
	found := flight.IndexOf(e.records, id) >= 0
	e.mu.Unlock()
	if !found {
		return flight.Record{}, outcome.Newf(outcome.KindRecordNotFound, op, "no record %q", id)
	}

	started := time.Now()
	rec, err := e.store.Update(ctx, id, in)
	e.metrics.ObserveStoreOp(op, started, err)
	if err != nil {
		e.log.Errorw("update failed", "id", id, "error", err)
		return flight.Record{}, classify(op, err)
	}
	e.log.Infow("record updated", "id", id, "flight", rec.FlightNumber)
	return rec, nil
}

// Delete removes a record in two phases. The record is first placed in the
// undo slot, replacing any previous slot and cancelling its expiry. Once the
// store confirms, the record is removed from the local collection and the
// slot's expiry starts. If the store fails the collection is left untouched,
// the slot stays unarmed and the failure is returned.
func (e *Engine) Delete(ctx context.Context, id string) (flight.Record, error) {
	const op = "delete"
	if e.store == nil {
		return flight.Record{}, outcome.New(outcome.KindStoreUnavailable, op, nil)
	}

	e.mu.Lock()
	idx := flight.IndexOf(e.records, id)
	if idx < 0 {
		e.mu.Unlock()
		return flight.Record{}, outcome.Newf(outcome.KindRecordNotFound, op, "no record %q", id)
	}
	rec := e.records[idx]
	e.stopTimerLocked()
	slot := &UndoSlot{Record: rec}
	e.slot = slot
	e.mu.Unlock()

	started := time.Now()
	removed, err := e.store.Delete(ctx, id)
	e.metrics.ObserveStoreOp(op, started, err)
	if err != nil {
		e.log.Errorw("delete failed", "id", id, "error", err)
		e.signal()
		return flight.Record{}, classify(op, err)
	}
	if !removed {
		e.log.Warnw("delete found nothing in store", "id", id)
	}

	e.mu.Lock()
	if i := flight.IndexOf(e.records, id); i >= 0 {
		e.records = append(e.records[:i:i], e.records[i+1:]...)
	}
	n := len(e.records)
	if e.slot == slot {
		e.armTimerLocked()
	}
	e.mu.Unlock()

	e.metrics.RecordCount(n)
	e.log.Infow("record deleted", "id", id, "flight", rec.FlightNumber)
	e.signal()
	return rec, nil
}

// Undo restores the record in the undo slot as a new creation. It reports
// false with a nil error when there is nothing to restore. The restored
// record receives a new ID from the store. On failure the slot is kept so
// the user can retry before it expires.
func (e *Engine) Undo(ctx context.Context) (bool, error) {
	const op = "undo"

	e.mu.Lock()
	slot := e.slot
	if slot == nil || !slot.Armed || e.undoing {
		e.mu.Unlock()
		return false, nil
	}
	if e.store == nil {
		e.mu.Unlock()
		return false, outcome.New(outcome.KindStoreUnavailable, op, nil)
	}
	e.undoing = true
	e.mu.Unlock()

	started := time.Now()
	rec, err := e.store.Create(ctx, slot.Record.Input)
	e.metrics.ObserveStoreOp("create", started, err)

	e.mu.Lock()
	e.undoing = false
	if err == nil && e.slot == slot {
		e.stopTimerLocked()
		e.slot = nil
	}
	e.mu.Unlock()

	if err != nil {
		e.metrics.Undo("failed")
		e.log.Errorw("undo failed", "id", slot.Record.ID, "error", err)
		e.signal()
		return false, classify(op, err)
	}

	e.metrics.Undo("restored")
	e.log.Infow("record restored", "old_id", slot.Record.ID, "new_id", rec.ID)
	e.signal()
	return true, nil
}

// armTimerLocked starts the expiry for the current slot. Callers hold mu.
func (e *Engine) armTimerLocked() {
	e.stopTimerLocked()
	gen := e.timerGen
	e.slot.Armed = true
	e.slot.ExpiresAt = e.now().Add(e.undoWindow)
	e.timer = time.AfterFunc(e.undoWindow, func() { e.expire(gen) })
}

// stopTimerLocked cancels any pending expiry. Bumping the generation makes a
// callback that already fired a no-op. Callers hold mu.
func (e *Engine) stopTimerLocked() {
	e.timerGen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *Engine) expire(gen uint64) {
	e.mu.Lock()
	if gen != e.timerGen || e.slot == nil {
		e.mu.Unlock()
		return
	}
	id := e.slot.Record.ID
	e.slot = nil
	e.timer = nil
	e.mu.Unlock()

	e.metrics.Undo("expired")
	e.log.Debugw("undo slot expired", "id", id)
	e.signal()
}

func (e *Engine) signal() {
	select {
	case e.updates <- struct{}{}:
	default:
	}
}

// classify converts a store error into an outcome. Errors that already carry
// a kind pass through.
func classify(op string, err error) error {
	var oe *outcome.Error
	switch {
	case errors.As(err, &oe):
		return err
	case errors.Is(err, store.ErrUnavailable):
		return outcome.New(outcome.KindStoreUnavailable, op, err)
	case errors.Is(err, store.ErrNotFound):
		return outcome.New(outcome.KindRecordNotFound, op, err)
	default:
		return outcome.New(outcome.KindStoreFailed, op, err)
	}
}
