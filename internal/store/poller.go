package store

import (
	"context"
	"reflect"
	"time"

	"github.com/five82/tarmac/internal/flight"
)

const (
	// DefaultPollInterval is used when a backend is configured without one.
	DefaultPollInterval = 2 * time.Second
	maxBackoff          = 30 * time.Second
)

// FetchFunc loads the complete current collection.
type FetchFunc func(ctx context.Context) ([]flight.Record, error)

// Poll calls fetch at the given cadence and sends an Event whenever the
// collection differs from the last one delivered. The first successful fetch,
// and the first one after a failure, is always delivered. Fetch failures are
// delivered once per failure streak and back off exponentially until the next
// success. Poll returns when ctx is done.
func Poll(ctx context.Context, interval time.Duration, fetch FetchFunc, out chan<- Event) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	var (
		last      []flight.Record
		delivered bool
		failures  int
	)
	for {
		records, err := fetch(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			if failures == 0 && !send(ctx, out, Event{Err: err}) {
				return
			}
			failures++
			delivered = false
		default:
			failures = 0
			next := flight.Clone(records)
			if !delivered || !reflect.DeepEqual(last, next) {
				if !send(ctx, out, Event{Records: flight.Clone(next)}) {
					return
				}
				last = next
				delivered = true
			}
		}

		timer := time.NewTimer(calculateBackoff(failures, interval))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// calculateBackoff doubles the interval per consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

func send(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
