package store

import (
	"context"
	"errors"

	"github.com/five82/tarmac/internal/flight"
)

var (
	// ErrUnavailable reports that the backing service cannot be reached.
	ErrUnavailable = errors.New("record store unavailable")
	// ErrNotFound reports that the addressed record does not exist.
	ErrNotFound = errors.New("record not found")
)

// Event is one delivery on a subscription: either the complete current
// collection or a push-stream failure. A failure does not end the stream.
type Event struct {
	Records []flight.Record
	Err     error
}

// RecordStore is the remote collection of flight records.
//
// Subscribe delivers the current collection as its first event and the whole
// collection again after every change. Cancelling ctx ends the subscription
// and closes the channel.
type RecordStore interface {
	Create(ctx context.Context, in flight.Input) (flight.Record, error)
	Update(ctx context.Context, id string, in flight.Input) (flight.Record, error)
	Delete(ctx context.Context, id string) (bool, error)
	Subscribe(ctx context.Context) (<-chan Event, error)
}

// Describer is implemented by stores that can name their backend for status
// display.
type Describer interface {
	Backend() string
}

// Backend returns the backend name of s, or "unknown".
func Backend(s RecordStore) string {
	if d, ok := s.(Describer); ok {
		return d.Backend()
	}
	return "unknown"
}
