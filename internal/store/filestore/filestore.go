// Package filestore is the local fallback record store: the whole collection
// lives in one JSON file that every console on the host polls for changes.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/five82/tarmac/internal/flight"
	"github.com/five82/tarmac/internal/store"
)

type slot struct {
	Flights []flight.Record `json:"flights"`
}

// Store is a store.RecordStore backed by a JSON file.
type Store struct {
	path     string
	interval time.Duration
	now      func() time.Time

	mu sync.Mutex
}

var _ store.RecordStore = (*Store)(nil)

// New returns a store persisting to path, polled every interval.
func New(path string, interval time.Duration) *Store {
	if interval <= 0 {
		interval = store.DefaultPollInterval
	}
	return &Store{path: path, interval: interval, now: time.Now}
}

// Backend implements store.Describer.
func (s *Store) Backend() string { return "file" }

// Path returns the slot file location.
func (s *Store) Path() string { return s.path }

// Create appends a new record with a fresh UUID.
func (s *Store) Create(_ context.Context, in flight.Input) (flight.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return flight.Record{}, err
	}
	now := s.now().UTC()
	rec := flight.Record{ID: uuid.NewString(), Input: in, CreatedAt: now, UpdatedAt: now}
	if err := s.save(append(records, rec)); err != nil {
		return flight.Record{}, err
	}
	return rec, nil
}

// Update replaces the movement fields of id, keeping its creation time.
func (s *Store) Update(_ context.Context, id string, in flight.Input) (flight.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return flight.Record{}, err
	}
	idx := flight.IndexOf(records, id)
	if idx < 0 {
		return flight.Record{}, fmt.Errorf("update flight %q: %w", id, store.ErrNotFound)
	}
	records[idx].Input = in
	records[idx].UpdatedAt = s.now().UTC()
	if err := s.save(records); err != nil {
		return flight.Record{}, err
	}
	return records[idx], nil
}

// Delete removes id and reports whether it existed.
func (s *Store) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return false, err
	}
	idx := flight.IndexOf(records, id)
	if idx < 0 {
		return false, nil
	}
	if err := s.save(append(records[:idx], records[idx+1:]...)); err != nil {
		return false, err
	}
	return true, nil
}

// List returns the records in file order.
func (s *Store) List(context.Context) ([]flight.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Subscribe emits the collection and then polls the file, emitting whenever
// its content changes, including changes written by other processes.
func (s *Store) Subscribe(ctx context.Context) (<-chan store.Event, error) {
	if _, err := s.List(ctx); err != nil {
		return nil, err
	}
	out := make(chan store.Event)
	go func() {
		defer close(out)
		store.Poll(ctx, s.interval, s.List, out)
	}()
	return out, nil
}

func (s *Store) load() ([]flight.Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read flights file: %w: %w", store.ErrUnavailable, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var doc slot
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse flights file: %w", err)
	}
	return doc.Flights, nil
}

// save replaces the file atomically so pollers never read a partial write.
func (s *Store) save(records []flight.Record) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create flights dir: %w", err)
	}
	if records == nil {
		records = []flight.Record{}
	}
	data, err := json.MarshalIndent(slot{Flights: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode flights: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".flights-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write flights: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync flights: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close flights: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace flights file: %w", err)
	}
	return nil
}
