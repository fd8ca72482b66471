// Package redisstore keeps flight records in a Redis hash and announces
// every write on a pub/sub channel so subscribers re-read the collection.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/five82/tarmac/internal/flight"
	"github.com/five82/tarmac/internal/store"
)

// DefaultPrefix namespaces the keys when none is configured.
const DefaultPrefix = "tarmac"

// Store is a store.RecordStore backed by Redis.
type Store struct {
	client  redis.UniversalClient
	hash    string
	channel string
	now     func() time.Time
}

var _ store.RecordStore = (*Store)(nil)

// New returns a store using keys under prefix.
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{
		client:  client,
		hash:    prefix + ":flights",
		channel: prefix + ":flights:changed",
		now:     time.Now,
	}
}

// Backend implements store.Describer.
func (s *Store) Backend() string { return "redis" }

// Ping checks the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return wrap("ping", err)
	}
	return nil
}

// Create stores a new record under a fresh UUID.
func (s *Store) Create(ctx context.Context, in flight.Input) (flight.Record, error) {
	now := s.now().UTC()
	rec := flight.Record{
		ID:        uuid.NewString(),
		Input:     in,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.write(ctx, rec); err != nil {
		return flight.Record{}, wrap("create flight", err)
	}
	return rec, nil
}

// Update replaces the movement fields of id, keeping its creation time.
func (s *Store) Update(ctx context.Context, id string, in flight.Input) (flight.Record, error) {
	var rec flight.Record
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, s.hash, id).Result()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("update flight %q: %w", id, store.ErrNotFound)
		}
		if err != nil {
			return err
		}
		var existing flight.Record
		if err := json.Unmarshal([]byte(raw), &existing); err != nil {
			return fmt.Errorf("decode flight %q: %w", id, err)
		}
		rec = flight.Record{
			ID:        id,
			Input:     in,
			CreatedAt: existing.CreatedAt,
			UpdatedAt: s.now().UTC(),
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode flight: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, s.hash, id, data)
			pipe.Publish(ctx, s.channel, id)
			return nil
		})
		return err
	}, s.hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return flight.Record{}, err
		}
		return flight.Record{}, wrap("update flight", err)
	}
	return rec, nil
}

// Delete removes id and reports whether it existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	var removed *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.HDel(ctx, s.hash, id)
		pipe.Publish(ctx, s.channel, id)
		return nil
	})
	if err != nil {
		return false, wrap("delete flight", err)
	}
	return removed.Val() > 0, nil
}

// List returns every record ordered by creation time.
func (s *Store) List(ctx context.Context) ([]flight.Record, error) {
	raw, err := s.client.HGetAll(ctx, s.hash).Result()
	if err != nil {
		return nil, wrap("list flights", err)
	}
	records := make([]flight.Record, 0, len(raw))
	for id, value := range raw {
		var rec flight.Record
		if err := json.Unmarshal([]byte(value), &rec); err != nil {
			return nil, fmt.Errorf("decode flight %q: %w", id, err)
		}
		rec.ID = id
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})
	return records, nil
}

// Subscribe emits the collection, then re-reads and emits it after every
// change notification. Notifications arriving while a read is in progress
// collapse into the next read.
func (s *Store) Subscribe(ctx context.Context) (<-chan store.Event, error) {
	pubsub := s.client.Subscribe(ctx, s.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, wrap("subscribe", err)
	}

	out := make(chan store.Event)
	go func() {
		defer close(out)
		defer func() { _ = pubsub.Close() }()

		if !s.emit(ctx, out) {
			return
		}
		notes := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-notes:
				if !ok {
					return
				}
				drainPending(notes)
				if !s.emit(ctx, out) {
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *Store) emit(ctx context.Context, out chan<- store.Event) bool {
	records, err := s.List(ctx)
	ev := store.Event{Records: records, Err: err}
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		ev.Records = nil
	}
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func drainPending(notes <-chan *redis.Message) {
	for {
		select {
		case _, ok := <-notes:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (s *Store) write(ctx context.Context, rec flight.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode flight: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.hash, rec.ID, data)
		pipe.Publish(ctx, s.channel, rec.ID)
		return nil
	})
	return err
}

func wrap(op string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.EOF) || errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("%s: %w: %w", op, store.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
