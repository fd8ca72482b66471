// Package mongostore keeps flight records in a MongoDB collection and pushes
// the collection to subscribers from a change stream. Deployments without
// change streams (standalone servers) fall back to polling.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/five82/tarmac/internal/flight"
	"github.com/five82/tarmac/internal/store"
)

// DefaultCollection is the collection holding flight movements.
const DefaultCollection = "flights"

const connectTimeout = 10 * time.Second

// Connect opens a client and verifies the server answers.
func Connect(ctx context.Context, uri, username, password string) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(uri)
	if username != "" && password != "" {
		clientOptions.SetAuth(options.Credential{
			Username: username,
			Password: password,
		})
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w: %w", store.ErrUnavailable, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w: %w", store.ErrUnavailable, err)
	}
	return client, nil
}

type document struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	flight.Input `bson:",inline"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

func (d document) record() flight.Record {
	in := d.Input
	in.Type = flight.ParseMovement(string(in.Type))
	return flight.Record{
		ID:        d.ID.Hex(),
		Input:     in,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// Store is a store.RecordStore backed by a MongoDB collection.
type Store struct {
	coll         *mongo.Collection
	pollInterval time.Duration
	now          func() time.Time
}

var _ store.RecordStore = (*Store)(nil)

// New wraps coll. pollInterval is used only when change streams are
// unavailable.
func New(coll *mongo.Collection, pollInterval time.Duration) *Store {
	if pollInterval <= 0 {
		pollInterval = store.DefaultPollInterval
	}
	return &Store{coll: coll, pollInterval: pollInterval, now: time.Now}
}

// Backend implements store.Describer.
func (s *Store) Backend() string { return "mongo" }

// Ping checks the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.coll.Database().Client().Ping(ctx, readpref.Primary()); err != nil {
		return wrap("ping", err)
	}
	return nil
}

// Create inserts a new document and returns the stored record.
func (s *Store) Create(ctx context.Context, in flight.Input) (flight.Record, error) {
	now := s.now().UTC()
	doc := document{
		ID:        primitive.NewObjectID(),
		Input:     in,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return flight.Record{}, wrap("insert flight", err)
	}
	return doc.record(), nil
}

// Update replaces the movement fields of id, keeping its creation time.
func (s *Store) Update(ctx context.Context, id string, in flight.Input) (flight.Record, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return flight.Record{}, fmt.Errorf("update flight %q: %w", id, store.ErrNotFound)
	}

	set := struct {
		flight.Input `bson:",inline"`
		UpdatedAt    time.Time `bson:"updatedAt"`
	}{Input: in, UpdatedAt: s.now().UTC()}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc document
	err = s.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return flight.Record{}, fmt.Errorf("update flight %q: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return flight.Record{}, wrap("update flight", err)
	}
	return doc.record(), nil
}

// Delete removes id and reports whether a document was removed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, wrap("delete flight", err)
	}
	return res.DeletedCount > 0, nil
}

// List returns every record, newest movement first.
func (s *Store) List(ctx context.Context) ([]flight.Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "timestamp", Value: -1}})
	cursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, wrap("find flights", err)
	}
	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, wrap("decode flights", err)
	}
	records := make([]flight.Record, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.record())
	}
	return records, nil
}

// Subscribe emits the collection, then re-emits it after every change the
// change stream reports. The stream is opened before the initial read so no
// write between the two is missed. When the deployment cannot open a change
// stream, or the stream dies, the failure is emitted once and the collection
// is polled instead.
func (s *Store) Subscribe(ctx context.Context) (<-chan store.Event, error) {
	csOpts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, watchErr := s.coll.Watch(ctx, mongo.Pipeline{}, csOpts)

	initial, err := s.List(ctx)
	if err != nil {
		if stream != nil {
			_ = stream.Close(context.Background())
		}
		return nil, err
	}

	out := make(chan store.Event)
	go func() {
		defer close(out)
		if !send(ctx, out, store.Event{Records: initial}) {
			if stream != nil {
				_ = stream.Close(context.Background())
			}
			return
		}
		if watchErr != nil {
			if !send(ctx, out, store.Event{Err: fmt.Errorf("open change stream, polling instead: %w", watchErr)}) {
				return
			}
			store.Poll(ctx, s.pollInterval, s.List, out)
			return
		}
		if err := s.follow(ctx, stream, out); err != nil && ctx.Err() == nil {
			if !send(ctx, out, store.Event{Err: fmt.Errorf("change stream closed, polling instead: %w", err)}) {
				return
			}
			store.Poll(ctx, s.pollInterval, s.List, out)
		}
	}()
	return out, nil
}

func (s *Store) follow(ctx context.Context, stream *mongo.ChangeStream, out chan<- store.Event) error {
	defer func() { _ = stream.Close(context.Background()) }()
	for stream.Next(ctx) {
		records, err := s.List(ctx)
		ev := store.Event{Records: records, Err: err}
		if err != nil {
			ev.Records = nil
		}
		if !send(ctx, out, ev) {
			return nil
		}
	}
	return stream.Err()
}

func send(ctx context.Context, out chan<- store.Event, ev store.Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func wrap(op string, err error) error {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, mongo.ErrClientDisconnected) {
		return fmt.Errorf("%s: %w: %w", op, store.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
