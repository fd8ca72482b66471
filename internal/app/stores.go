package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/five82/tarmac/internal/config"
	"github.com/five82/tarmac/internal/gate"
	"github.com/five82/tarmac/internal/store"
	"github.com/five82/tarmac/internal/store/filestore"
	"github.com/five82/tarmac/internal/store/mongostore"
	"github.com/five82/tarmac/internal/store/redisstore"
)

const pingTimeout = 3 * time.Second

// recordStore is the opened record store and what it holds open.
type recordStore struct {
	store    store.RecordStore
	name     string
	fallback bool
	closers  []func() error
}

// Close releases the store's connections.
func (r *recordStore) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		_ = r.closers[i]()
	}
}

// openStore connects the configured backend. When it cannot be reached and
// store.fallback is set, the local file store is used instead.
func openStore(ctx context.Context, cfg config.Config, log *zap.SugaredLogger) (*recordStore, error) {
	var (
		rs  *recordStore
		err error
	)
	switch cfg.Store.Backend {
	case config.BackendMongo:
		rs, err = openMongo(ctx, cfg)
	case config.BackendRedis:
		rs, err = openRedis(ctx, cfg)
	case config.BackendFile:
		return openFile(cfg), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	if err == nil {
		return rs, nil
	}
	if !cfg.Store.Fallback {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}

	log.Warnw("record store unreachable, using local file",
		"backend", cfg.Store.Backend,
		"path", cfg.File.Path,
		"error", err,
	)
	rs = openFile(cfg)
	rs.fallback = true
	return rs, nil
}

func openMongo(ctx context.Context, cfg config.Config) (*recordStore, error) {
	client, err := mongostore.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Username, cfg.Mongo.Password)
	if err != nil {
		return nil, err
	}
	coll := client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection)
	return &recordStore{
		store:   mongostore.New(coll, cfg.Store.PollInterval),
		name:    config.BackendMongo,
		closers: []func() error{disconnectMongo(client)},
	}, nil
}

func disconnectMongo(client *mongo.Client) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()
		return client.Disconnect(ctx)
	}
}

func openRedis(ctx context.Context, cfg config.Config) (*recordStore, error) {
	client := newRedisClient(cfg.Redis)
	s := redisstore.New(client, cfg.Redis.Prefix)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.Ping(pingCtx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &recordStore{
		store:   s,
		name:    config.BackendRedis,
		closers: []func() error{client.Close},
	}, nil
}

func openFile(cfg config.Config) *recordStore {
	return &recordStore{
		store: filestore.New(cfg.File.Path, cfg.Store.PollInterval),
		name:  config.BackendFile,
	}
}

func newRedisClient(c config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        c.Addr,
		Password:    c.Password,
		DB:          c.DB,
		DialTimeout: pingTimeout,
	})
}

// sessionStore is the gate's session backend and what it holds open.
type sessionStore struct {
	store  gate.SessionStore
	closer func() error
}

// Close releases the session backend.
func (s *sessionStore) Close() {
	if s.closer != nil {
		_ = s.closer()
	}
}

func openSession(cfg config.Config) (*sessionStore, error) {
	ttl := cfg.Gate.SessionTTL
	switch cfg.Gate.Session {
	case config.SessionMemory:
		return &sessionStore{store: gate.NewMemorySession(ttl)}, nil
	case config.SessionRedis:
		client := newRedisClient(cfg.Redis)
		return &sessionStore{
			store:  gate.NewRedisSession(client, cfg.SessionNamespace(), ttl),
			closer: client.Close,
		}, nil
	case config.SessionBadger:
		db, err := gate.OpenBadger(cfg.Gate.BadgerDir)
		if err != nil {
			return nil, err
		}
		return &sessionStore{store: gate.NewBadgerSession(db, ttl), closer: db.Close}, nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Gate.Session)
	}
}
