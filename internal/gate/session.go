package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// DefaultSessionTTL bounds how long a session marker lives.
const DefaultSessionTTL = 12 * time.Hour

// MemorySession keeps the marker in process memory.
type MemorySession struct {
	cache *cache.Cache
}

var _ SessionStore = (*MemorySession)(nil)

// NewMemorySession returns a session store whose entries expire after ttl.
func NewMemorySession(ttl time.Duration) *MemorySession {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemorySession{cache: cache.New(ttl, ttl/2)}
}

// Get implements SessionStore.
func (s *MemorySession) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return "", false, nil
	}
	value, ok := v.(string)
	return value, ok, nil
}

// Set implements SessionStore.
func (s *MemorySession) Set(_ context.Context, key, value string) error {
	s.cache.Set(key, value, cache.DefaultExpiration)
	return nil
}

// RedisSession keeps the marker in Redis, shared by every console pointed at
// the same server and namespace.
type RedisSession struct {
	client    redis.UniversalClient
	namespace string
	ttl       time.Duration
}

var _ SessionStore = (*RedisSession)(nil)

// NewRedisSession stores keys under namespace with the given ttl.
func NewRedisSession(client redis.UniversalClient, namespace string, ttl time.Duration) *RedisSession {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisSession{client: client, namespace: namespace, ttl: ttl}
}

func (s *RedisSession) redisKey(key string) string {
	if s.namespace == "" {
		return key
	}
	return s.namespace + ":" + key
}

// Get implements SessionStore.
func (s *RedisSession) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get session key: %w", err)
	}
	return value, true, nil
}

// Set implements SessionStore.
func (s *RedisSession) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.redisKey(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("set session key: %w", err)
	}
	return nil
}

// BadgerSession keeps the marker in a local badger database so it survives
// console restarts until the TTL passes.
type BadgerSession struct {
	db  *badger.DB
	ttl time.Duration
}

var _ SessionStore = (*BadgerSession)(nil)

// OpenBadger opens the session database in dir. An empty dir opens an
// in-memory database.
func OpenBadger(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	return db, nil
}

// NewBadgerSession stores entries in db with the given ttl.
func NewBadgerSession(db *badger.DB, ttl time.Duration) *BadgerSession {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &BadgerSession{db: db, ttl: ttl}
}

// Get implements SessionStore.
func (s *BadgerSession) Get(_ context.Context, key string) (string, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read session key: %w", err)
	}
	return string(value), true, nil
}

// Set implements SessionStore.
func (s *BadgerSession) Set(_ context.Context, key, value string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), []byte(value)).WithTTL(s.ttl))
	})
	if err != nil {
		return fmt.Errorf("write session key: %w", err)
	}
	return nil
}
