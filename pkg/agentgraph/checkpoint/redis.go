package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists checkpoints to Redis, for multi-process deployments
// where threads must survive a single process.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	ownClient bool

	mu     sync.RWMutex
	closed bool
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix sets the Redis key prefix for checkpoint entries.
// Default: "agentgraph:checkpoint:"
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.keyPrefix = prefix
	}
}

// WithTTL sets an expiry on checkpoint entries.
// Default: no expiry.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// NewRedisStore creates a Redis checkpoint store connected to addr
// (e.g., "localhost:6379").
func NewRedisStore(addr string, opts ...RedisOption) *RedisStore {
	client := redis.NewClient(&redis.Options{Addr: addr})
	store := newRedisStore(client, opts...)
	store.ownClient = true
	return store
}

// NewRedisStoreFromClient creates a Redis checkpoint store using an
// existing client. The caller retains ownership of the client; Close
// does not close it.
func NewRedisStoreFromClient(client *redis.Client, opts ...RedisOption) *RedisStore {
	return newRedisStore(client, opts...)
}

func newRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client:    client,
		keyPrefix: "agentgraph:checkpoint:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save implements Store.
func (s *RedisStore) Save(threadID string, data []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}

	if err := s.client.Set(context.Background(), s.key(threadID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *RedisStore) Load(threadID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	data, err := s.client.Get(context.Background(), s.key(threadID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	return data, nil
}

// Delete implements Store.
func (s *RedisStore) Delete(threadID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}

	if err := s.client.Del(context.Background(), s.key(threadID)).Err(); err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.ownClient {
		return s.client.Close()
	}
	return nil
}

func (s *RedisStore) key(threadID string) string {
	return s.keyPrefix + threadID
}
