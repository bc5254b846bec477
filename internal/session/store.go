// Package session implements cookie sessions backed by a server-side store.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Get and Pop for missing or expired keys.
var ErrNotFound = errors.New("session: key not found")

// Store holds short-lived session values.
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	// Pop reads and deletes key in one step.
	Pop(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// RedisStore keeps session values in Redis.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

// Pop uses GETDEL so two callbacks racing on one state value cannot both win.
func (s *RedisStore) Pop(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is a process-local Store for development and tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Set copies key and value; callers may pass strings backed by a reused
// request buffer.
func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[strings.Clone(key)] = memoryEntry{value: strings.Clone(value), expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(key)
}

func (s *MemoryStore) Pop(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.lookup(key)
	delete(s.entries, key)
	return v, err
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

// lookup must be called with mu held.
func (s *MemoryStore) lookup(key string) (string, error) {
	e, ok := s.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return "", ErrNotFound
	}
	return e.value, nil
}
