// Package ratelimit bounds public admission traffic per client IP.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store counts hits per key within a rolling window.
type Store interface {
	// Incr increments the counter for key, starting a fresh window when
	// none is active, and returns the new count.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Limiter applies a fixed-window limit per key. Counting errors fail open:
// losing the limiter backend must not take the public endpoint down with it.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
	logger *slog.Logger
}

// New creates a limiter allowing limit hits per window for each key.
func New(store Store, limit int, window time.Duration, logger *slog.Logger) *Limiter {
	return &Limiter{store: store, limit: limit, window: window, logger: logger}
}

// Allow reports whether the key is under its limit.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	count, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		l.logger.Warn("rate limit backend unavailable, allowing request",
			"key", key, "error", err)
		return true
	}
	return count <= int64(l.limit)
}

// Window returns the limiter's window, used for the Retry-After header.
func (l *Limiter) Window() time.Duration {
	return l.window
}

// MemoryStore is an in-process fixed-window counter for single-instance
// deployments and tests.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     func() time.Time
}

type memoryWindow struct {
	count   int64
	resetAt time.Time
}

// NewMemoryStore creates an empty in-process counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]*memoryWindow),
		now:     time.Now,
	}
}

func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &memoryWindow{resetAt: now.Add(window)}
		s.windows[key] = w
	}
	w.count++
	return w.count, nil
}

// RedisStore counts windows in Redis so the limit holds across replicas.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed counter store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "regdesk:ratelimit:"}
}

func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	redisKey := s.prefix + key

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, err
	}
	// NX keeps the expiry anchored to the first hit of the window.
	if err := s.client.ExpireNX(ctx, redisKey, window).Err(); err != nil {
		return 0, err
	}
	return count, nil
}
