package delay

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares the value between replicas through a single redis key.
// Every operation is one atomic command, so concurrent writers never
// interleave partial updates.
type RedisStore struct {
	rdb       *redis.Client
	bounds    Bounds
	key       string
	opTimeout time.Duration
}

type RedisOption func(*RedisStore)

func WithKey(key string) RedisOption {
	return func(s *RedisStore) {
		if key != "" {
			s.key = key
		}
	}
}

func WithOpTimeout(d time.Duration) RedisOption {
	return func(s *RedisStore) { s.opTimeout = d }
}

func NewRedisStore(rdb *redis.Client, b Bounds, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb:       rdb,
		bounds:    b,
		key:       "delay:current",
		opTimeout: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Key() string { return s.key }

func (s *RedisStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

// Reset writes the default value. Called once at startup: the value does
// not survive a restart.
func (s *RedisStore) Reset(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.rdb.Set(ctx, s.key, s.bounds.Default, 0).Err(); err != nil {
		return fmt.Errorf("reset %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	raw, err := s.rdb.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return s.bounds.Default, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", s.key, err)
	}
	return s.decode(raw), nil
}

func (s *RedisStore) Swap(ctx context.Context, v int) (int, int, error) {
	v = s.bounds.Clamp(v)
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	raw, err := s.rdb.GetSet(ctx, s.key, v).Result()
	if errors.Is(err, redis.Nil) {
		return s.bounds.Default, v, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("getset %s: %w", s.key, err)
	}
	return s.decode(raw), v, nil
}

// decode clamps whatever is stored so the key can be edited out of band
// without breaking the range invariant. Garbage reads as the default.
func (s *RedisStore) decode(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return s.bounds.Default
	}
	return s.bounds.Clamp(n)
}

func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Close() error { return s.rdb.Close() }
