// AngelaMos | 2026
// attempts.go

package auth

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/valera277/rag-converter-pro/internal/config"
	"github.com/valera277/rag-converter-pro/internal/core"
)

// AttemptLimiter tracks failed logins per client inside a sliding window.
type AttemptLimiter interface {
	Blocked(ctx context.Context, key string) (bool, error)
	Fail(ctx context.Context, key string) error
}

type MemoryAttemptStore struct {
	mu       sync.Mutex
	failures map[string][]time.Time
	max      int
	window   time.Duration
	now      func() time.Time
}

func NewMemoryAttemptStore(cfg config.AuthConfig) *MemoryAttemptStore {
	return &MemoryAttemptStore{
		failures: make(map[string][]time.Time),
		max:      cfg.LoginMaxAttempts,
		window:   cfg.LoginWindow,
		now:      time.Now,
	}
}

func (s *MemoryAttemptStore) Blocked(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.prune(key)) >= s.max, nil
}

func (s *MemoryAttemptStore) Fail(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[key] = append(s.prune(key), s.now())
	return nil
}

// prune drops failures older than the window. Caller holds mu.
func (s *MemoryAttemptStore) prune(key string) []time.Time {
	cutoff := s.now().Add(-s.window)
	kept := s.failures[key][:0]
	for _, at := range s.failures[key] {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	if len(kept) == 0 {
		delete(s.failures, key)
		return nil
	}
	s.failures[key] = kept
	return kept
}

// RedisAttemptStore keeps one sorted set of failure timestamps per client so
// every API replica sees the same count. When redis is unreachable it falls
// back to process-local counting.
type RedisAttemptStore struct {
	redis    *core.Redis
	fallback *MemoryAttemptStore
	max      int
	window   time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewRedisAttemptStore(
	rdb *core.Redis,
	cfg config.AuthConfig,
	logger *slog.Logger,
) *RedisAttemptStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisAttemptStore{
		redis:    rdb,
		fallback: NewMemoryAttemptStore(cfg),
		max:      cfg.LoginMaxAttempts,
		window:   cfg.LoginWindow,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *RedisAttemptStore) key(client string) string {
	return s.redis.Key("login_failures", client)
}

func (s *RedisAttemptStore) Blocked(ctx context.Context, client string) (bool, error) {
	key := s.key(client)
	cutoff := s.now().Add(-s.window).UnixMilli()

	pipe := s.redis.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10))
	count := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn("login attempt store unavailable, using local counts",
			"error", err,
		)
		return s.fallback.Blocked(ctx, client)
	}

	return count.Val() >= int64(s.max), nil
}

func (s *RedisAttemptStore) Fail(ctx context.Context, client string) error {
	key := s.key(client)
	now := s.now()

	pipe := s.redis.Client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: uuid.New().String(),
	})
	pipe.Expire(ctx, key, s.window)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn("login attempt store unavailable, using local counts",
			"error", err,
		)
		return s.fallback.Fail(ctx, client)
	}

	return nil
}
