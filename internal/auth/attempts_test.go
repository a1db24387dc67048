// AngelaMos | 2026
// attempts_test.go

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valera277/rag-converter-pro/internal/config"
	"github.com/valera277/rag-converter-pro/internal/core"
)

var testAuthConfig = config.AuthConfig{
	LoginMaxAttempts: 5,
	LoginWindow:      5 * time.Minute,
}

func TestMemoryAttemptStoreWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	s := NewMemoryAttemptStore(testAuthConfig)
	s.now = func() time.Time { return now }

	for range 4 {
		require.NoError(t, s.Fail(ctx, "203.0.113.7"))
	}
	blocked, err := s.Blocked(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, blocked)

	require.NoError(t, s.Fail(ctx, "203.0.113.7"))
	blocked, _ = s.Blocked(ctx, "203.0.113.7")
	assert.True(t, blocked)

	blocked, _ = s.Blocked(ctx, "203.0.113.8")
	assert.False(t, blocked, "other clients keep their own budget")

	now = now.Add(5*time.Minute + time.Second)
	blocked, _ = s.Blocked(ctx, "203.0.113.7")
	assert.False(t, blocked, "failures age out of the window")
}

func TestRedisAttemptStoreFallsBackWhenRedisDown(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	s := NewRedisAttemptStore(&core.Redis{Client: rdb, Prefix: "test:"}, testAuthConfig, nil)

	assert.Equal(t, "test:login_failures:203.0.113.7", s.key("203.0.113.7"))

	for range 5 {
		require.NoError(t, s.Fail(ctx, "203.0.113.7"))
	}
	blocked, err := s.Blocked(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, blocked)
}
