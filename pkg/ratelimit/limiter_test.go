package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	l := NewMemoryLimiter(time.Minute)
	start := time.Unix(1_700_000_060, 0)
	l.now = fixedClock(start)

	cfg := LimitConfig{Key: "login:10.0.0.1", Limit: 3, Period: time.Minute}

	for i := 0; i < 3; i++ {
		res, err := l.Allow(context.Background(), cfg)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "requisição %d", i+1)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := l.Allow(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, 40*time.Second, res.ResetAfter)

	other, err := l.Allow(context.Background(), LimitConfig{Key: "login:10.0.0.2", Limit: 3, Period: time.Minute})
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	l.now = fixedClock(start.Add(time.Minute))
	res, err = l.Allow(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "nova janela zera o contador")
}

func TestMemoryLimiter_Burst(t *testing.T) {
	l := NewMemoryLimiter(time.Minute)
	l.now = fixedClock(time.Unix(1_700_000_000, 0))
	cfg := LimitConfig{Key: "k", Limit: 2, Period: time.Minute, BurstFactor: 1.5}

	allowed := 0
	for i := 0; i < 5; i++ {
		res, err := l.Allow(context.Background(), cfg)
		require.NoError(t, err)
		if res.Allowed {
			allowed++
		}
	}
	assert.Equal(t, 3, allowed)
}

func TestMemoryLimiter_InvalidConfig(t *testing.T) {
	l := NewMemoryLimiter(time.Minute)

	res, err := l.Allow(context.Background(), LimitConfig{Key: "k", Limit: 0, Period: time.Minute})
	assert.Error(t, err)
	assert.True(t, res.Allowed)

	_, err = l.Allow(context.Background(), LimitConfig{Key: "k", Limit: 1})
	assert.Error(t, err)
}

func TestRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	now := time.Unix(1_700_000_060, 0)
	mr.SetTime(now)

	l := NewRedisLimiter(client, zaptest.NewLogger(t))
	l.now = fixedClock(now)

	cfg := LimitConfig{Key: "verify-2fa:10.0.0.1", Limit: 2, Period: time.Minute}

	for i := 0; i < 2; i++ {
		res, err := l.Allow(context.Background(), cfg)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}

	res, err := l.Allow(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 40*time.Second, res.ResetAfter)
}

func TestRedisLimiter_FailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	l := NewRedisLimiter(client, zaptest.NewLogger(t))
	res, err := l.Allow(context.Background(), LimitConfig{Key: "k", Limit: 1, Period: time.Minute})
	assert.Error(t, err)
	assert.True(t, res.Allowed)
}

func TestParseScriptReply(t *testing.T) {
	count, ttl, err := parseScriptReply([]interface{}{int64(3), int64(40)})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, int64(40), ttl)

	count, ttl, err = parseScriptReply([]interface{}{"2", "15"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, int64(15), ttl)

	for name, raw := range map[string]interface{}{
		"não é lista":        "OK",
		"tamanho errado":     []interface{}{int64(1)},
		"count não numérico": []interface{}{"abc", int64(10)},
		"ttl não numérico":   []interface{}{int64(1), "x"},
		"count zero":         []interface{}{int64(0), int64(10)},
		"tipo inesperado":    []interface{}{1.5, int64(10)},
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := parseScriptReply(raw)
			assert.ErrorIs(t, err, errInvalidReply)
		})
	}
}
