package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/diillson/vehicle-registry/internal/infra/metrics"
	"github.com/diillson/vehicle-registry/pkg/config"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type cachedRole struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func TestMemoryCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute, metrics.NewAPIMetrics(prometheus.NewRegistry()), zaptest.NewLogger(t))

	var missing cachedRole
	found, err := c.Get(ctx, "role:Usuario", &missing)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "role:Usuario", cachedRole{ID: 1, Name: "Usuario"}, 0))

	var got cachedRole
	found, err = c.Get(ctx, "role:Usuario", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, cachedRole{ID: 1, Name: "Usuario"}, got)

	require.NoError(t, c.Set(ctx, "counter", 7, time.Minute))
	var n int
	found, err = c.Get(ctx, "counter", &n)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 7, n)

	require.NoError(t, c.Delete(ctx, "counter"))
	found, _ = c.Get(ctx, "counter", &n)
	assert.False(t, found)

	require.NoError(t, c.Clear(ctx))
	found, _ = c.Get(ctx, "role:Usuario", &got)
	assert.False(t, found)
}

func TestMemoryCache_NilMetrics(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute, nil, zaptest.NewLogger(t))
	var s string
	assert.NotPanics(t, func() { _, _ = c.Get(context.Background(), "x", &s) })
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	client, err := NewRedisClientWithConfig(&redis.Options{Addr: mr.Addr()}, logger)
	require.NoError(t, err)
	defer client.Close()

	c := NewRedisCache(client, logger)
	require.NoError(t, c.Ping(ctx))

	require.NoError(t, c.Set(ctx, "role:Usuario", cachedRole{ID: 3, Name: "Usuario"}, time.Minute))
	assert.True(t, mr.Exists(KeyPrefix+"role:Usuario"))

	var got cachedRole
	found, err := c.Get(ctx, "role:Usuario", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint(3), got.ID)

	mr.FastForward(2 * time.Minute)
	found, err = c.Get(ctx, "role:Usuario", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, mr.Set("other-service:key", "keep"))
	require.NoError(t, c.Set(ctx, "a", "1", 0))
	require.NoError(t, c.Set(ctx, "b", "2", 0))
	require.NoError(t, c.Clear(ctx))
	assert.False(t, mr.Exists(KeyPrefix+"a"))
	assert.False(t, mr.Exists(KeyPrefix+"b"))
	assert.True(t, mr.Exists("other-service:key"))
}

func TestNew(t *testing.T) {
	logger := zaptest.NewLogger(t)

	c, client, err := New(config.CacheConfig{Enabled: false}, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &NoOpCache{}, c)
	assert.Nil(t, client)

	c, client, err = New(config.CacheConfig{Enabled: true, Type: "memory", TTL: time.Minute, CleanupInterval: time.Minute}, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)
	assert.Nil(t, client)

	mr := miniredis.RunT(t)
	cfg := config.CacheConfig{Enabled: true, Type: "redis"}
	cfg.Redis.Address = mr.Addr()
	c, client, err = New(cfg, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &RedisCache{}, c)
	require.NotNil(t, client)
	_ = client.Close()

	_, _, err = New(config.CacheConfig{Enabled: true, Type: "memcached"}, nil, logger)
	assert.Error(t, err)
}
