package cache

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/diillson/vehicle-registry/internal/infra/metrics"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// MemoryCache implementa Cache sobre go-cache, local ao processo
type MemoryCache struct {
	cache   *cache.Cache
	logger  *zap.Logger
	hits    int64
	misses  int64
	metrics *metrics.APIMetrics
}

// NewMemoryCache cria o cache em memória; metrics pode ser nil
func NewMemoryCache(defaultExpiration, cleanupInterval time.Duration, metrics *metrics.APIMetrics, logger *zap.Logger) *MemoryCache {
	return &MemoryCache{
		cache:   cache.New(defaultExpiration, cleanupInterval),
		logger:  logger,
		metrics: metrics,
	}
}

// Set armazena um valor no cache; expiration zero usa o TTL padrão
func (c *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	if expiration == 0 {
		expiration = cache.DefaultExpiration
	}
	c.cache.Set(key, value, expiration)
	return nil
}

// Get recupera um valor do cache
func (c *MemoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	value, found := c.cache.Get(key)
	if !found {
		c.record(false)
		return false, nil
	}
	c.record(true)

	switch dest := dest.(type) {
	case *string:
		if str, ok := value.(string); ok {
			*dest = str
			return true, nil
		}
	case *int:
		if i, ok := value.(int); ok {
			*dest = i
			return true, nil
		}
	case *uint:
		if u, ok := value.(uint); ok {
			*dest = u
			return true, nil
		}
	case *bool:
		if b, ok := value.(bool); ok {
			*dest = b
			return true, nil
		}
	}

	// Estruturas passam por JSON para não compartilhar ponteiros com o chamador
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("falha ao serializar do cache", zap.String("key", key), zap.Error(err))
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Error("falha ao deserializar para o destino", zap.String("key", key), zap.Error(err))
		return false, err
	}

	return true, nil
}

// Delete remove um valor do cache
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.cache.Delete(key)
	return nil
}

// Clear remove todos os valores do cache
func (c *MemoryCache) Clear(_ context.Context) error {
	c.cache.Flush()
	return nil
}

// Ping sempre tem sucesso
func (c *MemoryCache) Ping(_ context.Context) error {
	return nil
}

func (c *MemoryCache) record(hit bool) {
	var hits, misses int64
	if hit {
		hits = atomic.AddInt64(&c.hits, 1)
		misses = atomic.LoadInt64(&c.misses)
	} else {
		misses = atomic.AddInt64(&c.misses, 1)
		hits = atomic.LoadInt64(&c.hits)
	}
	updateCacheMetrics(hits, misses, "memory", c.metrics)
}

func updateCacheMetrics(hits, misses int64, cacheType string, m *metrics.APIMetrics) {
	if m == nil {
		return
	}

	total := hits + misses
	if total > 0 {
		m.UpdateCacheHitRatio(cacheType, float64(hits)/float64(total))
	}
}
