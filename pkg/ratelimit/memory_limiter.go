package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryLimiter mantém contadores de janela fixa no próprio processo.
// Só é correto com uma única réplica; use RedisLimiter em cluster.
type MemoryLimiter struct {
	mu    sync.Mutex
	store *cache.Cache
	now   func() time.Time
}

// NewMemoryLimiter cria o limitador; cleanupInterval controla a remoção de janelas vencidas
func NewMemoryLimiter(cleanupInterval time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		store: cache.New(cache.NoExpiration, cleanupInterval),
		now:   time.Now,
	}
}

// Allow incrementa o contador da janela corrente
func (m *MemoryLimiter) Allow(_ context.Context, cfg LimitConfig) (Result, error) {
	if err := cfg.validate(); err != nil {
		return Result{Allowed: true}, err
	}

	now := m.now()
	windowStart := now.Truncate(cfg.Period)
	resetAfter := windowStart.Add(cfg.Period).Sub(now)
	key := fmt.Sprintf("ratelimit:%s:%d", cfg.Key, windowStart.Unix())

	m.mu.Lock()
	defer m.mu.Unlock()

	count := 1
	if err := m.store.Add(key, 1, resetAfter); err != nil {
		count, err = m.store.IncrementInt(key, 1)
		if err != nil {
			// A janela expirou entre Add e IncrementInt
			m.store.Set(key, 1, resetAfter)
			count = 1
		}
	}

	return newResult(cfg, count, resetAfter), nil
}
