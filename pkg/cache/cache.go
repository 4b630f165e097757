package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/diillson/vehicle-registry/internal/infra/metrics"
	"github.com/diillson/vehicle-registry/pkg/config"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Cache define a interface para operações de cache
type Cache interface {
	// Set armazena um valor no cache com tempo de expiração
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error

	// Get recupera um valor do cache
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Delete remove um valor do cache
	Delete(ctx context.Context, key string) error

	// Clear remove todos os valores do cache
	Clear(ctx context.Context) error

	// Ping verifica se o cache está acessível
	Ping(ctx context.Context) error
}

// KeyPrefix é o namespace das chaves gravadas por este serviço
const KeyPrefix = "vehicle-registry:"

// New constrói o cache descrito na configuração. Quando o tipo é redis,
// o cliente também é devolvido para ser compartilhado com o rate limiter.
func New(cfg config.CacheConfig, m *metrics.APIMetrics, logger *zap.Logger) (Cache, *redis.Client, error) {
	if !cfg.Enabled {
		logger.Info("cache desabilitado")
		return &NoOpCache{}, nil, nil
	}

	switch cfg.Type {
	case "redis":
		client, err := NewRedisClientWithConfig(&redis.Options{
			Addr:         cfg.Redis.Address,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			DialTimeout:  cfg.Redis.DialTimeout,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("falha ao conectar ao Redis: %w", err)
		}
		return NewRedisCache(client, logger), client, nil
	case "memory", "":
		return NewMemoryCache(cfg.TTL, cfg.CleanupInterval, m, logger), nil, nil
	default:
		return nil, nil, fmt.Errorf("tipo de cache não suportado: %s", cfg.Type)
	}
}
