package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// fixedWindowScript incrementa o contador e agenda a expiração no fim da janela
var fixedWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local expireAt = tonumber(ARGV[1])
	local ttl = expireAt - tonumber(ARGV[2])

	local count = redis.call('INCR', key)
	if count == 1 then
		redis.call('EXPIREAT', key, expireAt)
	end

	return {count, ttl}
`)

// RedisLimiter implementa rate limiting compartilhado entre réplicas
type RedisLimiter struct {
	client *redis.Client
	logger *zap.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// NewRedisLimiter cria um novo limitador baseado em Redis
func NewRedisLimiter(client *redis.Client, logger *zap.Logger) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		logger: logger,
		tracer: otel.GetTracerProvider().Tracer("vehicle-registry.ratelimit"),
		now:    time.Now,
	}
}

// Allow verifica se a requisição é permitida dentro do limite de taxa.
// Em erro do Redis a requisição é liberada e o erro devolvido ao chamador.
func (r *RedisLimiter) Allow(ctx context.Context, cfg LimitConfig) (Result, error) {
	ctx, span := r.tracer.Start(ctx, "RedisLimiter.Allow",
		trace.WithAttributes(
			attribute.String("ratelimit.key", cfg.Key),
			attribute.Int("ratelimit.limit", cfg.Limit),
			attribute.Int64("ratelimit.period_ms", cfg.Period.Milliseconds()),
			attribute.Float64("ratelimit.burst_factor", cfg.BurstFactor),
		),
	)
	defer span.End()

	if err := cfg.validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Result{Allowed: true}, err
	}

	now := r.now().Unix()
	periodSeconds := int64(cfg.Period.Seconds())
	if periodSeconds < 1 {
		periodSeconds = 1
	}
	expireAt := now - (now % periodSeconds) + periodSeconds
	key := fmt.Sprintf("ratelimit:%s:%d", cfg.Key, expireAt)

	raw, err := fixedWindowScript.Run(ctx, r.client, []string{key}, expireAt, now).Result()
	if err != nil {
		r.logger.Error("erro ao executar script de rate limit", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "redis script error")
		return Result{Allowed: true, Limit: cfg.Limit, Remaining: cfg.Limit}, err
	}

	count, ttl, err := parseScriptReply(raw)
	if err != nil {
		r.logger.Error("resultado inesperado do script de rate limit", zap.Any("result", raw), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "unexpected result")
		return Result{Allowed: true, Limit: cfg.Limit, Remaining: cfg.Limit}, err
	}

	result := newResult(cfg, int(count), time.Duration(ttl)*time.Second)

	span.SetAttributes(
		attribute.Int64("ratelimit.count", count),
		attribute.Int("ratelimit.remaining", result.Remaining),
		attribute.Bool("ratelimit.allowed", result.Allowed),
		attribute.Int64("ratelimit.reset_after_ms", result.ResetAfter.Milliseconds()),
	)
	if !result.Allowed {
		span.SetStatus(codes.Error, "rate limit exceeded")
	} else {
		span.SetStatus(codes.Ok, "")
	}

	return result, nil
}

// errInvalidReply indica resposta do script fora do formato {count, ttl}
var errInvalidReply = errors.New("resultado inválido do Redis")

// parseScriptReply lê {count, ttl} devolvido pelo script; count precisa ser positivo
func parseScriptReply(raw interface{}) (count int64, ttl int64, err error) {
	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0, fmt.Errorf("%w: %v", errInvalidReply, raw)
	}

	if count, err = replyInt(values[0]); err != nil {
		return 0, 0, fmt.Errorf("%w: count: %v", errInvalidReply, err)
	}
	if count < 1 {
		return 0, 0, fmt.Errorf("%w: count %d", errInvalidReply, count)
	}
	if ttl, err = replyInt(values[1]); err != nil {
		return 0, 0, fmt.Errorf("%w: ttl: %v", errInvalidReply, err)
	}
	return count, ttl, nil
}

func replyInt(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("tipo inesperado %T", v)
	}
}
