package ratelimit

import (
	"context"
	"errors"
	"time"
)

// LimitConfig configura o comportamento do limitador
type LimitConfig struct {
	Key         string        // Chave única para identificar o limite
	Limit       int           // Número máximo de requisições
	Period      time.Duration // Período de tempo para o limite
	BurstFactor float64       // Fator para permitir rajadas (1.0 = sem rajada)
}

// Result é a decisão de uma chamada a Allow
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAfter time.Duration
}

// Limiter decide se uma requisição cabe na janela fixa corrente
type Limiter interface {
	Allow(ctx context.Context, cfg LimitConfig) (Result, error)
}

func (cfg LimitConfig) validate() error {
	if cfg.Limit <= 0 {
		return errors.New("limite deve ser maior que zero")
	}
	if cfg.Period <= 0 {
		return errors.New("período deve ser maior que zero")
	}
	return nil
}

func (cfg LimitConfig) burstLimit() int {
	factor := cfg.BurstFactor
	if factor <= 0 {
		factor = 1.0
	}
	limit := int(float64(cfg.Limit) * factor)
	if limit < 1 {
		limit = 1
	}
	return limit
}

func newResult(cfg LimitConfig, count int, resetAfter time.Duration) Result {
	burst := cfg.burstLimit()
	remaining := burst - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:    count <= burst,
		Limit:      burst,
		Remaining:  remaining,
		ResetAfter: resetAfter,
	}
}
