package storage

import (
	"context"
	"errors"
	"time"

	"github.com/diillson/vehicle-registry/internal/infra/metrics"
	"github.com/diillson/vehicle-registry/pkg/resilience"
)

// GuardedUploader aplica timeout, circuit breaker e métricas a outro Uploader.
// Não há retry: uma falha derruba a requisição.
type GuardedUploader struct {
	next     Uploader
	provider string
	timeout  time.Duration
	breaker  *resilience.CircuitBreaker
	metrics  *metrics.APIMetrics
}

// NewGuardedUploader cria o decorador; breaker e metrics podem ser nil
func NewGuardedUploader(next Uploader, provider string, timeout time.Duration, breaker *resilience.CircuitBreaker, m *metrics.APIMetrics) *GuardedUploader {
	return &GuardedUploader{
		next:     next,
		provider: provider,
		timeout:  timeout,
		breaker:  breaker,
		metrics:  m,
	}
}

func (g *GuardedUploader) Upload(ctx context.Context, photo PhotoUpload) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	var url string
	call := func(ctx context.Context) error {
		var err error
		url, err = g.next.Upload(ctx, photo)
		return err
	}

	var err error
	if g.breaker != nil {
		err = g.breaker.Execute(ctx, call)
	} else {
		err = call(ctx)
	}

	if g.metrics != nil {
		outcome := "success"
		switch {
		case errors.Is(err, resilience.ErrCircuitOpen):
			outcome = "circuit_open"
		case err != nil:
			outcome = "error"
		}
		g.metrics.UploadObserved(g.provider, outcome, time.Since(start))
	}

	if err != nil {
		return "", err
	}
	return url, nil
}
