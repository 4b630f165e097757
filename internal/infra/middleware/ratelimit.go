package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/diillson/vehicle-registry/internal/infra/metrics"
	"github.com/diillson/vehicle-registry/pkg/config"
	"github.com/diillson/vehicle-registry/pkg/ratelimit"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const msgTooManyRequests = "Demasiadas solicitudes, intente nuevamente más tarde"

// RateLimitMiddleware limita tentativas por IP nos endpoints de credenciais
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	cfg     config.RateLimitConfig
	logger  *zap.Logger
	metrics *metrics.APIMetrics
	now     func() time.Time
}

// NewRateLimitMiddleware cria um novo middleware de rate limiting; metrics pode ser nil
func NewRateLimitMiddleware(limiter ratelimit.Limiter, cfg config.RateLimitConfig, metrics *metrics.APIMetrics, logger *zap.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// IPRateLimit limita requisições por IP dentro do escopo informado.
// Cada escopo tem contador próprio, então login e verify-2fa não competem.
func (m *RateLimitMiddleware) IPRateLimit(scope string) gin.HandlerFunc {
	if !m.cfg.Enabled || m.limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		result, err := m.limiter.Allow(c.Request.Context(), ratelimit.LimitConfig{
			Key:         scope + ":" + clientIP,
			Limit:       m.cfg.Limit,
			Period:      m.cfg.Period,
			BurstFactor: m.cfg.BurstFactor,
		})
		if err != nil {
			// Em caso de erro, permite a requisição
			m.logger.Error("erro ao verificar rate limit", zap.String("scope", scope), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(m.now().Add(result.ResetAfter).Unix(), 10))

		if !result.Allowed {
			path := c.FullPath()
			if path == "" {
				path = c.Request.URL.Path
			}
			if m.metrics != nil {
				m.metrics.RateLimitExceeded(path, c.Request.Method, "ip_limit")
			}
			m.logger.Warn("limite de requisições excedido",
				zap.String("scope", scope),
				zap.String("ip", clientIP),
				zap.Int("limit", result.Limit))

			retryAfter := int(math.Ceil(result.ResetAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": msgTooManyRequests})
			return
		}

		c.Next()
	}
}
