package middleware

import (
	"net/http"
	"time"

	"github.com/diillson/vehicle-registry/internal/infra/metrics"
	"github.com/diillson/vehicle-registry/pkg/config"
	"github.com/diillson/vehicle-registry/pkg/logging"
	"github.com/diillson/vehicle-registry/pkg/ratelimit"
	"github.com/diillson/vehicle-registry/pkg/security"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader é o cabeçalho de correlação aceito e devolvido
const RequestIDHeader = "X-Request-ID"

// Options reúne as dependências dos middlewares
type Options struct {
	Logger      *zap.Logger
	Keys        *security.KeyManager
	Metrics     *metrics.APIMetrics
	Limiter     ratelimit.Limiter
	RateLimit   config.RateLimitConfig
	ServiceName string
}

// Middleware contém todos os middlewares da aplicação
type Middleware struct {
	logger              *logging.ContextLogger
	authMiddleware      *AuthMiddleware
	recoveryMiddleware  *RecoveryMiddleware
	securityMiddleware  *SecurityMiddleware
	tracingMiddleware   *TracingMiddleware
	metricsMiddleware   *MetricsMiddleware
	rateLimitMiddleware *RateLimitMiddleware
}

// NewMiddleware cria um novo conjunto de middlewares
func NewMiddleware(opts Options) *Middleware {
	m := &Middleware{
		logger:              logging.NewContextLogger(opts.Logger),
		authMiddleware:      NewAuthMiddleware(opts.Keys, opts.Logger),
		recoveryMiddleware:  NewRecoveryMiddleware(opts.Logger),
		securityMiddleware:  NewSecurityMiddleware(opts.Logger),
		tracingMiddleware:   NewTracingMiddleware(opts.Logger, opts.ServiceName),
		rateLimitMiddleware: NewRateLimitMiddleware(opts.Limiter, opts.RateLimit, opts.Metrics, opts.Logger),
	}
	if opts.Metrics != nil {
		m.metricsMiddleware = NewMetricsMiddleware(opts.Metrics, opts.Logger)
	}
	return m
}

// Metrics retorna o middleware de métricas
func (m *Middleware) Metrics() gin.HandlerFunc {
	if m.metricsMiddleware != nil {
		return m.metricsMiddleware.Middleware()
	}
	return func(c *gin.Context) {
		c.Next() // No-op se não configurado
	}
}

// Authenticate é o verificador de sessão das rotas protegidas
func (m *Middleware) Authenticate(c *gin.Context) {
	m.authMiddleware.Authenticate(c)
}

// Recovery middleware para recuperação de pânicos
func (m *Middleware) Recovery() gin.HandlerFunc {
	return m.recoveryMiddleware.Recovery()
}

// RateLimit limita por IP as tentativas no escopo informado
func (m *Middleware) RateLimit(scope string) gin.HandlerFunc {
	return m.rateLimitMiddleware.IPRateLimit(scope)
}

// IgnoreFavicon responde 204 para /favicon.ico
func (m *Middleware) IgnoreFavicon() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/favicon.ico" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestID reaproveita o X-Request-ID recebido ou gera um novo
func (m *Middleware) RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}

		c.Header(RequestIDHeader, requestID)
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

// Logger middleware para logging de requisições
func (m *Middleware) Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		// Processar requisição
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("path", path),
			zap.String("method", c.Request.Method),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}

		switch {
		case status >= 500:
			m.logger.ErrorCtx(c.Request.Context(), "request completed", fields...)
		case status >= 400:
			m.logger.WarnCtx(c.Request.Context(), "request completed", fields...)
		default:
			m.logger.InfoCtx(c.Request.Context(), "request completed", fields...)
		}
	}
}

// SecurityHeaders middleware para adicionar cabeçalhos de segurança
func (m *Middleware) SecurityHeaders() gin.HandlerFunc {
	return m.securityMiddleware.Headers()
}

// BodyLimit limita o tamanho do corpo das requisições
func (m *Middleware) BodyLimit(limit int64) gin.HandlerFunc {
	return m.securityMiddleware.BodyLimit(limit)
}

// CORS middleware para configurar CORS
func (m *Middleware) CORS() gin.HandlerFunc {
	return m.securityMiddleware.CORS()
}

// Tracing retorna o middleware de tracing
func (m *Middleware) Tracing() gin.HandlerFunc {
	return m.tracingMiddleware.Middleware()
}
