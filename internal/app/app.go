package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/diillson/vehicle-registry/internal/adapter/database"
	handler "github.com/diillson/vehicle-registry/internal/adapter/http"
	"github.com/diillson/vehicle-registry/internal/adapter/storage"
	"github.com/diillson/vehicle-registry/internal/domain/service"
	"github.com/diillson/vehicle-registry/internal/infra/metrics"
	"github.com/diillson/vehicle-registry/internal/infra/middleware"
	"github.com/diillson/vehicle-registry/pkg/cache"
	"github.com/diillson/vehicle-registry/pkg/config"
	"github.com/diillson/vehicle-registry/pkg/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// App reúne as dependências montadas a partir da configuração
type App struct {
	Config         *config.Config
	Logger         *zap.Logger
	DB             *database.Database
	Cache          cache.Cache
	Redis          *redis.Client
	Registry       *prometheus.Registry
	APIMetrics     *metrics.APIMetrics
	Services       *service.Services
	Middleware     *middleware.Middleware
	MetricsHandler *middleware.MetricsHandler
	AuthHandler    *handler.AuthHandler
	VehicleHandler *handler.VehicleHandler
	Health         *handler.HealthChecker
}

// NewApp cria uma nova instância da aplicação com todas as dependências injetadas
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	apiMetrics := metrics.NewAPIMetrics(registry)

	db, err := database.NewDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	appCache, redisClient, err := cache.New(cfg.Cache, apiMetrics, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	uploader, err := storage.NewUploader(cfg.Storage, apiMetrics, logger)
	if err != nil {
		closeAll(db, redisClient)
		return nil, fmt.Errorf("falha ao configurar armazenamento de imagens: %w", err)
	}

	// Inicializar repositórios
	repos := service.Repositories{
		Users:    database.NewUserRepository(db.DB(), logger),
		Roles:    database.NewRoleRepository(db.DB(), logger),
		Vehicles: database.NewVehicleRepository(db.DB(), logger),
	}

	services := service.NewServices(cfg, repos, uploader, appCache, apiMetrics, logger)

	// O papel padrão existe antes da primeira requisição
	if _, err := services.Auth.EnsureDefaultRole(ctx); err != nil {
		closeAll(db, redisClient)
		return nil, fmt.Errorf("falha ao criar papel padrão: %w", err)
	}

	var limiter ratelimit.Limiter
	if redisClient != nil {
		limiter = ratelimit.NewRedisLimiter(redisClient, logger)
		logger.Info("rate limiting usando Redis")
	} else {
		limiter = ratelimit.NewMemoryLimiter(time.Minute)
		logger.Info("rate limiting em memória")
	}

	middlewares := middleware.NewMiddleware(middleware.Options{
		Logger:      logger,
		Keys:        services.Keys,
		Metrics:     apiMetrics,
		Limiter:     limiter,
		RateLimit:   cfg.RateLimit,
		ServiceName: cfg.Tracing.ServiceName,
	})

	health := handler.NewHealthChecker(db, appCache, logger)

	return &App{
		Config:         cfg,
		Logger:         logger,
		DB:             db,
		Cache:          appCache,
		Redis:          redisClient,
		Registry:       registry,
		APIMetrics:     apiMetrics,
		Services:       services,
		Middleware:     middlewares,
		MetricsHandler: middleware.NewMetricsHandler(registry, logger),
		AuthHandler:    handler.NewAuthHandler(services.Auth, logger),
		VehicleHandler: handler.NewVehicleHandler(services.Vehicles, logger),
		Health:         health,
	}, nil
}

// RegisterRoutes registra todas as rotas no router
func (a *App) RegisterRoutes(router *gin.Engine) {
	// Configurar middleware global
	router.Use(a.Middleware.Recovery())
	router.Use(a.Middleware.RequestID())
	router.Use(a.Middleware.Tracing())
	router.Use(a.Middleware.Logger())
	router.Use(a.Middleware.CORS())
	router.Use(a.Middleware.SecurityHeaders())
	router.Use(a.Middleware.IgnoreFavicon())
	router.Use(a.Middleware.BodyLimit(a.Config.Server.MaxBodyBytes))
	if a.Config.Metrics.Enabled {
		router.Use(a.Middleware.Metrics())
		a.MetricsHandler.RegisterEndpoint(router, a.Config.Metrics.PrometheusPath)
	}

	if a.Config.Server.MaxMultipartBytes > 0 {
		router.MaxMultipartMemory = a.Config.Server.MaxMultipartBytes
	}

	// Rotas públicas
	router.GET("/health", a.Health.DetailedHealth)
	router.GET("/health/liveness", a.Health.LivenessCheck)
	router.GET("/health/readiness", a.Health.ReadinessCheck)

	api := router.Group("/api")
	api.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Backend conectado"})
	})

	authGroup := api.Group("/auth")
	{
		authGroup.GET("/ping", a.AuthHandler.Ping)
		authGroup.POST("/register", a.AuthHandler.Register)
		authGroup.POST("/verify-2fa", a.Middleware.RateLimit("verify-2fa"), a.AuthHandler.VerifyRegistration2FA)
		authGroup.POST("/login", a.Middleware.RateLimit("login"), a.AuthHandler.Login)
		authGroup.POST("/verify-login-2fa", a.Middleware.RateLimit("verify-login-2fa"), a.AuthHandler.VerifyLogin2FA)
		authGroup.GET("/profile", a.Middleware.Authenticate, a.AuthHandler.Profile)
	}

	vehicles := api.Group("/vehicles")
	{
		vehicles.GET("", a.VehicleHandler.List)
		vehicles.POST("", a.VehicleHandler.Create)
		vehicles.PUT("/:id", a.VehicleHandler.Update)
		vehicles.DELETE("/:id", a.VehicleHandler.Delete)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Ruta no encontrada"})
	})
}

// Close libera banco e Redis; chamado no desligamento
func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("falha ao fechar Redis: %w", err))
		}
	}
	if err := a.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("falha ao fechar banco de dados: %w", err))
	}
	return errors.Join(errs...)
}

func closeAll(db *database.Database, client *redis.Client) {
	if client != nil {
		_ = client.Close()
	}
	_ = db.Close()
}
