package service

import (
	"github.com/diillson/vehicle-registry/internal/adapter/storage"
	"github.com/diillson/vehicle-registry/internal/app/auth"
	"github.com/diillson/vehicle-registry/internal/app/vehicle"
	"github.com/diillson/vehicle-registry/internal/domain/repository"
	"github.com/diillson/vehicle-registry/internal/infra/metrics"
	"github.com/diillson/vehicle-registry/pkg/cache"
	"github.com/diillson/vehicle-registry/pkg/config"
	"github.com/diillson/vehicle-registry/pkg/security"
	"go.uber.org/zap"
)

// Services contém todos os serviços da aplicação
type Services struct {
	Auth     *auth.Service
	Vehicles *vehicle.Service
	Keys     *security.KeyManager
}

// Repositories agrupa as portas de persistência
type Repositories struct {
	Users    repository.UserRepository
	Roles    repository.RoleRepository
	Vehicles repository.VehicleRepository
}

// NewServices cria todos os serviços a partir da configuração
func NewServices(cfg *config.Config, repos Repositories, uploader storage.Uploader, c cache.Cache, m *metrics.APIMetrics, logger *zap.Logger) *Services {
	// Criar gerenciador de chaves; segredo ausente não impede a inicialização
	keys := security.NewKeyManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiration, logger)

	totp := security.NewTOTPManager(security.TOTPConfig{
		Issuer: cfg.Auth.TOTP.Issuer,
		Period: cfg.Auth.TOTP.Period,
		Digits: cfg.Auth.TOTP.Digits,
		Skew:   cfg.Auth.TOTP.Skew,
	})

	authService := auth.NewService(auth.Dependencies{
		Users:       repos.Users,
		Roles:       repos.Roles,
		Hasher:      security.NewPasswordHasher(cfg.Auth.BcryptCost),
		TOTP:        totp,
		Keys:        keys,
		Uploader:    uploader,
		Cache:       c,
		Metrics:     m,
		Logger:      logger,
		DefaultRole: cfg.Auth.DefaultRole,
	})

	return &Services{
		Auth:     authService,
		Vehicles: vehicle.NewService(repos.Vehicles, cfg.Vehicles.DefaultType, logger),
		Keys:     keys,
	}
}
