package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config representa a configuração completa da aplicação
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Auth      AuthConfig
	Storage   StorageConfig
	RateLimit RateLimitConfig
	Vehicles  VehiclesConfig
	Metrics   MetricsConfig
	Logging   LoggingConfig
	Tracing   TracingConfig
}

// ServerConfig contém configurações do servidor HTTP
type ServerConfig struct {
	Port              int
	Host              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int
	MaxMultipartBytes int64
	MaxBodyBytes      int64
	TLS               bool
	CertFile          string
	KeyFile           string
	Domains           []string
}

// DatabaseConfig contém configurações do banco de dados
type DatabaseConfig struct {
	Driver          string
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string
	SlowThreshold   time.Duration
	MigrationDir    string
	SkipMigrations  bool
}

// RedisOptions contém configurações específicas para Redis
type RedisOptions struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	DialTimeout  time.Duration
}

// CacheConfig contém configurações do cache
type CacheConfig struct {
	Enabled         bool
	Type            string // redis, memory
	TTL             time.Duration
	CleanupInterval time.Duration
	Redis           RedisOptions
}

// TOTPConfig contém os parâmetros do segundo fator
type TOTPConfig struct {
	Issuer string
	Period uint
	Digits int
	Skew   uint
}

// AuthConfig contém configurações de autenticação
type AuthConfig struct {
	JWTSecret       string
	TokenExpiration time.Duration
	BcryptCost      int
	DefaultRole     string
	TOTP            TOTPConfig
}

// CloudinaryConfig contém as credenciais do Cloudinary
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// CircuitBreakerConfig contém a configuração do circuit breaker do upload
type CircuitBreakerConfig struct {
	Enabled     bool
	MaxFailures int
	Timeout     time.Duration
}

// StorageConfig contém configurações do armazenamento de imagens
type StorageConfig struct {
	Provider       string // cloudinary, none
	UploadTimeout  time.Duration
	Cloudinary     CloudinaryConfig
	CircuitBreaker CircuitBreakerConfig
}

// RateLimitConfig limita tentativas nos endpoints de credenciais
type RateLimitConfig struct {
	Enabled     bool
	Limit       int
	Period      time.Duration
	BurstFactor float64
}

// VehiclesConfig contém os valores padrão do registro de veículos
type VehiclesConfig struct {
	DefaultType string
}

// MetricsConfig contém configurações de métricas
type MetricsConfig struct {
	Enabled        bool
	PrometheusPath string
}

// LoggingConfig contém configurações de logging
type LoggingConfig struct {
	Level      string
	Format     string // json, console
	OutputPath string
	ErrorPath  string
}

// TracingConfig contém configurações de rastreamento
type TracingConfig struct {
	Enabled       bool
	Endpoint      string
	ServiceName   string
	SamplingRatio float64
}

// LoadConfig carrega a configuração de diversas fontes (.env, arquivos, env, defaults)
func LoadConfig(configPath string) (*Config, error) {
	// .env é opcional; variáveis já exportadas têm precedência
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/vehicle-registry")

	if err := v.ReadInConfig(); err != nil {
		// Ignorar se o arquivo não for encontrado
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("erro ao ler arquivo de configuração: %w", err)
		}
	}

	// Variáveis de ambiente com prefixo VR_
	v.SetEnvPrefix("VR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("erro ao mapear configuração: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindLegacyEnv aceita os nomes de variáveis usados pelo deploy existente
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"server.port":                  {"VR_SERVER_PORT", "PORT"},
		"database.dsn":                 {"VR_DATABASE_DSN", "DATABASE_URL"},
		"auth.jwtSecret":               {"VR_AUTH_JWTSECRET", "JWT_SECRET"},
		"storage.cloudinary.cloudName": {"VR_STORAGE_CLOUDINARY_CLOUDNAME", "CLOUDINARY_CLOUD_NAME"},
		"storage.cloudinary.apiKey":    {"VR_STORAGE_CLOUDINARY_APIKEY", "CLOUDINARY_API_KEY"},
		"storage.cloudinary.apiSecret": {"VR_STORAGE_CLOUDINARY_APISECRET", "CLOUDINARY_API_SECRET"},
		"cache.redis.address":          {"VR_CACHE_REDIS_ADDRESS", "REDIS_ADDR"},
		"tracing.endpoint":             {"VR_TRACING_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"},
	}

	for key, envs := range bindings {
		input := append([]string{key}, envs...)
		if err := v.BindEnv(input...); err != nil {
			return fmt.Errorf("erro ao associar variável de ambiente %s: %w", key, err)
		}
	}
	return nil
}

// setDefaults define valores padrão para a configuração
func setDefaults(v *viper.Viper) {
	// Servidor
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.readTimeout", "10s")
	v.SetDefault("server.writeTimeout", "30s")
	v.SetDefault("server.idleTimeout", "60s")
	v.SetDefault("server.shutdownTimeout", "5s")
	v.SetDefault("server.maxHeaderBytes", 1<<20)     // 1 MB
	v.SetDefault("server.maxMultipartBytes", 50<<20) // 50 MB
	v.SetDefault("server.maxBodyBytes", 50<<20)      // 50 MB
	v.SetDefault("server.tls", false)

	// Banco de dados
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.dsn", "root:root@tcp(localhost:3306)/vehicle_registry?charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("database.maxIdleConns", 10)
	v.SetDefault("database.maxOpenConns", 50)
	v.SetDefault("database.connMaxLifetime", "1h")
	v.SetDefault("database.logLevel", "warn")
	v.SetDefault("database.slowThreshold", "200ms")
	v.SetDefault("database.migrationDir", "./migrations")

	// Cache
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("cache.cleanupInterval", "15m")
	v.SetDefault("cache.redis.address", "localhost:6379")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.poolSize", 10)
	v.SetDefault("cache.redis.minIdleConns", 2)
	v.SetDefault("cache.redis.maxRetries", 3)
	v.SetDefault("cache.redis.readTimeout", "3s")
	v.SetDefault("cache.redis.writeTimeout", "3s")
	v.SetDefault("cache.redis.dialTimeout", "5s")

	// Autenticação
	v.SetDefault("auth.tokenExpiration", "1h")
	v.SetDefault("auth.bcryptCost", 10)
	v.SetDefault("auth.defaultRole", "Usuario")
	v.SetDefault("auth.totp.issuer", "TuProyectoApp")
	v.SetDefault("auth.totp.period", 30)
	v.SetDefault("auth.totp.digits", 6)
	v.SetDefault("auth.totp.skew", 1)

	// Armazenamento de imagens
	v.SetDefault("storage.provider", "none")
	v.SetDefault("storage.uploadTimeout", "20s")
	v.SetDefault("storage.cloudinary.folder", "profiles")
	v.SetDefault("storage.circuitBreaker.enabled", true)
	v.SetDefault("storage.circuitBreaker.maxFailures", 5)
	v.SetDefault("storage.circuitBreaker.timeout", "30s")

	// Rate limiting
	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.limit", 20)
	v.SetDefault("rateLimit.period", "1m")
	v.SetDefault("rateLimit.burstFactor", 1.0)

	// Veículos
	v.SetDefault("vehicles.defaultType", "Particular")

	// Métricas
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.prometheusPath", "/metrics")

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
	v.SetDefault("logging.errorPath", "stderr")

	// Tracing
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.samplingRatio", 0.1)
	v.SetDefault("tracing.serviceName", "vehicle-registry")
}

// validateConfig valida a configuração
func validateConfig(config *Config) error {
	if config.Server.TLS && (config.Server.CertFile == "") != (config.Server.KeyFile == "") {
		return fmt.Errorf("TLS habilitado, mas apenas um de CertFile/KeyFile foi definido")
	}

	validDrivers := map[string]bool{"sqlite": true, "mysql": true, "postgres": true}
	if !validDrivers[config.Database.Driver] {
		return fmt.Errorf("driver de banco de dados inválido: %s", config.Database.Driver)
	}

	if config.Cache.Enabled {
		validTypes := map[string]bool{"memory": true, "redis": true}
		if !validTypes[config.Cache.Type] {
			return fmt.Errorf("tipo de cache inválido: %s", config.Cache.Type)
		}

		if config.Cache.Type == "redis" && config.Cache.Redis.Address == "" {
			return fmt.Errorf("tipo de cache redis requer um endereço")
		}
	}

	switch config.Storage.Provider {
	case "none":
	case "cloudinary":
		c := config.Storage.Cloudinary
		if c.CloudName == "" || c.APIKey == "" || c.APISecret == "" {
			return fmt.Errorf("provedor cloudinary requer cloudName, apiKey e apiSecret")
		}
	default:
		return fmt.Errorf("provedor de armazenamento inválido: %s", config.Storage.Provider)
	}

	if config.Auth.TOTP.Digits != 6 && config.Auth.TOTP.Digits != 8 {
		return fmt.Errorf("auth.totp.digits deve ser 6 ou 8: %d", config.Auth.TOTP.Digits)
	}

	if config.RateLimit.Enabled && (config.RateLimit.Limit <= 0 || config.RateLimit.Period <= 0) {
		return fmt.Errorf("rateLimit requer limit e period positivos")
	}

	// O segredo JWT ausente não impede a inicialização: apenas os endpoints que emitem
	// ou validam sessões respondem 500 até que seja configurado.
	return nil
}
