package main

import (
	"flag"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/diillson/vehicle-registry/pkg/config"
	"gopkg.in/yaml.v3"
)

// exampleConfig devolve uma configuração completa com valores de exemplo
func exampleConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:              5000,
			Host:              "0.0.0.0",
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			ShutdownTimeout:   5 * time.Second,
			MaxHeaderBytes:    1 << 20,  // 1 MB
			MaxMultipartBytes: 50 << 20, // 50 MB
			MaxBodyBytes:      50 << 20, // 50 MB
			TLS:               false,
			CertFile:          "/path/to/cert.pem",
			KeyFile:           "/path/to/key.pem",
			Domains:           []string{"api.example.com"},
		},
		Database: config.DatabaseConfig{
			Driver:          "mysql",
			DSN:             "root:root@tcp(localhost:3306)/vehicle_registry?charset=utf8mb4&parseTime=True&loc=Local",
			MaxIdleConns:    10,
			MaxOpenConns:    50,
			ConnMaxLifetime: time.Hour,
			LogLevel:        "warn",
			SlowThreshold:   200 * time.Millisecond,
			MigrationDir:    "./migrations",
			SkipMigrations:  false,
		},
		Cache: config.CacheConfig{
			Enabled:         true,
			Type:            "memory",
			TTL:             10 * time.Minute,
			CleanupInterval: 15 * time.Minute,
			Redis: config.RedisOptions{
				Address:      "localhost:6379",
				PoolSize:     10,
				MinIdleConns: 2,
				MaxRetries:   3,
				ReadTimeout:  3 * time.Second,
				WriteTimeout: 3 * time.Second,
				DialTimeout:  5 * time.Second,
			},
		},
		Auth: config.AuthConfig{
			JWTSecret:       "your-secret-key-here",
			TokenExpiration: time.Hour,
			BcryptCost:      10,
			DefaultRole:     "Usuario",
			TOTP: config.TOTPConfig{
				Issuer: "TuProyectoApp",
				Period: 30,
				Digits: 6,
				Skew:   1,
			},
		},
		Storage: config.StorageConfig{
			Provider:      "none",
			UploadTimeout: 20 * time.Second,
			Cloudinary: config.CloudinaryConfig{
				Folder: "profiles",
			},
			CircuitBreaker: config.CircuitBreakerConfig{
				Enabled:     true,
				MaxFailures: 5,
				Timeout:     30 * time.Second,
			},
		},
		RateLimit: config.RateLimitConfig{
			Enabled:     true,
			Limit:       20,
			Period:      time.Minute,
			BurstFactor: 1,
		},
		Vehicles: config.VehiclesConfig{
			DefaultType: "Particular",
		},
		Metrics: config.MetricsConfig{
			Enabled:        true,
			PrometheusPath: "/metrics",
		},
		Logging: config.LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
			ErrorPath:  "stderr",
		},
		Tracing: config.TracingConfig{
			Enabled:       false,
			Endpoint:      "localhost:4317",
			ServiceName:   "vehicle-registry",
			SamplingRatio: 0.1,
		},
	}
}

func main() {
	var (
		outputPath string
		force      bool
	)

	flag.StringVar(&outputPath, "output", "config.yaml", "Caminho para o arquivo de configuração de saída")
	flag.BoolVar(&force, "force", false, "Sobrescrever arquivo se existir")
	flag.Parse()

	if _, err := os.Stat(outputPath); err == nil && !force {
		fmt.Printf("Erro: arquivo %s já existe. Use --force para sobrescrever.\n", outputPath)
		os.Exit(1)
	}

	data, err := yaml.Marshal(exampleConfig())
	if err != nil {
		fmt.Printf("Erro ao serializar configuração: %v\n", err)
		os.Exit(1)
	}

	yamlStr := string(data)

	re := regexp.MustCompile(`(\s+skipmigrations:\s+false)`)
	yamlStr = re.ReplaceAllString(yamlStr, `$1  # false aplica migrações (padrão), true pula`)

	re = regexp.MustCompile(`(\s+jwtsecret:\s+\S+)`)
	yamlStr = re.ReplaceAllString(yamlStr, `$1  # prefira JWT_SECRET no ambiente`)

	if err := os.WriteFile(outputPath, []byte(yamlStr), 0o644); err != nil {
		fmt.Printf("Erro ao escrever arquivo: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Arquivo de configuração gerado em: %s\n", outputPath)
}
