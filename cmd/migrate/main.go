package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/diillson/vehicle-registry/internal/adapter/database"
	"github.com/diillson/vehicle-registry/pkg/config"
	"github.com/diillson/vehicle-registry/pkg/logging"
	"go.uber.org/zap"
)

func main() {
	var (
		action       string
		name         string
		configPath   string
		driver       string
		dsn          string
		migrationDir string
	)

	flag.StringVar(&action, "action", "migrate", "Ação (migrate, create)")
	flag.StringVar(&name, "name", "", "Nome da migração (apenas para action=create)")
	flag.StringVar(&configPath, "config", "./config", "Diretório do arquivo config.yaml")
	flag.StringVar(&driver, "driver", "", "Driver de banco de dados (sqlite, mysql, postgres); sobrescreve a configuração")
	flag.StringVar(&dsn, "dsn", "", "DSN do banco de dados; sobrescreve a configuração")
	flag.StringVar(&migrationDir, "dir", "", "Diretório de migrações; sobrescreve a configuração")
	flag.Parse()

	logger, err := logging.NewLogger()
	if err != nil {
		fmt.Printf("Erro ao inicializar logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if action == "create" {
		if name == "" {
			logger.Fatal("Nome da migração é obrigatório para action=create")
		}
		dir := migrationDir
		if dir == "" {
			dir = "./migrations"
		}
		// Criar arquivo não precisa de conexão com o banco
		path, err := database.NewMigrator(nil, logger, dir).CreateMigration(name)
		if err != nil {
			logger.Fatal("Falha ao criar migração", zap.Error(err))
		}
		logger.Info("Migração criada", zap.String("path", path))
		return
	}

	if action != "migrate" {
		logger.Fatal("Ação desconhecida", zap.String("action", action))
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal("Falha ao carregar configuração", zap.Error(err))
	}

	dbConfig := cfg.Database
	if driver != "" {
		dbConfig.Driver = driver
	}
	if dsn != "" {
		dbConfig.DSN = dsn
	}
	if migrationDir != "" {
		dbConfig.MigrationDir = migrationDir
	}
	dbConfig.SkipMigrations = false

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := database.NewDatabase(ctx, dbConfig, logger)
	if err != nil {
		logger.Fatal("Falha ao aplicar migrações", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Migrações aplicadas com sucesso", zap.String("driver", dbConfig.Driver))
}
