package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/diillson/vehicle-registry/internal/adapter/database"
	"github.com/diillson/vehicle-registry/internal/domain/repository"
	"github.com/diillson/vehicle-registry/pkg/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	var (
		email      string
		configPath string
		verbose    bool
	)

	flag.StringVar(&email, "email", "", "Email do usuário a ser diagnosticado")
	flag.StringVar(&configPath, "config", "./config", "Diretório do arquivo config.yaml")
	flag.BoolVar(&verbose, "verbose", false, "Mostrar logs detalhados")
	flag.Parse()

	if email == "" {
		fmt.Println("Erro: email não pode ser vazio.")
		flag.Usage()
		os.Exit(1)
	}

	zcfg := zap.NewProductionConfig()
	if !verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
		zcfg.OutputPaths = []string{"stderr"}
	}
	logger, err := zcfg.Build()
	if err != nil {
		fmt.Printf("Erro ao inicializar logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Erro ao carregar configuração: %v\n", err)
		os.Exit(1)
	}

	// Ferramenta somente leitura
	dbConfig := cfg.Database
	dbConfig.SkipMigrations = true

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.NewDatabase(ctx, dbConfig, logger)
	if err != nil {
		fmt.Printf("Erro ao conectar ao banco de dados: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	user, err := database.NewUserRepository(db.DB(), logger).FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		fmt.Printf("Usuário %s não encontrado.\n", email)
		os.Exit(2)
	}
	if err != nil {
		fmt.Printf("Erro ao buscar usuário: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n╭─────────────────────────────────────────╮")
	fmt.Println("│          DIAGNÓSTICO DE USUÁRIO          │")
	fmt.Println("├─────────────────────────────────────────┤")
	fmt.Printf("  ID:              %d\n", user.ID)
	fmt.Printf("  Nome:            %s\n", user.Name)
	fmt.Printf("  Documento:       %s\n", user.Document)
	fmt.Printf("  Papel:           %s (id %d)\n", user.Role.Name, user.RoleID)
	fmt.Printf("  Segredo 2FA:     %t\n", user.Secret2FA != nil && *user.Secret2FA != "")
	fmt.Printf("  2FA ativo:       %t\n", user.TwoFactorEnabled)
	fmt.Printf("  Foto:            %t\n", user.PhotoURL != nil)
	fmt.Printf("  Criado em:       %s\n", user.CreatedAt.Format(time.RFC3339))
	fmt.Println("╰─────────────────────────────────────────╯")
}
