package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/diillson/vehicle-registry/internal/adapter/database"
	"github.com/diillson/vehicle-registry/pkg/config"
	"github.com/diillson/vehicle-registry/pkg/security"
	"go.uber.org/zap"
)

func main() {
	var (
		email      string
		configPath string
	)

	flag.StringVar(&email, "email", "", "Email do usuário")
	flag.StringVar(&configPath, "config", "./config", "Diretório do arquivo config.yaml")
	flag.Parse()

	if email == "" {
		fmt.Println("Erro: o email do usuário não pode ser vazio.")
		fmt.Println("Uso: gentoken -email=<email do usuário>")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Erro ao carregar configuração: %v\n", err)
		os.Exit(1)
	}

	logger := zap.NewNop()
	keys := security.NewKeyManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiration, logger)
	if !keys.Configured() {
		fmt.Println("Erro: nenhum segredo JWT configurado.")
		fmt.Println("Defina JWT_SECRET no ambiente ou auth.jwtsecret no config.yaml")
		os.Exit(1)
	}

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
	if err != nil {
		fmt.Printf("Erro ao buscar usuário %s: %v\n", email, err)
		os.Exit(1)
	}

	// Mesmos claims emitidos pelo login
	token, err := keys.GenerateToken(user.ID, user.Email, user.Role.Name)
	if err != nil {
		fmt.Printf("Erro ao gerar token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nToken JWT gerado:")
	fmt.Println("------------------------------------------")
	fmt.Println(token)
	fmt.Println("------------------------------------------")
	fmt.Printf("ID do usuário: %d\n", user.ID)
	fmt.Printf("Papel: %s\n", user.Role.Name)
	fmt.Printf("Expira em: %s\n", time.Now().Add(keys.TTL()).Format(time.RFC3339))
	fmt.Println("\nUse este token no cabeçalho Authorization:")
	fmt.Printf("Authorization: Bearer %s\n", token)
}
