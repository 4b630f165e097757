package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, int64(50<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, time.Hour, cfg.Auth.TokenExpiration)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, "Usuario", cfg.Auth.DefaultRole)
	assert.Equal(t, uint(30), cfg.Auth.TOTP.Period)
	assert.Equal(t, 6, cfg.Auth.TOTP.Digits)
	assert.Equal(t, uint(1), cfg.Auth.TOTP.Skew)
	assert.Equal(t, "Particular", cfg.Vehicles.DefaultType)
	assert.Equal(t, "none", cfg.Storage.Provider)
}

func TestLoadConfig_LegacyEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "super-secret-value-with-enough-length")
	t.Setenv("PORT", "8081")
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("VR_DATABASE_DRIVER", "sqlite")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "super-secret-value-with-enough-length", cfg.Auth.JWTSecret)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file:test.db", cfg.Database.DSN)
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
database:
  driver: postgres
vehicles:
  defaultType: Moto
auth:
  tokenExpiration: 30m
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "Moto", cfg.Vehicles.DefaultType)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenExpiration)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Run("driver", func(t *testing.T) {
		t.Setenv("VR_DATABASE_DRIVER", "oracle")
		_, err := LoadConfig(t.TempDir())
		assert.ErrorContains(t, err, "driver de banco de dados inválido")
	})

	t.Run("cloudinary without credentials", func(t *testing.T) {
		t.Setenv("VR_STORAGE_PROVIDER", "cloudinary")
		_, err := LoadConfig(t.TempDir())
		assert.ErrorContains(t, err, "cloudinary")
	})
}
