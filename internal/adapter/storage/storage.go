package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/diillson/vehicle-registry/internal/infra/metrics"
	"github.com/diillson/vehicle-registry/pkg/config"
	"github.com/diillson/vehicle-registry/pkg/resilience"
	"go.uber.org/zap"
)

var (
	// ErrUploadDisabled indica que nenhum provedor de imagens foi configurado
	ErrUploadDisabled = errors.New("upload de imagens não configurado")
	// ErrInvalidDataURI indica uma foto em data URI malformada
	ErrInvalidDataURI = errors.New("data URI inválida")
)

// PhotoUpload é uma imagem a ser enviada ao provedor
type PhotoUpload struct {
	Filename    string
	ContentType string
	Reader      io.Reader
}

// Uploader envia uma foto e devolve a URL pública
type Uploader interface {
	Upload(ctx context.Context, photo PhotoUpload) (string, error)
}

// DisabledUploader é usado com storage.provider=none
type DisabledUploader struct{}

func (DisabledUploader) Upload(context.Context, PhotoUpload) (string, error) {
	return "", ErrUploadDisabled
}

// NewUploader monta o uploader descrito na configuração, com circuit breaker quando habilitado
func NewUploader(cfg config.StorageConfig, m *metrics.APIMetrics, logger *zap.Logger) (Uploader, error) {
	var (
		base     Uploader
		provider = cfg.Provider
	)

	switch cfg.Provider {
	case "cloudinary":
		cld, err := NewCloudinaryUploader(cfg.Cloudinary, logger)
		if err != nil {
			return nil, err
		}
		base = cld
	case "none", "":
		logger.Info("upload de fotos desabilitado")
		return DisabledUploader{}, nil
	default:
		return nil, fmt.Errorf("provedor de armazenamento não suportado: %s", cfg.Provider)
	}

	var breaker *resilience.CircuitBreaker
	if cfg.CircuitBreaker.Enabled {
		breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:        "photo-upload",
			MaxFailures: cfg.CircuitBreaker.MaxFailures,
			Timeout:     cfg.CircuitBreaker.Timeout,
		}, logger, m)
	}

	return NewGuardedUploader(base, provider, cfg.UploadTimeout, breaker, m), nil
}

// DecodeDataURI converte "data:<mime>;base64,<dados>" em PhotoUpload
func DecodeDataURI(uri string) (*PhotoUpload, error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, ErrInvalidDataURI
	}

	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, ErrInvalidDataURI
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	if len(raw) == 0 {
		return nil, ErrInvalidDataURI
	}

	contentType := strings.TrimSuffix(meta, ";base64")
	return &PhotoUpload{
		Filename:    "photo",
		ContentType: contentType,
		Reader:      bytes.NewReader(raw),
	}, nil
}
