package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/diillson/vehicle-registry/pkg/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CloudinaryUploader envia fotos de perfil para o Cloudinary
type CloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	folder string
	logger *zap.Logger
}

// NewCloudinaryUploader valida as credenciais e cria o cliente
func NewCloudinaryUploader(cfg config.CloudinaryConfig, logger *zap.Logger) (*CloudinaryUploader, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("credenciais do Cloudinary incompletas")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("falha ao criar cliente Cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true

	return &CloudinaryUploader{
		cld:    cld,
		folder: cfg.Folder,
		logger: logger,
	}, nil
}

// Upload envia a foto com um public id aleatório e retorna a URL https
func (u *CloudinaryUploader) Upload(ctx context.Context, photo PhotoUpload) (string, error) {
	publicID := uuid.NewString()

	resp, err := u.cld.Upload.Upload(ctx, photo.Reader, uploader.UploadParams{
		Folder:   u.folder,
		PublicID: publicID,
	})
	if err != nil {
		return "", fmt.Errorf("falha no upload para o Cloudinary: %w", err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("cloudinary recusou o upload: %s", resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return "", errors.New("cloudinary não retornou a URL da imagem")
	}

	u.logger.Debug("foto enviada ao Cloudinary",
		zap.String("publicId", resp.PublicID),
		zap.Int("bytes", resp.Bytes))

	return resp.SecureURL, nil
}
