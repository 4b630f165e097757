package mocks

import (
	"context"

	"github.com/diillson/vehicle-registry/internal/adapter/storage"
	"github.com/stretchr/testify/mock"
)

// MockUploader é um mock para o storage.Uploader
type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, photo storage.PhotoUpload) (string, error) {
	args := m.Called(ctx, photo)
	return args.String(0), args.Error(1)
}
