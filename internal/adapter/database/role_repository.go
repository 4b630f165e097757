package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/diillson/vehicle-registry/internal/domain/model"
	"github.com/diillson/vehicle-registry/internal/domain/repository"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoleRepository implementa repository.RoleRepository
type RoleRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewRoleRepository cria um novo repositório de papéis
func NewRoleRepository(db *gorm.DB, logger *zap.Logger) *RoleRepository {
	return &RoleRepository{db: db, logger: logger}
}

func (r *RoleRepository) FindByID(ctx context.Context, id uint) (*model.RoleEntity, error) {
	ctx, span := startSpan(ctx, "RoleRepository.FindByID", "select", "roles",
		attribute.Int64("role.id", int64(id)))
	defer span.End()

	var role model.RoleEntity
	if err := r.db.WithContext(ctx).First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		spanError(span, "database error", err)
		return nil, fmt.Errorf("falha ao buscar papel: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return &role, nil
}

// Ensure faz INSERT ... ON CONFLICT DO NOTHING no nome único e depois lê a linha.
// Duas chamadas concorrentes nunca criam dois papéis com o mesmo nome.
func (r *RoleRepository) Ensure(ctx context.Context, name string) (*model.RoleEntity, error) {
	ctx, span := startSpan(ctx, "RoleRepository.Ensure", "upsert", "roles",
		attribute.String("role.name", name))
	defer span.End()

	db := r.db.WithContext(ctx)

	role := model.RoleEntity{Name: name}
	created := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&role)
	if created.Error != nil && !isUniqueViolation(created.Error) {
		spanError(span, "database error", created.Error)
		return nil, fmt.Errorf("falha ao criar papel %q: %w", name, created.Error)
	}
	if created.Error == nil && created.RowsAffected > 0 {
		r.logger.Info("papel criado", zap.String("role", name), zap.Uint("id", role.ID))
	}

	var stored model.RoleEntity
	if err := db.Where("name = ?", name).First(&stored).Error; err != nil {
		spanError(span, "database error", err)
		return nil, fmt.Errorf("falha ao ler papel %q: %w", name, err)
	}

	span.SetAttributes(attribute.Int64("role.id", int64(stored.ID)))
	span.SetStatus(codes.Ok, "")
	return &stored, nil
}
