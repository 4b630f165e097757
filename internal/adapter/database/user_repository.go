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
)

// UserRepository implementa repository.UserRepository
type UserRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewUserRepository cria um novo repositório de usuários
func NewUserRepository(db *gorm.DB, logger *zap.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.UserEntity, error) {
	return r.findOne(ctx, "UserRepository.FindByEmail", "email = ?", email)
}

func (r *UserRepository) FindByDocument(ctx context.Context, document string) (*model.UserEntity, error) {
	return r.findOne(ctx, "UserRepository.FindByDocument", "document = ?", document)
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.UserEntity, error) {
	return r.findOne(ctx, "UserRepository.FindByID", "users.id = ?", id)
}

func (r *UserRepository) findOne(ctx context.Context, spanName, query string, arg interface{}) (*model.UserEntity, error) {
	ctx, span := startSpan(ctx, spanName, "select", "users")
	defer span.End()

	var user model.UserEntity
	err := r.db.WithContext(ctx).Preload("Role").Where(query, arg).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetAttributes(attribute.Bool("user.found", false))
			return nil, repository.ErrNotFound
		}
		spanError(span, "database error", err)
		return nil, fmt.Errorf("falha ao buscar usuário: %w", err)
	}

	span.SetAttributes(attribute.Bool("user.found", true), attribute.Int64("user.id", int64(user.ID)))
	span.SetStatus(codes.Ok, "")
	return &user, nil
}

// Create insere o usuário e recarrega o papel associado
func (r *UserRepository) Create(ctx context.Context, user *model.UserEntity) error {
	ctx, span := startSpan(ctx, "UserRepository.Create", "insert", "users")
	defer span.End()

	// Omit evita que o GORM tente gravar o papel associado
	if err := r.db.WithContext(ctx).Omit("Role").Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			span.SetAttributes(attribute.Bool("user.duplicate", true))
			return repository.ErrDuplicate
		}
		spanError(span, "database error", err)
		r.logger.Error("falha ao inserir usuário", zap.Error(err))
		return fmt.Errorf("falha ao inserir usuário: %w", err)
	}

	if err := r.db.WithContext(ctx).First(&user.Role, user.RoleID).Error; err != nil {
		spanError(span, "database error", err)
		return fmt.Errorf("falha ao carregar papel do usuário: %w", err)
	}

	span.SetAttributes(attribute.Int64("user.id", int64(user.ID)))
	span.SetStatus(codes.Ok, "")
	return nil
}

// EnableTwoFactor liga o segundo fator do usuário
func (r *UserRepository) EnableTwoFactor(ctx context.Context, id uint) error {
	ctx, span := startSpan(ctx, "UserRepository.EnableTwoFactor", "update", "users",
		attribute.Int64("user.id", int64(id)))
	defer span.End()

	err := r.db.WithContext(ctx).Model(&model.UserEntity{}).
		Where("id = ?", id).
		Update("two_factor_enabled", true).Error
	if err != nil {
		spanError(span, "database error", err)
		return fmt.Errorf("falha ao habilitar 2FA: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}
