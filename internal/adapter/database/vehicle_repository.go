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

// VehicleRepository implementa repository.VehicleRepository
type VehicleRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewVehicleRepository cria um novo repositório de veículos
func NewVehicleRepository(db *gorm.DB, logger *zap.Logger) *VehicleRepository {
	return &VehicleRepository{db: db, logger: logger}
}

// List ordena por created_at e usa o id como desempate
func (r *VehicleRepository) List(ctx context.Context) ([]model.Vehicle, error) {
	ctx, span := startSpan(ctx, "VehicleRepository.List", "select", "vehicles")
	defer span.End()

	vehicles := make([]model.Vehicle, 0)
	if err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&vehicles).Error; err != nil {
		spanError(span, "database error", err)
		return nil, fmt.Errorf("falha ao listar veículos: %w", err)
	}

	span.SetAttributes(attribute.Int("vehicles.count", len(vehicles)))
	span.SetStatus(codes.Ok, "")
	return vehicles, nil
}

func (r *VehicleRepository) FindByID(ctx context.Context, id uint) (*model.Vehicle, error) {
	ctx, span := startSpan(ctx, "VehicleRepository.FindByID", "select", "vehicles",
		attribute.Int64("vehicle.id", int64(id)))
	defer span.End()

	var vehicle model.Vehicle
	if err := r.db.WithContext(ctx).First(&vehicle, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetAttributes(attribute.Bool("vehicle.found", false))
			return nil, repository.ErrNotFound
		}
		spanError(span, "database error", err)
		return nil, fmt.Errorf("falha ao buscar veículo: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return &vehicle, nil
}

func (r *VehicleRepository) Create(ctx context.Context, vehicle *model.Vehicle) error {
	ctx, span := startSpan(ctx, "VehicleRepository.Create", "insert", "vehicles",
		attribute.String("vehicle.plate", vehicle.Plate))
	defer span.End()

	if err := r.db.WithContext(ctx).Create(vehicle).Error; err != nil {
		if isUniqueViolation(err) {
			span.SetAttributes(attribute.Bool("vehicle.duplicate", true))
			return repository.ErrDuplicate
		}
		spanError(span, "database error", err)
		r.logger.Error("falha ao inserir veículo", zap.Error(err))
		return fmt.Errorf("falha ao inserir veículo: %w", err)
	}

	span.SetAttributes(attribute.Int64("vehicle.id", int64(vehicle.ID)))
	span.SetStatus(codes.Ok, "")
	return nil
}

// Update grava os campos editáveis do veículo. A existência é conferida pelo
// chamador: o MySQL reporta zero linhas afetadas quando nada muda.
func (r *VehicleRepository) Update(ctx context.Context, vehicle *model.Vehicle) error {
	ctx, span := startSpan(ctx, "VehicleRepository.Update", "update", "vehicles",
		attribute.Int64("vehicle.id", int64(vehicle.ID)))
	defer span.End()

	result := r.db.WithContext(ctx).Model(&model.Vehicle{}).
		Where("id = ?", vehicle.ID).
		Select("name", "plate", "type", "face_photo").
		Updates(vehicle)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			span.SetAttributes(attribute.Bool("vehicle.duplicate", true))
			return repository.ErrDuplicate
		}
		spanError(span, "database error", result.Error)
		r.logger.Error("falha ao atualizar veículo", zap.Uint("id", vehicle.ID), zap.Error(result.Error))
		return fmt.Errorf("falha ao atualizar veículo: %w", result.Error)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

func (r *VehicleRepository) Delete(ctx context.Context, id uint) error {
	ctx, span := startSpan(ctx, "VehicleRepository.Delete", "delete", "vehicles",
		attribute.Int64("vehicle.id", int64(id)))
	defer span.End()

	result := r.db.WithContext(ctx).Delete(&model.Vehicle{}, id)
	if result.Error != nil {
		spanError(span, "database error", result.Error)
		return fmt.Errorf("falha ao remover veículo: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		span.SetAttributes(attribute.Bool("vehicle.found", false))
		return repository.ErrNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}
