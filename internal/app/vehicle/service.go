package vehicle

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/diillson/vehicle-registry/internal/domain/model"
	"github.com/diillson/vehicle-registry/internal/domain/repository"
	apperrors "github.com/diillson/vehicle-registry/pkg/errors"
	"github.com/diillson/vehicle-registry/pkg/logging"
	"go.uber.org/zap"
)

const (
	msgRequired     = "Nombre y placa son obligatorios"
	msgInvalidID    = "ID de vehículo inválido"
	msgNotFound     = "Vehículo no encontrado"
	msgPlateTaken   = "La placa ya está registrada"
	msgListFailed   = "Error obteniendo vehículos"
	msgCreateFailed = "Error creando vehículo"
	msgUpdateFailed = "Error actualizando vehículo"
	msgDeleteFailed = "Error eliminando vehículo"
	msgTooLong      = "%s supera el máximo de %d caracteres"
)

// DefaultType é o tipo usado quando o cadastro não informa um
const DefaultType = "Particular"

// CreateInput são os dados de cadastro; Type e FacePhoto são opcionais
type CreateInput struct {
	Name      string
	Plate     string
	Type      string
	FacePhoto *string
}

// UpdateInput carrega apenas os campos presentes no corpo da requisição
type UpdateInput struct {
	Name      *string
	Plate     *string
	Type      *string
	FacePhoto *string
}

// Service implementa o CRUD de veículos
type Service struct {
	repo        repository.VehicleRepository
	defaultType string
	logger      *logging.ContextLogger
}

// NewService cria o serviço; defaultType vazio usa DefaultType
func NewService(repo repository.VehicleRepository, defaultType string, logger *zap.Logger) *Service {
	if strings.TrimSpace(defaultType) == "" {
		defaultType = DefaultType
	}
	return &Service{
		repo:        repo,
		defaultType: defaultType,
		logger:      logging.NewContextLogger(logger),
	}
}

// List retorna todos os veículos, mais recentes primeiro
func (s *Service) List(ctx context.Context) ([]model.Vehicle, error) {
	vehicles, err := s.repo.List(ctx)
	if err != nil {
		s.logger.ErrorCtx(ctx, "falha ao listar veículos", zap.Error(err))
		return nil, apperrors.Storage(msgListFailed, err)
	}
	return vehicles, nil
}

// Create cadastra um veículo com placa normalizada
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Vehicle, error) {
	name := strings.TrimSpace(in.Name)
	plate := model.NormalizePlate(in.Plate)
	if name == "" || plate == "" {
		return nil, apperrors.Validation(msgRequired)
	}

	vehicleType := strings.TrimSpace(in.Type)
	if vehicleType == "" {
		vehicleType = s.defaultType
	}

	v := &model.Vehicle{
		Name:      name,
		Plate:     plate,
		Type:      vehicleType,
		FacePhoto: in.FacePhoto,
	}
	if err := checkLengths(v); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, v); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Duplicate(msgPlateTaken, err)
		}
		s.logger.ErrorCtx(ctx, "falha ao criar veículo", zap.String("plate", plate), zap.Error(err))
		return nil, apperrors.Storage(msgCreateFailed, err)
	}

	s.logger.InfoCtx(ctx, "veículo criado", zap.Uint("vehicle_id", v.ID), zap.String("plate", plate))
	return v, nil
}

// checkLengths rejeita valores maiores que as colunas de vehicles
func checkLengths(v *model.Vehicle) error {
	photo := ""
	if v.FacePhoto != nil {
		photo = *v.FacePhoto
	}
	fields := []struct {
		label string
		value string
		max   int
	}{
		{"El nombre", v.Name, model.MaxVehicleNameLength},
		{"La placa", v.Plate, model.MaxPlateLength},
		{"El tipo", v.Type, model.MaxVehicleTypeLength},
		{"La foto", photo, model.MaxPhotoURLLength},
	}
	for _, f := range fields {
		if utf8.RuneCountInString(f.value) > f.max {
			return apperrors.Validation(fmt.Sprintf(msgTooLong, f.label, f.max))
		}
	}
	return nil
}

// Update altera apenas os campos informados
func (s *Service) Update(ctx context.Context, rawID string, in UpdateInput) (*model.Vehicle, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return nil, err
	}

	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound(msgNotFound, err)
		}
		s.logger.ErrorCtx(ctx, "falha ao buscar veículo", zap.Uint("vehicle_id", id), zap.Error(err))
		return nil, apperrors.Storage(msgUpdateFailed, err)
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperrors.Validation(msgRequired)
		}
		v.Name = name
	}
	if in.Plate != nil {
		plate := model.NormalizePlate(*in.Plate)
		if plate == "" {
			return nil, apperrors.Validation(msgRequired)
		}
		v.Plate = plate
	}
	if in.Type != nil {
		if t := strings.TrimSpace(*in.Type); t != "" {
			v.Type = t
		}
	}
	if in.FacePhoto != nil {
		v.FacePhoto = in.FacePhoto
	}
	if err := checkLengths(v); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, v); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict(msgPlateTaken, err)
		}
		s.logger.ErrorCtx(ctx, "falha ao atualizar veículo", zap.Uint("vehicle_id", id), zap.Error(err))
		return nil, apperrors.Storage(msgUpdateFailed, err)
	}

	s.logger.InfoCtx(ctx, "veículo atualizado", zap.Uint("vehicle_id", id))
	return v, nil
}

// Delete remove o veículo
func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := ParseID(rawID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound(msgNotFound, err)
		}
		s.logger.ErrorCtx(ctx, "falha ao remover veículo", zap.Uint("vehicle_id", id), zap.Error(err))
		return apperrors.Storage(msgDeleteFailed, err)
	}

	s.logger.InfoCtx(ctx, "veículo removido", zap.Uint("vehicle_id", id))
	return nil
}

// ParseID aceita apenas inteiros positivos em base 10
func ParseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil || id == 0 {
		return 0, apperrors.Validation(msgInvalidID)
	}
	return uint(id), nil
}
