package repository

import (
	"context"
	"errors"

	"github.com/diillson/vehicle-registry/internal/domain/model"
)

var (
	ErrNotFound  = errors.New("registro não encontrado")
	ErrDuplicate = errors.New("violação de unicidade")
)

// UserRepository persiste usuários. Leituras pré-carregam o papel.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*model.UserEntity, error)
	FindByDocument(ctx context.Context, document string) (*model.UserEntity, error)
	FindByID(ctx context.Context, id uint) (*model.UserEntity, error)

	// Create insere o usuário; colisão de email ou documento retorna ErrDuplicate
	Create(ctx context.Context, user *model.UserEntity) error

	// EnableTwoFactor liga o segundo fator; não há operação inversa
	EnableTwoFactor(ctx context.Context, id uint) error
}

// RoleRepository resolve papéis de usuário
type RoleRepository interface {
	FindByID(ctx context.Context, id uint) (*model.RoleEntity, error)

	// Ensure cria o papel se não existir e o retorna; seguro sob concorrência
	Ensure(ctx context.Context, name string) (*model.RoleEntity, error)
}

// VehicleRepository persiste veículos
type VehicleRepository interface {
	// List retorna todos os veículos do mais recente para o mais antigo
	List(ctx context.Context) ([]model.Vehicle, error)
	FindByID(ctx context.Context, id uint) (*model.Vehicle, error)

	// Create e Update retornam ErrDuplicate quando a placa colide
	Create(ctx context.Context, vehicle *model.Vehicle) error
	Update(ctx context.Context, vehicle *model.Vehicle) error

	// Delete retorna ErrNotFound se nenhuma linha foi removida
	Delete(ctx context.Context, id uint) error
}
