package model

import "time"

// Tamanhos máximos, em caracteres, das colunas de users
const (
	MaxUserNameLength = 120
	MaxDocumentLength = 40
	MaxEmailLength    = 191
)

// User é a projeção pública de um usuário; nunca carrega hash de senha nem segredo 2FA
type User struct {
	ID               uint      `json:"id"`
	Name             string    `json:"name"`
	Document         string    `json:"document"`
	Email            string    `json:"email"`
	Role             string    `json:"role"`
	PhotoURL         *string   `json:"photoUrl"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	CreatedAt        time.Time `json:"createdAt"`
}

// UserEntity é a representação de banco de dados de um usuário
type UserEntity struct {
	ID               uint       `gorm:"primaryKey"`
	Name             string     `gorm:"not null;size:120"`
	Document         string     `gorm:"uniqueIndex;not null;size:40"`
	Email            string     `gorm:"uniqueIndex;not null;size:191"`
	Password         string     `gorm:"not null"`
	RoleID           uint       `gorm:"not null;index"`
	Role             RoleEntity `gorm:"foreignKey:RoleID"`
	Secret2FA        *string    `gorm:"column:secret_2fa;size:64"`
	TwoFactorEnabled bool       `gorm:"column:two_factor_enabled;not null;default:false"`
	PhotoURL         *string    `gorm:"size:512"`
	CreatedAt        time.Time  `gorm:"autoCreateTime"`
}

// TableName define o nome da tabela
func (UserEntity) TableName() string {
	return "users"
}

// ToUser projeta a entidade; Role precisa estar pré-carregado
func (e *UserEntity) ToUser() *User {
	return &User{
		ID:               e.ID,
		Name:             e.Name,
		Document:         e.Document,
		Email:            e.Email,
		Role:             e.Role.Name,
		PhotoURL:         e.PhotoURL,
		TwoFactorEnabled: e.TwoFactorEnabled,
		CreatedAt:        e.CreatedAt,
	}
}
