package model

import (
	"strings"
	"time"
)

// Tamanhos máximos, em caracteres, das colunas de vehicles
const (
	MaxVehicleNameLength = 120
	MaxPlateLength       = 20
	MaxVehicleTypeLength = 50
	MaxPhotoURLLength    = 512
)

// Vehicle é um veículo do cadastro. A placa é sempre gravada em maiúsculas.
type Vehicle struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;size:120" json:"name"`
	Plate     string    `gorm:"uniqueIndex;not null;size:20" json:"plate"`
	Type      string    `gorm:"not null;size:50" json:"type"`
	FacePhoto *string   `gorm:"size:512" json:"facePhoto"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName define o nome da tabela
func (Vehicle) TableName() string {
	return "vehicles"
}

// NormalizePlate remove espaços nas pontas e converte para maiúsculas
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}
