package model

// RoleEntity é um papel de usuário; o nome é único no banco
type RoleEntity struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;not null;size:50" json:"name"`
}

// TableName define o nome da tabela
func (RoleEntity) TableName() string {
	return "roles"
}
