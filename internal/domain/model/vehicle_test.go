package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePlate(t *testing.T) {
	assert.Equal(t, "ABC123", NormalizePlate("abc123"))
	assert.Equal(t, "ABC-123", NormalizePlate("  abc-123 "))
	assert.Equal(t, "", NormalizePlate("   "))
}

func TestUserEntity_ToUser(t *testing.T) {
	photo := "https://res.cloudinary.com/demo/profiles/a.png"
	secret := "JBSWY3DPEHPK3PXP"
	e := &UserEntity{
		ID:        7,
		Name:      "Ana",
		Document:  "123",
		Email:     "ana@example.com",
		Password:  "$2a$10$hash",
		RoleID:    1,
		Role:      RoleEntity{ID: 1, Name: "Usuario"},
		Secret2FA: &secret,
		PhotoURL:  &photo,
	}

	u := e.ToUser()
	assert.Equal(t, uint(7), u.ID)
	assert.Equal(t, "Usuario", u.Role)
	assert.Equal(t, &photo, u.PhotoURL)
	assert.False(t, u.TwoFactorEnabled)
}
