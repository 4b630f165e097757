package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes é o limite de entrada do bcrypt
const MaxPasswordBytes = 72

// ErrPasswordTooLong indica senha acima de MaxPasswordBytes
var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

// PasswordHasher aplica bcrypt com custo fixo
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher cria um hasher; custos fora da faixa do bcrypt usam o padrão
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash gera o hash com salt aleatório
func (h *PasswordHasher) Hash(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare retorna (false, nil) quando a senha não confere.
// Senhas acima do limite nunca conferem, pois Hash as recusa.
func (h *PasswordHasher) Compare(hash, password string) (bool, error) {
	if len(password) > MaxPasswordBytes {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}
