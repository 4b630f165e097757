package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHasher_HashAndCompare(t *testing.T) {
	h := NewPasswordHasher(4)

	hash, err := h.Hash("s3cret")
	require.NoError(t, err)

	ok, err := h.Compare(hash, "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Compare(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordHasher_LengthLimit(t *testing.T) {
	h := NewPasswordHasher(4)

	_, err := h.Hash(strings.Repeat("a", MaxPasswordBytes))
	require.NoError(t, err)

	_, err = h.Hash(strings.Repeat("a", MaxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	// Multibyte: 25 runas de 3 bytes passam do limite
	_, err = h.Hash(strings.Repeat("€", 25))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	hash, err := h.Hash("s3cret")
	require.NoError(t, err)
	ok, err := h.Compare(hash, strings.Repeat("a", MaxPasswordBytes+1))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewPasswordHasher_CostOutOfRange(t *testing.T) {
	assert.Equal(t, 10, NewPasswordHasher(1).cost)
	assert.Equal(t, 10, NewPasswordHasher(99).cost)
	assert.Equal(t, 12, NewPasswordHasher(12).cost)
}
