package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	apperrors "github.com/diillson/vehicle-registry/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestConstructorsWrapTaxonomy(t *testing.T) {
	cause := stderrors.New("connection reset")

	tests := []struct {
		name   string
		err    *apperrors.APIError
		status int
		kind   error
	}{
		{"validation", apperrors.Validation("faltan campos"), http.StatusBadRequest, apperrors.ErrValidation},
		{"duplicate", apperrors.Duplicate("ya existe", nil), http.StatusBadRequest, apperrors.ErrDuplicate},
		{"conflict", apperrors.Conflict("ya existe", cause), http.StatusConflict, apperrors.ErrDuplicate},
		{"not found", apperrors.NotFound("no existe", nil), http.StatusNotFound, apperrors.ErrNotFound},
		{"missing token", apperrors.MissingToken("token requerido"), http.StatusUnauthorized, apperrors.ErrMissingToken},
		{"invalid token", apperrors.InvalidToken("token inválido", cause), http.StatusForbidden, apperrors.ErrInvalidToken},
		{"config", apperrors.Config("sin secreto", nil), http.StatusInternalServerError, apperrors.ErrConfig},
		{"upload", apperrors.Upload("falló", cause), http.StatusInternalServerError, apperrors.ErrUpload},
		{"rate limited", apperrors.RateLimited("demasiadas solicitudes"), http.StatusTooManyRequests, apperrors.ErrRateLimited},
		{"payload too large", apperrors.PayloadTooLarge("", cause), http.StatusRequestEntityTooLarge, apperrors.ErrPayloadTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Code)
			assert.ErrorIs(t, tt.err, tt.kind)
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := apperrors.Storage("error de base de datos", cause)

	assert.ErrorIs(t, err, apperrors.ErrStorage)
	assert.Contains(t, err.Error(), "disk full")
}

func TestAs(t *testing.T) {
	t.Run("api error inside chain", func(t *testing.T) {
		original := apperrors.NotFound("Usuario no encontrado", nil)
		got := apperrors.As(fmt.Errorf("handler: %w", original))
		assert.Same(t, original, got)
	})

	t.Run("unknown error becomes generic 500", func(t *testing.T) {
		got := apperrors.As(stderrors.New("boom"))
		assert.Equal(t, http.StatusInternalServerError, got.Code)
		assert.Equal(t, "Error interno del servidor", got.Message)
	})
}
