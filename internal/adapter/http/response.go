package http

import (
	"errors"
	"net/http"

	apperrors "github.com/diillson/vehicle-registry/pkg/errors"
	"github.com/diillson/vehicle-registry/pkg/logging"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError converte o erro em {"message": ...}; a causa só vai para o log
func respondError(c *gin.Context, logger *logging.ContextLogger, err error) {
	apiErr := apperrors.As(err)

	if apiErr.Code >= 500 {
		logger.ErrorCtx(c.Request.Context(), "requisição falhou",
			zap.String("path", c.FullPath()),
			zap.Int("status", apiErr.Code),
			zap.Error(err))
	}

	c.AbortWithStatusJSON(apiErr.Code, gin.H{"message": apiErr.Message})
}

// bodyError troca a falha de leitura por 413 quando o corpo estourou o limite
func bodyError(err error, fallback *apperrors.APIError) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.PayloadTooLarge("", err)
	}
	return fallback
}
