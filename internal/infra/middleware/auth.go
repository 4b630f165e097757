package middleware

import (
	"errors"
	"strings"

	apperrors "github.com/diillson/vehicle-registry/pkg/errors"
	"github.com/diillson/vehicle-registry/pkg/security"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ClaimsKey é a chave das claims da sessão no gin.Context
const ClaimsKey = "claims"

const (
	msgTokenRequired = "Se requiere un token para la autenticación"
	msgTokenInvalid  = "Token inválido"
	msgMissingSecret = "Server misconfigured: missing JWT_SECRET"
)

// AuthMiddleware verifica o token de sessão enviado como Bearer
type AuthMiddleware struct {
	keys   *security.KeyManager
	logger *zap.Logger
}

// NewAuthMiddleware cria uma nova instância do middleware de autenticação
func NewAuthMiddleware(keys *security.KeyManager, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		keys:   keys,
		logger: logger,
	}
}

// Authenticate exige um token válido e guarda as claims decodificadas no contexto
func (m *AuthMiddleware) Authenticate(c *gin.Context) {
	tokenString := bearerToken(c.GetHeader("Authorization"))
	if tokenString == "" {
		abortWithError(c, apperrors.MissingToken(msgTokenRequired))
		return
	}

	claims, err := m.keys.VerifyToken(tokenString)
	if err != nil {
		if errors.Is(err, security.ErrMissingSecret) {
			m.logger.Error("JWT_SECRET não definido; sessão não pode ser verificada")
			abortWithError(c, apperrors.Config(msgMissingSecret, err))
			return
		}
		m.logger.Debug("token rejeitado", zap.String("path", c.Request.URL.Path), zap.Error(err))
		abortWithError(c, apperrors.InvalidToken(msgTokenInvalid, err))
		return
	}

	c.Set(ClaimsKey, claims)
	c.Next()
}

// ClaimsFromContext devolve as claims gravadas por Authenticate
func ClaimsFromContext(c *gin.Context) (*security.Claims, bool) {
	value, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*security.Claims)
	return claims, ok && claims != nil
}

// bearerToken aceita "Bearer <token>" sem diferenciar maiúsculas no esquema
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func abortWithError(c *gin.Context, apiErr *apperrors.APIError) {
	c.AbortWithStatusJSON(apiErr.Code, gin.H{"message": apiErr.Message})
}
