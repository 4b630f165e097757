package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var (
	// ErrMissingSecret indica que o segredo de assinatura não foi configurado
	ErrMissingSecret = errors.New("jwt secret não configurado")
	// ErrTokenExpired indica que o token passou do prazo de validade
	ErrTokenExpired = errors.New("token expirado")
	// ErrTokenInvalid cobre assinatura incorreta, formato inválido ou claims malformadas
	ErrTokenInvalid = errors.New("token inválido")
)

// minSecretLength é o tamanho mínimo recomendado para HS256
const minSecretLength = 32

// Claims são as informações de identidade carregadas pela sessão
type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// KeyManager emite e valida tokens de sessão HS256
type KeyManager struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// NewKeyManager cria o gerenciador. Um segredo vazio é aceito: a aplicação sobe,
// mas toda emissão ou validação falha com ErrMissingSecret.
func NewKeyManager(secret string, ttl time.Duration, logger *zap.Logger) *KeyManager {
	if secret == "" {
		logger.Error("JWT_SECRET não definido; endpoints autenticados responderão 500")
	} else if len(secret) < minSecretLength {
		logger.Warn("jwt secret curto demais para produção", zap.Int("length", len(secret)))
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &KeyManager{
		secretKey: []byte(secret),
		ttl:       ttl,
		now:       time.Now,
		logger:    logger,
	}
}

// Configured informa se há um segredo de assinatura disponível
func (km *KeyManager) Configured() bool {
	return len(km.secretKey) > 0
}

// TTL retorna a duração das sessões emitidas
func (km *KeyManager) TTL() time.Duration {
	return km.ttl
}

// GenerateToken emite um token de sessão para o usuário
func (km *KeyManager) GenerateToken(userID uint, email, role string) (string, error) {
	if !km.Configured() {
		return "", ErrMissingSecret
	}

	now := km.now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(km.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(km.secretKey)
	if err != nil {
		km.logger.Error("falha ao gerar token JWT", zap.Error(err))
		return "", err
	}

	return tokenString, nil
}

// VerifyToken valida assinatura e validade do token e retorna as claims
func (km *KeyManager) VerifyToken(tokenString string) (*Claims, error) {
	if !km.Configured() {
		return nil, ErrMissingSecret
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Verificar o método de assinatura
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de assinatura inesperado: %v", token.Header["alg"])
		}
		return km.secretKey, nil
	}, jwt.WithTimeFunc(km.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		km.logger.Debug("falha ao validar token JWT", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == 0 {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
