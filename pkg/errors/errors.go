package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Tipos de erro comuns
var (
	ErrValidation         = errors.New("dados inválidos")
	ErrNotFound           = errors.New("recurso não encontrado")
	ErrDuplicate          = errors.New("recurso já existe")
	ErrUnauthorized       = errors.New("não autorizado")
	ErrMissingToken       = errors.New("token não fornecido")
	ErrInvalidToken       = errors.New("token inválido")
	ErrInvalidCredentials = errors.New("credenciais inválidas")
	ErrInvalidCode        = errors.New("código 2FA inválido")
	ErrState              = errors.New("estado inválido")
	ErrConfig             = errors.New("configuração ausente")
	ErrUpload             = errors.New("falha no upload")
	ErrStorage            = errors.New("falha no armazenamento")
	ErrRateLimited        = errors.New("limite de requisições excedido")
	ErrPayloadTooLarge    = errors.New("corpo da requisição muito grande")
)

// APIError representa um erro da API com informações adicionais
type APIError struct {
	Code        int         `json:"-"`
	Message     string      `json:"message"`
	Details     interface{} `json:"details,omitempty"`
	OriginalErr error       `json:"-"`
}

// Error implementa a interface error
func (e *APIError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.OriginalErr)
	}
	return e.Message
}

// Unwrap permite usar errors.Is e errors.As
func (e *APIError) Unwrap() error {
	return e.OriginalErr
}

// New cria um novo APIError
func New(code int, message string, err error) *APIError {
	return &APIError{
		Code:        code,
		Message:     message,
		OriginalErr: err,
	}
}

// WithDetails adiciona detalhes ao erro
func (e *APIError) WithDetails(details interface{}) *APIError {
	e.Details = details
	return e
}

// wrap junta a sentinela da taxonomia com a causa real, se houver
func wrap(kind, cause error) error {
	switch {
	case cause == nil:
		return kind
	case errors.Is(cause, kind):
		return cause
	default:
		return fmt.Errorf("%w: %w", kind, cause)
	}
}

// Validation cria um erro 400 de validação de entrada
func Validation(message string) *APIError {
	return New(http.StatusBadRequest, message, ErrValidation)
}

// Duplicate cria um erro 400 para violação de unicidade
func Duplicate(message string, err error) *APIError {
	return New(http.StatusBadRequest, message, wrap(ErrDuplicate, err))
}

// Conflict cria um erro 409 para violação de unicidade
func Conflict(message string, err error) *APIError {
	return New(http.StatusConflict, message, wrap(ErrDuplicate, err))
}

// NotFound cria um erro 404
func NotFound(message string, err error) *APIError {
	return New(http.StatusNotFound, message, wrap(ErrNotFound, err))
}

// BadState cria um erro 400 para recursos em estado incompatível com a operação
func BadState(message string) *APIError {
	return New(http.StatusBadRequest, message, ErrState)
}

// Unauthorized cria um erro 401
func Unauthorized(message string, err error) *APIError {
	if message == "" {
		message = "No autorizado"
	}
	return New(http.StatusUnauthorized, message, wrap(ErrUnauthorized, err))
}

// MissingToken cria um erro 401 para requisições sem token
func MissingToken(message string) *APIError {
	return New(http.StatusUnauthorized, message, ErrMissingToken)
}

// InvalidToken cria um erro 403 para tokens expirados ou adulterados
func InvalidToken(message string, err error) *APIError {
	return New(http.StatusForbidden, message, wrap(ErrInvalidToken, err))
}

// InvalidCredentials cria um erro 401 para senha incorreta
func InvalidCredentials(message string) *APIError {
	return New(http.StatusUnauthorized, message, ErrInvalidCredentials)
}

// InvalidCode cria um erro 401 para código TOTP rejeitado
func InvalidCode(message string) *APIError {
	return New(http.StatusUnauthorized, message, ErrInvalidCode)
}

// Config cria um erro 500 fatal de configuração do servidor
func Config(message string, err error) *APIError {
	return New(http.StatusInternalServerError, message, wrap(ErrConfig, err))
}

// Upload cria um erro 500 de falha no provedor de imagens
func Upload(message string, err error) *APIError {
	return New(http.StatusInternalServerError, message, wrap(ErrUpload, err))
}

// Storage cria um erro 500 de falha no banco de dados
func Storage(message string, err error) *APIError {
	return New(http.StatusInternalServerError, message, wrap(ErrStorage, err))
}

// RateLimited cria um erro 429
func RateLimited(message string) *APIError {
	return New(http.StatusTooManyRequests, message, ErrRateLimited)
}

// PayloadTooLarge cria um erro 413 para corpos acima do limite configurado
func PayloadTooLarge(message string, err error) *APIError {
	if message == "" {
		message = "El cuerpo de la solicitud es demasiado grande"
	}
	return New(http.StatusRequestEntityTooLarge, message, wrap(ErrPayloadTooLarge, err))
}

// InternalServer cria um erro 500
func InternalServer(message string, err error) *APIError {
	if message == "" {
		message = "Error interno del servidor"
	}
	return New(http.StatusInternalServerError, message, err)
}

// As extrai um APIError da cadeia; erros desconhecidos viram 500 genérico
func As(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return InternalServer("", err)
}
