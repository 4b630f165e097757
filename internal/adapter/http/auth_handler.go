package http

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/diillson/vehicle-registry/internal/adapter/storage"
	"github.com/diillson/vehicle-registry/internal/app/auth"
	"github.com/diillson/vehicle-registry/internal/infra/middleware"
	apperrors "github.com/diillson/vehicle-registry/pkg/errors"
	"github.com/diillson/vehicle-registry/pkg/logging"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	msgRegistered         = "Usuario registrado con éxito. Por favor, escanea el QR para activar el 2FA."
	msgTwoFactorEnabled   = "2FA activado exitosamente."
	msgTwoFactorWasActive = "2FA ya está activado para este usuario."
	msgChallenge          = "Verificación de dos pasos requerida"
	msgLoggedIn           = "Login exitoso"
	msgTwoFactorLoggedIn  = "Autenticación 2FA exitosa"
	msgProfileLoaded      = "Perfil cargado con éxito"
	msgUnauthorized       = "No autorizado"

	msgRegisterFields = "Todos los campos son obligatorios"
	msgLoginFields    = "Correo y contraseña son requeridos"
	msgCodeFields     = "Correo y código 2FA son requeridos"
	msgInvalidRole    = "El rol indicado no existe"
	msgInvalidPhoto   = "La foto debe enviarse como archivo o data URI en base64"
)

// profilePhotoField é o campo multipart da foto de perfil
const profilePhotoField = "profilePhoto"

// AuthHandler expõe cadastro, login, segundo fator e perfil
type AuthHandler struct {
	service *auth.Service
	logger  *logging.ContextLogger
}

// NewAuthHandler cria o handler de autenticação
func NewAuthHandler(service *auth.Service, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logging.NewContextLogger(logger),
	}
}

type registerRequest struct {
	Name     string      `json:"name"`
	Document string      `json:"document"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     interface{} `json:"role"`
	Photo    string      `json:"photo"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// codeRequest aceita o código como code ou twoFactorCode
type codeRequest struct {
	Email         string `json:"email"`
	Code          string `json:"code"`
	TwoFactorCode string `json:"twoFactorCode"`
}

func (r codeRequest) code() string {
	if strings.TrimSpace(r.Code) != "" {
		return r.Code
	}
	return r.TwoFactorCode
}

// Register aceita JSON ou multipart/form-data com o arquivo profilePhoto
func (h *AuthHandler) Register(c *gin.Context) {
	var (
		input auth.RegisterInput
		err   error
	)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		var file multipart.File
		input, file, err = h.multipartInput(c)
		if file != nil {
			defer file.Close()
		}
	} else {
		input, err = h.jsonInput(c)
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	res, err := h.service.Register(c.Request.Context(), input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":       msgRegistered,
		"user":          res.User,
		"qrCodeDataUrl": res.QRCodeDataURL,
		"otpauthUrl":    res.ProvisioningURI,
	})
}

func (h *AuthHandler) jsonInput(c *gin.Context) (auth.RegisterInput, error) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.DebugCtx(c.Request.Context(), "corpo de cadastro inválido", zap.Error(err))
		return auth.RegisterInput{}, bodyError(err, apperrors.Validation(msgRegisterFields))
	}

	roleID, err := parseRoleID(req.Role)
	if err != nil {
		return auth.RegisterInput{}, err
	}

	input := auth.RegisterInput{
		Name:     req.Name,
		Document: req.Document,
		Email:    req.Email,
		Password: req.Password,
		RoleID:   roleID,
	}

	if req.Photo != "" {
		photo, err := storage.DecodeDataURI(req.Photo)
		if err != nil {
			return auth.RegisterInput{}, apperrors.New(http.StatusBadRequest, msgInvalidPhoto, err)
		}
		input.Photo = photo
	}

	return input, nil
}

func (h *AuthHandler) multipartInput(c *gin.Context) (auth.RegisterInput, multipart.File, error) {
	roleID, err := parseRoleID(c.PostForm("role"))
	if err != nil {
		return auth.RegisterInput{}, nil, err
	}

	input := auth.RegisterInput{
		Name:     c.PostForm("name"),
		Document: c.PostForm("document"),
		Email:    c.PostForm("email"),
		Password: c.PostForm("password"),
		RoleID:   roleID,
	}

	header, err := c.FormFile(profilePhotoField)
	if errors.Is(err, http.ErrMissingFile) {
		return input, nil, nil
	}
	if err != nil {
		return auth.RegisterInput{}, nil, bodyError(err, apperrors.New(http.StatusBadRequest, msgInvalidPhoto, err))
	}

	file, err := header.Open()
	if err != nil {
		return auth.RegisterInput{}, nil, apperrors.InternalServer("", err)
	}

	input.Photo = &storage.PhotoUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Reader:      file,
	}
	return input, file, nil
}

// parseRoleID aceita número JSON ou texto; vazio e zero significam papel padrão
func parseRoleID(raw interface{}) (*uint, error) {
	var text string
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case float64:
		text = strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		text = strings.TrimSpace(v)
	default:
		text = fmt.Sprint(v)
	}

	if text == "" || text == "0" {
		return nil, nil
	}

	id, err := strconv.ParseUint(text, 10, 32)
	if err != nil {
		return nil, apperrors.Validation(msgInvalidRole)
	}
	roleID := uint(id)
	return &roleID, nil
}

// VerifyRegistration2FA ativa o segundo fator
func (h *AuthHandler) VerifyRegistration2FA(c *gin.Context) {
	var req codeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bodyError(err, apperrors.Validation(msgCodeFields)))
		return
	}

	res, err := h.service.VerifyRegistration2FA(c.Request.Context(), req.Email, req.code())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	message := msgTwoFactorEnabled
	if res.AlreadyEnabled {
		message = msgTwoFactorWasActive
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

// Login autentica por senha; com 2FA ativo devolve apenas o desafio
func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bodyError(err, apperrors.Validation(msgLoginFields)))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if res.Requires2FA {
		c.JSON(http.StatusOK, gin.H{
			"message":     msgChallenge,
			"requires2FA": true,
			"email":       res.Email,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": msgLoggedIn,
		"token":   res.Token,
		"user":    res.User,
	})
}

// VerifyLogin2FA conclui o login com o código TOTP
func (h *AuthHandler) VerifyLogin2FA(c *gin.Context) {
	var req codeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bodyError(err, apperrors.Validation(msgCodeFields)))
		return
	}

	res, err := h.service.VerifyLogin2FA(c.Request.Context(), req.Email, req.code())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": msgTwoFactorLoggedIn,
		"token":   res.Token,
		"user":    res.User,
	})
}

// Profile devolve o usuário da sessão; exige o middleware de autenticação
func (h *AuthHandler) Profile(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		respondError(c, h.logger, apperrors.Unauthorized(msgUnauthorized, nil))
		return
	}

	user, err := h.service.GetProfile(c.Request.Context(), claims)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": msgProfileLoaded,
		"user":    user,
	})
}

// Ping confirma que o módulo de autenticação responde
func (h *AuthHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
