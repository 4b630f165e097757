package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/diillson/vehicle-registry/internal/adapter/storage"
	"github.com/diillson/vehicle-registry/internal/domain/model"
	"github.com/diillson/vehicle-registry/internal/domain/repository"
	"github.com/diillson/vehicle-registry/internal/infra/metrics"
	"github.com/diillson/vehicle-registry/pkg/cache"
	apperrors "github.com/diillson/vehicle-registry/pkg/errors"
	"github.com/diillson/vehicle-registry/pkg/logging"
	"github.com/diillson/vehicle-registry/pkg/security"
	"go.uber.org/zap"
)

const (
	msgFieldsRequired      = "Todos los campos son obligatorios"
	msgEmailTaken          = "El correo ya está registrado"
	msgDocumentTaken       = "El documento ya está registrado"
	msgAlreadyRegistered   = "El correo o documento ya está registrado"
	msgRoleNotFound        = "El rol indicado no existe"
	msgUploadFailed        = "Error al subir la imagen"
	msgRegisterFailed      = "Error al registrar usuario"
	msgCodeRequired        = "Correo y código 2FA son requeridos"
	msgCredentialsRequired = "Correo y contraseña son requeridos"
	msgUserNotFound        = "Usuario no encontrado"
	msgVerifyUserNotFound  = "Usuario no encontrado."
	msgWrongPassword       = "Contraseña incorrecta"
	msgNoSecret            = "No hay secret2FA guardado para este usuario"
	msgTwoFactorDisabled   = "2FA no está habilitado para este usuario"
	msgInvalidCode         = "Código 2FA inválido"
	msgVerifyInvalidCode   = "Código 2FA inválido."
	msgMissingSecret       = "Server misconfigured: missing JWT_SECRET"
	msgUnauthorized        = "No autorizado"
	msgProfileNotFound     = "Perfil no encontrado"
	msgInternal            = "Error interno del servidor"
	msgFieldTooLong        = "%s supera el máximo de %d caracteres"
	msgPasswordTooLong     = "La contraseña no puede superar 72 bytes"
)

const roleCacheTTL = time.Hour

// RegisterInput são os dados de cadastro. RoleID e Photo são opcionais.
type RegisterInput struct {
	Name     string
	Document string
	Email    string
	Password string
	RoleID   *uint
	Photo    *storage.PhotoUpload
}

// RegisterResult traz o usuário criado e o material para ativar o 2FA
type RegisterResult struct {
	User            *model.User
	ProvisioningURI string
	QRCodeDataURL   string
}

// VerifyResult informa se o 2FA já estava ativo antes da chamada
type VerifyResult struct {
	AlreadyEnabled bool
}

// LoginResult é um desafio 2FA (Requires2FA) ou uma sessão emitida (Token e User)
type LoginResult struct {
	Requires2FA bool
	Email       string
	Token       string
	User        *model.User
}

// Dependencies agrupa os colaboradores do serviço
type Dependencies struct {
	Users       repository.UserRepository
	Roles       repository.RoleRepository
	Hasher      *security.PasswordHasher
	TOTP        *security.TOTPManager
	Keys        *security.KeyManager
	Uploader    storage.Uploader
	Cache       cache.Cache
	Metrics     *metrics.APIMetrics
	Logger      *zap.Logger
	DefaultRole string
}

// Service orquestra cadastro, login, segundo fator e perfil
type Service struct {
	users       repository.UserRepository
	roles       repository.RoleRepository
	hasher      *security.PasswordHasher
	totp        *security.TOTPManager
	keys        *security.KeyManager
	uploader    storage.Uploader
	cache       cache.Cache
	metrics     *metrics.APIMetrics
	logger      *logging.ContextLogger
	defaultRole string
	now         func() time.Time
}

// NewService cria o serviço de autenticação
func NewService(deps Dependencies) *Service {
	if deps.DefaultRole == "" {
		deps.DefaultRole = "Usuario"
	}
	if deps.Cache == nil {
		deps.Cache = &cache.NoOpCache{}
	}
	if deps.Uploader == nil {
		deps.Uploader = storage.DisabledUploader{}
	}

	return &Service{
		users:       deps.Users,
		roles:       deps.Roles,
		hasher:      deps.Hasher,
		totp:        deps.TOTP,
		keys:        deps.Keys,
		uploader:    deps.Uploader,
		cache:       deps.Cache,
		metrics:     deps.Metrics,
		logger:      logging.NewContextLogger(deps.Logger),
		defaultRole: deps.DefaultRole,
		now:         time.Now,
	}
}

// EnsureDefaultRole garante o papel padrão; chamado na inicialização
func (s *Service) EnsureDefaultRole(ctx context.Context) (*model.RoleEntity, error) {
	return s.defaultRoleEntity(ctx)
}

// checkRegisterLengths aplica os limites das colunas antes de tocar o banco
func checkRegisterLengths(in RegisterInput) error {
	fields := []struct {
		label string
		value string
		max   int
	}{
		{"El nombre", in.Name, model.MaxUserNameLength},
		{"El documento", in.Document, model.MaxDocumentLength},
		{"El correo", in.Email, model.MaxEmailLength},
	}
	for _, f := range fields {
		if utf8.RuneCountInString(f.value) > f.max {
			return apperrors.Validation(fmt.Sprintf(msgFieldTooLong, f.label, f.max))
		}
	}
	if len(in.Password) > security.MaxPasswordBytes {
		return apperrors.Validation(msgPasswordTooLong)
	}
	return nil
}

// Register cria o usuário com 2FA pendente e devolve o QR de ativação
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Document = strings.TrimSpace(in.Document)
	in.Email = strings.TrimSpace(in.Email)

	if in.Name == "" || in.Document == "" || in.Email == "" || strings.TrimSpace(in.Password) == "" {
		s.event("register", "validation_error")
		return nil, apperrors.Validation(msgFieldsRequired)
	}
	if err := checkRegisterLengths(in); err != nil {
		s.event("register", "validation_error")
		return nil, err
	}

	// Checagens separadas para informar qual campo colidiu
	if taken, err := s.exists(ctx, s.users.FindByEmail, in.Email); err != nil {
		return nil, s.storageFailure(ctx, "register", msgRegisterFailed, err)
	} else if taken {
		s.event("register", "duplicate")
		return nil, apperrors.Duplicate(msgEmailTaken, nil)
	}

	if taken, err := s.exists(ctx, s.users.FindByDocument, in.Document); err != nil {
		return nil, s.storageFailure(ctx, "register", msgRegisterFailed, err)
	} else if taken {
		s.event("register", "duplicate")
		return nil, apperrors.Duplicate(msgDocumentTaken, nil)
	}

	var role *model.RoleEntity
	if in.RoleID != nil {
		found, err := s.roles.FindByID(ctx, *in.RoleID)
		if errors.Is(err, repository.ErrNotFound) {
			s.event("register", "validation_error")
			return nil, apperrors.Validation(msgRoleNotFound)
		}
		if err != nil {
			return nil, s.storageFailure(ctx, "register", msgRegisterFailed, err)
		}
		role = found
	}

	// O upload acontece antes de qualquer escrita: falha aqui não deixa usuário parcial
	var photoURL *string
	if in.Photo != nil {
		url, err := s.uploader.Upload(ctx, *in.Photo)
		if err != nil {
			s.logger.ErrorCtx(ctx, "falha no upload da foto de perfil", zap.Error(err))
			s.event("register", "upload_error")
			return nil, apperrors.Upload(msgUploadFailed, err)
		}
		photoURL = &url
	}

	hash, err := s.hasher.Hash(in.Password)
	if errors.Is(err, security.ErrPasswordTooLong) {
		s.event("register", "validation_error")
		return nil, apperrors.Validation(msgPasswordTooLong)
	}
	if err != nil {
		s.logger.ErrorCtx(ctx, "falha ao gerar hash da senha", zap.Error(err))
		s.event("register", "error")
		return nil, apperrors.InternalServer(msgRegisterFailed, err)
	}

	enrollment, err := s.totp.Enroll(in.Email)
	if err != nil {
		s.logger.ErrorCtx(ctx, "falha ao gerar segredo 2FA", zap.Error(err))
		s.event("register", "error")
		return nil, apperrors.InternalServer(msgRegisterFailed, err)
	}

	qr, err := s.totp.QRCodeDataURL(enrollment.ProvisioningURI)
	if err != nil {
		s.logger.ErrorCtx(ctx, "falha ao gerar QR code", zap.Error(err))
		s.event("register", "error")
		return nil, apperrors.InternalServer(msgRegisterFailed, err)
	}

	if role == nil {
		role, err = s.defaultRoleEntity(ctx)
		if err != nil {
			return nil, s.storageFailure(ctx, "register", msgRegisterFailed, err)
		}
	}

	secret := enrollment.Secret
	entity := &model.UserEntity{
		Name:      in.Name,
		Document:  in.Document,
		Email:     in.Email,
		Password:  hash,
		RoleID:    role.ID,
		Secret2FA: &secret,
		PhotoURL:  photoURL,
	}

	if err := s.users.Create(ctx, entity); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Corrida entre a checagem e o insert; a constraint do banco decide
			s.event("register", "duplicate")
			return nil, apperrors.Duplicate(msgAlreadyRegistered, err)
		}
		return nil, s.storageFailure(ctx, "register", msgRegisterFailed, err)
	}
	entity.Role = *role

	s.logger.InfoCtx(ctx, "usuário registrado", zap.Uint("user_id", entity.ID), zap.String("role", role.Name))
	s.event("register", "success")

	return &RegisterResult{
		User:            entity.ToUser(),
		ProvisioningURI: enrollment.ProvisioningURI,
		QRCodeDataURL:   qr,
	}, nil
}

// VerifyRegistration2FA ativa o segundo fator com o primeiro código válido
func (s *Service) VerifyRegistration2FA(ctx context.Context, email, code string) (*VerifyResult, error) {
	const event = "verify_2fa"

	user, err := s.userForCode(ctx, event, email, code, msgVerifyUserNotFound)
	if err != nil {
		return nil, err
	}

	if user.TwoFactorEnabled {
		s.event(event, "already_enabled")
		return &VerifyResult{AlreadyEnabled: true}, nil
	}
	if user.Secret2FA == nil || *user.Secret2FA == "" {
		s.event(event, "state_error")
		return nil, apperrors.BadState(msgNoSecret)
	}

	if err := s.checkCode(ctx, event, *user.Secret2FA, code, msgVerifyInvalidCode); err != nil {
		return nil, err
	}

	if err := s.users.EnableTwoFactor(ctx, user.ID); err != nil {
		return nil, s.storageFailure(ctx, event, msgInternal, err)
	}

	s.logger.InfoCtx(ctx, "2FA ativado", zap.Uint("user_id", user.ID))
	s.event(event, "success")
	return &VerifyResult{}, nil
}

// Login valida a senha. Com 2FA ativo devolve apenas o desafio, sem token.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	const event = "login"

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		s.event(event, "validation_error")
		return nil, apperrors.Validation(msgCredentialsRequired)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.event(event, "not_found")
			return nil, apperrors.NotFound(msgUserNotFound, err)
		}
		return nil, s.storageFailure(ctx, event, msgInternal, err)
	}

	ok, err := s.hasher.Compare(user.Password, password)
	if err != nil {
		s.logger.ErrorCtx(ctx, "hash de senha inválido no banco", zap.Uint("user_id", user.ID), zap.Error(err))
		s.event(event, "error")
		return nil, apperrors.InternalServer(msgInternal, err)
	}
	if !ok {
		s.logger.WarnCtx(ctx, "senha incorreta", zap.Uint("user_id", user.ID))
		s.event(event, "invalid_credentials")
		return nil, apperrors.InvalidCredentials(msgWrongPassword)
	}

	if user.TwoFactorEnabled {
		s.event(event, "challenge")
		return &LoginResult{Requires2FA: true, Email: user.Email}, nil
	}

	return s.issueSession(ctx, event, user)
}

// VerifyLogin2FA conclui o login de um usuário com 2FA ativo
func (s *Service) VerifyLogin2FA(ctx context.Context, email, code string) (*LoginResult, error) {
	const event = "verify_login_2fa"

	user, err := s.userForCode(ctx, event, email, code, msgUserNotFound)
	if err != nil {
		return nil, err
	}

	if !user.TwoFactorEnabled || user.Secret2FA == nil || *user.Secret2FA == "" {
		s.event(event, "state_error")
		return nil, apperrors.BadState(msgTwoFactorDisabled)
	}

	if err := s.checkCode(ctx, event, *user.Secret2FA, code, msgInvalidCode); err != nil {
		return nil, err
	}

	return s.issueSession(ctx, event, user)
}

// GetProfile carrega o usuário identificado pela sessão
func (s *Service) GetProfile(ctx context.Context, claims *security.Claims) (*model.User, error) {
	const event = "profile"

	if claims == nil || claims.UserID == 0 {
		s.event(event, "unauthorized")
		return nil, apperrors.Unauthorized(msgUnauthorized, nil)
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.event(event, "not_found")
			return nil, apperrors.NotFound(msgProfileNotFound, err)
		}
		return nil, s.storageFailure(ctx, event, msgInternal, err)
	}

	s.event(event, "success")
	return user.ToUser(), nil
}

func (s *Service) issueSession(ctx context.Context, event string, user *model.UserEntity) (*LoginResult, error) {
	if !s.keys.Configured() {
		s.logger.ErrorCtx(ctx, "JWT_SECRET não definido")
		s.event(event, "config_error")
		return nil, apperrors.Config(msgMissingSecret, security.ErrMissingSecret)
	}

	token, err := s.keys.GenerateToken(user.ID, user.Email, user.Role.Name)
	if err != nil {
		s.event(event, "error")
		return nil, apperrors.InternalServer(msgInternal, err)
	}

	s.logger.InfoCtx(ctx, "sessão emitida", zap.Uint("user_id", user.ID), zap.String("flow", event))
	s.event(event, "success")
	return &LoginResult{Token: token, User: user.ToUser(), Email: user.Email}, nil
}

func (s *Service) userForCode(ctx context.Context, event, email, code, notFound string) (*model.UserEntity, error) {
	email = strings.TrimSpace(email)
	if email == "" || strings.TrimSpace(code) == "" {
		s.event(event, "validation_error")
		return nil, apperrors.Validation(msgCodeRequired)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.event(event, "not_found")
			return nil, apperrors.NotFound(notFound, err)
		}
		return nil, s.storageFailure(ctx, event, msgInternal, err)
	}
	return user, nil
}

func (s *Service) checkCode(ctx context.Context, event, secret, code, invalid string) error {
	valid, err := s.totp.Validate(secret, code, s.now())
	if err != nil {
		s.logger.ErrorCtx(ctx, "segredo 2FA corrompido", zap.Error(err))
		s.event(event, "error")
		return apperrors.InternalServer(msgInternal, err)
	}
	if !valid {
		s.event(event, "invalid_code")
		return apperrors.InvalidCode(invalid)
	}
	return nil
}

func (s *Service) defaultRoleEntity(ctx context.Context) (*model.RoleEntity, error) {
	key := "role:" + s.defaultRole

	var cached model.RoleEntity
	if found, err := s.cache.Get(ctx, key, &cached); err == nil && found && cached.ID != 0 {
		return &cached, nil
	}

	role, err := s.roles.Ensure(ctx, s.defaultRole)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, role, roleCacheTTL); err != nil {
		s.logger.WarnCtx(ctx, "falha ao guardar papel padrão no cache", zap.Error(err))
	}
	return role, nil
}

func (s *Service) exists(ctx context.Context, find func(context.Context, string) (*model.UserEntity, error), value string) (bool, error) {
	_, err := find(ctx, value)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repository.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (s *Service) storageFailure(ctx context.Context, event, message string, err error) error {
	s.logger.ErrorCtx(ctx, "falha no banco de dados", zap.String("operation", event), zap.Error(err))
	s.event(event, "error")
	return apperrors.Storage(message, err)
}

func (s *Service) event(name, outcome string) {
	if s.metrics != nil {
		s.metrics.AuthEvent(name, outcome)
	}
}
