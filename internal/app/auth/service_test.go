package auth

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/diillson/vehicle-registry/internal/adapter/storage"
	"github.com/diillson/vehicle-registry/internal/domain/model"
	"github.com/diillson/vehicle-registry/internal/domain/repository"
	"github.com/diillson/vehicle-registry/internal/infra/metrics"
	"github.com/diillson/vehicle-registry/internal/mocks"
	"github.com/diillson/vehicle-registry/pkg/cache"
	apperrors "github.com/diillson/vehicle-registry/pkg/errors"
	"github.com/diillson/vehicle-registry/pkg/security"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var fixedNow = time.Unix(1_700_000_015, 0)

type fixture struct {
	svc      *Service
	users    *mocks.MockUserRepository
	roles    *mocks.MockRoleRepository
	uploader *mocks.MockUploader
}

func newFixture(t *testing.T, secret string) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	f := &fixture{
		users:    new(mocks.MockUserRepository),
		roles:    new(mocks.MockRoleRepository),
		uploader: new(mocks.MockUploader),
	}

	f.svc = NewService(Dependencies{
		Users:       f.users,
		Roles:       f.roles,
		Hasher:      security.NewPasswordHasher(4),
		TOTP:        security.NewTOTPManager(security.TOTPConfig{Issuer: "TuProyectoApp", Period: 30, Digits: 6, Skew: 1}),
		Keys:        security.NewKeyManager(secret, time.Hour, logger),
		Uploader:    f.uploader,
		Cache:       cache.NewMemoryCache(time.Minute, time.Minute, nil, logger),
		Metrics:     metrics.NewAPIMetrics(prometheus.NewRegistry()),
		Logger:      logger,
		DefaultRole: "Usuario",
	})
	f.svc.now = func() time.Time { return fixedNow }

	t.Cleanup(func() {
		f.users.AssertExpectations(t)
		f.roles.AssertExpectations(t)
		f.uploader.AssertExpectations(t)
	})
	return f
}

func (f *fixture) code(t *testing.T, secret string) string {
	t.Helper()
	code, err := f.svc.totp.GenerateCode(secret, fixedNow)
	require.NoError(t, err)
	return code
}

func wrongCode(code string) string {
	last := code[len(code)-1]
	return code[:len(code)-1] + string('0'+(last-'0'+5)%10)
}

func requireAPIError(t *testing.T, err error, status int, kind error, message string) {
	t.Helper()
	require.Error(t, err)
	apiErr := apperrors.As(err)
	assert.Equal(t, status, apiErr.Code)
	assert.ErrorIs(t, err, kind)
	if message != "" {
		assert.Equal(t, message, apiErr.Message)
	}
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := security.NewPasswordHasher(4).Hash(password)
	require.NoError(t, err)
	return h
}

func validInput() RegisterInput {
	return RegisterInput{
		Name:     "Ana Pérez",
		Document: "12345678",
		Email:    "ana@example.com",
		Password: "s3cret",
	}
}

func TestRegister_MissingFields(t *testing.T) {
	f := newFixture(t, testSecret)

	for _, in := range []RegisterInput{
		{Document: "1", Email: "a@b.c", Password: "x"},
		{Name: "A", Email: "a@b.c", Password: "x"},
		{Name: "A", Document: "1", Password: "x"},
		{Name: "A", Document: "1", Email: "a@b.c", Password: "   "},
		{Name: "   ", Document: "1", Email: "a@b.c", Password: "x"},
	} {
		_, err := f.svc.Register(context.Background(), in)
		requireAPIError(t, err, http.StatusBadRequest, apperrors.ErrValidation, msgFieldsRequired)
	}
}

func TestRegister_PasswordOverBcryptLimit(t *testing.T) {
	f := newFixture(t, testSecret)

	in := validInput()
	in.Password = strings.Repeat("a", 73)

	_, err := f.svc.Register(context.Background(), in)
	requireAPIError(t, err, http.StatusBadRequest, apperrors.ErrValidation, msgPasswordTooLong)
	f.users.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegister_PasswordAtBcryptLimit(t *testing.T) {
	f := newFixture(t, testSecret)
	f.users.On("FindByEmail", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)
	f.users.On("FindByDocument", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)
	f.roles.On("Ensure", mock.Anything, "Usuario").Return(&model.RoleEntity{ID: 1, Name: "Usuario"}, nil)
	f.users.On("Create", mock.Anything, mock.Anything).Return(nil)

	in := validInput()
	in.Password = strings.Repeat("a", 72)

	_, err := f.svc.Register(context.Background(), in)
	require.NoError(t, err)
}

func TestRegister_FieldsOverColumnSize(t *testing.T) {
	f := newFixture(t, testSecret)

	cases := map[string]func(*RegisterInput){
		"name":     func(in *RegisterInput) { in.Name = strings.Repeat("ñ", model.MaxUserNameLength+1) },
		"document": func(in *RegisterInput) { in.Document = strings.Repeat("9", model.MaxDocumentLength+1) },
		"email":    func(in *RegisterInput) { in.Email = strings.Repeat("a", model.MaxEmailLength) + "@x.co" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			mutate(&in)
			_, err := f.svc.Register(context.Background(), in)
			requireAPIError(t, err, http.StatusBadRequest, apperrors.ErrValidation, "")
			assert.Contains(t, apperrors.As(err).Message, "supera el máximo")
		})
	}
	f.users.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)

	// Limite exato conta runas, não bytes
	in := validInput()
	in.Name = strings.Repeat("ñ", model.MaxUserNameLength)
	assert.NoError(t, checkRegisterLengths(in))
}

func TestLogin_PasswordOverBcryptLimitIsWrongPassword(t *testing.T) {
	f := newFixture(t, testSecret)
	f.users.On("FindByEmail", mock.Anything, "ana@example.com").
		Return(&model.UserEntity{ID: 1, Password: hashed(t, "s3cret")}, nil)

	_, err := f.svc.Login(context.Background(), "ana@example.com", strings.Repeat("a", 100))
	requireAPIError(t, err, http.StatusUnauthorized, apperrors.ErrInvalidCredentials, msgWrongPassword)
}

func TestRegister_EmailTaken(t *testing.T) {
	f := newFixture(t, testSecret)
	f.users.On("FindByEmail", mock.Anything, "ana@example.com").Return(&model.UserEntity{ID: 1}, nil)

	_, err := f.svc.Register(context.Background(), validInput())

	requireAPIError(t, err, http.StatusBadRequest, apperrors.ErrDuplicate, msgEmailTaken)
	f.users.AssertNotCalled(t, "FindByDocument", mock.Anything, mock.Anything)
}

func TestRegister_DocumentTaken(t *testing.T) {
	f := newFixture(t, testSecret)
	f.users.On("FindByEmail", mock.Anything, "ana@example.com").Return(nil, repository.ErrNotFound)
	f.users.On("FindByDocument", mock.Anything, "12345678").Return(&model.UserEntity{ID: 1}, nil)

	_, err := f.svc.Register(context.Background(), validInput())

	requireAPIError(t, err, http.StatusBadRequest, apperrors.ErrDuplicate, msgDocumentTaken)
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegister_SuccessWithDefaultRole(t *testing.T) {
	f := newFixture(t, testSecret)
	role := &model.RoleEntity{ID: 7, Name: "Usuario"}

	f.users.On("FindByEmail", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)
	f.users.On("FindByDocument", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)
	f.roles.On("Ensure", mock.Anything, "Usuario").Return(role, nil).Once()
	f.users.On("Create", mock.Anything, mock.MatchedBy(func(u *model.UserEntity) bool {
		return u.RoleID == 7 &&
			u.Password != "s3cret" &&
			u.Secret2FA != nil && *u.Secret2FA != "" &&
			!u.TwoFactorEnabled &&
			u.PhotoURL == nil
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*model.UserEntity).ID = 99
	}).Return(nil).Twice()

	res, err := f.svc.Register(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, uint(99), res.User.ID)
	assert.Equal(t, "Usuario", res.User.Role)
	assert.False(t, res.User.TwoFactorEnabled)
	assert.True(t, strings.HasPrefix(res.QRCodeDataURL, "data:image/png;base64,"))
	assert.Contains(t, res.ProvisioningURI, "otpauth://totp/")
	assert.Contains(t, res.ProvisioningURI, "issuer=TuProyectoApp")

	// O papel padrão fica em cache; o segundo cadastro não volta ao banco
	in := validInput()
	in.Email = "otro@example.com"
	in.Document = "87654321"
	_, err = f.svc.Register(context.Background(), in)
	require.NoError(t, err)
}

func TestRegister_UnknownRoleID(t *testing.T) {
	f := newFixture(t, testSecret)
	f.users.On("FindByEmail", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)
	f.users.On("FindByDocument", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)
	f.roles.On("FindByID", mock.Anything, uint(42)).Return(nil, repository.ErrNotFound)

	in := validInput()
	roleID := uint(42)
	in.RoleID = &roleID
	in.Photo = &storage.PhotoUpload{Filename: "p.png", Reader: bytes.NewReader([]byte("png"))}

	_, err := f.svc.Register(context.Background(), in)

	requireAPIError(t, err, http.StatusBadRequest, apperrors.ErrValidation, msgRoleNotFound)
	f.uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestRegister_ExplicitRoleAndPhoto(t *testing.T) {
	f := newFixture(t, testSecret)
	f.users.On("FindByEmail", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)
	f.users.On("FindByDocument", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)
	f.roles.On("FindByID", mock.Anything, uint(2)).Return(&model.RoleEntity{ID: 2, Name: "Admin"}, nil)
	f.uploader.On("Upload", mock.Anything, mock.Anything).Return("https://cdn.example.com/p.png", nil)
	f.users.On("Create", mock.Anything, mock.MatchedBy(func(u *model.UserEntity) bool {
		return u.RoleID == 2 && u.PhotoURL != nil && *u.PhotoURL == "https://cdn.example.com/p.png"
	})).Return(nil)

	in := validInput()
	roleID := uint(2)
	in.RoleID = &roleID
	in.Photo = &storage.PhotoUpload{Filename: "p.png", Reader: bytes.NewReader([]byte("png"))}

	res, err := f.svc.Register(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Admin", res.User.Role)
	require.NotNil(t, res.User.PhotoURL)
	f.roles.AssertNotCalled(t, "Ensure", mock.Anything, mock.Anything)
}

func TestRegister_UploadFailureWritesNothing(t *testing.T) {
	f := newFixture(t, testSecret)
	f.users.On("FindByEmail", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)
	f.users.On("FindByDocument", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)
	f.uploader.On("Upload", mock.Anything, mock.Anything).Return("", errors.New("provider down"))

	in := validInput()
	in.Photo = &storage.PhotoUpload{Filename: "p.png", Reader: bytes.NewReader([]byte("png"))}

	_, err := f.svc.Register(context.Background(), in)

	requireAPIError(t, err, http.StatusInternalServerError, apperrors.ErrUpload, msgUploadFailed)
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.roles.AssertNotCalled(t, "Ensure", mock.Anything, mock.Anything)
}

func TestRegister_InsertRace(t *testing.T) {
	f := newFixture(t, testSecret)
	f.users.On("FindByEmail", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)
	f.users.On("FindByDocument", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)
	f.roles.On("Ensure", mock.Anything, "Usuario").Return(&model.RoleEntity{ID: 1, Name: "Usuario"}, nil)
	f.users.On("Create", mock.Anything, mock.Anything).Return(repository.ErrDuplicate)

	_, err := f.svc.Register(context.Background(), validInput())

	requireAPIError(t, err, http.StatusBadRequest, apperrors.ErrDuplicate, msgAlreadyRegistered)
}

func TestRegister_StorageFailure(t *testing.T) {
	f := newFixture(t, testSecret)
	f.users.On("FindByEmail", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	_, err := f.svc.Register(context.Background(), validInput())

	requireAPIError(t, err, http.StatusInternalServerError, apperrors.ErrStorage, msgRegisterFailed)
}

func TestVerifyRegistration2FA(t *testing.T) {
	secret := "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"

	t.Run("campos obrigatórios", func(t *testing.T) {
		f := newFixture(t, testSecret)
		_, err := f.svc.VerifyRegistration2FA(context.Background(), "ana@example.com", "")
		requireAPIError(t, err, http.StatusBadRequest, apperrors.ErrValidation, msgCodeRequired)
	})

	t.Run("usuário inexistente", func(t *testing.T) {
		f := newFixture(t, testSecret)
		f.users.On("FindByEmail", mock.Anything, "x@example.com").Return(nil, repository.ErrNotFound)
		_, err := f.svc.VerifyRegistration2FA(context.Background(), "x@example.com", "123456")
		requireAPIError(t, err, http.StatusNotFound, apperrors.ErrNotFound, msgVerifyUserNotFound)
	})

	t.Run("já ativado", func(t *testing.T) {
		f := newFixture(t, testSecret)
		f.users.On("FindByEmail", mock.Anything, mock.Anything).
			Return(&model.UserEntity{ID: 1, Secret2FA: &secret, TwoFactorEnabled: true}, nil)
		res, err := f.svc.VerifyRegistration2FA(context.Background(), "ana@example.com", "000000")
		require.NoError(t, err)
		assert.True(t, res.AlreadyEnabled)
		f.users.AssertNotCalled(t, "EnableTwoFactor", mock.Anything, mock.Anything)
	})

	t.Run("sem segredo", func(t *testing.T) {
		f := newFixture(t, testSecret)
		f.users.On("FindByEmail", mock.Anything, mock.Anything).Return(&model.UserEntity{ID: 1}, nil)
		_, err := f.svc.VerifyRegistration2FA(context.Background(), "ana@example.com", "123456")
		requireAPIError(t, err, http.StatusBadRequest, apperrors.ErrState, msgNoSecret)
	})

	t.Run("código inválido", func(t *testing.T) {
		f := newFixture(t, testSecret)
		f.users.On("FindByEmail", mock.Anything, mock.Anything).Return(&model.UserEntity{ID: 1, Secret2FA: &secret}, nil)
		_, err := f.svc.VerifyRegistration2FA(context.Background(), "ana@example.com", wrongCode(f.code(t, secret)))
		requireAPIError(t, err, http.StatusUnauthorized, apperrors.ErrInvalidCode, msgVerifyInvalidCode)
		f.users.AssertNotCalled(t, "EnableTwoFactor", mock.Anything, mock.Anything)
	})

	t.Run("ativa o segundo fator", func(t *testing.T) {
		f := newFixture(t, testSecret)
		f.users.On("FindByEmail", mock.Anything, mock.Anything).Return(&model.UserEntity{ID: 5, Secret2FA: &secret}, nil)
		f.users.On("EnableTwoFactor", mock.Anything, uint(5)).Return(nil)

		res, err := f.svc.VerifyRegistration2FA(context.Background(), "ana@example.com", f.code(t, secret))
		require.NoError(t, err)
		assert.False(t, res.AlreadyEnabled)
	})
}

func TestLogin(t *testing.T) {
	secret := "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"
	password := hashed(t, "s3cret")
	role := model.RoleEntity{ID: 1, Name: "Usuario"}

	t.Run("campos obrigatórios", func(t *testing.T) {
		f := newFixture(t, testSecret)
		_, err := f.svc.Login(context.Background(), "", "x")
		requireAPIError(t, err, http.StatusBadRequest, apperrors.ErrValidation, msgCredentialsRequired)
	})

	t.Run("usuário inexistente", func(t *testing.T) {
		f := newFixture(t, testSecret)
		f.users.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, repository.ErrNotFound)
		_, err := f.svc.Login(context.Background(), "nobody@example.com", "x")
		requireAPIError(t, err, http.StatusNotFound, apperrors.ErrNotFound, msgUserNotFound)
	})

	t.Run("senha incorreta", func(t *testing.T) {
		f := newFixture(t, testSecret)
		f.users.On("FindByEmail", mock.Anything, mock.Anything).Return(&model.UserEntity{ID: 1, Password: password}, nil)
		_, err := f.svc.Login(context.Background(), "ana@example.com", "wrong")
		requireAPIError(t, err, http.StatusUnauthorized, apperrors.ErrInvalidCredentials, msgWrongPassword)
	})

	t.Run("desafio 2FA sem token", func(t *testing.T) {
		f := newFixture(t, testSecret)
		f.users.On("FindByEmail", mock.Anything, mock.Anything).Return(&model.UserEntity{
			ID: 1, Email: "ana@example.com", Password: password, Secret2FA: &secret, TwoFactorEnabled: true, Role: role,
		}, nil)

		res, err := f.svc.Login(context.Background(), "ana@example.com", "s3cret")
		require.NoError(t, err)
		assert.True(t, res.Requires2FA)
		assert.Equal(t, "ana@example.com", res.Email)
		assert.Empty(t, res.Token)
		assert.Nil(t, res.User)
	})

	t.Run("emite sessão", func(t *testing.T) {
		f := newFixture(t, testSecret)
		f.users.On("FindByEmail", mock.Anything, mock.Anything).Return(&model.UserEntity{
			ID: 3, Email: "ana@example.com", Password: password, Secret2FA: &secret, Role: role,
		}, nil)

		res, err := f.svc.Login(context.Background(), "ana@example.com", "s3cret")
		require.NoError(t, err)
		assert.False(t, res.Requires2FA)
		require.NotNil(t, res.User)
		assert.Equal(t, "Usuario", res.User.Role)

		claims, err := f.svc.keys.VerifyToken(res.Token)
		require.NoError(t, err)
		assert.Equal(t, uint(3), claims.UserID)
		assert.Equal(t, "ana@example.com", claims.Email)
	})

	t.Run("segredo JWT ausente", func(t *testing.T) {
		f := newFixture(t, "")
		f.users.On("FindByEmail", mock.Anything, mock.Anything).Return(&model.UserEntity{ID: 3, Password: password, Role: role}, nil)

		_, err := f.svc.Login(context.Background(), "ana@example.com", "s3cret")
		requireAPIError(t, err, http.StatusInternalServerError, apperrors.ErrConfig, msgMissingSecret)
	})
}

func TestVerifyLogin2FA(t *testing.T) {
	secret := "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"
	role := model.RoleEntity{ID: 1, Name: "Usuario"}

	t.Run("2FA desabilitado", func(t *testing.T) {
		f := newFixture(t, testSecret)
		f.users.On("FindByEmail", mock.Anything, mock.Anything).Return(&model.UserEntity{ID: 1, Secret2FA: &secret}, nil)
		_, err := f.svc.VerifyLogin2FA(context.Background(), "ana@example.com", f.code(t, secret))
		requireAPIError(t, err, http.StatusBadRequest, apperrors.ErrState, msgTwoFactorDisabled)
	})

	t.Run("código inválido", func(t *testing.T) {
		f := newFixture(t, testSecret)
		f.users.On("FindByEmail", mock.Anything, mock.Anything).
			Return(&model.UserEntity{ID: 1, Secret2FA: &secret, TwoFactorEnabled: true, Role: role}, nil)
		_, err := f.svc.VerifyLogin2FA(context.Background(), "ana@example.com", wrongCode(f.code(t, secret)))
		requireAPIError(t, err, http.StatusUnauthorized, apperrors.ErrInvalidCode, msgInvalidCode)
	})

	t.Run("emite sessão sem alterar o flag", func(t *testing.T) {
		f := newFixture(t, testSecret)
		f.users.On("FindByEmail", mock.Anything, mock.Anything).
			Return(&model.UserEntity{ID: 8, Email: "ana@example.com", Secret2FA: &secret, TwoFactorEnabled: true, Role: role}, nil)

		res, err := f.svc.VerifyLogin2FA(context.Background(), "ana@example.com", f.code(t, secret))
		require.NoError(t, err)
		require.NotEmpty(t, res.Token)
		assert.True(t, res.User.TwoFactorEnabled)
		f.users.AssertNotCalled(t, "EnableTwoFactor", mock.Anything, mock.Anything)
	})

	t.Run("segredo JWT ausente", func(t *testing.T) {
		f := newFixture(t, "")
		f.users.On("FindByEmail", mock.Anything, mock.Anything).
			Return(&model.UserEntity{ID: 8, Secret2FA: &secret, TwoFactorEnabled: true, Role: role}, nil)
		_, err := f.svc.VerifyLogin2FA(context.Background(), "ana@example.com", f.code(t, secret))
		requireAPIError(t, err, http.StatusInternalServerError, apperrors.ErrConfig, msgMissingSecret)
	})
}

func TestGetProfile(t *testing.T) {
	t.Run("sem claims", func(t *testing.T) {
		f := newFixture(t, testSecret)
		_, err := f.svc.GetProfile(context.Background(), nil)
		requireAPIError(t, err, http.StatusUnauthorized, apperrors.ErrUnauthorized, msgUnauthorized)
	})

	t.Run("usuário removido", func(t *testing.T) {
		f := newFixture(t, testSecret)
		f.users.On("FindByID", mock.Anything, uint(4)).Return(nil, repository.ErrNotFound)
		_, err := f.svc.GetProfile(context.Background(), &security.Claims{UserID: 4})
		requireAPIError(t, err, http.StatusNotFound, apperrors.ErrNotFound, msgProfileNotFound)
	})

	t.Run("carrega o perfil", func(t *testing.T) {
		f := newFixture(t, testSecret)
		f.users.On("FindByID", mock.Anything, uint(4)).Return(&model.UserEntity{
			ID: 4, Name: "Ana", Email: "ana@example.com", Password: "hash", Role: model.RoleEntity{ID: 1, Name: "Usuario"},
		}, nil)

		user, err := f.svc.GetProfile(context.Background(), &security.Claims{UserID: 4})
		require.NoError(t, err)
		assert.Equal(t, "Ana", user.Name)
		assert.Equal(t, "Usuario", user.Role)
	})
}

func TestEnsureDefaultRole_UsesCache(t *testing.T) {
	f := newFixture(t, testSecret)
	f.roles.On("Ensure", mock.Anything, "Usuario").Return(&model.RoleEntity{ID: 1, Name: "Usuario"}, nil).Once()

	for i := 0; i < 3; i++ {
		role, err := f.svc.EnsureDefaultRole(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint(1), role.ID)
	}
}
