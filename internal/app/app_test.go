package app

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/diillson/vehicle-registry/internal/testutils"
	"github.com/diillson/vehicle-registry/pkg/config"
	"github.com/diillson/vehicle-registry/pkg/security"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{
			Driver:          "sqlite",
			DSN:             fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
			MaxIdleConns:    1,
			MaxOpenConns:    1,
			ConnMaxLifetime: time.Hour,
			LogLevel:        "silent",
			MigrationDir:    t.TempDir(),
		},
		Cache: config.CacheConfig{
			Enabled:         true,
			Type:            "memory",
			TTL:             time.Minute,
			CleanupInterval: time.Minute,
		},
		Auth: config.AuthConfig{
			JWTSecret:       testSecret,
			TokenExpiration: time.Hour,
			BcryptCost:      4,
			DefaultRole:     "Usuario",
			TOTP:            config.TOTPConfig{Issuer: "TuProyectoApp", Period: 30, Digits: 6, Skew: 1},
		},
		Storage:   config.StorageConfig{Provider: "none"},
		RateLimit: config.RateLimitConfig{Enabled: true, Limit: 100, Period: time.Minute, BurstFactor: 1},
		Vehicles:  config.VehiclesConfig{DefaultType: "Particular"},
		Metrics:   config.MetricsConfig{Enabled: true, PrometheusPath: "/metrics"},
		Tracing:   config.TracingConfig{ServiceName: "vehicle-registry"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*App, *gin.Engine) {
	t.Helper()

	ctx, cancel := testutils.ContextWithTimeout(t)
	defer cancel()

	application, err := NewApp(ctx, cfg, testutils.TestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	router := testutils.SetupTestRouter(t)
	application.RegisterRoutes(router)
	return application, router
}

func currentCode(t *testing.T, cfg *config.Config, otpauthURL string) string {
	t.Helper()

	parsed, err := url.Parse(otpauthURL)
	require.NoError(t, err)
	secret := parsed.Query().Get("secret")
	require.NotEmpty(t, secret)

	totp := security.NewTOTPManager(security.TOTPConfig{
		Issuer: cfg.Auth.TOTP.Issuer,
		Period: cfg.Auth.TOTP.Period,
		Digits: cfg.Auth.TOTP.Digits,
		Skew:   cfg.Auth.TOTP.Skew,
	})
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	return code
}

type registerResponse struct {
	Message       string `json:"message"`
	QRCodeDataURL string `json:"qrCodeDataUrl"`
	OtpauthURL    string `json:"otpauthUrl"`
	User          struct {
		ID               uint   `json:"id"`
		Email            string `json:"email"`
		Role             string `json:"role"`
		TwoFactorEnabled bool   `json:"twoFactorEnabled"`
	} `json:"user"`
}

type sessionResponse struct {
	Message     string `json:"message"`
	Requires2FA bool   `json:"requires2FA"`
	Email       string `json:"email"`
	Token       string `json:"token"`
	User        struct {
		ID    uint   `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func register(t *testing.T, router *gin.Engine, email string) registerResponse {
	t.Helper()

	w := testutils.MakeRequest(t, router, http.MethodPost, "/api/auth/register", map[string]string{
		"name":     "Ana Pérez",
		"document": "DOC-" + email,
		"email":    email,
		"password": "s3cret-pass",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var res registerResponse
	testutils.ParseResponse(t, w, &res)
	return res
}

func TestAuthFlow_RegisterVerifyLoginProfile(t *testing.T) {
	cfg := testConfig(t)
	_, router := newTestServer(t, cfg)

	reg := register(t, router, "ana@example.com")
	assert.Equal(t, "Usuario", reg.User.Role)
	assert.False(t, reg.User.TwoFactorEnabled)
	assert.True(t, strings.HasPrefix(reg.QRCodeDataURL, "data:image/png;base64,"))
	assert.True(t, strings.HasPrefix(reg.OtpauthURL, "otpauth://totp/"))

	// Cadastro repetido é rejeitado
	w := testutils.MakeRequest(t, router, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Otra", "document": "OTRO-1", "email": "ana@example.com", "password": "x",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Código errado não ativa o 2FA
	w = testutils.MakeRequest(t, router, http.MethodPost, "/api/auth/verify-2fa",
		map[string]string{"email": "ana@example.com", "code": "000000x"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = testutils.MakeRequest(t, router, http.MethodPost, "/api/auth/verify-2fa",
		map[string]string{"email": "ana@example.com", "twoFactorCode": currentCode(t, cfg, reg.OtpauthURL)}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = testutils.MakeRequest(t, router, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "ana@example.com", "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = testutils.MakeRequest(t, router, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "ana@example.com", "password": "s3cret-pass"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var challenge sessionResponse
	testutils.ParseResponse(t, w, &challenge)
	assert.True(t, challenge.Requires2FA)
	assert.Equal(t, "ana@example.com", challenge.Email)
	assert.Empty(t, challenge.Token)

	w = testutils.MakeRequest(t, router, http.MethodPost, "/api/auth/verify-login-2fa",
		map[string]string{"email": "ana@example.com", "code": currentCode(t, cfg, reg.OtpauthURL)}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var session sessionResponse
	testutils.ParseResponse(t, w, &session)
	require.NotEmpty(t, session.Token)
	assert.Equal(t, reg.User.ID, session.User.ID)

	w = testutils.MakeRequest(t, router, http.MethodGet, "/api/auth/profile", nil,
		map[string]string{"Authorization": "Bearer " + session.Token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var profile sessionResponse
	testutils.ParseResponse(t, w, &profile)
	assert.Equal(t, "ana@example.com", profile.User.Email)

	w = testutils.MakeRequest(t, router, http.MethodGet, "/api/auth/profile", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = testutils.MakeRequest(t, router, http.MethodGet, "/api/auth/profile", nil,
		map[string]string{"Authorization": "Bearer " + session.Token + "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLogin_WithoutTwoFactorIssuesToken(t *testing.T) {
	_, router := newTestServer(t, testConfig(t))
	register(t, router, "luis@example.com")

	w := testutils.MakeRequest(t, router, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "luis@example.com", "password": "s3cret-pass"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var session sessionResponse
	testutils.ParseResponse(t, w, &session)
	assert.False(t, session.Requires2FA)
	assert.NotEmpty(t, session.Token)
}

func TestLogin_MissingSecretIsServerError(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.JWTSecret = ""
	_, router := newTestServer(t, cfg)
	register(t, router, "sin@example.com")

	w := testutils.MakeRequest(t, router, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "sin@example.com", "password": "s3cret-pass"}, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"message":"Server misconfigured: missing JWT_SECRET"}`, w.Body.String())
}

func TestRegister_PhotoWithoutStorageProvider(t *testing.T) {
	_, router := newTestServer(t, testConfig(t))

	w := testutils.MakeMultipartRequest(t, router, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Eva", "document": "E-1", "email": "eva@example.com", "password": "pw",
	}, &testutils.FileField{Field: "profilePhoto", Filename: "eva.png", Content: []byte("\x89PNG")})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	// Nada foi gravado: o mesmo cadastro sem foto é aceito
	w = testutils.MakeMultipartRequest(t, router, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Eva", "document": "E-1", "email": "eva@example.com", "password": "pw",
	}, nil)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

type vehicleResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Plate string `json:"plate"`
	Type  string `json:"type"`
}

func TestVehicleCRUD(t *testing.T) {
	_, router := newTestServer(t, testConfig(t))

	w := testutils.MakeRequest(t, router, http.MethodPost, "/api/vehicles",
		map[string]string{"name": "Sedán", "plate": "abc123"}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created vehicleResponse
	testutils.ParseResponse(t, w, &created)
	assert.Equal(t, "ABC123", created.Plate)
	assert.Equal(t, "Particular", created.Type)

	w = testutils.MakeRequest(t, router, http.MethodPost, "/api/vehicles",
		map[string]string{"name": "Otro", "plate": "ABC123"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutils.MakeRequest(t, router, http.MethodPost, "/api/vehicles",
		map[string]string{"name": "Camión", "plate": "XYZ999", "type": "Carga"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = testutils.MakeRequest(t, router, http.MethodGet, "/api/vehicles", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []vehicleResponse
	testutils.ParseResponse(t, w, &listed)
	assert.Len(t, listed, 2)

	path := fmt.Sprintf("/api/vehicles/%d", created.ID)

	w = testutils.MakeRequest(t, router, http.MethodPut, path, map[string]string{"type": "Taxi"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated vehicleResponse
	testutils.ParseResponse(t, w, &updated)
	assert.Equal(t, "Taxi", updated.Type)
	assert.Equal(t, "ABC123", updated.Plate)

	w = testutils.MakeRequest(t, router, http.MethodPut, path, map[string]string{"plate": "xyz999"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = testutils.MakeRequest(t, router, http.MethodPut, "/api/vehicles/abc", map[string]string{"type": "Taxi"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutils.MakeRequest(t, router, http.MethodDelete, path, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Vehículo eliminado"}`, w.Body.String())

	w = testutils.MakeRequest(t, router, http.MethodDelete, path, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = testutils.MakeRequest(t, router, http.MethodPut, "/api/vehicles/9999", map[string]string{"type": "Taxi"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVehicleCreate_BodyOverLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.MaxBodyBytes = 1024
	_, router := newTestServer(t, cfg)

	w := testutils.MakeRequest(t, router, http.MethodPost, "/api/vehicles",
		map[string]string{"name": "Sedán", "plate": "BIG001", "notes": strings.Repeat("x", 1<<20)}, nil)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
	assert.JSONEq(t, `{"message":"El cuerpo de la solicitud es demasiado grande"}`, w.Body.String())

	w = testutils.MakeRequest(t, router, http.MethodGet, "/api/vehicles", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []vehicleResponse
	testutils.ParseResponse(t, w, &listed)
	assert.Empty(t, listed)

	w = testutils.MakeRequest(t, router, http.MethodPost, "/api/vehicles",
		map[string]string{"name": "Sedán", "plate": "SMALL1"}, nil)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestVehicleCreate_FieldOverColumnSize(t *testing.T) {
	_, router := newTestServer(t, testConfig(t))

	w := testutils.MakeRequest(t, router, http.MethodPost, "/api/vehicles",
		map[string]string{"name": strings.Repeat("n", 121), "plate": "ABC123"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message":"El nombre supera el máximo de 120 caracteres"}`, w.Body.String())
}

func TestLoginRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.Limit = 2
	_, router := newTestServer(t, cfg)

	body := map[string]string{"email": "nadie@example.com", "password": "x"}
	for i := 0; i < 2; i++ {
		w := testutils.MakeRequest(t, router, http.MethodPost, "/api/auth/login", body, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	}

	w := testutils.MakeRequest(t, router, http.MethodPost, "/api/auth/login", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestPublicEndpoints(t *testing.T) {
	_, router := newTestServer(t, testConfig(t))

	w := testutils.MakeRequest(t, router, http.MethodGet, "/api/ping", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Backend conectado"}`, w.Body.String())

	w = testutils.MakeRequest(t, router, http.MethodGet, "/api/auth/ping", nil, nil)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())

	w = testutils.MakeRequest(t, router, http.MethodGet, "/health/liveness", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutils.MakeRequest(t, router, http.MethodGet, "/health/readiness", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = testutils.MakeRequest(t, router, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database"`)

	w = testutils.MakeRequest(t, router, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "vehicle_registry_")

	w = testutils.MakeRequest(t, router, http.MethodGet, "/nao-existe", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewApp_SeedsDefaultRole(t *testing.T) {
	application, _ := newTestServer(t, testConfig(t))

	ctx, cancel := testutils.ContextWithTimeout(t)
	defer cancel()

	role, err := application.Services.Auth.EnsureDefaultRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Usuario", role.Name)
	assert.NotZero(t, role.ID)
}
