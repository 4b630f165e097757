package security

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	totpSecretSize = 20
	qrCodeSize     = 256
)

// TOTPConfig define os parâmetros RFC 6238 do segundo fator
type TOTPConfig struct {
	Issuer string
	Period uint
	Digits int
	Skew   uint
}

// Enrollment é o material gerado no cadastro do segundo fator
type Enrollment struct {
	Secret          string
	ProvisioningURI string
}

// TOTPManager gera segredos, URIs otpauth e valida códigos
type TOTPManager struct {
	issuer string
	period uint
	digits otp.Digits
	skew   uint
}

// NewTOTPManager cria o motor TOTP (SHA1 fixo, compatível com os apps autenticadores)
func NewTOTPManager(cfg TOTPConfig) *TOTPManager {
	if cfg.Issuer == "" {
		cfg.Issuer = "TuProyectoApp"
	}
	if cfg.Period == 0 {
		cfg.Period = 30
	}
	digits := otp.DigitsSix
	if cfg.Digits == 8 {
		digits = otp.DigitsEight
	}

	return &TOTPManager{
		issuer: cfg.Issuer,
		period: cfg.Period,
		digits: digits,
		skew:   cfg.Skew,
	}
}

// Enroll gera um segredo aleatório e a URI de provisionamento para a conta
func (m *TOTPManager) Enroll(account string) (*Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      m.issuer,
		AccountName: account,
		Period:      m.period,
		SecretSize:  totpSecretSize,
		Digits:      m.digits,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("falha ao gerar segredo TOTP: %w", err)
	}

	return &Enrollment{
		Secret:          key.Secret(),
		ProvisioningURI: key.String(),
	}, nil
}

// QRCodeDataURL renderiza a URI como PNG em data URL
func (m *TOTPManager) QRCodeDataURL(uri string) (string, error) {
	png, err := qrcode.Encode(uri, qrcode.Medium, qrCodeSize)
	if err != nil {
		return "", fmt.Errorf("falha ao gerar QR code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// Validate confere o código no instante informado, tolerando skew passos de cada lado.
// Códigos com tamanho ou formato errado retornam (false, nil).
func (m *TOTPManager) Validate(secret, code string, at time.Time) (bool, error) {
	code = strings.TrimSpace(code)
	if len(code) != m.digits.Length() {
		return false, nil
	}

	ok, err := totp.ValidateCustom(code, secret, at.UTC(), m.opts())
	if err != nil {
		if errors.Is(err, otp.ErrValidateInputInvalidLength) {
			return false, nil
		}
		return false, fmt.Errorf("falha ao validar código TOTP: %w", err)
	}
	return ok, nil
}

// GenerateCode calcula o código do passo que contém o instante informado
func (m *TOTPManager) GenerateCode(secret string, at time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, at.UTC(), m.opts())
}

func (m *TOTPManager) opts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    m.period,
		Skew:      m.skew,
		Digits:    m.digits,
		Algorithm: otp.AlgorithmSHA1,
	}
}
