package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tajious/ejare/internal/config"
	apperrors "github.com/tajious/ejare/internal/errors"
	"github.com/tajious/ejare/internal/models"
)

var errInvalidToken = apperrors.New(apperrors.CodeUnauthorized, "توکن نامعتبر است")

// TokenManager signs and verifies HS256 tokens.
type TokenManager struct {
	secret    []byte
	issuer    string
	adminTTL  time.Duration
	tenantTTL time.Duration
	now       func() time.Time
}

func NewTokenManager(cfg config.JWTConfig) *TokenManager {
	return &TokenManager{
		secret:    []byte(cfg.Secret),
		issuer:    cfg.Issuer,
		adminTTL:  cfg.AdminTTL,
		tenantTTL: cfg.TenantTTL,
		now:       time.Now,
	}
}

func (m *TokenManager) ttl(role models.Role) time.Duration {
	if role == models.RoleTenant {
		return m.tenantTTL
	}
	return m.adminTTL
}

// Issue fills the registered claims and returns the signed token with its expiry.
func (m *TokenManager) Issue(claims models.Claims) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl(claims.Role))

	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    m.issuer,
		Subject:   claims.Subject(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (m *TokenManager) Parse(tokenString string) (*models.Claims, error) {
	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.Wrap(apperrors.CodeUnauthorized, err, "توکن منقضی شده است")
		}
		return nil, apperrors.Wrap(apperrors.CodeUnauthorized, err, errInvalidToken.Message())
	}
	if !token.Valid || !claims.Role.IsValid() || claims.ID == "" {
		return nil, errInvalidToken
	}
	return claims, nil
}
