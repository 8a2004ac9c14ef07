package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avelkov/account-service/internal/domain"
	apperrors "github.com/avelkov/account-service/pkg/errors"
)

const issuer = "account-service"

// Claims carries the authenticated user identity inside a signed token.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Manager issues and validates access/refresh token pairs. Access and
// refresh tokens are signed with independent secrets, so one kind can
// never be presented in place of the other.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewManager creates a token manager from the two signing secrets and
// their respective lifetimes.
func NewManager(accessSecret, refreshSecret string, accessExpiry, refreshExpiry time.Duration) *Manager {
	return &Manager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

// Issue generates a fresh access/refresh pair for the given user.
func (m *Manager) Issue(user *domain.User) (*domain.TokenPair, error) {
	access, err := m.GenerateAccessToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refresh, err := m.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// GenerateAccessToken creates a short-lived token signed with the access secret.
func (m *Manager) GenerateAccessToken(userID string) (string, error) {
	return m.sign(userID, m.accessSecret, m.accessExpiry)
}

// GenerateRefreshToken creates a long-lived token signed with the refresh secret.
func (m *Manager) GenerateRefreshToken(userID string) (string, error) {
	return m.sign(userID, m.refreshSecret, m.refreshExpiry)
}

// ValidateAccessToken parses and verifies an access token.
func (m *Manager) ValidateAccessToken(tokenString string) (*Claims, error) {
	return m.parse(tokenString, m.accessSecret)
}

// ValidateRefreshToken parses and verifies a refresh token. It proves the
// token is cryptographically valid; whether it is still the trusted one for
// the user is decided against the stored copy.
func (m *Manager) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return m.parse(tokenString, m.refreshSecret)
}

func (m *Manager) sign(userID string, secret []byte, expiry time.Duration) (string, error) {
	now := time.Now()

	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (m *Manager) parse(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperrors.Unauthorized("invalid token claims")
	}
	return claims, nil
}
