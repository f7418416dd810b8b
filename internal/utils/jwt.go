package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"clinic-booking-server/internal/config"
	"clinic-booking-server/internal/models"
)

// Claims represents the JWT claims.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager signs access and refresh tokens with separate secrets.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenManager builds a TokenManager from the JWT settings in cfg.
func NewTokenManager(cfg *config.Config) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(cfg.JWTSecret),
		refreshSecret: []byte(cfg.JWTRefreshSecret),
		accessTTL:     time.Duration(cfg.JWTExpirationMinutes) * time.Minute,
		refreshTTL:    time.Duration(cfg.JWTRefreshExpirationHours) * time.Hour,
		now:           time.Now,
	}
}

// IssueAccess signs a short-lived access token. Each token carries a unique
// id so logout can revoke it.
func (m *TokenManager) IssueAccess(user *models.User) (string, error) {
	token, _, err := m.sign(user, m.accessSecret, m.accessTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return token, nil
}

// IssueRefresh signs a refresh token and reports when it expires.
func (m *TokenManager) IssueRefresh(user *models.User) (string, time.Time, error) {
	token, expiresAt, err := m.sign(user, m.refreshSecret, m.refreshTTL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return token, expiresAt, nil
}

// VerifyRefresh checks a refresh token and returns its user id.
func (m *TokenManager) VerifyRefresh(token string) (string, error) {
	claims, err := ValidateToken(token, m.refreshSecret)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// ValidateAccess checks an access token and returns its claims.
func (m *TokenManager) ValidateAccess(token string) (*Claims, error) {
	return ValidateToken(token, m.accessSecret)
}

func (m *TokenManager) sign(user *models.User, secret []byte, ttl time.Duration) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken validates a JWT token.
func ValidateToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secretKey, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	if claims.UserID == "" {
		return nil, fmt.Errorf("token has no user id")
	}

	return claims, nil
}
