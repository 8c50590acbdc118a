package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrTokenMalformed = errors.New("token is malformed")

// TokenClaims are the claims the backend puts into its access tokens.
type TokenClaims struct {
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	Type     string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// InspectToken декодирует claims токена без проверки подписи.
// Ключа бэкенда у портала нет, принимает или отклоняет токен только бэкенд.
func InspectToken(token string) (*TokenClaims, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, &TokenClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}

	claims, ok := parsed.Claims.(*TokenClaims)
	if !ok {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

func (c *TokenClaims) User() string {
	if c.Username != "" {
		return c.Username
	}
	return c.Subject
}

// Expired reports whether the token is past its expiry at now. Tokens without
// an expiry never expire.
func (c *TokenClaims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(c.ExpiresAt.Time)
}
