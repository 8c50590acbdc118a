package storage

import (
	"context"
	"errors"
)

// Keys under which the session tokens are persisted.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

var ErrStoreUnavailable = errors.New("session store unavailable")

// SessionStore persists the one session of a portal instance.
// Reading a token that was never set (or was cleared) returns "" and a nil error.
type SessionStore interface {
	SetTokens(ctx context.Context, accessToken, refreshToken string) error
	SetAccessToken(ctx context.Context, accessToken string) error
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}
