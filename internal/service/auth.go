package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/rryowa/fra_portal/internal/client"
	"github.com/rryowa/fra_portal/internal/models"
	"github.com/rryowa/fra_portal/internal/storage"
)

var (
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type AuthService struct {
	api   APIClient
	store storage.SessionStore
	log   *zap.SugaredLogger
	now   func() time.Time
}

func NewAuthService(api APIClient, store storage.SessionStore, log *zap.SugaredLogger) *AuthService {
	return &AuthService{api: api, store: store, log: log, now: time.Now}
}

// Login exchanges credentials for a session and stores both tokens. The
// identifier may be a username, an email or a phone number.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*models.User, error) {
	req := &client.Request{
		Method:    http.MethodPost,
		Path:      client.LoginPath,
		Body:      models.LoginRequest{Identifier: identifier, Password: password},
		Anonymous: true,
	}

	var resp models.LoginResponse
	if err := s.api.Do(ctx, req, &resp); err != nil {
		var httpErr *client.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		return nil, errors.New("login: backend returned an incomplete session")
	}

	if err := s.store.SetTokens(ctx, resp.AccessToken, resp.RefreshToken); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.log.Infow("logged in", "user", resp.User.Username, "role", resp.User.Role)
	return &resp.User, nil
}

func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.log.Infow("logged out")
	return nil
}

// RequireSession returns ErrNotAuthenticated when no token is stored.
func (s *AuthService) RequireSession(ctx context.Context) error {
	access, err := s.store.AccessToken(ctx)
	if err != nil {
		return err
	}
	if access != "" {
		return nil
	}
	refresh, err := s.store.RefreshToken(ctx)
	if err != nil {
		return err
	}
	if refresh == "" {
		return ErrNotAuthenticated
	}
	return nil
}

// Status reports what the stored session says about the user. An expired
// access token still counts as authenticated while a refresh token exists,
// since the next call will renew it.
func (s *AuthService) Status(ctx context.Context) (*models.SessionStatus, error) {
	access, err := s.store.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	refresh, err := s.store.RefreshToken(ctx)
	if err != nil {
		return nil, err
	}

	status := &models.SessionStatus{HasRefreshToken: refresh != ""}
	if access == "" {
		status.Authenticated = status.HasRefreshToken
		return status, nil
	}

	claims, err := InspectToken(access)
	if err != nil {
		s.log.Warnw("stored access token is not a JWT", "error", err)
		status.Authenticated = status.HasRefreshToken
		return status, nil
	}

	status.Username = claims.User()
	status.Role = claims.Role
	if claims.ExpiresAt != nil {
		status.ExpiresAt = claims.ExpiresAt.Time
	}
	status.Expired = claims.Expired(s.now())
	status.Authenticated = !status.Expired || status.HasRefreshToken
	return status, nil
}
