package memory

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/rryowa/fra_portal/internal/storage"
)

// SessionStore keeps the session in process memory. It does not survive a
// restart and is meant for tests and throwaway runs.
type SessionStore struct {
	mu     sync.RWMutex
	tokens map[string]string
	log    *zap.SugaredLogger
}

var _ storage.SessionStore = (*SessionStore)(nil)

func NewSessionStore(log *zap.SugaredLogger) *SessionStore {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &SessionStore{
		tokens: make(map[string]string, 2),
		log:    log,
	}
}

func (m *SessionStore) SetTokens(_ context.Context, accessToken, refreshToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokens[storage.AccessTokenKey] = accessToken
	m.tokens[storage.RefreshTokenKey] = refreshToken
	m.log.Debugw("Session stored", "backend", "memory")

	return nil
}

func (m *SessionStore) SetAccessToken(_ context.Context, accessToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokens[storage.AccessTokenKey] = accessToken
	return nil
}

func (m *SessionStore) AccessToken(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.tokens[storage.AccessTokenKey], nil
}

func (m *SessionStore) RefreshToken(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.tokens[storage.RefreshTokenKey], nil
}

func (m *SessionStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.tokens, storage.AccessTokenKey)
	delete(m.tokens, storage.RefreshTokenKey)
	m.log.Debugw("Session cleared", "backend", "memory")

	return nil
}
