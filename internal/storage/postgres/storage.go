package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rryowa/fra_portal/internal/storage"
)

// Storage is the postgres-backed SessionStore. Both tokens live in the
// client_session table, one row per key and namespace.
type Storage struct {
	db        *sql.DB
	namespace string
	*SessionRepository
}

var _ storage.SessionStore = (*Storage)(nil)

func NewStorage(db *sql.DB, namespace string) *Storage {
	return &Storage{
		db:                db,
		namespace:         namespace,
		SessionRepository: NewSessionRepository(db, namespace),
	}
}

// SetTokens записывает оба токена в одной транзакции.
// Читатель не увидит новый access токен вместе со старым refresh токеном.
func (s *Storage) SetTokens(ctx context.Context, accessToken, refreshToken string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", storage.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	repoTx := NewSessionRepository(tx, s.namespace)
	if err := repoTx.Put(ctx, storage.AccessTokenKey, accessToken); err != nil {
		return err
	}
	if err := repoTx.Put(ctx, storage.RefreshTokenKey, refreshToken); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Storage) SetAccessToken(ctx context.Context, accessToken string) error {
	return s.Put(ctx, storage.AccessTokenKey, accessToken)
}

func (s *Storage) AccessToken(ctx context.Context) (string, error) {
	return s.Get(ctx, storage.AccessTokenKey)
}

func (s *Storage) RefreshToken(ctx context.Context) (string, error) {
	return s.Get(ctx, storage.RefreshTokenKey)
}

func (s *Storage) Clear(ctx context.Context) error {
	return s.DeleteAll(ctx)
}
