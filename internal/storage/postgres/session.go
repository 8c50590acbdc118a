package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SessionRepository struct {
	db        DBTX
	namespace string
}

func NewSessionRepository(db DBTX, namespace string) *SessionRepository {
	return &SessionRepository{db: db, namespace: namespace}
}

func (r *SessionRepository) Put(ctx context.Context, key, value string) error {
	query := `INSERT INTO client_session (namespace, key, value, updated_at) VALUES ($1, $2, $3, now())
ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	if _, err := r.db.ExecContext(ctx, query, r.namespace, key, value); err != nil {
		return fmt.Errorf("failed to upsert %s: %w", key, err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	query := `SELECT value FROM client_session WHERE namespace = $1 AND key = $2`
	err := r.db.QueryRowContext(ctx, query, r.namespace, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

func (r *SessionRepository) DeleteAll(ctx context.Context) error {
	query := `DELETE FROM client_session WHERE namespace = $1`
	if _, err := r.db.ExecContext(ctx, query, r.namespace); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
