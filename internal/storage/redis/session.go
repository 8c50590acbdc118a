package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rryowa/fra_portal/internal/storage"
)

// SessionStore keeps the tokens in Redis under <prefix>:<namespace>:<key>.
type SessionStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

var _ storage.SessionStore = (*SessionStore)(nil)

func NewSessionStore(client redis.UniversalClient, prefix, namespace string) *SessionStore {
	return &SessionStore{
		client:    client,
		keyPrefix: prefix + ":" + namespace + ":",
	}
}

func (s *SessionStore) SetTokens(ctx context.Context, accessToken, refreshToken string) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(storage.AccessTokenKey), accessToken, 0)
	pipe.Set(ctx, s.key(storage.RefreshTokenKey), refreshToken, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: store session in redis: %w", storage.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *SessionStore) SetAccessToken(ctx context.Context, accessToken string) error {
	if err := s.client.Set(ctx, s.key(storage.AccessTokenKey), accessToken, 0).Err(); err != nil {
		return fmt.Errorf("%w: store access token in redis: %w", storage.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *SessionStore) AccessToken(ctx context.Context) (string, error) {
	return s.get(ctx, storage.AccessTokenKey)
}

func (s *SessionStore) RefreshToken(ctx context.Context) (string, error) {
	return s.get(ctx, storage.RefreshTokenKey)
}

func (s *SessionStore) Clear(ctx context.Context) error {
	err := s.client.Del(ctx, s.key(storage.AccessTokenKey), s.key(storage.RefreshTokenKey)).Err()
	if err != nil {
		return fmt.Errorf("%w: clear session in redis: %w", storage.ErrStoreUnavailable, err)
	}
	return nil
}

// get возвращает пустую строку, если ключа нет в Redis.
func (s *SessionStore) get(ctx context.Context, name string) (string, error) {
	val, err := s.client.Get(ctx, s.key(name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	} else if err != nil {
		return "", fmt.Errorf("%w: read %s from redis: %w", storage.ErrStoreUnavailable, name, err)
	}
	return val, nil
}

func (s *SessionStore) key(name string) string {
	return s.keyPrefix + name
}
