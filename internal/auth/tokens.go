package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-oms/meridian-oms/internal/shared"
)

const tokenKeyPrefix = "meridian:token:"

// TokenStore issues and resolves opaque bearer tokens backed by Redis.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenStore constructs a TokenStore with the given token TTL.
func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl}
}

// Issue creates a token for the user and stores the principal under it.
func (s *TokenStore) Issue(ctx context.Context, user *User) (string, error) {
	if user == nil {
		return "", errors.New("auth: user required")
	}
	principal := Principal{UserID: user.ID, Email: user.Email, Role: user.Role}
	data, err := json.Marshal(principal)
	if err != nil {
		return "", fmt.Errorf("auth: marshal principal: %w", err)
	}
	token := uuid.NewString()
	if err := s.client.Set(ctx, tokenKeyPrefix+token, data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("auth: store token: %w", err)
	}
	return token, nil
}

// Resolve looks up the principal for a token. Expired or unknown tokens
// return shared.ErrTokenExpired.
func (s *TokenStore) Resolve(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, shared.ErrTokenExpired
	}
	data, err := s.client.Get(ctx, tokenKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shared.ErrTokenExpired
		}
		return nil, fmt.Errorf("auth: resolve token: %w", err)
	}
	var principal Principal
	if err := json.Unmarshal(data, &principal); err != nil {
		return nil, fmt.Errorf("auth: unmarshal principal: %w", err)
	}
	return &principal, nil
}

// Revoke deletes a token. Revoking an unknown token is not an error.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.client.Del(ctx, tokenKeyPrefix+token).Err()
}
