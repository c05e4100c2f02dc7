package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/luminacare/lumina/internal/shared"
)

// TokenStore manages opaque bearer tokens backed by Redis. Tokens are
// full-entropy random values; the store, not the token, carries the claims.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

type tokenPayload struct {
	UserID     int64  `json:"user_id"`
	Masquerade string `json:"masquerade,omitempty"`
}

// NewTokenStore constructs a TokenStore.
func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &TokenStore{client: client, ttl: ttl}
}

// Issue mints a bearer token for the user.
func (s *TokenStore) Issue(ctx context.Context, userID int64) (string, error) {
	return s.issue(ctx, tokenPayload{UserID: userID})
}

// IssueBound mints a bearer token tied to a masquerade grant token, so
// requests made with it can be correlated back to the grant.
func (s *TokenStore) IssueBound(ctx context.Context, userID int64, masqueradeToken string) (string, error) {
	return s.issue(ctx, tokenPayload{UserID: userID, Masquerade: masqueradeToken})
}

func (s *TokenStore) issue(ctx context.Context, payload tokenPayload) (string, error) {
	token, err := randomToken()
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, tokenKey(token), data, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Verify resolves a bearer token to the caller identity. An unknown or
// expired token resolves to ErrUnauthenticated.
func (s *TokenStore) Verify(ctx context.Context, token string) (*shared.Identity, error) {
	if token == "" {
		return nil, shared.ErrUnauthenticated
	}
	data, err := s.client.Get(ctx, tokenKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shared.ErrUnauthenticated
		}
		return nil, err
	}
	var payload tokenPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, shared.ErrUnauthenticated
	}
	return &shared.Identity{UserID: payload.UserID, Token: token, MasqueradeToken: payload.Masquerade}, nil
}

// Revoke deletes a bearer token. Unknown tokens are a no-op.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	err := s.client.Del(ctx, tokenKey(token)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// TTL exposes the configured token lifetime.
func (s *TokenStore) TTL() time.Duration {
	return s.ttl
}

func tokenKey(token string) string {
	return "token:" + token
}

// randomToken returns a 256-bit random value, URL-safe encoded.
func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
