// Package identity resolves the session token of a request to the portal user
// the auth component logged in.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"portal-service/internal/models"
)

var ErrUnauthenticated = errors.New("unauthenticated")

const keyPrefix = "portal:session:"

// DefaultTTL applies when Save is called without a positive ttl.
const DefaultTTL = 24 * time.Hour

// Resolver turns a session token into an identity.
type Resolver interface {
	Resolve(ctx context.Context, token string) (models.User, error)
}

type sessionData struct {
	ID         int     `json:"id"`
	Username   string  `json:"username"`
	Role       string  `json:"role"`
	Department *string `json:"department_name"`
}

// SessionStore reads sessions written to Redis by the auth component.
type SessionStore struct {
	client *redis.Client
}

// NewSessionStore connects to redisURL and checks the connection.
func NewSessionStore(ctx context.Context, redisURL string) (*SessionStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &SessionStore{client: client}, nil
}

// NewSessionStoreWithClient wraps an existing client.
func NewSessionStoreWithClient(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func key(token string) string {
	return keyPrefix + token
}

// Resolve returns ErrUnauthenticated for empty, unknown, expired or malformed sessions.
func (s *SessionStore) Resolve(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, ErrUnauthenticated
	}

	raw, err := s.client.Get(ctx, key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.User{}, ErrUnauthenticated
	}
	if err != nil {
		return models.User{}, fmt.Errorf("lookup session: %w", err)
	}

	var data sessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return models.User{}, ErrUnauthenticated
	}
	role := models.Role(data.Role)
	if data.ID == 0 || data.Username == "" || !role.Valid() {
		return models.User{}, ErrUnauthenticated
	}

	return models.User{ID: data.ID, Username: data.Username, Role: role, Department: data.Department}, nil
}

// Save stores a session for user.
func (s *SessionStore) Save(ctx context.Context, token string, user models.User, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	payload, err := json.Marshal(sessionData{
		ID:         user.ID,
		Username:   user.Username,
		Role:       string(user.Role),
		Department: user.Department,
	})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, key(token), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Revoke deletes a session.
func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, key(token)).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *SessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *SessionStore) Close() error {
	return s.client.Close()
}
