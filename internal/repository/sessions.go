package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found or expired")

// SessionRepo keeps opaque login tokens in Redis with a TTL. Sessions
// are deliberately minimal; auth protocol design is out of scope.
type SessionRepo struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessionRepo(rdb *redis.Client, ttl time.Duration) *SessionRepo {
	return &SessionRepo{rdb: rdb, ttl: ttl}
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

// Create stores a fresh token for the account and returns it.
func (r *SessionRepo) Create(ctx context.Context, accountID uuid.UUID) (string, error) {
	token := uuid.NewString()
	if err := r.rdb.Set(ctx, sessionKey(token), accountID.String(), r.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

func (r *SessionRepo) Resolve(ctx context.Context, token string) (uuid.UUID, error) {
	val, err := r.rdb.Get(ctx, sessionKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, ErrSessionNotFound
		}
		return uuid.Nil, fmt.Errorf("read session: %w", err)
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, fmt.Errorf("corrupt session value: %w", err)
	}
	return id, nil
}
