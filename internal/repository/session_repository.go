package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

const revokedSessionPrefix = "session:revoked:"

// SessionRepository tracks revoked session ids until their token would expire anyway.
type SessionRepository interface {
	Revoke(ctx context.Context, sessionID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

type sessionRepository struct {
	client *redis.Client
	clock  clockwork.Clock
}

// NewSessionRepository returns a Redis-backed revocation list.
func NewSessionRepository(client *redis.Client, clock clockwork.Clock) SessionRepository {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &sessionRepository{client: client, clock: clock}
}

func (r *sessionRepository) Revoke(ctx context.Context, sessionID string, expiresAt time.Time) error {
	if sessionID == "" {
		return nil
	}
	ttl := expiresAt.Sub(r.clock.Now())
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokedSessionPrefix+sessionID, 1, ttl).Err()
}

func (r *sessionRepository) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	err := r.client.Get(ctx, revokedSessionPrefix+sessionID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
