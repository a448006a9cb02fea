package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "browser-session:"

// RedisRepo keeps sessions in Redis so several gateway instances can share them.
// Keys expire with the session, so DeleteExpired has nothing to do.
type RedisRepo struct {
	client    redis.UniversalClient
	opTimeout time.Duration
	now       func() time.Time
}

var _ Repo = (*RedisRepo)(nil)

func NewRedisRepo(client redis.UniversalClient) *RedisRepo {
	return &RedisRepo{client: client, opTimeout: 2 * time.Second, now: time.Now}
}

func (r *RedisRepo) Upsert(session Session) error {
	if session.ID == "" {
		return errors.New("session ID is required")
	}
	ttl := session.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return r.Delete(session.ID)
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.opTimeout)
	defer cancel()
	if err := r.client.Set(ctx, redisKeyPrefix+session.ID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

func (r *RedisRepo) Get(sessionID string) (Session, error) {
	if sessionID == "" {
		return Session{}, errors.New("session ID is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.opTimeout)
	defer cancel()
	payload, err := r.client.Get(ctx, redisKeyPrefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("load session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}

func (r *RedisRepo) Delete(sessionID string) error {
	if sessionID == "" {
		return errors.New("session ID is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.opTimeout)
	defer cancel()
	if err := r.client.Del(ctx, redisKeyPrefix+sessionID).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *RedisRepo) DeleteExpired(time.Time) error {
	return nil
}
