package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"shopfront/webshop/internal/apperr"
)

const redisKeyPrefix = "sess:"

// RedisStore keeps each session as a JSON value whose redis TTL tracks
// ExpiresAt.
type RedisStore struct {
	client  redis.UniversalClient
	prefix  string
	nowFunc func() time.Time
}

func NewRedisStore(client redis.UniversalClient) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &RedisStore{client: client, prefix: redisKeyPrefix, nowFunc: time.Now}, nil
}

func (r *RedisStore) key(id string) string {
	return r.prefix + id
}

func (r *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, nil
	}
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.StoreUnavailable("redis load session", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, apperr.StoreUnavailable("decode session", err)
	}
	if s.Expired(r.nowFunc()) {
		return nil, nil
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("session: missing id")
	}
	ttl := s.ExpiresAt.Sub(r.nowFunc())
	if ttl <= 0 {
		return r.Destroy(ctx, s.ID)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := r.client.Set(ctx, r.key(s.ID), data, ttl).Err(); err != nil {
		return apperr.StoreUnavailable("redis save session", err)
	}
	return nil
}

func (r *RedisStore) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return apperr.StoreUnavailable("redis destroy session", err)
	}
	return nil
}
