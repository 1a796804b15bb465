package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"frostgreet/pkg/domain"
)

const redisOpTimeout = 3 * time.Second

// RedisStore keeps the session in Redis under a single key, so token and
// profile stay atomic. Suited to kiosk-style installs where several client
// processes share one login.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore builds a Redis-backed session store.
func NewRedisStore(addr, password, key string) *RedisStore {
	if key == "" {
		key = "frostgreet:session"
	}
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		key: key,
	}
}

// SetSession writes the session as one JSON value.
func (s *RedisStore) SetSession(token string, user domain.UserProfile) error {
	u := user
	data, err := json.Marshal(domain.Session{Token: token, User: &u})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Session reads the stored session. Any failure yields the empty session.
func (s *RedisStore) Session() domain.Session {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return domain.Session{}
	}
	if err != nil {
		slog.Warn("session read failed", "key", s.key, "err", err)
		return domain.Session{}
	}
	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		slog.Warn("session value corrupt", "key", s.key, "err", err)
		return domain.Session{}
	}
	if sess.Token == "" || sess.User == nil {
		return domain.Session{}
	}
	return sess
}

// Clear deletes the session key.
func (s *RedisStore) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := s.client.Del(ctx, s.key).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
