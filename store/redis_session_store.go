package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/pertamax98/bot-vpn/types"
)

// RedisSessionStore keeps the per-chat wizard state (top-up amount entry,
// purchase steps) out of process memory, so an in-flight dialog survives a
// restart and no financial state ever lives in a global map.
type RedisSessionStore struct {
	client *RedisClient
	ttl    time.Duration
}

func NewRedisSessionStore(redisClient *RedisClient, ttlHours int) *RedisSessionStore {
	ttl := time.Duration(ttlHours) * time.Hour
	if ttlHours <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisSessionStore{
		client: redisClient,
		ttl:    ttl,
	}
}

func (s *RedisSessionStore) GetSession(userID int64) (*types.Session, error) {
	key := s.client.generateKey("session", fmt.Sprintf("%d", userID))
	var session types.Session
	if err := s.client.Get(key, &session); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (s *RedisSessionStore) SaveSession(session *types.Session) error {
	session.UpdatedAt = time.Now().UTC()
	key := s.client.generateKey("session", fmt.Sprintf("%d", session.UserID))
	return s.client.Set(key, session, s.ttl)
}

func (s *RedisSessionStore) DeleteSession(userID int64) error {
	key := s.client.generateKey("session", fmt.Sprintf("%d", userID))
	return s.client.Delete(key)
}
