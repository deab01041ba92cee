package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"commenergy-backend/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	SessionRedisPrefix = "session:"
	userSessionsPrefix = "user_sessions:"
)

// SessionStore keeps sessions in Redis as JSON under "session:<id>" and
// indexes them per user under "user_sessions:<userID>".
type SessionStore struct {
	Rdb *redis.Client
}

// Get returns nil without error when the session does not exist.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	if sessionID == "" {
		return nil, nil
	}
	b, err := s.Rdb.Get(ctx, SessionRedisPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session store: get: %w", err)
	}
	var sess domain.Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, nil
	}
	return &sess, nil
}

func (s *SessionStore) Save(ctx context.Context, sess *domain.Session, ttl time.Duration) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	pipe := s.Rdb.TxPipeline()
	pipe.Set(ctx, SessionRedisPrefix+sess.ID, b, ttl)
	pipe.SAdd(ctx, userSessionsPrefix+sess.User.ID, sess.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session store: save: %w", err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, sess *domain.Session) error {
	pipe := s.Rdb.TxPipeline()
	pipe.Del(ctx, SessionRedisPrefix+sess.ID)
	if sess.User.ID != "" {
		pipe.SRem(ctx, userSessionsPrefix+sess.User.ID, sess.ID)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// UserSessions lists the session ids of a user.
func (s *SessionStore) UserSessions(ctx context.Context, userID string) ([]string, error) {
	return s.Rdb.SMembers(ctx, userSessionsPrefix+userID).Result()
}

// DeleteUser removes every session of a user and the user's index.
func (s *SessionStore) DeleteUser(ctx context.Context, userID string, sessionIDs []string) error {
	pipe := s.Rdb.TxPipeline()
	for _, sid := range sessionIDs {
		pipe.Del(ctx, SessionRedisPrefix+sid)
	}
	pipe.Del(ctx, userSessionsPrefix+userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session store: delete user sessions: %w", err)
	}
	return nil
}
