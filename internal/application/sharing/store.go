package sharing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const draftPrefix = "draft:"

// DraftRepository persists drafts per (session, community).
type DraftRepository interface {
	Load(ctx context.Context, sessionID, communityID string) (*Draft, error)
	Save(ctx context.Context, sessionID string, d *Draft) error
	Delete(ctx context.Context, sessionID, communityID string) error
}

// RedisDraftStore keeps drafts as JSON blobs in Redis with a sliding TTL.
type RedisDraftStore struct {
	Rdb *redis.Client
	TTL time.Duration
}

func draftKey(sessionID, communityID string) string {
	return draftPrefix + sessionID + ":" + communityID
}

// ErrDraftUnreadable is returned when a stored draft no longer decodes. The
// blob is removed so the next read starts from the original.
var ErrDraftUnreadable = errors.New("Stored draft could not be read and was discarded")

// Load returns nil without error when no draft is stored.
func (s *RedisDraftStore) Load(ctx context.Context, sessionID, communityID string) (*Draft, error) {
	key := draftKey(sessionID, communityID)
	b, err := s.Rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("draft store: load: %w", err)
	}
	var d Draft
	if err := json.Unmarshal(b, &d); err != nil {
		log.Error().Err(err).Str("key", key).Msg("draft store: stored draft does not decode, discarding")
		if delErr := s.Rdb.Del(ctx, key).Err(); delErr != nil {
			log.Warn().Err(delErr).Str("key", key).Msg("draft store: discard failed")
		}
		return nil, fmt.Errorf("%w: %v", ErrDraftUnreadable, err)
	}
	return &d, nil
}

func (s *RedisDraftStore) Save(ctx context.Context, sessionID string, d *Draft) error {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("draft store: encode: %w", err)
	}
	if err := s.Rdb.Set(ctx, draftKey(sessionID, d.CommunityID), b, s.TTL).Err(); err != nil {
		return fmt.Errorf("draft store: save: %w", err)
	}
	return nil
}

func (s *RedisDraftStore) Delete(ctx context.Context, sessionID, communityID string) error {
	return s.Rdb.Del(ctx, draftKey(sessionID, communityID)).Err()
}

// DeleteSession drops every draft of a session (logout, expired token).
func (s *RedisDraftStore) DeleteSession(ctx context.Context, sessionID string) error {
	iter := s.Rdb.Scan(ctx, 0, draftPrefix+sessionID+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.Rdb.Del(ctx, keys...).Err()
}
