package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const keyPrefix = "cache:"

// Entity names used in invalidation keys.
const (
	EntityCommunities        = "communities"
	EntityCommunity          = "community"
	EntityCommunityContracts = "community-contracts"
	EntitySharingVersions    = "sharing-versions"
	EntityDocuments          = "documents"
)

// Key identifies one cached entity (type + id), independent of the user scope.
type Key struct {
	Entity string
	ID     string
}

func (k Key) String() string {
	return k.Entity + ":" + k.ID
}

// Cache is a read-through cache of remote API reads. Entries are scoped per
// user; invalidation drops the entity for every scope.
type Cache struct {
	Rdb *redis.Client
	TTL time.Duration
}

func scoped(scope string, key Key) string {
	return keyPrefix + scope + ":" + key.String()
}

// GetOrLoad fills dst from the cache, or calls load and stores its result.
// A nil Cache (no Redis) always loads. Redis failures degrade to a load.
func GetOrLoad[T any](ctx context.Context, c *Cache, scope string, key Key, load func(context.Context) (T, error)) (T, error) {
	if c == nil || c.Rdb == nil {
		return load(ctx)
	}
	redisKey := scoped(scope, key)
	b, err := c.Rdb.Get(ctx, redisKey).Bytes()
	if err == nil {
		var v T
		jsonErr := json.Unmarshal(b, &v)
		if jsonErr == nil {
			return v, nil
		}
		log.Warn().Err(jsonErr).Str("key", redisKey).Msg("cache: entry does not decode, reloading")
	} else if !errors.Is(err, redis.Nil) {
		log.Warn().Err(err).Str("key", redisKey).Msg("cache: read failed, loading from remote api")
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if b, err := json.Marshal(v); err == nil {
		if err := c.Rdb.Set(ctx, redisKey, b, c.TTL).Err(); err != nil {
			log.Warn().Err(err).Str("key", redisKey).Msg("cache: write failed")
		}
	}
	return v, nil
}

// globEscaper quotes the SCAN MATCH metacharacters so ids are matched literally.
var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// Invalidate removes the given entities for all user scopes.
func (c *Cache) Invalidate(ctx context.Context, keys ...Key) error {
	if c == nil || c.Rdb == nil {
		return nil
	}
	for _, k := range keys {
		pattern := keyPrefix + "*:" + globEscaper.Replace(k.String())
		iter := c.Rdb.Scan(ctx, 0, pattern, 100).Iterator()
		var found []string
		for iter.Next(ctx) {
			found = append(found, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("cache: scan %s: %w", pattern, err)
		}
		if len(found) == 0 {
			continue
		}
		if err := c.Rdb.Del(ctx, found...).Err(); err != nil {
			return fmt.Errorf("cache: delete %s: %w", k, err)
		}
	}
	return nil
}
