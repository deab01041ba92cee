package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return &Cache{Rdb: rdb, TTL: time.Minute}, mr
}

func TestGetOrLoad_CachesResult(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()
	calls := 0
	load := func(context.Context) ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	}
	key := Key{Entity: EntityCommunityContracts, ID: "c1"}

	v, err := GetOrLoad(ctx, c, "user-1", key, load)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, v)

	v, err = GetOrLoad(ctx, c, "user-1", key, load)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, v)
	assert.Equal(t, 1, calls)

	// other scope does not see user-1's entry
	_, err = GetOrLoad(ctx, c, "user-2", key, load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestGetOrLoad_ErrorNotCached(t *testing.T) {
	c, mr := setupCache(t)
	boom := errors.New("boom")
	_, err := GetOrLoad(context.Background(), c, "u", Key{Entity: EntityCommunity, ID: "1"}, func(context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, mr.Keys())
}

func TestInvalidate_AllScopes(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()
	load := func(context.Context) (int, error) { return 1, nil }
	contracts := Key{Entity: EntityCommunityContracts, ID: "c1"}
	other := Key{Entity: EntityCommunityContracts, ID: "c2"}

	for _, scope := range []string{"u1", "u2"} {
		_, err := GetOrLoad(ctx, c, scope, contracts, load)
		require.NoError(t, err)
	}
	_, err := GetOrLoad(ctx, c, "u1", other, load)
	require.NoError(t, err)
	require.Len(t, mr.Keys(), 3)

	require.NoError(t, c.Invalidate(ctx, contracts))
	assert.Equal(t, []string{"cache:u1:community-contracts:c2"}, mr.Keys())
}

func TestInvalidate_MatchesIDsLiterally(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()
	load := func(context.Context) (int, error) { return 1, nil }

	for _, id := range []string{"com-*", "com-1", "com-1x", "com-?", "com-[1]"} {
		_, err := GetOrLoad(ctx, c, "u1", Key{Entity: EntityCommunity, ID: id}, load)
		require.NoError(t, err)
	}

	require.NoError(t, c.Invalidate(ctx, Key{Entity: EntityCommunity, ID: "com-*"}))
	require.NoError(t, c.Invalidate(ctx, Key{Entity: EntityCommunity, ID: "com-?"}))
	require.NoError(t, c.Invalidate(ctx, Key{Entity: EntityCommunity, ID: "com-[1]"}))
	assert.ElementsMatch(t, []string{
		"cache:u1:community:com-1",
		"cache:u1:community:com-1x",
	}, mr.Keys())
}

func TestGetOrLoad_ReloadsEntryThatDoesNotDecode(t *testing.T) {
	c, mr := setupCache(t)
	key := Key{Entity: EntityCommunity, ID: "c1"}
	require.NoError(t, mr.Set("cache:u1:community:c1", `"not a number"`))

	calls := 0
	v, err := GetOrLoad(context.Background(), c, "u1", key, func(context.Context) (int, error) {
		calls++
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 1, calls)
	got, err := mr.Get("cache:u1:community:c1")
	require.NoError(t, err)
	assert.Equal(t, "7", got)
}

func TestNilCache_AlwaysLoads(t *testing.T) {
	var c *Cache
	calls := 0
	for i := 0; i < 2; i++ {
		_, err := GetOrLoad(context.Background(), c, "u", Key{Entity: EntityCommunities, ID: "all"}, func(context.Context) (int, error) {
			calls++
			return calls, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
	assert.NoError(t, c.Invalidate(context.Background(), Key{Entity: EntityCommunities, ID: "all"}))
}
