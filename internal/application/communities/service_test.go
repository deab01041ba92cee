package communities

import (
	"context"
	"testing"
	"time"

	"commenergy-backend/internal/domain"
	"commenergy-backend/internal/infrastructure/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	calls map[string]int
}

func (f *fakeAPI) ListCommunities(ctx context.Context, token string) ([]domain.Community, error) {
	f.calls["list"]++
	return []domain.Community{{ID: "com-1", Name: "Alzira"}, {ID: "com-2", Name: "Xàtiva"}}, nil
}

func (f *fakeAPI) GetCommunity(ctx context.Context, token, communityID string) (*domain.Community, error) {
	f.calls["get"]++
	return &domain.Community{ID: communityID, Name: "Alzira"}, nil
}

func (f *fakeAPI) ListCommunityContracts(ctx context.Context, token, communityID string) ([]domain.CommunityContract, error) {
	f.calls["contracts"]++
	return []domain.CommunityContract{{ID: "cc-1", CommunityID: communityID}}, nil
}

func (f *fakeAPI) GetTermsAgreement(ctx context.Context, token, id string) (*domain.TermsAgreement, error) {
	f.calls["terms"]++
	if id == "missing" {
		return nil, nil
	}
	return &domain.TermsAgreement{ID: id, Name: "Terms", Version: "2"}, nil
}

func TestService_CachesPerUser(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	api := &fakeAPI{calls: map[string]int{}}
	svc := &Service{API: api, Cache: &cache.Cache{Rdb: rdb, TTL: time.Minute}}
	ctx := context.Background()
	alice := domain.Session{Token: "a", User: domain.AuthUser{ID: "alice"}}
	bob := domain.Session{Token: "b", User: domain.AuthUser{ID: "bob"}}

	for i := 0; i < 2; i++ {
		list, err := svc.List(ctx, alice)
		require.NoError(t, err)
		assert.Len(t, list, 2)
		c, err := svc.Get(ctx, alice, "com-1")
		require.NoError(t, err)
		assert.Equal(t, "Alzira", c.Name)
		rows, err := svc.Contracts(ctx, alice, "com-1")
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	}
	assert.Equal(t, 1, api.calls["list"])
	assert.Equal(t, 1, api.calls["get"])
	assert.Equal(t, 1, api.calls["contracts"])

	_, err = svc.List(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, 2, api.calls["list"])
}

func TestService_TermsAgreement(t *testing.T) {
	api := &fakeAPI{calls: map[string]int{}}
	svc := &Service{API: api}
	sess := domain.Session{Token: "a", User: domain.AuthUser{ID: "alice"}}

	ta, err := svc.TermsAgreement(context.Background(), sess, "missing")
	require.NoError(t, err)
	assert.Nil(t, ta)

	ta, err = svc.TermsAgreement(context.Background(), sess, "")
	require.NoError(t, err)
	assert.Nil(t, ta)
	assert.Equal(t, 1, api.calls["terms"])

	ta, err = svc.TermsAgreement(context.Background(), sess, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "2", ta.Version)
}
