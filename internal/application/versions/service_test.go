package versions

import (
	"context"
	"fmt"
	"strings"
	"sync"
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
	mu         sync.Mutex
	versions   []domain.SharingVersion
	created    []domain.SharingVersion
	production []string
	deleted    []string
	listCalls  int
}

func (a *fakeAPI) ListSharingVersions(ctx context.Context, token, communityID string) ([]domain.SharingVersion, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listCalls++
	return append([]domain.SharingVersion(nil), a.versions...), nil
}

func (a *fakeAPI) CreateSharingVersion(ctx context.Context, token string, in domain.SharingVersion) (*domain.SharingVersion, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.created = append(a.created, in)
	a.versions = append(a.versions, in)
	return &in, nil
}

func (a *fakeAPI) SetProductionVersion(ctx context.Context, token, versionID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.production = append(a.production, versionID)
	return nil
}

func (a *fakeAPI) DeleteSharingVersion(ctx context.Context, token, versionID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deleted = append(a.deleted, versionID)
	return nil
}

type fakeDrafts struct {
	rows []domain.CommunityContract
}

func (d *fakeDrafts) Rows(ctx context.Context, sess domain.Session, communityID, source string) ([]domain.CommunityContract, error) {
	return d.rows, nil
}

var (
	testNow     = time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	testSession = domain.Session{ID: "sess-1", Token: "tok", User: domain.AuthUser{ID: "u1", Role: "ADMIN"}}
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func share(v float64) *float64 { return &v }

func oldVersion() domain.SharingVersion {
	return domain.SharingVersion{
		ID: "v-old", CommunityID: "com-1", Name: "2025", IsProductionVersion: true,
		Sharings: []domain.Sharing{
			{ID: "s-x", CommunityContractID: "x", Share: share(0.5), VersionID: "v-old"},
			{ID: "s-y", CommunityContractID: "y", Share: share(0.5), VersionID: "v-old"},
		},
	}
}

func setup(t *testing.T, api *fakeAPI) (*Service, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return &Service{
		API:   api,
		Cache: &cache.Cache{Rdb: rdb, TTL: time.Minute},
		Now:   func() time.Time { return testNow },
		NewID: seqIDs(),
	}, rdb
}

func TestCreate_NewVersionLeavesOldUntouched(t *testing.T) {
	api := &fakeAPI{versions: []domain.SharingVersion{oldVersion()}}
	svc, _ := setup(t, api)

	v, err := svc.Create(context.Background(), testSession, "com-1", CreateInput{
		Name: "2026",
		Sharings: []ShareInput{
			{CommunityContractID: "x", Share: 0.3},
			{CommunityContractID: "y", Share: 0.7},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "id-1", v.ID)
	assert.Equal(t, "com-1", v.CommunityID)
	require.Len(t, v.Sharings, 2)
	seen := map[string]bool{"s-x": true, "s-y": true}
	for _, s := range v.Sharings {
		assert.Equal(t, v.ID, s.VersionID)
		assert.False(t, seen[s.ID], "sharing id %s reused", s.ID)
		seen[s.ID] = true
		assert.Equal(t, testNow, s.CreatedDate)
	}
	assert.Equal(t, 0.3, *v.Sharings[0].Share)
	assert.Equal(t, 0.7, *v.Sharings[1].Share)

	// exactly one request, and the superseded version is not touched
	require.Len(t, api.created, 1)
	assert.Empty(t, api.production)
	assert.Empty(t, api.deleted)
	assert.Equal(t, oldVersion(), api.versions[0])
}

func TestCreate_DropsPlaceholders(t *testing.T) {
	api := &fakeAPI{}
	svc, _ := setup(t, api)

	v, err := svc.Create(context.Background(), testSession, "com-1", CreateInput{
		Name:     "with placeholder",
		Sharings: []ShareInput{{Share: 0.2}, {CommunityContractID: "x", Share: 0.8}},
	})
	require.NoError(t, err)
	require.Len(t, v.Sharings, 1)
	assert.Equal(t, "x", v.Sharings[0].CommunityContractID)
}

func TestCreate_FromDraft(t *testing.T) {
	api := &fakeAPI{}
	svc, _ := setup(t, api)
	svc.Drafts = &fakeDrafts{rows: []domain.CommunityContract{
		{ID: "a", Sharing: &domain.Sharing{ID: "s-a", CommunityContractID: "a", Share: share(0.25), VersionID: "v-old"}},
		{ID: "b"},
		{ID: "c", Sharing: &domain.Sharing{ID: "s-c", Share: share(0.1)}},
		{ID: "d", Sharing: &domain.Sharing{ID: "s-d", CommunityContractID: "d", Share: share(0.75), VersionID: "v-old"}},
	}}

	v, err := svc.Create(context.Background(), testSession, "com-1", CreateInput{Name: "from draft", IsProductionVersion: true})
	require.NoError(t, err)
	assert.True(t, v.IsProductionVersion)
	require.Len(t, v.Sharings, 2)
	assert.Equal(t, "a", v.Sharings[0].CommunityContractID)
	assert.Equal(t, "d", v.Sharings[1].CommunityContractID)
	assert.NotEqual(t, "s-a", v.Sharings[0].ID)
	assert.Equal(t, v.ID, v.Sharings[1].VersionID)
}

func TestCreate_Validation(t *testing.T) {
	api := &fakeAPI{}
	svc, _ := setup(t, api)
	ctx := context.Background()
	one := []ShareInput{{CommunityContractID: "x", Share: 1}}

	_, err := svc.Create(ctx, testSession, "com-1", CreateInput{Name: "  ", Sharings: one})
	assert.ErrorIs(t, err, ErrNameRequired)
	_, err = svc.Create(ctx, testSession, "com-1", CreateInput{Name: strings.Repeat("n", 101), Sharings: one})
	assert.ErrorIs(t, err, ErrNameTooLong)
	_, err = svc.Create(ctx, testSession, "com-1", CreateInput{Name: "empty", Sharings: []ShareInput{}})
	assert.ErrorIs(t, err, ErrNoSharings)
	_, err = svc.Create(ctx, testSession, "com-1", CreateInput{Name: "bad", Sharings: []ShareInput{{CommunityContractID: "x", Share: 1.5}}})
	assert.Error(t, err)
	assert.Empty(t, api.created)
}

func TestList_CachedAndInvalidated(t *testing.T) {
	api := &fakeAPI{versions: []domain.SharingVersion{oldVersion()}}
	svc, _ := setup(t, api)
	ctx := context.Background()

	_, err := svc.List(ctx, testSession, "com-1")
	require.NoError(t, err)
	list, err := svc.List(ctx, testSession, "com-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, api.listCalls)

	require.NoError(t, svc.SetProduction(ctx, testSession, "com-1", "v-old"))
	_, err = svc.List(ctx, testSession, "com-1")
	require.NoError(t, err)
	assert.Equal(t, 2, api.listCalls)
	assert.Equal(t, []string{"v-old"}, api.production)

	require.NoError(t, svc.Delete(ctx, testSession, "com-1", "v-old"))
	_, err = svc.List(ctx, testSession, "com-1")
	require.NoError(t, err)
	assert.Equal(t, 3, api.listCalls)
	assert.Equal(t, []string{"v-old"}, api.deleted)

	assert.ErrorIs(t, svc.Delete(ctx, testSession, "com-1", ""), ErrVersionIDMissing)
}
