package sharing

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	sharingsvc "commenergy-backend/internal/application/sharing"
	"commenergy-backend/internal/domain"
	"commenergy-backend/internal/infrastructure/commenergyapi"
	"commenergy-backend/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeAPI always serves the fixture rows and records sharing updates.
type fakeAPI struct {
	mu   sync.Mutex
	fail map[string]bool
	sent []commenergyapi.SharingUpdate
}

func (a *fakeAPI) ListCommunityContracts(ctx context.Context, token, communityID string) ([]domain.CommunityContract, error) {
	return fixture(), nil
}

func (a *fakeAPI) UpdateSharing(ctx context.Context, token string, in commenergyapi.SharingUpdate) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent = append(a.sent, in)
	if a.fail[in.CommunityContractID] {
		return &commenergyapi.APIError{Method: "PUT", Path: "/sharings/" + in.ID, StatusCode: 500}
	}
	return nil
}

func (a *fakeAPI) UpdateCommunityContractFee(ctx context.Context, token, ccID string, in commenergyapi.FeeUpdate) error {
	return nil
}

func share(v float64) *float64 { return &v }

func fixture() []domain.CommunityContract {
	version := &domain.SharingVersion{ID: "v1", CommunityID: "com-1", Name: "2026 Q1", IsProductionVersion: true}
	return []domain.CommunityContract{
		{
			ID: "gen", CommunityID: "com-1", ContractID: "c-gen",
			Contract: &domain.Contract{ID: "c-gen", Code: "ES0031500000000001JN0F", Type: domain.ContractTypeGeneration, State: domain.ContractStateActive},
		},
		{
			ID: "a", CommunityID: "com-1", ContractID: "c-a",
			Contract: &domain.Contract{ID: "c-a", Code: "ES0021000000000001AA", Type: domain.ContractTypeConsumption, State: domain.ContractStateActive},
			Sharing:  &domain.Sharing{ID: "sh-a", CommunityContractID: "a", Share: share(0.10), VersionID: "v1", Version: version},
		},
		{
			ID: "b", CommunityID: "com-1", ContractID: "c-b",
			Contract: &domain.Contract{ID: "c-b", Code: "ES0021000000000002BB", Type: domain.ContractTypeConsumption, State: domain.ContractStateActive},
			Sharing:  &domain.Sharing{ID: "sh-b", CommunityContractID: "b", Share: share(0.20), VersionID: "v1", Version: version},
		},
	}
}

func setup(t *testing.T, api *fakeAPI) *fiber.App {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&domain.SharingCommit{}, &domain.SharingCommitRow{}))

	h := &Handlers{Service: &sharingsvc.Service{
		API:     api,
		Drafts:  &sharingsvc.RedisDraftStore{Rdb: rdb, TTL: time.Hour},
		Commits: &sharingsvc.GormCommitStore{DB: db},
	}}

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Use(func(c *fiber.Ctx) error {
		sess := &domain.Session{ID: "s1", Token: "tok", User: domain.AuthUser{ID: "u1", Role: "MANAGER"}}
		if uid := c.Get("X-User-Id"); uid != "" {
			sess.ID = "s-" + uid
			sess.User.ID = uid
		}
		middleware.SetSession(c, sess)
		return c.Next()
	})
	app.Get("/communities/:id/draft", h.Draft)
	app.Put("/communities/:id/draft/contracts/:ccId/sharing", h.EditSharing)
	app.Put("/communities/:id/draft/contracts/:ccId/fee", h.EditFee)
	app.Post("/communities/:id/draft/reset", h.Reset)
	app.Post("/communities/:id/draft/commit", h.Commit)
	app.Get("/communities/:id/sharing-commits/:commitId", h.GetCommit)
	app.Post("/communities/:id/sharing-commits/:commitId/retry", h.Retry)
	return app
}

func do(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode, decode(t, resp)
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func errorMessage(out map[string]interface{}) string {
	e, _ := out["error"].(map[string]interface{})
	msg, _ := e["message"].(string)
	return msg
}

func TestEditSharing_Validation(t *testing.T) {
	app := setup(t, &fakeAPI{})

	code, out := do(t, app, "PUT", "/communities/com-1/draft/contracts/a/sharing", map[string]interface{}{"share": 1.5})
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "share must be at most 1", errorMessage(out))

	code, out = do(t, app, "PUT", "/communities/com-1/draft/contracts/a/sharing", map[string]interface{}{})
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "share is required", errorMessage(out))

	code, _ = do(t, app, "PUT", "/communities/com-1/draft/contracts/gen/sharing", map[string]interface{}{"share": 0.5})
	assert.Equal(t, fiber.StatusUnprocessableEntity, code)

	code, _ = do(t, app, "PUT", "/communities/com-1/draft/contracts/missing/sharing", map[string]interface{}{"share": 0.5})
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestEditSharing_ShowsDifference(t *testing.T) {
	app := setup(t, &fakeAPI{})

	code, out := do(t, app, "PUT", "/communities/com-1/draft/contracts/a/sharing", map[string]interface{}{"share": 0.35})
	require.Equal(t, fiber.StatusOK, code)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, true, data["dirty"])
	for _, r := range data["rows"].([]interface{}) {
		row := r.(map[string]interface{})
		if row["id"] == "a" {
			assert.Equal(t, 25.0, row["difference"])
		}
	}

	code, out = do(t, app, "POST", "/communities/com-1/draft/reset", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, false, out["data"].(map[string]interface{})["dirty"])
}

func TestEditFee_Validation(t *testing.T) {
	app := setup(t, &fakeAPI{})

	code, _ := do(t, app, "PUT", "/communities/com-1/draft/contracts/a/fee", map[string]interface{}{"communityFee": -1})
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _ = do(t, app, "PUT", "/communities/com-1/draft/contracts/a/fee", map[string]interface{}{"communityFee": 10, "communityFeePeriodType": "WEEKLY"})
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _ = do(t, app, "PUT", "/communities/com-1/draft/contracts/a/fee", map[string]interface{}{"communityFee": 10, "communityFeePeriodType": "YEARLY"})
	assert.Equal(t, fiber.StatusOK, code)
}

func TestCommit(t *testing.T) {
	api := &fakeAPI{}
	app := setup(t, api)

	code, out := do(t, app, "POST", "/communities/com-1/draft/commit", nil)
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "No changes to commit", errorMessage(out))

	code, _ = do(t, app, "PUT", "/communities/com-1/draft/contracts/a/sharing", map[string]interface{}{"share": 0.4})
	require.Equal(t, fiber.StatusOK, code)
	code, out = do(t, app, "POST", "/communities/com-1/draft/commit", nil)
	assert.Equal(t, fiber.StatusOK, code)
	commit := out["data"].(map[string]interface{})["commit"].(map[string]interface{})
	assert.Equal(t, domain.CommitSucceeded, commit["status"])
	require.Len(t, api.sent, 1)
	assert.Equal(t, "a", api.sent[0].CommunityContractID)
}

func TestCommit_FailedRowIsAnError(t *testing.T) {
	api := &fakeAPI{fail: map[string]bool{"b": true}}
	app := setup(t, api)

	do(t, app, "PUT", "/communities/com-1/draft/contracts/a/sharing", map[string]interface{}{"share": 0.4})
	do(t, app, "PUT", "/communities/com-1/draft/contracts/b/sharing", map[string]interface{}{"share": 0.5})

	code, out := do(t, app, "POST", "/communities/com-1/draft/commit", nil)
	assert.Equal(t, fiber.StatusBadGateway, code)
	assert.Equal(t, "Some sharing updates failed", errorMessage(out))
	details := out["error"].(map[string]interface{})["details"].(map[string]interface{})
	commit := details["commit"].(map[string]interface{})
	assert.Equal(t, domain.CommitPartial, commit["status"])
	assert.Equal(t, 1.0, commit["failed"])
	assert.Len(t, api.sent, 2)
}

func TestGetCommit_BadIDAndMissing(t *testing.T) {
	app := setup(t, &fakeAPI{})

	code, _ := do(t, app, "GET", "/communities/com-1/sharing-commits/not-a-uuid", nil)
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _ = do(t, app, "GET", "/communities/com-1/sharing-commits/0190f5d8-0000-7000-8000-000000000000", nil)
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestRetry(t *testing.T) {
	api := &fakeAPI{fail: map[string]bool{"b": true}}
	app := setup(t, api)

	do(t, app, "PUT", "/communities/com-1/draft/contracts/b/sharing", map[string]interface{}{"share": 0.5})
	code, out := do(t, app, "POST", "/communities/com-1/draft/commit", nil)
	require.Equal(t, fiber.StatusBadGateway, code)
	details := out["error"].(map[string]interface{})["details"].(map[string]interface{})
	commitID := details["commit"].(map[string]interface{})["commit_id"].(string)
	retryPath := "/communities/com-1/sharing-commits/" + commitID + "/retry"

	code, _ = do(t, app, "GET", "/communities/com-1/sharing-commits/"+commitID, nil)
	assert.Equal(t, fiber.StatusOK, code)

	req := httptest.NewRequest("POST", retryPath, nil)
	req.Header.Set("X-User-Id", "u2")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	do(t, app, "PUT", "/communities/com-1/draft/contracts/b/sharing", map[string]interface{}{"share": 0.6})
	code, out = do(t, app, "POST", retryPath, nil)
	assert.Equal(t, fiber.StatusConflict, code)
	assert.Contains(t, errorMessage(out), "commit the draft again")
	assert.Len(t, api.sent, 1)

	do(t, app, "PUT", "/communities/com-1/draft/contracts/b/sharing", map[string]interface{}{"share": 0.5})
	api.mu.Lock()
	api.fail = nil
	api.mu.Unlock()
	code, out = do(t, app, "POST", retryPath, nil)
	assert.Equal(t, fiber.StatusOK, code)
	commit := out["data"].(map[string]interface{})["commit"].(map[string]interface{})
	assert.Equal(t, domain.CommitSucceeded, commit["status"])
	assert.Len(t, api.sent, 2)
}
