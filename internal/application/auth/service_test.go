package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"commenergy-backend/internal/domain"
	"commenergy-backend/internal/infrastructure/commenergyapi"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	}).SignedString([]byte("remote-secret"))
	require.NoError(t, err)
	return tok
}

type fakeRemote struct {
	token     string
	loginErr  error
	forgotErr error
	emails    []string
}

func (f *fakeRemote) Login(ctx context.Context, email, password string) (*commenergyapi.LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &commenergyapi.LoginResult{
		Token: f.token,
		User:  domain.AuthUser{ID: "u1", Name: "Marta", Email: email, Role: "MANAGER"},
	}, nil
}

func (f *fakeRemote) ForgotPassword(ctx context.Context, email string) error {
	f.emails = append(f.emails, email)
	return f.forgotErr
}

type fakeDrafts struct{ deleted []string }

func (f *fakeDrafts) DeleteSession(ctx context.Context, sessionID string) error {
	f.deleted = append(f.deleted, sessionID)
	return nil
}

func setup(t *testing.T, remote *fakeRemote) (*Service, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return &Service{
		API:      remote,
		Sessions: &SessionStore{Rdb: rdb},
		Now:      func() time.Time { return testNow },
	}, mr
}

func TestTokenTTL(t *testing.T) {
	assert.Equal(t, 2*time.Hour, TokenTTL(signed(t, testNow.Add(2*time.Hour)), testNow, MaxSessionTTL))
	assert.Equal(t, MaxSessionTTL, TokenTTL(signed(t, testNow.Add(72*time.Hour)), testNow, MaxSessionTTL))
	assert.Equal(t, time.Duration(0), TokenTTL(signed(t, testNow.Add(-time.Hour)), testNow, MaxSessionTTL))
	assert.Equal(t, time.Duration(0), TokenTTL(signed(t, testNow), testNow, MaxSessionTTL))
	assert.Equal(t, MaxSessionTTL, TokenTTL("opaque-token", testNow, MaxSessionTTL))
}

func TestLogin_StoresSession(t *testing.T) {
	tok := signed(t, testNow.Add(3*time.Hour))
	svc, mr := setup(t, &fakeRemote{token: tok})

	sess, ttl, err := svc.Login(context.Background(), LoginInput{Email: " marta@example.com ", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, 3*time.Hour, ttl)
	assert.Equal(t, tok, sess.Token)
	assert.Equal(t, "marta@example.com", sess.User.Email)
	assert.Equal(t, testNow.Add(3*time.Hour), sess.ExpiresAt)

	assert.True(t, mr.Exists(SessionRedisPrefix+sess.ID))
	assert.Equal(t, 3*time.Hour, mr.TTL(SessionRedisPrefix+sess.ID))

	stored, err := svc.Sessions.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, sess.User, stored.User)

	ids, err := svc.Sessions.UserSessions(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{sess.ID}, ids)
}

func TestLogin_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  LoginInput
		remote error
		want   error
	}{
		{"missing password", LoginInput{Email: "a@b.com"}, nil, ErrEmailPasswordRequired},
		{"bad credentials", LoginInput{Email: "a@b.com", Password: "x"}, commenergyapi.ErrUnauthorized, ErrInvalidCredentials},
		{"rate limited", LoginInput{Email: "a@b.com", Password: "x"}, commenergyapi.ErrRateLimited, ErrTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := setup(t, &fakeRemote{token: "t", loginErr: tt.remote})
			_, _, err := svc.Login(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLogin_ExpiredTokenRefused(t *testing.T) {
	svc, mr := setup(t, &fakeRemote{token: signed(t, testNow.Add(-time.Minute))})

	sess, _, err := svc.Login(context.Background(), LoginInput{Email: "marta@example.com", Password: "secret"})
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Nil(t, sess)
	assert.Empty(t, mr.Keys())
}

func TestLogoutAll_ClosesEverySessionOfTheUser(t *testing.T) {
	svc, mr := setup(t, &fakeRemote{token: "opaque"})
	drafts := &fakeDrafts{}
	svc.Drafts = drafts
	ctx := context.Background()

	first, _, err := svc.Login(ctx, LoginInput{Email: "a@b.com", Password: "x"})
	require.NoError(t, err)
	second, _, err := svc.Login(ctx, LoginInput{Email: "a@b.com", Password: "x"})
	require.NoError(t, err)

	n, err := svc.LogoutAll(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []string{first.ID, second.ID}, drafts.deleted)
	assert.False(t, mr.Exists(SessionRedisPrefix+first.ID))
	assert.False(t, mr.Exists(SessionRedisPrefix+second.ID))
	ids, err := svc.Sessions.UserSessions(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = svc.LogoutAll(ctx, nil)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestLogout_DropsSessionAndDrafts(t *testing.T) {
	svc, mr := setup(t, &fakeRemote{token: "opaque"})
	drafts := &fakeDrafts{}
	svc.Drafts = drafts

	sess, _, err := svc.Login(context.Background(), LoginInput{Email: "a@b.com", Password: "x"})
	require.NoError(t, err)
	require.NoError(t, svc.Logout(context.Background(), sess))

	assert.False(t, mr.Exists(SessionRedisPrefix+sess.ID))
	assert.Equal(t, []string{sess.ID}, drafts.deleted)
	ids, err := svc.Sessions.UserSessions(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, svc.Logout(context.Background(), nil))
}

func TestForgotPassword_MapsRemoteErrors(t *testing.T) {
	tests := []struct {
		name   string
		remote error
		want   error
	}{
		{"ok", nil, nil},
		{"unknown email", commenergyapi.ErrEmailNotFound, ErrEmailNotFound},
		{"rate limited", commenergyapi.ErrRateLimited, ErrTooManyRequests},
		{"server error", &commenergyapi.APIError{StatusCode: 503}, ErrServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := setup(t, &fakeRemote{forgotErr: tt.remote})
			err := svc.ForgotPassword(context.Background(), "a@b.com")
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}

	svc, _ := setup(t, &fakeRemote{forgotErr: errors.New("boom")})
	assert.ErrorIs(t, svc.ForgotPassword(context.Background(), " "), ErrEmailRequired)
}

func TestVerifyUser_Nil(t *testing.T) {
	u, err := VerifyUser(nil, testNow)
	assert.Nil(t, u)
	assert.Equal(t, ErrNotAuthenticated, err)
}

func TestVerifyUser_NoUserID(t *testing.T) {
	u, err := VerifyUser(&domain.Session{ID: "s", Token: "t"}, testNow)
	assert.Nil(t, u)
	assert.Equal(t, ErrNotAuthenticated, err)
}

func TestVerifyUser_Expired(t *testing.T) {
	sess := &domain.Session{ID: "s", Token: "t", User: domain.AuthUser{ID: "u1"}, ExpiresAt: testNow.Add(-time.Minute)}
	_, err := VerifyUser(sess, testNow)
	assert.Equal(t, ErrSessionExpired, err)
}

func TestVerifyUser_Valid(t *testing.T) {
	sess := &domain.Session{
		ID: "s", Token: "t", ExpiresAt: testNow.Add(time.Hour),
		User: domain.AuthUser{ID: "u1", Name: "Test User", Email: "test@example.com", Role: "VIEWER"},
	}
	u, err := VerifyUser(sess, testNow)
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "VIEWER", u.Role)
}
