package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"commenergy-backend/internal/domain"
	"commenergy-backend/internal/infrastructure/commenergyapi"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MaxSessionTTL caps a session even when the remote token lives longer.
const MaxSessionTTL = 24 * time.Hour

// LoginInput for login request body.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RemoteAuth is the part of the remote API used for authentication.
type RemoteAuth interface {
	Login(ctx context.Context, email, password string) (*commenergyapi.LoginResult, error)
	ForgotPassword(ctx context.Context, email string) error
}

// DraftCleaner drops the drafts of a session.
type DraftCleaner interface {
	DeleteSession(ctx context.Context, sessionID string) error
}

// Service logs users in against the remote API and keeps their sessions.
type Service struct {
	API      RemoteAuth
	Sessions *SessionStore
	Drafts   DraftCleaner // optional
	MaxTTL   time.Duration
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Login exchanges credentials for a remote token and opens a session.
func (s *Service) Login(ctx context.Context, input LoginInput) (*domain.Session, time.Duration, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" || input.Password == "" {
		return nil, 0, ErrEmailPasswordRequired
	}
	res, err := s.API.Login(ctx, email, input.Password)
	if err != nil {
		switch {
		case errors.Is(err, commenergyapi.ErrUnauthorized), errors.Is(err, commenergyapi.ErrNotFound):
			return nil, 0, ErrInvalidCredentials
		case errors.Is(err, commenergyapi.ErrRateLimited):
			return nil, 0, ErrTooManyRequests
		}
		return nil, 0, err
	}

	now := s.now()
	maxTTL := s.MaxTTL
	if maxTTL <= 0 {
		maxTTL = MaxSessionTTL
	}
	ttl := TokenTTL(res.Token, now, maxTTL)
	if ttl <= 0 {
		log.Warn().Str("user_id", res.User.ID).Msg("auth: remote api returned an expired token, login refused")
		return nil, 0, ErrTokenExpired
	}
	sess := &domain.Session{
		ID:        uuid.New().String(),
		Token:     res.Token,
		User:      res.User,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.Sessions.Save(ctx, sess, ttl); err != nil {
		return nil, 0, err
	}
	log.Info().Str("user_id", sess.User.ID).Str("role", sess.User.Role).Dur("ttl", ttl).Msg("auth: login")
	return sess, ttl, nil
}

// TokenTTL reads the exp claim of a JWT without verifying it; the remote API
// is the only party that verifies. Opaque tokens and tokens without exp get
// max, expired tokens get 0. The result never exceeds max.
func TokenTTL(token string, now time.Time, max time.Duration) time.Duration {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return max
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return max
	}
	ttl := exp.Time.Sub(now)
	if ttl <= 0 {
		return 0
	}
	if ttl > max {
		return max
	}
	return ttl
}

// VerifyUser returns the user of a live session.
func VerifyUser(sess *domain.Session, now time.Time) (*domain.AuthUser, error) {
	if sess == nil || sess.User.ID == "" || sess.Token == "" {
		return nil, ErrNotAuthenticated
	}
	if !sess.ExpiresAt.IsZero() && now.After(sess.ExpiresAt) {
		return nil, ErrSessionExpired
	}
	u := sess.User
	return &u, nil
}

// Logout destroys the session and the drafts it owned.
func (s *Service) Logout(ctx context.Context, sess *domain.Session) error {
	if sess == nil {
		return nil
	}
	if s.Drafts != nil {
		if err := s.Drafts.DeleteSession(ctx, sess.ID); err != nil {
			log.Warn().Err(err).Str("session_id", sess.ID).Msg("auth: dropping drafts failed")
		}
	}
	if err := s.Sessions.Delete(ctx, sess); err != nil {
		return err
	}
	log.Info().Str("user_id", sess.User.ID).Msg("auth: logout")
	return nil
}

// LogoutAll destroys every session of the session's user, on every device,
// with their drafts. It returns how many sessions were closed.
func (s *Service) LogoutAll(ctx context.Context, sess *domain.Session) (int, error) {
	if sess == nil || sess.User.ID == "" {
		return 0, ErrNotAuthenticated
	}
	ids, err := s.Sessions.UserSessions(ctx, sess.User.ID)
	if err != nil {
		return 0, fmt.Errorf("auth: list user sessions: %w", err)
	}
	if !contains(ids, sess.ID) {
		ids = append(ids, sess.ID)
	}
	if s.Drafts != nil {
		for _, sid := range ids {
			if err := s.Drafts.DeleteSession(ctx, sid); err != nil {
				log.Warn().Err(err).Str("session_id", sid).Msg("auth: dropping drafts failed")
			}
		}
	}
	if err := s.Sessions.DeleteUser(ctx, sess.User.ID, ids); err != nil {
		return 0, err
	}
	log.Info().Str("user_id", sess.User.ID).Int("sessions", len(ids)).Msg("auth: logout everywhere")
	return len(ids), nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// ForgotPassword asks the remote API for a reset email and maps its
// failures to user-facing errors.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmailRequired
	}
	err := s.API.ForgotPassword(ctx, email)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, commenergyapi.ErrEmailNotFound), errors.Is(err, commenergyapi.ErrNotFound):
		return ErrEmailNotFound
	case errors.Is(err, commenergyapi.ErrRateLimited):
		return ErrTooManyRequests
	case commenergyapi.IsServerError(err):
		return ErrServerError
	}
	return err
}
