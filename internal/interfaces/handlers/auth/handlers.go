package auth

import (
	"errors"
	"time"

	authsvc "commenergy-backend/internal/application/auth"
	"commenergy-backend/internal/middleware"
	"commenergy-backend/internal/pkg/response"
	"commenergy-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	Service *authsvc.Service
	Config  middleware.SessionConfig
}

// ForgotPasswordRequest body.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Login POST /api/v1/auth/login: authenticate against the remote API, open a session, set cookie.
func (h *Handlers) Login(c *fiber.Ctx) error {
	if h.Service == nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	var req authsvc.LoginInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, authsvc.ErrEmailPasswordRequired.Error(), fiber.StatusBadRequest, nil)
	}
	if req.Email == "" || req.Password == "" {
		return response.Error(c, authsvc.ErrEmailPasswordRequired.Error(), fiber.StatusBadRequest, nil)
	}
	if err := validation.Struct(req); err != nil {
		return response.ValidationFailed(c, err)
	}

	sess, ttl, err := h.Service.Login(c.UserContext(), req)
	if err != nil {
		switch {
		case errors.Is(err, authsvc.ErrEmailPasswordRequired):
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		case errors.Is(err, authsvc.ErrInvalidCredentials):
			return response.Error(c, err.Error(), fiber.StatusUnauthorized, nil)
		case errors.Is(err, authsvc.ErrTooManyRequests):
			return response.Error(c, err.Error(), fiber.StatusTooManyRequests, nil)
		case errors.Is(err, authsvc.ErrTokenExpired):
			return response.Error(c, err.Error(), fiber.StatusBadGateway, nil)
		}
		return err
	}

	middleware.SetSession(c, sess)
	cookie := middleware.SessionCookieConfig(h.Config, ttl)
	cookie.Value = sess.ID
	c.Cookie(&cookie)

	return response.Success(c, "Login successful", fiber.Map{
		"user":      sess.User,
		"expiresAt": sess.ExpiresAt,
	}, nil)
}

// Me GET /api/v1/auth/me: return the session user.
func (h *Handlers) Me(c *fiber.Ctx) error {
	sess := middleware.GetSession(c)
	if sess == nil && middleware.GetSessionID(c) != "" {
		log.Info().Str("path", "/auth/me").Str("session_id_prefix", truncate(middleware.GetSessionID(c), 8)).
			Msg("auth/me: session id present but no session in Redis")
	}
	user, err := authsvc.VerifyUser(sess, time.Now())
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusUnauthorized, nil)
	}
	return response.Success(c, "Authenticated", fiber.Map{"user": user, "expiresAt": sess.ExpiresAt}, nil)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// LogoutAll DELETE /api/v1/auth/sessions: close every session of the user.
func (h *Handlers) LogoutAll(c *fiber.Ctx) error {
	sess := middleware.GetSession(c)
	if sess == nil {
		return response.Unauthorized(c, authsvc.ErrNotAuthenticated.Error())
	}
	if h.Service == nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	n, err := h.Service.LogoutAll(c.UserContext(), sess)
	if err != nil {
		return err
	}
	middleware.DestroySession(c)
	middleware.ClearSessionCookie(c, h.Config)
	return response.Success(c, "Logged out of all sessions", fiber.Map{"sessions": n}, nil)
}

// Logout DELETE /api/v1/auth/logout: drop the session and its drafts, clear cookie.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	if sess := middleware.GetSession(c); sess != nil && h.Service != nil {
		if err := h.Service.Logout(c.UserContext(), sess); err != nil {
			log.Warn().Err(err).Str("trace_id", middleware.GetTraceID(c)).Msg("auth/logout: session cleanup failed")
		}
	}
	middleware.DestroySession(c)
	middleware.ClearSessionCookie(c, h.Config)
	return response.Success(c, "Logged out successfully", nil, nil)
}

// ForgotPassword POST /api/v1/auth/forgot-password: ask the remote API for a reset email.
func (h *Handlers) ForgotPassword(c *fiber.Ctx) error {
	var req ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, authsvc.ErrEmailRequired.Error(), fiber.StatusBadRequest, nil)
	}
	if err := validation.Struct(req); err != nil {
		return response.ValidationFailed(c, err)
	}
	if err := h.Service.ForgotPassword(c.UserContext(), req.Email); err != nil {
		switch {
		case errors.Is(err, authsvc.ErrEmailRequired):
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		case errors.Is(err, authsvc.ErrEmailNotFound):
			return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
		case errors.Is(err, authsvc.ErrTooManyRequests):
			return response.Error(c, err.Error(), fiber.StatusTooManyRequests, nil)
		case errors.Is(err, authsvc.ErrServerError):
			return response.Error(c, err.Error(), fiber.StatusBadGateway, nil)
		}
		return err
	}
	return response.Success(c, "Password reset email sent", nil, nil)
}
