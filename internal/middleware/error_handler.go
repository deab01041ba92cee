package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	authsvc "commenergy-backend/internal/application/auth"
	"commenergy-backend/internal/infrastructure/commenergyapi"
	"commenergy-backend/internal/pkg/response"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const errorLogSize = 50

// ErrorHandlerConfig wires the global error handler.
type ErrorHandlerConfig struct {
	Sessions *authsvc.SessionStore // a remote 401 destroys the local session
	Drafts   authsvc.DraftCleaner
	Cookie   SessionConfig
	Rdb      *redis.Client // error log for the health dashboard
}

// NewErrorHandler returns the global error handler. It maps remote API
// failures to the standard error format and reports 5xx to Sentry.
func NewErrorHandler(cfg ErrorHandlerConfig) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code, message, details := classify(err)

		if errors.Is(err, commenergyapi.ErrUnauthorized) {
			endSession(c, cfg)
		}
		if code >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("trace_id", GetTraceID(c)).Str("path", c.Path()).Int("status", code).Msg("request failed")
			report(c, err)
			recordError(c, cfg.Rdb, err, code)
		}
		return response.Error(c, message, code, details)
	}
}

// ErrorHandler is the handler used when no session store is wired.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return NewErrorHandler(ErrorHandlerConfig{})(c, err)
}

func classify(err error) (int, string, map[string]interface{}) {
	details := map[string]interface{}{}

	var fe *fiber.Error
	var apiErr *commenergyapi.APIError
	var decodeErr *commenergyapi.DeserializationError
	switch {
	case errors.As(err, &fe):
		return fe.Code, fe.Message, details
	case errors.Is(err, commenergyapi.ErrUnauthorized):
		return fiber.StatusUnauthorized, "Session expired, please log in again", details
	case errors.Is(err, commenergyapi.ErrNotFound):
		return fiber.StatusNotFound, "Resource not found", details
	case errors.Is(err, commenergyapi.ErrRateLimited):
		return fiber.StatusTooManyRequests, "Too many requests, please try again later", details
	case errors.Is(err, commenergyapi.ErrNotConfigured):
		return fiber.StatusServiceUnavailable, "Commenergy API is not configured", details
	case errors.As(err, &decodeErr):
		details["entity"] = decodeErr.Entity
		return fiber.StatusBadGateway, "Invalid response from the Commenergy API", details
	case errors.As(err, &apiErr):
		details["upstreamStatus"] = apiErr.StatusCode
		if apiErr.StatusCode >= 500 {
			return fiber.StatusBadGateway, "Commenergy API error", details
		}
		if apiErr.Body != "" {
			details["upstream"] = apiErr.Body
		}
		return apiErr.StatusCode, "Request rejected by the Commenergy API", details
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, "Commenergy API timed out", details
	}
	return fiber.StatusInternalServerError, "Internal Server Error", details
}

func endSession(c *fiber.Ctx, cfg ErrorHandlerConfig) {
	sess := GetSession(c)
	if sess != nil && cfg.Sessions != nil {
		ctx := context.Background()
		if cfg.Drafts != nil {
			_ = cfg.Drafts.DeleteSession(ctx, sess.ID)
		}
		if err := cfg.Sessions.Delete(ctx, sess); err != nil {
			log.Warn().Err(err).Str("trace_id", GetTraceID(c)).Msg("session: destroy after remote 401 failed")
		}
		log.Info().Str("user_id", sess.User.ID).Str("trace_id", GetTraceID(c)).Msg("session: remote api rejected token, logged out")
	}
	DestroySession(c)
	ClearSessionCookie(c, cfg.Cookie)
}

func report(c *fiber.Ctx, err error) {
	if sentry.CurrentHub().Client() == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("trace_id", GetTraceID(c))
		scope.SetTag("path", c.Path())
		scope.SetContext("request", sentry.Context{"method": c.Method(), "url": c.OriginalURL()})
		if sess := GetSession(c); sess != nil {
			scope.SetUser(sentry.User{ID: sess.User.ID, Email: sess.User.Email})
		}
		sentry.CaptureException(err)
	})
}

func recordError(c *fiber.Ctx, rdb *redis.Client, err error, code int) {
	if rdb == nil {
		return
	}
	entry, _ := json.Marshal(map[string]interface{}{
		"time":    time.Now(),
		"method":  c.Method(),
		"path":    c.OriginalURL(),
		"status":  code,
		"message": err.Error(),
		"traceId": GetTraceID(c),
	})
	ctx := context.Background()
	pipe := rdb.Pipeline()
	pipe.LPush(ctx, KeyErrorLog, entry)
	pipe.LTrim(ctx, KeyErrorLog, 0, errorLogSize-1)
	_, _ = pipe.Exec(ctx)
}
