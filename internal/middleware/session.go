package middleware

import (
	"time"

	authsvc "commenergy-backend/internal/application/auth"
	"commenergy-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// SessionConfig for the Redis-backed session cookie.
type SessionConfig struct {
	RedisURL          string
	AllowCrossSiteDev bool
	IsProduction      bool
}

const (
	SessionCookieName = "commenergy.sid"
	sessionLocal      = "session"
	sessionIDLocal    = "session_id"
)

// Session returns a Fiber middleware that loads the session named by the
// cookie from Redis. Sessions are written by the auth handlers only.
func Session(cfg SessionConfig) (fiber.Handler, *redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	rdb := redis.NewClient(opt)
	return LoadSession(&authsvc.SessionStore{Rdb: rdb}), rdb, nil
}

// LoadSession puts the session of the request cookie in Locals. An expired
// or unknown session leaves Locals empty.
func LoadSession(store *authsvc.SessionStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Cookies(SessionCookieName)
		c.Locals(sessionIDLocal, sessionID)
		c.Locals(sessionLocal, nil)
		if sessionID == "" {
			return c.Next()
		}
		sess, err := store.Get(c.UserContext(), sessionID)
		if err != nil {
			log.Warn().Err(err).Str("trace_id", GetTraceID(c)).Msg("session: load failed")
			return c.Next()
		}
		if sess != nil && (sess.ExpiresAt.IsZero() || time.Now().Before(sess.ExpiresAt)) {
			c.Locals(sessionLocal, sess)
		}
		return c.Next()
	}
}

// GetSessionID returns the session id of the request cookie.
func GetSessionID(c *fiber.Ctx) string {
	sid, _ := c.Locals(sessionIDLocal).(string)
	return sid
}

// GetSession returns the loaded session (nil if not logged in).
func GetSession(c *fiber.Ctx) *domain.Session {
	sess, _ := c.Locals(sessionLocal).(*domain.Session)
	return sess
}

// SetSession makes a freshly created session visible to the rest of the request.
func SetSession(c *fiber.Ctx, sess *domain.Session) {
	c.Locals(sessionLocal, sess)
	c.Locals(sessionIDLocal, sess.ID)
}

// DestroySession clears the session from Locals; caller must clear cookie and Redis.
func DestroySession(c *fiber.Ctx) {
	c.Locals(sessionLocal, nil)
}

// SessionCookieConfig returns the cookie options shared by login and logout.
func SessionCookieConfig(cfg SessionConfig, ttl time.Duration) fiber.Cookie {
	sameSite := "Lax"
	if cfg.AllowCrossSiteDev {
		sameSite = "None"
	}
	return fiber.Cookie{
		Name:     SessionCookieName,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HTTPOnly: true,
		Secure:   cfg.IsProduction || cfg.AllowCrossSiteDev,
		SameSite: sameSite,
	}
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(c *fiber.Ctx, cfg SessionConfig) {
	cookie := SessionCookieConfig(cfg, 0)
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	c.Cookie(&cookie)
}

// CurrentSession returns the loaded session, or a 401 error for the global handler.
func CurrentSession(c *fiber.Ctx) (domain.Session, error) {
	sess := GetSession(c)
	if sess == nil {
		return domain.Session{}, fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}
	return *sess, nil
}
