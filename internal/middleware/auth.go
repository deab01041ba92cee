package middleware

import (
	"commenergy-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// RequireAuth ensures a session is loaded. Returns 401 with standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if GetSession(c) == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}
