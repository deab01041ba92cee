package middleware

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Redis keys of the request counters shown on the health dashboard.
const (
	KeyReqTotal  = "health:commenergy:req_total"
	KeyReqErrors = "health:commenergy:req_errors"
	KeyResTime   = "health:commenergy:res_time_total"
	KeyResCount  = "health:commenergy:res_count"
	KeyStartTime = "health:commenergy:start_time"
	KeyLastReq   = "health:commenergy:last_request"
	KeyErrorLog  = "health:commenergy:error_log"
)

// HealthMarker records request stats in Redis (skip /, /health*, /reset, favicon).
func HealthMarker(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if rdb == nil || path == "/" || path == "/reset" || strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/favicon") {
			return c.Next()
		}

		start := time.Now()
		b, _ := json.Marshal(map[string]interface{}{
			"time":   start,
			"ip":     c.IP(),
			"path":   c.OriginalURL(),
			"method": c.Method(),
		})
		ctx := context.Background()
		pipe := rdb.Pipeline()
		pipe.Set(ctx, KeyLastReq, b, 0)
		pipe.Incr(ctx, KeyReqTotal)
		_, _ = pipe.Exec(ctx)

		err := c.Next()

		// the global error handler has not run yet when a handler returns an error
		status := c.Response().StatusCode()
		if err != nil {
			status, _, _ = classify(err)
		}
		ms := time.Since(start).Milliseconds()
		pipe = rdb.Pipeline()
		pipe.Incr(ctx, KeyResCount)
		pipe.IncrByFloat(ctx, KeyResTime, float64(ms))
		if status >= fiber.StatusInternalServerError {
			pipe.Incr(ctx, KeyReqErrors)
		}
		_, _ = pipe.Exec(ctx)
		return err
	}
}
