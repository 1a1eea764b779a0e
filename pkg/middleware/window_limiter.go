package middleware

import (
	"context"
	"strconv"
	"time"

	"campus-support/backend/pkg/errors"
	"campus-support/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// WindowCounter is a shared fixed-window counter, normally Redis-backed
type WindowCounter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// WindowLimit caps a route group at limit requests per window per client,
// shared across replicas. Counter failures let the request through.
func WindowLimit(counter WindowCounter, scope string, limit int, window time.Duration, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ratelimit:" + scope + ":" + ClientKey(c)
		allowed, err := counter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			log.Warn("Rate limit counter unavailable", "scope", scope, "error", err.Error())
			c.Next()
			return
		}
		if !allowed {
			log.Warn("Rate limit exceeded", "scope", scope, "client", ClientKey(c))
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
			c.Error(errors.RateLimited("Too many requests. Please try again later."))
			c.Abort()
			return
		}
		c.Next()
	}
}
