package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/budgetwise/budgetwise-api/internal/access"
	"github.com/budgetwise/budgetwise-api/internal/http/response"
	"github.com/gin-gonic/gin"
)

// Middleware throttles authenticated callers per identity.
// It must run after access.Guard.Authenticate.
func Middleware(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := access.CallerFrom(c)
		if !ok || m == nil {
			c.Next()
			return
		}
		limit := LimitFor(m.Config(), caller)
		if limit <= 0 {
			c.Next()
			return
		}
		result, err := m.Allow(c.Request.Context(), KeyFor(caller.ID), limit)
		if err != nil {
			m.logger.WithError(err).Warn("rate limit: check failed, allowing request")
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.Reset.Unix(), 10))
		if !result.Allowed {
			response.Abort(c, http.StatusTooManyRequests, "Too many requests, slow down")
			return
		}
		c.Next()
	}
}
