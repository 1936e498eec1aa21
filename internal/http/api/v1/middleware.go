package v1

import (
	"net/http"
	"time"

	"github.com/budgetwise/budgetwise-api/internal/http/response"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Recovery converts panics into a generic 500 envelope.
func Recovery(logger log.FieldLogger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.WithField("path", c.Request.URL.Path).Errorf("api: panic recovered: %v", recovered)
		response.Abort(c, http.StatusInternalServerError, "Internal server error")
	})
}

// RequestLogger logs one line per request.
func RequestLogger(logger log.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		entry := logger.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  status,
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request")
		case status >= http.StatusBadRequest:
			entry.Info("request")
		default:
			entry.Debug("request")
		}
	}
}
