package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"hims.app/advisor/common/logger"
)

// Recovery tags the request context with the gateway component, so handler
// logs and recovered panics can be told apart from tab and cache logs.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{Component: "advisor.gateway.http"})
		c.Request = c.Request.WithContext(ctx)

		defer func() {
			r := recover()
			if r == nil {
				return
			}
			slog.ErrorContext(ctx, "panic recovered",
				"error", r,
				"method", c.Request.Method,
				"route", c.FullPath(),
				"client_ip", c.ClientIP(),
				"stack", string(debug.Stack()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}()
		c.Next()
	}
}
