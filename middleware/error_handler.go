package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SixtySecondsApp/onboarding-forms/logger"
	"github.com/SixtySecondsApp/onboarding-forms/utils"
)

// ErrorHandler reports errors attached with c.Error once the handlers have
// run. Only server-side failures go to Sentry.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		status := c.Writer.Status()
		for _, ginErr := range c.Errors {
			logger.FromGin(c).Error("request failed",
				zap.Int("status", status),
				zap.Error(ginErr.Err))

			if status >= 500 {
				utils.CaptureError(ginErr.Err, map[string]interface{}{
					"endpoint": c.FullPath(),
					"method":   c.Request.Method,
					"status":   status,
				})
			}
		}
	}
}
