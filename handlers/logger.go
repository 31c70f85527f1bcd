package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nahio/utils"
)

// getLogger retrieves the request-scoped logger from the Gin context, falling
// back to the process logger.
func getLogger(c *gin.Context) *zap.Logger {
	if l, exists := c.Get("logger"); exists {
		if logger, ok := l.(*zap.Logger); ok {
			return logger
		}
	}
	return utils.GetLogger()
}
