package middleware

import (
	"github.com/gin-gonic/gin"

	ierr "github.com/covionstudio/billing/internal/errors"
	"github.com/covionstudio/billing/internal/logger"
)

// ErrorHandler converts errors attached via c.Error into the API error
// shape. Handlers attach domain errors and return; this is the only
// place status codes are decided.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status := ierr.HTTPStatusFromErr(err)

		log.Errorw("request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"error", err,
		)

		c.AbortWithStatusJSON(status, ierr.NewErrorResponse(err))
	}
}
