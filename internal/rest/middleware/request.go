package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/covionstudio/billing/internal/types"
)

// RequestIDMiddleware attaches a request ID to the context, honoring
// one supplied by the caller.
func RequestIDMiddleware(c *gin.Context) {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
	}

	ctx := types.SetRequestID(c.Request.Context(), requestID)
	ctx = types.SetUserID(ctx, types.DefaultUserID)
	c.Request = c.Request.WithContext(ctx)

	c.Writer.Header().Set("X-Request-ID", requestID)
	c.Next()
}
