package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/ubi-mobility/payment-core/internal/types"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderActorID   = "X-Actor-ID"
)

// RequestIDMiddleware propagates or mints a request ID and records the
// calling actor for mutation attribution.
func RequestIDMiddleware(c *gin.Context) {
	ctx := c.Request.Context()

	requestID := c.GetHeader(HeaderRequestID)
	if requestID == "" {
		requestID = types.GenerateUUID()
	}
	ctx = types.SetRequestID(ctx, requestID)

	if actorID := c.GetHeader(HeaderActorID); actorID != "" {
		ctx = types.SetUserID(ctx, actorID)
	}

	c.Request = c.Request.WithContext(ctx)
	c.Header(HeaderRequestID, requestID)

	c.Next()
}
