// Package middleware implements the gin middleware chain: request ids,
// request logging, JWT authentication, and per-caller rate limiting.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/riskpulse/pkg/constants"
)

// RequestID propagates the inbound X-Request-ID or generates one, storing it
// in the request context and echoing it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(constants.HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(c.Request.Context(), constants.ContextKeyRequestID, requestID)
		if span := trace.SpanContextFromContext(ctx); span.HasTraceID() {
			ctx = context.WithValue(ctx, constants.ContextKeyTraceID, span.TraceID().String())
		}
		c.Request = c.Request.WithContext(ctx)

		c.Header(constants.HeaderRequestID, requestID)
		c.Next()
	}
}
