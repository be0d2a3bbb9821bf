package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appcontext "brauer/internal/core/context"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

// Trace attaches a TraceContext to the request. Incoming X-Request-ID and
// X-Trace-ID headers are honored so callers can correlate across services,
// missing values are generated.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		traceID := c.GetHeader(HeaderTraceID)
		if traceID == "" {
			traceID = requestID
		}

		tc := &appcontext.TraceContext{
			TraceID:   traceID,
			RequestID: requestID,
		}

		ctx := appcontext.WithTrace(c.Request.Context(), tc)
		c.Request = c.Request.WithContext(ctx)

		c.Set("request_id", requestID)
		c.Header(HeaderRequestID, requestID)
		c.Header(HeaderTraceID, traceID)

		c.Next()
	}
}
