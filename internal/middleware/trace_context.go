package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// TraceContext tags each request with a request id and trace id, echoed back
// in response headers and picked up by RequestLogger.
func TraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if reqID == "" {
			reqID = uuid.NewString()
		}

		var traceID string
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		}

		c.Set("request_id", reqID)
		c.Writer.Header().Set(headerRequestID, reqID)
		if traceID != "" {
			c.Set("trace_id", traceID)
			c.Writer.Header().Set(headerTraceID, traceID)
		}
		c.Next()
	}
}
