package ctxmanage

import (
	"context"

	"github.com/gin-gonic/gin"
)

type key int

// TraceIdKey is the context key under which the per-request trace id lives.
const TraceIdKey key = 1

// GetTraceIdOfRequest returns the trace id injected by the logger middleware.
// Returns "unknown" when the middleware did not run (e.g. direct handler tests).
func GetTraceIdOfRequest(c *gin.Context) string {
	ctx := c.Request.Context()
	traceId, ok := ctx.Value(TraceIdKey).(string)
	if !ok {
		return "unknown"
	}
	return traceId
}

// WithTraceId stores the trace id on the given context.
func WithTraceId(ctx context.Context, traceId string) context.Context {
	return context.WithValue(ctx, TraceIdKey, traceId)
}
