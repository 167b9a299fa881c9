package logger

import (
	"context"
	"log/slog"
)

const requestIDAttr = "request_id"

type requestIDKey struct{}

// ContextWithRequestID stores the request id for later extraction by
// RequestIDExtractor.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request id stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// RequestIDExtractor returns a ContextExtractor adding "request_id" to every
// record logged with a request context.
func RequestIDExtractor() ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if v := RequestIDFromContext(ctx); v != "" {
			return slog.String(requestIDAttr, v), true
		}
		return slog.Attr{}, false
	}
}
