// Package trace carries the per-request correlation id and propagates it,
// together with the active otel span context, onto outbound requests.
package trace

import (
	"context"
	nethttp "net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"

	// HeaderXRequestID is the header carrying the correlation id
	HeaderXRequestID = "X-Request-ID"
)

// WithRequestID stores a request id in the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request id stored in ctx, if any
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		return id, true
	}
	return "", false
}

// EnsureRequestID returns the request id from ctx or a new uuid.
func EnsureRequestID(ctx context.Context) string {
	if id, ok := RequestIDFromContext(ctx); ok {
		return id
	}
	return uuid.NewString()
}

// Inject writes the request id under header (HeaderXRequestID when empty)
// unless the header is already set, then lets the global otel propagator add
// its own headers (traceparent with the default W3C propagator).
func Inject(ctx context.Context, h nethttp.Header, header, requestID string) {
	if header == "" {
		header = HeaderXRequestID
	}
	if h.Get(header) == "" && requestID != "" {
		h.Set(header, requestID)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(h))
}
