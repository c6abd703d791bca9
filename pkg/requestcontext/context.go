// Package requestcontext carries per-request values (request id, request
// time) through context so services can stamp audit events and timestamps
// without reaching into transport types.
package requestcontext

import (
	"context"
	"time"
)

type requestIDKey struct{}
type requestTimeKey struct{}

// WithRequestID stores the request id for downstream consumers.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request id or "" when none is set.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WithNow pins the logical request time. All timestamps taken during one
// operation then agree with each other.
func WithNow(ctx context.Context, now time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, now)
}

// Now returns the pinned request time, falling back to the wall clock.
func Now(ctx context.Context) time.Time {
	if now, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return now
	}
	return time.Now()
}
