// Package middleware provides the HTTP middleware chain shared by all
// passgate routes: request ids, panic recovery, request logging, and caller
// authentication.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"passgate/pkg/requestcontext"
)

const requestIDHeader = "X-Request-Id"

// RequestID assigns each request an id (honoring an inbound header) and
// pins the logical request time, so timestamps taken during one operation
// agree.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		ctx = requestcontext.WithNow(ctx, time.Now().UTC())
		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request id set by RequestID.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
