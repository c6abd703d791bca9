package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// CallerValidator verifies a bearer token and returns the caller identity
// it asserts.
type CallerValidator interface {
	ValidateToken(tokenString string) (string, error)
}

type contextKeyCaller struct{}

// GetCaller retrieves the authenticated caller identity from the context.
// Empty when the request did not pass RequireAuth.
func GetCaller(ctx context.Context) string {
	caller, _ := ctx.Value(contextKeyCaller{}).(string)
	return caller
}

// WithCaller injects a caller identity directly. Test helper.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, contextKeyCaller{}, caller)
}

func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":%q,"error_description":%q}`, errCode, errDesc))
}

// RequireAuth authenticates the caller from the Authorization header and
// stores the identity in context. The registry itself decides whether that
// identity is authorized for each operation; this middleware only answers
// "who is calling".
func RequireAuth(validator CallerValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Bearer token required")
				return
			}

			caller, err := validator.ValidateToken(token)
			if err != nil {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx := WithCaller(r.Context(), caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
