package auth

import (
	"context"
	"fmt"
	"net/http"
)

type contextKey string

const staffIDKey contextKey = "staff_id"

// Middleware is the thin staff gate on the admin routes. It verifies the
// HS256 bearer token and stashes the staff id in the request context.
// Identity provisioning lives outside this service; the gate only checks
// the signature.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := ExtractTokenFromRequest(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			staffID, err := VerifyStaffToken(tokenString, secret)
			if err != nil {
				http.Error(w, fmt.Sprintf("invalid token: %v", err), http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), staffIDKey, staffID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StaffIDFromContext returns the authenticated staff id, if any.
func StaffIDFromContext(ctx context.Context) (string, bool) {
	staffID, ok := ctx.Value(staffIDKey).(string)
	return staffID, ok
}
