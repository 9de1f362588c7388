package accounts

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey string

// accountIDKey is the request context key for the authenticated account ID
const accountIDKey contextKey = "account_id"

// AccountIDFromContext returns the authenticated account ID set by RequireAuth
func AccountIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(accountIDKey).(string)
	return id, ok && id != ""
}

// RequireAuth rejects requests without a valid bearer token and stores the
// token's account ID in the request context for downstream handlers.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeAuthError(w, "missing authorization header")
				return
			}

			raw := strings.TrimPrefix(header, "Bearer ")
			if raw == header || raw == "" {
				writeAuthError(w, "malformed authorization header")
				return
			}

			accountID, err := tokens.Verify(raw)
			if err != nil {
				writeAuthError(w, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), accountIDKey, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
