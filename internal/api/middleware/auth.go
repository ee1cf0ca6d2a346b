package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rservers/RightClaw-Build/internal/api/response"
)

// APIKey returns a middleware that requires the shared hook secret in the
// X-API-Key header (or as a bearer token). An empty secret rejects every
// request.
func APIKey(secret string) func(http.Handler) http.Handler {
	want := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = extractAPIKey(r)
			}
			if key == "" {
				response.WriteError(w, http.StatusUnauthorized, "missing API key")
				return
			}
			if len(want) == 0 || subtle.ConstantTimeCompare([]byte(key), want) != 1 {
				response.WriteError(w, http.StatusUnauthorized, "invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractAPIKey reads a bearer token from the Authorization header.
func extractAPIKey(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
