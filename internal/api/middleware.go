// Package api implements the Skald REST API using chi.
package api

import (
	"net/http"
	"strings"

	"github.com/halvard/skald/internal/apperr"
)

// AuthMiddleware returns middleware that validates the interactive
// client's static Bearer token. If enabled is false, all requests pass
// through (disabled mode for local single-user setups).
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				writeError(w, apperr.New(apperr.CodeMissingAuthHeader, "missing or malformed Authorization header"))
				return
			}
			if strings.TrimPrefix(auth, "Bearer ") != token {
				writeError(w, apperr.New(apperr.CodeInvalidToken, "invalid token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
