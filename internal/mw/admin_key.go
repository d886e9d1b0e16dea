package mw

import (
	"crypto/subtle"
	"net/http"

	"github.com/3xpluto/go-delay-control/internal/httpx"
)

const AdminKeyHeader = "X-Admin-Key"

func RequireAdminKey(adminKey string, next http.Handler) http.Handler {
	// If no key configured, do not expose admin endpoints at all.
	if adminKey == "" {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		})
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(AdminKeyHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(adminKey)) != 1 {
			httpx.WriteJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
