package mw

import (
	"net/http"
	"strings"
)

type CORSConfig struct {
	AllowOrigin  string
	AllowMethods []string
	AllowHeaders []string
}

// DelayCORS is the permissive policy the delay route answers with.
var DelayCORS = CORSConfig{
	AllowOrigin:  "*",
	AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	AllowHeaders: []string{"Content-Type"},
}

// CORS sets the configured headers on every response, preflight included.
// Answering OPTIONS is left to next.
func CORS(cfg CORSConfig, next http.Handler) http.Handler {
	origin := cfg.AllowOrigin
	if origin == "" {
		origin = "*"
	}
	methods := strings.Join(cfg.AllowMethods, ", ")
	headers := strings.Join(cfg.AllowHeaders, ", ")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		if methods != "" {
			h.Set("Access-Control-Allow-Methods", methods)
		}
		if headers != "" {
			h.Set("Access-Control-Allow-Headers", headers)
		}
		next.ServeHTTP(w, r)
	})
}
