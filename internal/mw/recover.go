package mw

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/3xpluto/go-delay-control/internal/httpx"
)

func Recover(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("panic",
					slog.String("rid", RID(r.Context())),
					slog.String("path", r.URL.Path),
					slog.String("panic", fmt.Sprint(rec)),
				)
				httpx.WriteJSON(w, http.StatusInternalServerError, map[string]any{
					"error": "internal_error",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
