// Package api serves the delay route: GET reads, POST writes, OPTIONS
// answers CORS preflight. Malformed writes leave the value unchanged and
// still answer 200.
package api

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/3xpluto/go-delay-control/internal/delay"
	"github.com/3xpluto/go-delay-control/internal/httpx"
	"github.com/3xpluto/go-delay-control/internal/mw"
)

// Response is the body of every successful GET and POST.
type Response struct {
	Delay int `json:"delay"`
}

var allowedMethods = strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodOptions}, ", ")

type Handler struct {
	svc *delay.Service
	log *slog.Logger
}

func NewHandler(svc *delay.Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Route returns the handler wrapped in the route's CORS policy.
func (h *Handler) Route() http.Handler {
	return mw.CORS(mw.DelayCORS, h)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

	case http.MethodGet:
		v, err := h.svc.Get(r.Context())
		if err != nil {
			h.storeUnavailable(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, Response{Delay: v})

	case http.MethodPost:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			// unreadable or oversized bodies count as an empty object
			h.log.Debug("delay_body_unreadable",
				slog.String("rid", mw.RID(r.Context())),
				slog.String("error", err.Error()),
			)
			body = nil
		}
		res, err := h.svc.Apply(r.Context(), delay.DecodeUpdate(body))
		if err != nil {
			h.storeUnavailable(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, Response{Delay: res.Value})

	default:
		w.Header().Set("Allow", allowedMethods)
		httpx.WriteJSON(w, http.StatusMethodNotAllowed, map[string]any{
			"error":  "method_not_allowed",
			"method": r.Method,
		})
	}
}

func (h *Handler) storeUnavailable(w http.ResponseWriter, r *http.Request, err error) {
	h.log.Error("delay_store_error",
		slog.String("rid", mw.RID(r.Context())),
		slog.String("method", r.Method),
		slog.String("error", err.Error()),
	)
	httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
		"error": "store_unavailable",
	})
}
