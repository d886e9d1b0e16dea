// Package app assembles the delayd HTTP surface: the delay route, the
// browser controller, metrics, health and the admin status endpoint.
package app

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/alexliesenfeld/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/3xpluto/go-delay-control/internal/api"
	"github.com/3xpluto/go-delay-control/internal/config"
	"github.com/3xpluto/go-delay-control/internal/delay"
	"github.com/3xpluto/go-delay-control/internal/httpx"
	"github.com/3xpluto/go-delay-control/internal/mw"
	"github.com/3xpluto/go-delay-control/internal/ui"
)

type Deps struct {
	Config   *config.Config
	Service  *delay.Service
	Log      *slog.Logger
	Registry *prometheus.Registry
	IPs      mw.IPResolver
	AdminKey string
	// Backend is the store actually in use, which differs from the
	// configured one after a redis fallback.
	Backend   string
	StartedAt time.Time
}

func NewMux(d Deps) http.Handler {
	metrics := mw.NewMetrics(d.Registry)
	cfg := d.Config

	wrap := func(routeName string, h http.Handler) http.Handler {
		h = mw.Recover(d.Log, h)
		h = mw.AccessLog(d.Log, d.IPs, h)
		h = mw.Instrument(metrics, h)
		h = mw.WithRoute(h, routeName)
		h = mw.RequestID(h)
		return h
	}

	mux := http.NewServeMux()

	delayHandler := api.NewHandler(d.Service, d.Log)
	mux.Handle(cfg.Server.Route, wrap("delay", mw.MaxBodyBytes(cfg.Server.MaxBodyBytes, delayHandler.Route())))

	if cfg.Server.Route != "/" {
		page, err := ui.Handler(cfg.Server.Route, d.Service.Bounds())
		if err != nil {
			d.Log.Error("controller page disabled", slog.String("error", err.Error()))
		} else {
			mux.Handle("/", wrap("ui", page))
		}
	}

	mux.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))

	checker := health.NewChecker(
		health.WithCacheDuration(1*time.Second),
		health.WithTimeout(3*time.Second),
		health.WithCheck(health.Check{
			Name:    "store",
			Timeout: 2 * time.Second,
			Check:   d.Service.Ping,
		}),
	)
	mux.Handle("/healthz", health.NewHandler(checker))

	mux.Handle("/-/status", wrap("admin_status", mw.RequireAdminKey(d.AdminKey, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, _ := debug.ReadBuildInfo()
		goVer := ""
		if info != nil {
			goVer = info.GoVersion
		}

		out := map[string]any{
			"time_utc":       time.Now().UTC().Format(time.RFC3339),
			"uptime_seconds": int(time.Since(d.StartedAt).Seconds()),
			"listen_addr":    cfg.Server.Addr,
			"route":          cfg.Server.Route,
			"go_version":     goVer,
			"store_backend":  d.Backend,
			"bounds":         d.Service.Bounds(),
		}
		if v, err := d.Service.Get(r.Context()); err == nil {
			out["delay"] = v
		} else {
			out["store_error"] = err.Error()
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}))))

	return mux
}
