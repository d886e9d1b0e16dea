package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/3xpluto/go-delay-control/internal/app"
	"github.com/3xpluto/go-delay-control/internal/config"
	"github.com/3xpluto/go-delay-control/internal/delay"
	"github.com/3xpluto/go-delay-control/internal/logging"
	"github.com/3xpluto/go-delay-control/internal/mw"
	"github.com/3xpluto/go-delay-control/internal/netx"
)

func main() {
	var configPath string
	var validateOnly bool
	flag.StringVar(&configPath, "config", "", "path to yaml config (defaults and DELAYD_* env when empty)")
	flag.BoolVar(&validateOnly, "validate-config", false, "validate config and exit")
	flag.Parse()

	// .env is optional
	envErr := godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		logging.New("info").Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logging.New(cfg.Log.Level)
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		log.Warn("failed to load .env", slog.String("error", envErr.Error()))
	}

	bounds, err := delay.NewBounds(cfg.Delay.Values())
	if err != nil {
		log.Error("invalid delay bounds", slog.String("error", err.Error()))
		os.Exit(1)
	}

	trusted, err := netx.ParseCIDRSet(cfg.Server.TrustedProxies)
	if err != nil {
		log.Error("invalid server.trusted_proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if validateOnly {
		log.Info("config ok",
			slog.Int("min", bounds.Min),
			slog.Int("max", bounds.Max),
			slog.Int("default", bounds.Default),
			slog.String("store", cfg.Store.Backend),
		)
		return
	}

	// ---- Store (redis falls back to memory when unreachable)
	store, backend := app.OpenStore(context.Background(), cfg.Store, bounds, log)
	defer store.Close()

	// ---- Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc := delay.NewService(store, bounds,
		delay.WithLogger(log),
		delay.WithMetrics(delay.NewMetrics(reg)),
	)

	handler := app.NewMux(app.Deps{
		Config:    cfg,
		Service:   svc,
		Log:       log,
		Registry:  reg,
		IPs:       mw.IPResolver{Trusted: trusted},
		AdminKey:  os.Getenv("DELAYD_ADMIN_KEY"),
		Backend:   backend,
		StartedAt: time.Now(),
	})

	// ---- Server
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Duration(cfg.Server.ReadHeaderTimeoutSeconds) * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.Info("delayd listening",
			slog.String("addr", cfg.Server.Addr),
			slog.String("route", cfg.Server.Route),
			slog.String("store", backend),
			slog.Int("min", bounds.Min),
			slog.Int("max", bounds.Max),
			slog.Int("default", bounds.Default),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("shutdown complete")
}
