// Command blinker stands in for the device that consumes the delay: it
// follows the service and toggles a simulated LED at the current delay.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/3xpluto/go-delay-control/internal/client"
	"github.com/3xpluto/go-delay-control/internal/delay"
	"github.com/3xpluto/go-delay-control/internal/follower"
	"github.com/3xpluto/go-delay-control/internal/logging"
)

func main() {
	var (
		server   string
		route    string
		poll     time.Duration
		minMs    int
		maxMs    int
		startMs  int
		logLevel string
	)
	flag.StringVar(&server, "server", "http://127.0.0.1:8080", "delayd base url")
	flag.StringVar(&route, "route", "/api/delay", "delay route")
	flag.DurationVar(&poll, "poll", time.Second, "poll interval")
	flag.IntVar(&minMs, "min", 100, "local minimum delay (ms)")
	flag.IntVar(&maxMs, "max", 20000, "local maximum delay (ms)")
	flag.IntVar(&startMs, "start", 2000, "delay used until the first successful poll (ms)")
	flag.StringVar(&logLevel, "log-level", "info", "debug|info|warn|error")
	flag.Parse()

	log := logging.New(logLevel)

	bounds, err := delay.NewBounds(minMs, maxMs, startMs)
	if err != nil {
		log.Error("invalid local bounds", slog.String("error", err.Error()))
		os.Exit(1)
	}

	c, err := client.New(server, route)
	if err != nil {
		log.Error("invalid server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	f := follower.New(c, bounds,
		follower.WithInterval(poll),
		follower.WithLogger(log),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := f.Run(ctx); err != nil {
			log.Error("follower stopped", slog.String("error", err.Error()))
		}
	}()

	log.Info("blinker started", slog.String("endpoint", c.Endpoint()), slog.Int("delay", f.Current()))

	led := false
	timer := time.NewTimer(time.Duration(f.Current()) * time.Millisecond)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("blinker stopped")
			return
		case <-timer.C:
			led = !led
			d := f.Current()
			log.Debug("led", slog.Bool("on", led), slog.Int("delay", d))
			timer.Reset(time.Duration(d) * time.Millisecond)
		}
	}
}
