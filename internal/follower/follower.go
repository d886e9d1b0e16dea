// Package follower is the consumer side of the delay: it polls the service,
// keeps a locally clamped copy and reports changes.
package follower

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/3xpluto/go-delay-control/internal/delay"
)

type Fetcher interface {
	Get(ctx context.Context) (int, error)
}

type Follower struct {
	src      Fetcher
	bounds   delay.Bounds
	interval time.Duration
	lim      *rate.Limiter
	log      *slog.Logger
	onChange func(prev, cur int)

	mu      sync.RWMutex
	current int
}

type Option func(*Follower)

// WithInterval sets the poll period. Default 1s.
func WithInterval(d time.Duration) Option {
	return func(f *Follower) {
		if d > 0 {
			f.interval = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(f *Follower) {
		if l != nil {
			f.log = l
		}
	}
}

// OnChange registers a callback run from the polling goroutine whenever the
// local value changes.
func OnChange(fn func(prev, cur int)) Option {
	return func(f *Follower) { f.onChange = fn }
}

// New starts from bounds.Default; every fetched value is clamped into bounds.
func New(src Fetcher, bounds delay.Bounds, opts ...Option) *Follower {
	f := &Follower{
		src:      src,
		bounds:   bounds,
		interval: time.Second,
		log:      slog.New(slog.NewJSONHandler(io.Discard, nil)),
		current:  bounds.Clamp(bounds.Default),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.lim = rate.NewLimiter(rate.Every(f.interval), 1)
	return f
}

func (f *Follower) Current() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current
}

// Poll fetches once. On error the local value is kept.
func (f *Follower) Poll(ctx context.Context) (int, bool, error) {
	v, err := f.src.Get(ctx)
	if err != nil {
		return f.Current(), false, err
	}
	v = f.bounds.Clamp(v)

	f.mu.Lock()
	prev := f.current
	f.current = v
	f.mu.Unlock()

	if prev == v {
		return v, false, nil
	}
	f.log.Info("delay_changed", slog.Int("previous", prev), slog.Int("delay", v))
	if f.onChange != nil {
		f.onChange(prev, v)
	}
	return v, true, nil
}

// Run polls until ctx is done.
func (f *Follower) Run(ctx context.Context) error {
	for {
		if err := f.lim.Wait(ctx); err != nil {
			// Wait fails early when the next tick lands past the deadline.
			<-ctx.Done()
			return nil
		}
		if _, _, err := f.Poll(ctx); err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			f.log.Warn("delay_fetch_failed", slog.String("error", err.Error()))
		}
	}
}
