package delay

import (
	"context"
	"io"
	"log/slog"
)

type Outcome string

const (
	OutcomeApplied Outcome = "applied" // stored as requested
	OutcomeClamped Outcome = "clamped" // stored after saturating into bounds
	OutcomeInvalid Outcome = "invalid" // non-numeric, value kept
	OutcomeAbsent  Outcome = "absent"  // no delay field, value kept
)

type Result struct {
	Value    int
	Previous int
	Outcome  Outcome
}

// Service applies decoded updates to a Store.
type Service struct {
	store   Store
	bounds  Bounds
	log     *slog.Logger
	metrics *Metrics
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store Store, b Bounds, opts ...Option) *Service {
	s := &Service{
		store:  store,
		bounds: b,
		log:    slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Bounds() Bounds { return s.bounds }

func (s *Service) Get(ctx context.Context) (int, error) {
	v, err := s.store.Get(ctx)
	if err != nil {
		return 0, err
	}
	s.metrics.observe(v, "")
	return v, nil
}

// Set interprets an arbitrary candidate and returns the value now stored.
func (s *Service) Set(ctx context.Context, candidate any) (int, error) {
	res, err := s.Apply(ctx, UpdateFrom(candidate))
	return res.Value, err
}

func (s *Service) Apply(ctx context.Context, u Update) (Result, error) {
	if u.State != FieldValue {
		cur, err := s.store.Get(ctx)
		if err != nil {
			return Result{}, err
		}
		outcome := OutcomeAbsent
		if u.State == FieldInvalid {
			outcome = OutcomeInvalid
		}
		s.log.Debug("delay_update_ignored",
			slog.String("outcome", string(outcome)),
			slog.Int("delay", cur),
		)
		s.metrics.observe(cur, outcome)
		return Result{Value: cur, Previous: cur, Outcome: outcome}, nil
	}

	prev, cur, err := s.store.Swap(ctx, u.Value)
	if err != nil {
		return Result{}, err
	}
	outcome := OutcomeApplied
	if cur != u.Value {
		outcome = OutcomeClamped
	}
	s.log.Info("delay_updated",
		slog.Int("previous", prev),
		slog.Int("delay", cur),
		slog.Int("requested", u.Value),
		slog.String("outcome", string(outcome)),
	)
	s.metrics.observe(cur, outcome)
	return Result{Value: cur, Previous: prev, Outcome: outcome}, nil
}

func (s *Service) Ping(ctx context.Context) error { return s.store.Ping(ctx) }
