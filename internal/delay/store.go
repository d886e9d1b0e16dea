package delay

import "context"

// Store owns the current delay and keeps it inside its bounds.
type Store interface {
	Get(ctx context.Context) (int, error)
	// Swap clamps v, stores it and returns the previous and the stored value.
	Swap(ctx context.Context, v int) (prev int, cur int, err error)
	Ping(ctx context.Context) error
	Close() error
}
