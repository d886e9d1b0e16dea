// Package delay holds the single bounded delay value: clamping rules,
// candidate parsing, the stores that own the value and the service that
// applies updates to them.
package delay

import (
	"errors"
	"fmt"
)

var ErrInvalidBounds = errors.New("invalid delay bounds")

// Bounds is the inclusive range a delay must lie in, plus the value used at startup.
type Bounds struct {
	Min     int `json:"min"`
	Max     int `json:"max"`
	Default int `json:"default"`
}

func NewBounds(min, max, def int) (Bounds, error) {
	b := Bounds{Min: min, Max: max, Default: def}
	if err := b.Validate(); err != nil {
		return Bounds{}, err
	}
	return b, nil
}

func (b Bounds) Validate() error {
	if b.Min > b.Max {
		return fmt.Errorf("%w: min %d > max %d", ErrInvalidBounds, b.Min, b.Max)
	}
	if !b.Contains(b.Default) {
		return fmt.Errorf("%w: default %d outside [%d, %d]", ErrInvalidBounds, b.Default, b.Min, b.Max)
	}
	return nil
}

// Clamp saturates v into [Min, Max].
func (b Bounds) Clamp(v int) int {
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

func (b Bounds) Contains(v int) bool { return v >= b.Min && v <= b.Max }
