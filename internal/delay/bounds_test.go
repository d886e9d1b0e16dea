package delay

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClamp(t *testing.T) {
	b, err := NewBounds(100, 2000, 700)
	require.NoError(t, err)

	for v := -50; v <= 2100; v += 7 {
		want := v
		if want < 100 {
			want = 100
		}
		if want > 2000 {
			want = 2000
		}
		assert.Equal(t, want, b.Clamp(v), "clamp(%d)", v)
	}
	assert.Equal(t, 100, b.Clamp(99))
	assert.Equal(t, 2000, b.Clamp(2001))
	assert.Equal(t, 100, b.Clamp(100))
	assert.Equal(t, 2000, b.Clamp(2000))
}

func TestNewBoundsRejectsInvalid(t *testing.T) {
	_, err := NewBounds(10, 5, 7)
	assert.True(t, errors.Is(err, ErrInvalidBounds))

	_, err = NewBounds(1, 7, 9)
	assert.True(t, errors.Is(err, ErrInvalidBounds))

	b, err := NewBounds(5, 5, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, b.Clamp(-1000))
}
