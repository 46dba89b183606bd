package poller

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelay(t *testing.T) {
	b := DefaultBackoff()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: -3, want: time.Second},
		{attempt: 0, want: time.Second},
		{attempt: 1, want: 1500 * time.Millisecond},
		{attempt: 2, want: 2 * time.Second},
		{attempt: 7, want: 4500 * time.Millisecond},
		{attempt: 8, want: 5 * time.Second},
		{attempt: 10, want: 5 * time.Second},
		{attempt: 1000, want: 5 * time.Second},
		{attempt: math.MaxInt, want: 5 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, b.Delay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestBackoffDelayIsNonDecreasing(t *testing.T) {
	b := DefaultBackoff()
	prev := b.Delay(0)
	for attempt := 1; attempt < 50; attempt++ {
		d := b.Delay(attempt)
		assert.GreaterOrEqual(t, d, prev)
		assert.GreaterOrEqual(t, d, b.Base)
		assert.LessOrEqual(t, d, b.Max)
		prev = d
	}
}

func TestWithBackoffIgnoresInvalidSchedules(t *testing.T) {
	invalid := []Backoff{
		{Base: 0, Step: time.Millisecond, Max: time.Second},
		{Base: time.Second, Step: -time.Millisecond, Max: 2 * time.Second},
		{Base: 2 * time.Second, Step: time.Millisecond, Max: time.Second},
	}
	for _, b := range invalid {
		p := New(nil, WithBackoff(b))
		assert.Equal(t, DefaultBackoff(), p.backoff)
	}

	custom := Backoff{Base: 10 * time.Millisecond, Step: 0, Max: 10 * time.Millisecond}
	p := New(nil, WithBackoff(custom))
	assert.Equal(t, custom, p.backoff)
}
