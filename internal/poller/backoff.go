package poller

import "time"

// Backoff is a linear delay schedule with an upper bound.
type Backoff struct {
	Base time.Duration
	Step time.Duration
	Max  time.Duration
}

// DefaultBackoff starts at one second, adds half a second per attempt and
// stops growing at five seconds.
func DefaultBackoff() Backoff {
	return Backoff{
		Base: time.Second,
		Step: 500 * time.Millisecond,
		Max:  5 * time.Second,
	}
}

// Delay returns min(Max, Base + attempt*Step). Negative attempts count as 0.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := b.Base + time.Duration(attempt)*b.Step
	// The second check catches overflow on very large attempt counts.
	if d > b.Max || d < b.Base {
		return b.Max
	}
	return d
}

func (b Backoff) valid() bool {
	return b.Base > 0 && b.Step >= 0 && b.Max >= b.Base
}
