package poller

import "time"

// Timer is a pending callback that can be disarmed.
type Timer interface {
	// Stop prevents the callback from firing. It reports false if the
	// callback already fired or was already stopped.
	Stop() bool
}

// Clock schedules delayed callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
