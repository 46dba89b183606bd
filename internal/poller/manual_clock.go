package poller

import (
	"sort"
	"sync"
	"time"
)

// ManualClock is a Clock driven explicitly by tests. Callbacks run
// synchronously on the goroutine that advances the clock.
type ManualClock struct {
	mu        sync.Mutex
	now       time.Time
	seq       int
	timers    []*manualTimer
	scheduled []time.Duration
}

type manualTimer struct {
	clock   *ManualClock
	at      time.Time
	seq     int
	f       func()
	stopped bool
	fired   bool
}

// NewManualClock returns a clock starting at an arbitrary fixed instant.
func NewManualClock() *ManualClock {
	return &ManualClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// AfterFunc implements Clock.
func (c *ManualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	t := &manualTimer{clock: c, at: c.now.Add(d), seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	c.scheduled = append(c.scheduled, d)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward by d, firing every timer that comes due in
// order, including timers armed by callbacks during the advance.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextLocked()
		if next == nil || next.at.After(target) {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.at
		next.fired = true
		c.mu.Unlock()

		next.f()
	}
}

// FireNext advances to the earliest armed timer and fires it. It reports
// false when nothing is armed.
func (c *ManualClock) FireNext() bool {
	c.mu.Lock()
	next := c.nextLocked()
	if next == nil {
		c.mu.Unlock()
		return false
	}
	c.now = next.at
	next.fired = true
	c.mu.Unlock()

	next.f()
	return true
}

// Armed returns the number of timers that are neither stopped nor fired.
func (c *ManualClock) Armed() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Scheduled returns every delay passed to AfterFunc, in call order.
func (c *ManualClock) Scheduled() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.scheduled...)
}

// Now returns the clock's current time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) nextLocked() *manualTimer {
	live := c.timers[:0]
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	c.timers = live
	if len(live) == 0 {
		return nil
	}
	sort.SliceStable(live, func(i, j int) bool {
		if live[i].at.Equal(live[j].at) {
			return live[i].seq < live[j].seq
		}
		return live[i].at.Before(live[j].at)
	})
	return live[0]
}
