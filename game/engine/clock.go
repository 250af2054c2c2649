package engine

import (
	"sort"
	"sync"
	"time"
)

// Timer is a scheduled callback that can be cancelled
type Timer interface {
	Stop() bool
}

// Clock abstracts wall-clock time and callback scheduling
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemClock is the real clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ManualClock is a Clock that only moves when Advance is called.
// Callbacks run on the goroutine calling Advance.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	clock    *ManualClock
	deadline time.Time
	seq      int
	f        func()
	done     bool
}

// NewManualClock creates a clock frozen at start
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &manualTimer{clock: c, deadline: c.now.Add(d), seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by d, firing every timer that comes due in
// deadline order. Timers scheduled by callbacks fire too if they fall inside d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		next := c.nextDueLocked(target)
		if next == nil {
			break
		}
		next.done = true
		c.now = next.deadline
		c.mu.Unlock()
		next.f()
		c.mu.Lock()
	}
	c.now = target
	c.compactLocked()
	c.mu.Unlock()
}

// Pending returns the number of timers that have neither fired nor been stopped
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.done {
			n++
		}
	}
	return n
}

func (c *ManualClock) nextDueLocked(target time.Time) *manualTimer {
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.done && !t.deadline.After(target) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].deadline.Equal(due[j].deadline) {
			return due[i].seq < due[j].seq
		}
		return due[i].deadline.Before(due[j].deadline)
	})
	return due[0]
}

func (c *ManualClock) compactLocked() {
	live := c.timers[:0]
	for _, t := range c.timers {
		if !t.done {
			live = append(live, t)
		}
	}
	c.timers = live
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}
