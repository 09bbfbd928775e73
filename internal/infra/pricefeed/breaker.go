package pricefeed

import (
	"sync"
	"time"
)

// BreakerState is the circuit state guarding the outbound feed.
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // calls pass through
	BreakerOpen                         // calls rejected until the cooldown elapses
	BreakerHalfOpen                     // probing whether the feed recovered
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker stops calling a feed that keeps failing. After threshold
// consecutive failures it opens for cooldown, then admits one probe at a
// time; probes successes close it, one probe failure reopens it.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	probes    int

	state     BreakerState
	failures  int
	successes int
	probing   bool // a half-open call is in flight
	openedAt  time.Time
	trips     int
	now       func() time.Time
}

// NewBreaker creates a closed breaker. threshold <= 0 disables it.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		probes:    1,
		now:       time.Now,
	}
}

// Allow reports whether a call may go out now. While half-open only one
// caller is admitted until it reports Success or Failure.
func (b *Breaker) Allow() bool {
	if b == nil || b.threshold <= 0 {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.stateLocked() {
	case BreakerOpen:
		return false
	case BreakerHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
	}
	return true
}

// Success records a good call.
func (b *Breaker) Success() {
	if b == nil || b.threshold <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.stateLocked() {
	case BreakerHalfOpen:
		b.probing = false
		b.successes++
		if b.successes >= b.probes {
			b.state = BreakerClosed
			b.failures = 0
			b.successes = 0
		}
	case BreakerClosed:
		b.failures = 0
	}
}

// Cancel returns an admitted call that never went out, freeing the
// half-open slot.
func (b *Breaker) Cancel() {
	if b == nil || b.threshold <= 0 {
		return
	}
	b.mu.Lock()
	b.probing = false
	b.mu.Unlock()
}

// Failure records a failed call and may open the circuit.
func (b *Breaker) Failure() {
	if b == nil || b.threshold <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.stateLocked() {
	case BreakerClosed:
		b.failures++
		if b.failures >= b.threshold {
			b.open()
		}
	case BreakerHalfOpen:
		b.open()
	}
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	if b == nil || b.threshold <= 0 {
		return BreakerClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

// Trips returns how many times the breaker has opened.
func (b *Breaker) Trips() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.trips
}

func (b *Breaker) open() {
	b.state = BreakerOpen
	b.openedAt = b.now()
	b.successes = 0
	b.probing = false
	b.trips++
}

// stateLocked moves open to half-open once the cooldown has elapsed.
func (b *Breaker) stateLocked() BreakerState {
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		b.state = BreakerHalfOpen
		b.successes = 0
		b.probing = false
	}
	return b.state
}
