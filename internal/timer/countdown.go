// Package timer implements the exam countdown state machine that drives
// per-connection timers: locally ticking remaining time, periodic
// reconciliation against the server-authoritative clock, and a fire-once
// expiry transition.
package timer

import (
	"context"
	"sync"
	"time"
)

// State is the lifecycle phase of a countdown.
type State string

const (
	// StateRunning: the countdown is ticking normally.
	StateRunning State = "running"
	// StateExpiring: time hit zero and the expiry callback has fired; the
	// submission it triggered is still in flight.
	StateExpiring State = "expiring"
	// StateSubmitted: terminal. The session is finished and the countdown
	// never resumes.
	StateSubmitted State = "submitted"
)

// TimeSource returns the authoritative remaining seconds, typically from the
// server's time-check path. May be negative once the window has closed.
type TimeSource func(ctx context.Context) (int64, error)

// Options tune a countdown. Zero values take the production defaults.
type Options struct {
	// TickInterval is the local decrement cadence.
	TickInterval time.Duration
	// SyncInterval is how often the countdown reconciles with the TimeSource.
	SyncInterval time.Duration
	// SnapTolerance is the maximum local drift tolerated before a resync
	// snaps the countdown to the server value. Small drifts are ignored so
	// the display never visibly jumps over network jitter.
	SnapTolerance time.Duration
	// OnTick is invoked after every local decrement and every snap.
	OnTick func(remaining int64)
	// OnExpire is invoked exactly once, when remaining first reaches zero.
	OnExpire func()
}

const (
	defaultTickInterval  = time.Second
	defaultSyncInterval  = 30 * time.Minute
	defaultSnapTolerance = 2 * time.Second
)

// Countdown is one exam timer. Safe for concurrent use.
type Countdown struct {
	source TimeSource
	opts   Options

	mu        sync.Mutex
	remaining int64
	state     State

	done chan struct{}
	once sync.Once
}

// New creates a countdown in the running state. Call Run to start it ticking.
func New(source TimeSource, opts Options) *Countdown {
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	if opts.SyncInterval <= 0 {
		opts.SyncInterval = defaultSyncInterval
	}
	if opts.SnapTolerance <= 0 {
		opts.SnapTolerance = defaultSnapTolerance
	}
	return &Countdown{
		source: source,
		opts:   opts,
		state:  StateRunning,
		done:   make(chan struct{}),
	}
}

// Run seeds the countdown from the TimeSource and ticks until the context is
// cancelled or the countdown is marked submitted. The initial fetch is
// mandatory: without an authoritative baseline the countdown must not start.
func (c *Countdown) Run(ctx context.Context) error {
	remaining, err := c.source(ctx)
	if err != nil {
		return err
	}
	c.setRemaining(remaining)

	tick := time.NewTicker(c.opts.TickInterval)
	defer tick.Stop()
	sync := time.NewTicker(c.opts.SyncInterval)
	defer sync.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case <-tick.C:
			c.step(-1)
		case <-sync.C:
			c.resync(ctx)
		}
	}
}

// Remaining returns the current remaining seconds.
func (c *Countdown) Remaining() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// State returns the current lifecycle phase.
func (c *Countdown) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// MarkSubmitted moves the countdown to its terminal state and stops Run.
// Called once the triggered submission has completed (or was found already
// done). Idempotent.
func (c *Countdown) MarkSubmitted() {
	c.mu.Lock()
	c.state = StateSubmitted
	c.mu.Unlock()
	c.once.Do(func() { close(c.done) })
}

// step applies a local decrement.
func (c *Countdown) step(delta int64) {
	c.apply(func(remaining int64) int64 { return remaining + delta })
}

// resync reconciles against the TimeSource. Fetch failures are ignored; the
// local tick keeps the countdown moving until the next attempt.
func (c *Countdown) resync(ctx context.Context) {
	server, err := c.source(ctx)
	if err != nil {
		return
	}
	tolerance := int64(c.opts.SnapTolerance / time.Second)
	c.apply(func(local int64) int64 {
		drift := server - local
		if drift < 0 {
			drift = -drift
		}
		if drift > tolerance {
			return server
		}
		return local
	})
}

// apply mutates remaining under the lock and handles the expiry edge. The
// expiry callback fires outside the lock, exactly once, on the transition
// that first brings remaining to zero or below while still running.
func (c *Countdown) apply(f func(int64) int64) {
	c.mu.Lock()
	if c.state == StateSubmitted {
		c.mu.Unlock()
		return
	}
	c.remaining = f(c.remaining)
	remaining := c.remaining
	expired := remaining <= 0 && c.state == StateRunning
	if expired {
		c.state = StateExpiring
	}
	onTick := c.opts.OnTick
	onExpire := c.opts.OnExpire
	c.mu.Unlock()

	if onTick != nil {
		onTick(remaining)
	}
	if expired && onExpire != nil {
		onExpire()
	}
}

// setRemaining seeds the initial value, handling a window that has already
// closed by expiring immediately.
func (c *Countdown) setRemaining(v int64) {
	c.apply(func(int64) int64 { return v })
}
