package timer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func staticSource(v int64) TimeSource {
	return func(context.Context) (int64, error) { return v, nil }
}

func TestCountdownTicksDown(t *testing.T) {
	var mu sync.Mutex
	var seen []int64

	c := New(staticSource(3), Options{
		TickInterval: 5 * time.Millisecond,
		OnTick: func(remaining int64) {
			mu.Lock()
			seen = append(seen, remaining)
			mu.Unlock()
		},
		OnExpire: func() {},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	go func() {
		time.Sleep(60 * time.Millisecond)
		c.MarkSubmitted()
	}()
	if err := c.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) < 3 {
		t.Fatalf("too few ticks: %v", seen)
	}
	if seen[0] != 3 {
		t.Fatalf("first tick = %d, want seeded 3", seen[0])
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] != seen[i-1]-1 {
			t.Fatalf("non-monotonic ticks: %v", seen)
		}
	}
}

func TestCountdownExpiresExactlyOnce(t *testing.T) {
	var expired atomic.Int32
	c := New(staticSource(2), Options{TickInterval: 2 * time.Millisecond})
	c.opts.OnExpire = func() {
		expired.Add(1)
		c.MarkSubmitted()
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := expired.Load(); got != 1 {
		t.Fatalf("expired %d times, want 1", got)
	}
	if c.State() != StateSubmitted {
		t.Fatalf("state = %q, want submitted", c.State())
	}
}

func TestCountdownExpiresImmediatelyWhenWindowClosed(t *testing.T) {
	var expired atomic.Int32
	c := New(staticSource(-5), Options{TickInterval: time.Minute})
	c.opts.OnExpire = func() {
		expired.Add(1)
		c.MarkSubmitted()
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := expired.Load(); got != 1 {
		t.Fatalf("expired %d times, want 1", got)
	}
}

func TestCountdownSnapsOnLargeDrift(t *testing.T) {
	var server atomic.Int64
	server.Store(1000)
	source := func(context.Context) (int64, error) { return server.Load(), nil }

	c := New(source, Options{
		TickInterval:  time.Hour, // isolate resync behavior
		SyncInterval:  5 * time.Millisecond,
		SnapTolerance: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()

	time.Sleep(20 * time.Millisecond) // seeded at 1000
	server.Store(100)                 // server clock jumps far from local
	time.Sleep(30 * time.Millisecond) // at least one resync observes it
	c.MarkSubmitted()

	if err := <-errCh; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := c.Remaining(); got != 100 {
		t.Fatalf("remaining = %d, want snapped to 100", got)
	}
}

func TestCountdownIgnoresSmallDrift(t *testing.T) {
	calls := atomic.Int32{}
	source := func(context.Context) (int64, error) {
		if calls.Add(1) == 1 {
			return 100, nil
		}
		return 101, nil // within the 2s tolerance
	}

	c := New(source, Options{
		TickInterval:  time.Hour,
		SyncInterval:  5 * time.Millisecond,
		SnapTolerance: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	go func() {
		time.Sleep(40 * time.Millisecond)
		c.MarkSubmitted()
	}()
	if err := c.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := c.Remaining(); got != 100 {
		t.Fatalf("remaining = %d, want 100 (no snap)", got)
	}
}

func TestCountdownInitialFetchFailure(t *testing.T) {
	wantErr := errors.New("source down")
	c := New(func(context.Context) (int64, error) { return 0, wantErr }, Options{})

	if err := c.Run(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want source failure", err)
	}
}

func TestCountdownStopsOnContextCancel(t *testing.T) {
	c := New(staticSource(1000), Options{TickInterval: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestCountdownNoTicksAfterSubmitted(t *testing.T) {
	c := New(staticSource(50), Options{TickInterval: 2 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go func() {
		time.Sleep(20 * time.Millisecond)
		c.MarkSubmitted()
	}()
	if err := c.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	frozen := c.Remaining()
	c.step(-1)
	if c.Remaining() != frozen {
		t.Fatal("countdown moved after submission")
	}
}
