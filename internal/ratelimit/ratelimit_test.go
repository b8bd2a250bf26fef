package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock for deterministic tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newTestRegistry wires a registry to a fake clock. Waiting advances the
// clock instead of sleeping, so Acquire never blocks in tests.
func newTestRegistry(clock *fakeClock) *Registry {
	return NewRegistry(
		WithClock(clock.Now),
		WithWaiter(func(_ context.Context, d time.Duration) error {
			clock.Advance(d)
			return nil
		}),
	)
}

func TestTryAcquire_NeverExceedsBurst(t *testing.T) {
	tests := []struct {
		name      string
		perSecond float64
		burst     int
	}{
		{"single token", 1.0, 1},
		{"small burst", 2.0, 3},
		{"large burst", 10.0, 20},
		{"slow refill", 0.5, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			r := newTestRegistry(clock)
			r.Register("src", tt.perSecond, tt.burst)

			granted := 0
			for i := 0; i < tt.burst*3; i++ {
				if r.TryAcquire("src") {
					granted++
				}
			}

			if granted != tt.burst {
				t.Errorf("granted %d tokens without elapsed time, want burst %d", granted, tt.burst)
			}
		})
	}
}

func TestTryAcquire_RefillIsContinuous(t *testing.T) {
	clock := newFakeClock()
	r := newTestRegistry(clock)
	r.Register("src", 2.0, 1) // one token every 500ms

	if !r.TryAcquire("src") {
		t.Fatal("first token should be available")
	}
	if r.TryAcquire("src") {
		t.Fatal("bucket should be empty")
	}

	// Half a token accrues after 250ms; still not enough for a grant.
	clock.Advance(250 * time.Millisecond)
	if r.TryAcquire("src") {
		t.Error("got token after 250ms, want refill at 500ms")
	}

	clock.Advance(250 * time.Millisecond)
	if !r.TryAcquire("src") {
		t.Error("token should be available after 500ms")
	}
}

func TestTryAcquire_RefillCappedAtBurst(t *testing.T) {
	clock := newFakeClock()
	r := newTestRegistry(clock)
	r.Register("src", 10.0, 2)

	// Drain, then idle long enough to bank far more than burst.
	r.TryAcquire("src")
	r.TryAcquire("src")
	clock.Advance(time.Hour)

	granted := 0
	for i := 0; i < 10; i++ {
		if r.TryAcquire("src") {
			granted++
		}
	}
	if granted != 2 {
		t.Errorf("granted %d tokens after long idle, want burst cap 2", granted)
	}
}

func TestDelay_MonotonicInShortage(t *testing.T) {
	clock := newFakeClock()
	r := newTestRegistry(clock)
	r.Register("src", 1.0, 1)

	// Consume the banked token, then build up debt with reservations.
	if err := r.Acquire(context.Background(), "src"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	prev := time.Duration(-1)
	for i := 0; i < 5; i++ {
		d := r.Delay("src")
		if d < prev {
			t.Fatalf("delay %v decreased from %v under constant shortage", d, prev)
		}
		prev = d

		// Deepen the shortage by one token without advancing time.
		wait := r.wait
		r.wait = func(context.Context, time.Duration) error { return nil }
		if err := r.Acquire(context.Background(), "src"); err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		r.wait = wait
	}
}

func TestAcquire_BlocksForRefill(t *testing.T) {
	clock := newFakeClock()
	var waited time.Duration
	r := NewRegistry(
		WithClock(clock.Now),
		WithWaiter(func(_ context.Context, d time.Duration) error {
			waited += d
			clock.Advance(d)
			return nil
		}),
	)
	r.Register("src", 4.0, 1) // 250ms per token

	for i := 0; i < 3; i++ {
		if err := r.Acquire(context.Background(), "src"); err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
	}

	// First acquire is free (banked token); the next two wait 250ms each.
	want := 500 * time.Millisecond
	if waited != want {
		t.Errorf("total wait = %v, want %v", waited, want)
	}
}

func TestAcquire_ContextCancelled(t *testing.T) {
	clock := newFakeClock()
	r := NewRegistry(
		WithClock(clock.Now),
		WithWaiter(func(ctx context.Context, _ time.Duration) error {
			return ctx.Err()
		}),
	)
	r.Register("src", 1.0, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Banked token goes through even with a dead context.
	if err := r.Acquire(ctx, "src"); err != nil {
		t.Fatalf("banked token acquire: %v", err)
	}

	if err := r.Acquire(ctx, "src"); err == nil {
		t.Error("expected context error while waiting for refill")
	}
}

func TestAcquire_UnregisteredSource(t *testing.T) {
	r := NewRegistry()
	if err := r.Acquire(context.Background(), "nope"); err == nil {
		t.Error("expected error for unregistered source")
	}
}
