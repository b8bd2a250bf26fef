// Package ratelimit provides per-source token bucket rate limiting.
//
// Each outbound data source (autocomplete, product pages, the paid volume
// provider) gets its own bucket. Tokens refill continuously based on elapsed
// time, capped at the configured burst, so infrequent callers cannot bank an
// unbounded burst.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/kwscout/kw-scout/internal/pkg/errors"
)

// Clock supplies the current time. Replaceable for deterministic tests.
type Clock func() time.Time

// WaitFunc blocks for the given duration or until the context is done.
// Replaceable for deterministic tests.
type WaitFunc func(ctx context.Context, d time.Duration) error

// Registry holds one token bucket per registered source.
type Registry struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	clock    Clock
	wait     WaitFunc
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(r *Registry) { r.clock = c }
}

// WithWaiter replaces the blocking wait.
func WithWaiter(w WaitFunc) Option {
	return func(r *Registry) { r.wait = w }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		limiters: make(map[string]*rate.Limiter),
		clock:    time.Now,
		wait:     sleepWait,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func sleepWait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Register creates a bucket for a source with the given sustained rate
// (tokens per second) and burst capacity. Re-registering replaces the bucket.
func (r *Registry) Register(source string, perSecond float64, burst int) {
	if burst < 1 {
		burst = 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.limiters[source] = rate.NewLimiter(rate.Limit(perSecond), burst)
}

func (r *Registry) limiter(source string) (*rate.Limiter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lim, ok := r.limiters[source]
	if !ok {
		return nil, errors.ValidationError(
			fmt.Sprintf("no rate limiter registered for source %q", source))
	}
	return lim, nil
}

// Acquire blocks until a token is available for the source, then consumes it.
// Returns early with the context error if ctx is cancelled while waiting;
// the reservation is returned to the bucket in that case.
func (r *Registry) Acquire(ctx context.Context, source string) error {
	lim, err := r.limiter(source)
	if err != nil {
		return err
	}

	now := r.clock()
	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return errors.InternalError("rate reservation rejected", nil)
	}

	delay := res.DelayFrom(now)
	if delay <= 0 {
		return nil
	}

	if err := r.wait(ctx, delay); err != nil {
		res.CancelAt(r.clock())
		return err
	}
	return nil
}

// TryAcquire consumes a token if one is available right now.
func (r *Registry) TryAcquire(source string) bool {
	lim, err := r.limiter(source)
	if err != nil {
		return false
	}
	return lim.AllowN(r.clock(), 1)
}

// Delay reports how long a caller would wait for a token right now,
// without consuming one.
func (r *Registry) Delay(source string) time.Duration {
	lim, err := r.limiter(source)
	if err != nil {
		return 0
	}

	now := r.clock()
	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return 0
	}
	delay := res.DelayFrom(now)
	res.CancelAt(now)
	return delay
}
