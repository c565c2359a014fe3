package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	defaultMaxRequests = 60
	defaultWindow      = 5 * time.Minute
)

// Limiter gates outgoing requests to at most maxRequests within a trailing
// window. Stale timestamps are evicted lazily on each admission check, never
// eagerly.
type Limiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	stamps      []time.Time

	now     func() time.Time
	sleeper func(context.Context, time.Duration) error
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithSleeper overrides how admission waits are performed (useful for tests).
func WithSleeper(sleeper func(context.Context, time.Duration) error) Option {
	return func(l *Limiter) {
		if sleeper != nil {
			l.sleeper = sleeper
		}
	}
}

// New constructs a Limiter. Non-positive maxRequests or window fall back to
// the service defaults (60 requests per 5 minutes).
func New(maxRequests int, window time.Duration, opts ...Option) *Limiter {
	if maxRequests <= 0 {
		maxRequests = defaultMaxRequests
	}
	if window <= 0 {
		window = defaultWindow
	}
	limiter := &Limiter{
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
	limiter.sleeper = limiter.sleepContext
	for _, opt := range opts {
		opt(limiter)
	}
	return limiter
}

// Admit blocks until issuing one more request would not exceed the limit,
// then records the current timestamp and returns. The wait is bounded by the
// window but interruptible through ctx. Callers queue FIFO by arrival on the
// internal lock.
func (l *Limiter) Admit(ctx context.Context) error {
	if l == nil {
		return errors.New("ratelimit: nil limiter")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		now := l.now()
		l.evict(now)
		if len(l.stamps) < l.maxRequests {
			l.stamps = append(l.stamps, now)
			return nil
		}
		wait := l.window - now.Sub(l.stamps[0])
		if wait <= 0 {
			continue
		}
		if err := l.sleeper(ctx, wait); err != nil {
			return err
		}
	}
}

// Pending reports how many timestamps currently sit inside the window.
func (l *Limiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evict(l.now())
	return len(l.stamps)
}

// evict drops timestamps older than the trailing window. Callers must hold mu.
func (l *Limiter) evict(now time.Time) {
	cutoff := now.Add(-l.window)
	idx := 0
	for idx < len(l.stamps) && !l.stamps[idx].After(cutoff) {
		idx++
	}
	if idx > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[idx:]...)
	}
}

func (l *Limiter) sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
