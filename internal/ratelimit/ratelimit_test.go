package ratelimit_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"uptone/internal/ratelimit"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
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

func newTestLimiter(maxRequests int, window time.Duration) (*ratelimit.Limiter, *fakeClock, *[]time.Duration) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	sleeps := &[]time.Duration{}
	limiter := ratelimit.New(maxRequests, window,
		ratelimit.WithClock(clock.Now),
		ratelimit.WithSleeper(func(_ context.Context, d time.Duration) error {
			*sleeps = append(*sleeps, d)
			clock.Advance(d)
			return nil
		}),
	)
	return limiter, clock, sleeps
}

func TestAdmitUnderLimitDoesNotSleep(t *testing.T) {
	limiter, _, sleeps := newTestLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		if err := limiter.Admit(context.Background()); err != nil {
			t.Fatalf("admit %d: %v", i, err)
		}
	}
	if len(*sleeps) != 0 {
		t.Fatalf("expected no sleeps, got %v", *sleeps)
	}
	if got := limiter.Pending(); got != 3 {
		t.Fatalf("pending = %d, want 3", got)
	}
}

func TestAdmitBlocksUntilOldestExpires(t *testing.T) {
	limiter, clock, sleeps := newTestLimiter(2, time.Minute)
	if err := limiter.Admit(context.Background()); err != nil {
		t.Fatal(err)
	}
	clock.Advance(10 * time.Second)
	if err := limiter.Admit(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Window is full; the next admission must wait out the oldest stamp.
	if err := limiter.Admit(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(*sleeps) != 1 {
		t.Fatalf("expected one sleep, got %v", *sleeps)
	}
	if got, want := (*sleeps)[0], 50*time.Second; got != want {
		t.Fatalf("sleep = %v, want %v", got, want)
	}
}

func TestWindowNeverExceedsMax(t *testing.T) {
	limiter, clock, _ := newTestLimiter(5, time.Minute)
	for i := 0; i < 40; i++ {
		if err := limiter.Admit(context.Background()); err != nil {
			t.Fatalf("admit %d: %v", i, err)
		}
		if got := limiter.Pending(); got > 5 {
			t.Fatalf("pending = %d after admit %d, want <= 5", got, i)
		}
		clock.Advance(3 * time.Second)
	}
}

func TestAdmitHonorsContextCancellation(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	limiter := ratelimit.New(1, time.Minute,
		ratelimit.WithClock(clock.Now),
		ratelimit.WithSleeper(func(ctx context.Context, _ time.Duration) error {
			return ctx.Err()
		}),
	)
	if err := limiter.Admit(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.Admit(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := limiter.Pending(); got != 1 {
		t.Fatalf("pending = %d, want 1 (cancelled admit must not record)", got)
	}
}

func TestConcurrentAdmitsStayWithinLimit(t *testing.T) {
	limiter := ratelimit.New(50, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Admit(context.Background()); err != nil {
				t.Errorf("admit: %v", err)
			}
		}()
	}
	wg.Wait()
	if got := limiter.Pending(); got != 40 {
		t.Fatalf("pending = %d, want 40", got)
	}
}
