package throttle

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	l := newLimiter(cfg, clock.now)
	t.Cleanup(l.Close)
	return l, clock
}

func TestAllow_BurstThenBlocked(t *testing.T) {
	t.Parallel()
	l, _ := newTestLimiter(t, Config{Rate: 1, Burst: 3})

	for i := range 3 {
		if ok, _ := l.Allow("42"); !ok {
			t.Fatalf("event %d: want allowed within burst", i+1)
		}
	}
	ok, wait := l.Allow("42")
	if ok {
		t.Fatal("event 4: want blocked after burst")
	}
	if wait <= 0 || wait > time.Second {
		t.Errorf("wait = %v, want (0, 1s]", wait)
	}
}

func TestAllow_RefillsOverTime(t *testing.T) {
	t.Parallel()
	l, clock := newTestLimiter(t, Config{Rate: 2, Burst: 1})

	if ok, _ := l.Allow("k"); !ok {
		t.Fatal("first event: want allowed")
	}
	if ok, _ := l.Allow("k"); ok {
		t.Fatal("second event: want blocked")
	}
	clock.advance(500 * time.Millisecond)
	if ok, _ := l.Allow("k"); !ok {
		t.Fatal("after refill: want allowed")
	}
}

func TestAllow_BlockedCallsDoNotConsume(t *testing.T) {
	t.Parallel()
	l, clock := newTestLimiter(t, Config{Rate: 1, Burst: 1})

	l.Allow("k")
	for range 5 {
		l.Allow("k")
	}
	clock.advance(time.Second)
	if ok, _ := l.Allow("k"); !ok {
		t.Fatal("rejected calls must not push the refill further out")
	}
}

func TestAllow_KeysAreIsolated(t *testing.T) {
	t.Parallel()
	l, _ := newTestLimiter(t, Config{Rate: 0.001, Burst: 1})

	if ok, _ := l.Allow("10.0.0.1"); !ok {
		t.Fatal("first key: want allowed")
	}
	if ok, _ := l.Allow("10.0.0.1"); ok {
		t.Fatal("first key: want blocked")
	}
	if ok, _ := l.Allow("10.0.0.2"); !ok {
		t.Error("second key must have its own bucket")
	}
	if got := l.Len(); got != 2 {
		t.Errorf("Len = %d, want 2", got)
	}
}

func TestSweep_DropsIdleBuckets(t *testing.T) {
	t.Parallel()
	l, clock := newTestLimiter(t, Config{Idle: time.Minute})

	l.Allow("old")
	clock.advance(2 * time.Minute)
	l.Allow("fresh")
	l.sweep()

	if got := l.Len(); got != 1 {
		t.Fatalf("Len after sweep = %d, want 1", got)
	}
	l.mu.Lock()
	_, ok := l.buckets["fresh"]
	l.mu.Unlock()
	if !ok {
		t.Error("recently used bucket was swept")
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()
	l, _ := newTestLimiter(t, Config{})

	if l.limit != DefaultRate || l.burst != DefaultBurst || l.idle != DefaultIdle {
		t.Errorf("defaults = (%v, %d, %v)", l.limit, l.burst, l.idle)
	}
}

func TestClose_Idempotent(t *testing.T) {
	t.Parallel()
	l := New(Config{})
	l.Close()
	l.Close()
}

func TestRetryAfterSeconds(t *testing.T) {
	t.Parallel()
	tests := []struct {
		wait time.Duration
		want int
	}{
		{0, 1},
		{200 * time.Millisecond, 1},
		{time.Second, 1},
		{1500 * time.Millisecond, 2},
		{17 * time.Minute, 1020},
	}
	for _, tt := range tests {
		if got := RetryAfterSeconds(tt.wait); got != tt.want {
			t.Errorf("RetryAfterSeconds(%v) = %d, want %d", tt.wait, got, tt.want)
		}
	}
}
