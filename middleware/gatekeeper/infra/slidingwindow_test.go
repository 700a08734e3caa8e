package infra

import (
	"context"
	"sync"
	"testing"
	"time"

	"chat-gatekeeper/middleware/gatekeeper/domain"
)

var windowBase = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func newTestCounter(t *testing.T, window time.Duration, limit int, opts ...CounterOption) (*SlidingWindowCounter, *ManualClock) {
	t.Helper()
	clk := NewManualClock(windowBase)
	c, err := NewSlidingWindowCounter(clk, NewMemoryWindowStore(), window, limit, opts...)
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	return c, clk
}

func observe(t *testing.T, c *SlidingWindowCounter, clk *ManualClock, key domain.Key) (int, bool) {
	t.Helper()
	count, allowed, err := c.Observe(context.Background(), key, clk.Now())
	if err != nil {
		t.Fatalf("unexpected Observe error: %v", err)
	}
	return count, allowed
}

func TestCounter_AllowsUpToLimit(t *testing.T) {
	c, clk := newTestCounter(t, 60*time.Second, 5)

	for i := 1; i <= 5; i++ {
		count, allowed := observe(t, c, clk, "10.0.0.5")
		if !allowed {
			t.Fatalf("call %d: expected allowed", i)
		}
		if count != i {
			t.Fatalf("call %d: expected count=%d, got %d", i, i, count)
		}
		clk.Advance(2 * time.Second)
	}
}

func TestCounter_RejectsAtLimitWithoutRecording(t *testing.T) {
	c, clk := newTestCounter(t, 60*time.Second, 5)

	for i := 0; i < 5; i++ {
		observe(t, c, clk, "k")
	}

	// a 6ª em diante rejeita, e a contagem não cresce com as rejeitadas
	for i := 0; i < 10; i++ {
		count, allowed := observe(t, c, clk, "k")
		if allowed {
			t.Fatalf("attempt %d: expected rejection at limit", i)
		}
		if count != 5 {
			t.Fatalf("attempt %d: expected count to stay 5, got %d", i, count)
		}
	}
}

func TestCounter_EvictsAfterWindowPasses(t *testing.T) {
	c, clk := newTestCounter(t, 60*time.Second, 5)

	for i := 0; i < 5; i++ {
		observe(t, c, clk, "k")
	}
	if _, allowed := observe(t, c, clk, "k"); allowed {
		t.Fatalf("expected rejection while window is full")
	}

	clk.Advance(61 * time.Second)

	count, allowed := observe(t, c, clk, "k")
	if !allowed {
		t.Fatalf("expected allowed after window passed")
	}
	if count != 1 {
		t.Fatalf("expected fresh window count=1, got %d", count)
	}
}

func TestCounter_RejectedAttemptsNeverDelayRecovery(t *testing.T) {
	c, clk := newTestCounter(t, 10*time.Second, 2)

	observe(t, c, clk, "k")
	observe(t, c, clk, "k")

	// spam de rejeitadas dentro da janela
	for i := 0; i < 20; i++ {
		clk.Advance(100 * time.Millisecond)
		if _, allowed := observe(t, c, clk, "k"); allowed {
			t.Fatalf("expected rejection while window holds the limit")
		}
	}

	// passada a janela dos dois eventos originais, volta a admitir
	clk.Advance(10 * time.Second)
	if _, allowed := observe(t, c, clk, "k"); !allowed {
		t.Fatalf("expected recovery after the recorded events expired")
	}
}

func TestCounter_KeysAreIndependent(t *testing.T) {
	c, clk := newTestCounter(t, 60*time.Second, 1)

	if _, allowed := observe(t, c, clk, "a"); !allowed {
		t.Fatalf("expected first key allowed")
	}
	if _, allowed := observe(t, c, clk, "a"); allowed {
		t.Fatalf("expected first key at limit")
	}
	if _, allowed := observe(t, c, clk, "b"); !allowed {
		t.Fatalf("expected second key unaffected")
	}
}

func TestCounter_ExclusiveBoundaryAllowsOneExtra(t *testing.T) {
	c, clk := newTestCounter(t, 60*time.Second, 5, WithExclusiveBoundary())

	for i := 1; i <= 6; i++ {
		if _, allowed := observe(t, c, clk, "k"); !allowed {
			t.Fatalf("call %d: expected allowed under exclusive boundary", i)
		}
	}
	if _, allowed := observe(t, c, clk, "k"); allowed {
		t.Fatalf("expected rejection above limit under exclusive boundary")
	}
}

func TestCounter_ClockRegressionDropsStaleEntries(t *testing.T) {
	c, clk := newTestCounter(t, 10*time.Second, 5)

	observe(t, c, clk, "k")

	// relógio regride muito além da janela: o evento "no futuro" cai
	clk.Advance(-time.Hour)

	count, allowed := observe(t, c, clk, "k")
	if !allowed {
		t.Fatalf("expected allowed after clock regression")
	}
	if count != 1 {
		t.Fatalf("expected stale entry pruned, got count=%d", count)
	}
}

func TestCounter_ConstructorRejectsInvalidConfig(t *testing.T) {
	clk := NewManualClock(windowBase)
	store := NewMemoryWindowStore()

	if _, err := NewSlidingWindowCounter(clk, store, 0, 5); err == nil {
		t.Fatalf("expected error for non-positive window")
	}
	if _, err := NewSlidingWindowCounter(clk, store, time.Minute, 0); err == nil {
		t.Fatalf("expected error for non-positive limit")
	}
	if _, err := NewSlidingWindowCounter(nil, store, time.Minute, 5); err == nil {
		t.Fatalf("expected error for nil clock")
	}
	if _, err := NewSlidingWindowCounter(clk, nil, time.Minute, 5); err == nil {
		t.Fatalf("expected error for nil store")
	}
}

func TestCounter_ConcurrentSameKeyNeverExceedsLimit(t *testing.T) {
	const limit = 5
	c, clk := newTestCounter(t, time.Minute, limit)
	now := clk.Now()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowedTotal := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, allowed, err := c.Observe(context.Background(), "shared", now)
			if err != nil {
				t.Errorf("unexpected Observe error: %v", err)
				return
			}
			if allowed {
				mu.Lock()
				allowedTotal++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowedTotal != limit {
		t.Fatalf("expected exactly %d allowed under concurrency, got %d", limit, allowedTotal)
	}
}

func TestCounter_CleanupDropsIdleLocks(t *testing.T) {
	c, clk := newTestCounter(t, time.Minute, 5, WithCounterIdleTTL(time.Minute))

	observe(t, c, clk, "idle")
	clk.Advance(2 * time.Minute)
	c.Cleanup()

	c.mu.Lock()
	_, ok := c.locks["idle"]
	c.mu.Unlock()
	if ok {
		t.Fatalf("expected idle lock to be evicted")
	}
}
