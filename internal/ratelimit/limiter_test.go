package ratelimit

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock returns a limiter whose clock only moves when advance is called.
func fakeClock(l *Limiter) (advance func(time.Duration)) {
	now := time.Now()
	l.nowFunc = func() time.Time { return now }
	return func(d time.Duration) { now = now.Add(d) }
}

func TestAllowN_WithinBurst(t *testing.T) {
	l := NewLimiter(1, 10)
	if !l.AllowN("k", 6) || !l.AllowN("k", 4) {
		t.Fatal("requests within the burst were rejected")
	}
	if l.Allow("k") {
		t.Error("request after burst exhaustion should be rejected")
	}
}

func TestAllowN_CostAboveBurst(t *testing.T) {
	l := NewLimiter(100, 5)
	if l.AllowN("k", 6) {
		t.Error("cost above burst should never be allowed")
	}
	// The rejected request takes nothing.
	if !l.AllowN("k", 5) {
		t.Error("full burst should still be available")
	}
}

func TestAllowN_Refill(t *testing.T) {
	l := NewLimiter(10, 4) // 10 tokens/sec
	advance := fakeClock(l)

	l.AllowN("k", 4)
	if l.Allow("k") {
		t.Fatal("expected rejection after burst")
	}

	advance(250 * time.Millisecond) // 2.5 tokens
	if !l.AllowN("k", 2) {
		t.Error("expected 2 tokens after 250ms")
	}
	if l.Allow("k") {
		t.Error("only half a token should remain")
	}

	advance(time.Hour)
	if !l.AllowN("k", 4) || l.Allow("k") {
		t.Error("refill should cap at the burst size")
	}
}

func TestAllow_IndependentKeys(t *testing.T) {
	l := NewLimiter(1, 1)
	l.Allow("a")
	if l.Allow("a") {
		t.Error("a should be exhausted")
	}
	if !l.Allow("b") {
		t.Error("b should have its own bucket")
	}
}

func TestAllow_ZeroRate(t *testing.T) {
	l := NewLimiter(0, 2)
	l.Allow("k")
	l.Allow("k")
	if l.Allow("k") {
		t.Error("should be rejected with zero rate")
	}
	if got := l.RetryAfter("k", 1); got != -1 {
		t.Errorf("RetryAfter = %v, want -1 with zero rate", got)
	}
}

func TestRetryAfter(t *testing.T) {
	l := NewLimiter(4, 8)
	fakeClock(l)

	if got := l.RetryAfter("k", 8); got != 0 {
		t.Errorf("RetryAfter on a full bucket = %v, want 0", got)
	}
	l.AllowN("k", 8)
	if got := l.RetryAfter("k", 2); got != 500*time.Millisecond {
		t.Errorf("RetryAfter = %v, want 500ms", got)
	}
	if got := l.RetryAfter("k", 9); got != -1 {
		t.Errorf("RetryAfter above burst = %v, want -1", got)
	}
}

func TestAllow_ConcurrentAccess(t *testing.T) {
	l := NewLimiter(0, 100)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("k") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 100 {
		t.Errorf("allowed %d requests, want exactly the burst of 100", allowed)
	}
}

func TestDefaultBudget(t *testing.T) {
	b := DefaultBudget()
	for _, action := range []string{ActionStep, ActionReset, ActionRender, ActionQuery} {
		if _, ok := b[action]; !ok {
			t.Errorf("missing limiter for %s", action)
		}
	}
}

func TestDefaultBudget_ResetEveryFiveSeconds(t *testing.T) {
	b := DefaultBudget()
	advance := fakeClock(b[ActionReset])

	if err := b.Check(ActionReset, 1); err != nil {
		t.Fatalf("first reset: %v", err)
	}
	err := b.Check(ActionReset, 1)
	var le *LimitError
	if !errors.As(err, &le) {
		t.Fatalf("immediate second reset error = %v, want *LimitError", err)
	}
	if le.RetryAfter != 5*time.Second {
		t.Errorf("RetryAfter = %s, want 5s", le.RetryAfter)
	}

	advance(4 * time.Second)
	if err := b.Check(ActionReset, 1); err == nil {
		t.Error("reset allowed after 4s")
	}
	advance(time.Second)
	if err := b.Check(ActionReset, 1); err != nil {
		t.Errorf("reset after 5s: %v", err)
	}
}

func TestBudget_Check(t *testing.T) {
	b := Budget{ActionReset: NewLimiter(0, 1)}

	if err := b.Check(ActionReset, 1); err != nil {
		t.Fatalf("first reset: %v", err)
	}
	err := b.Check(ActionReset, 1)
	if !errors.Is(err, ErrLimited) {
		t.Fatalf("second reset error = %v, want ErrLimited", err)
	}
	var le *LimitError
	if !errors.As(err, &le) || le.Action != ActionReset || le.RetryAfter != -1 {
		t.Errorf("LimitError = %+v", le)
	}

	if err := b.Check("unknown", 1000); err != nil {
		t.Errorf("unknown action: %v", err)
	}
	var nilBudget Budget
	if err := nilBudget.Check(ActionStep, 1); err != nil {
		t.Errorf("nil budget: %v", err)
	}
}
