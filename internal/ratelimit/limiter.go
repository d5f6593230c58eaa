// Package ratelimit bounds how fast remote clients can drive a shared
// simulation session.
package ratelimit

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// ErrLimited is wrapped by every LimitError.
var ErrLimited = errors.New("rate limit exceeded")

// Actions a client can take against a session. Costs are in ticks for
// ActionStep and in requests for the others.
const (
	ActionStep   = "step"
	ActionReset  = "reset"
	ActionRender = "render"
	ActionQuery  = "query"
)

// Limiter implements a per-key token bucket where a request may cost more
// than one token. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64          // tokens per second
	burst   float64          // bucket capacity, also the initial fill
	nowFunc func() time.Time // injectable clock for testing
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// NewLimiter creates a limiter refilling rate tokens per second up to burst.
func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   float64(burst),
		nowFunc: time.Now,
	}
}

// refill returns key's bucket topped up to now. Caller holds l.mu.
func (l *Limiter) refill(key string) *bucket {
	now := l.nowFunc()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, lastCheck: now}
		l.buckets[key] = b
		return b
	}
	if elapsed := now.Sub(b.lastCheck).Seconds(); elapsed > 0 {
		b.tokens = math.Min(l.burst, b.tokens+l.rate*elapsed)
		b.lastCheck = now
	}
	return b
}

// Allow is AllowN(key, 1).
func (l *Limiter) Allow(key string) bool {
	return l.AllowN(key, 1)
}

// AllowN takes cost tokens from key's bucket if it holds that many.
// A cost above the burst size is never allowed.
func (l *Limiter) AllowN(key string, cost int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.refill(key)
	if float64(cost) > b.tokens {
		return false
	}
	b.tokens -= float64(cost)
	return true
}

// RetryAfter estimates how long until cost tokens are available for key.
// It returns -1 when they never will be.
func (l *Limiter) RetryAfter(key string, cost int) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.refill(key)
	missing := float64(cost) - b.tokens
	switch {
	case missing <= 0:
		return 0
	case float64(cost) > l.burst || l.rate <= 0:
		return -1
	}
	return time.Duration(missing / l.rate * float64(time.Second)).Round(time.Millisecond)
}

// LimitError reports a rejected action.
type LimitError struct {
	Action     string
	Cost       int
	RetryAfter time.Duration // -1 if the cost can never be met
}

func (e *LimitError) Error() string {
	if e.RetryAfter < 0 {
		return fmt.Sprintf("%s: %s costs %d, more than the burst allows", ErrLimited, e.Action, e.Cost)
	}
	return fmt.Sprintf("%s for %s, retry in %s", ErrLimited, e.Action, e.RetryAfter)
}

func (e *LimitError) Unwrap() error { return ErrLimited }

// Budget maps actions to their limiters.
type Budget map[string]*Limiter

// DefaultBudget allows a few thousand ticks per second of stepping, which
// keeps an interactive session responsive without letting one client pin a
// CPU on a large population.
func DefaultBudget() Budget {
	return Budget{
		ActionStep:   NewLimiter(500, 2000), // ticks
		ActionReset:  NewLimiter(0.2, 1), // one every 5s
		ActionRender: NewLimiter(5, 20),
		ActionQuery:  NewLimiter(50, 100),
	}
}

// Check charges cost against action's limiter. Actions without a limiter,
// and a nil Budget, are always allowed.
func (b Budget) Check(action string, cost int) error {
	limiter, ok := b[action]
	if !ok {
		return nil
	}
	if limiter.AllowN(action, cost) {
		return nil
	}
	return &LimitError{Action: action, Cost: cost, RetryAfter: limiter.RetryAfter(action, cost)}
}
