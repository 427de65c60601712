package scrapers

import (
	"sync"
	"time"
)

// RateBudget allows at most Limit requests per Window. The count resets
// when the window that started with the first request has elapsed. Each
// adapter owns its own budget; a nil *RateBudget allows everything.
type RateBudget struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	start time.Time
	count int
}

// NewRateBudget returns a budget of limit requests per window. A limit
// <= 0 disables the budget.
func NewRateBudget(limit int, window time.Duration) *RateBudget {
	if limit <= 0 || window <= 0 {
		return nil
	}
	return &RateBudget{limit: limit, window: window, now: time.Now}
}

// WithClock swaps the time source. Used by tests.
func (b *RateBudget) WithClock(now func() time.Time) *RateBudget {
	if b != nil {
		b.now = now
	}
	return b
}

// Take consumes one request. When the budget is spent it returns false and
// how long until the window resets.
func (b *RateBudget) Take() (bool, time.Duration) {
	if b == nil {
		return true, 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if b.start.IsZero() || now.Sub(b.start) >= b.window {
		b.start = now
		b.count = 0
	}
	if b.count >= b.limit {
		return false, b.window - now.Sub(b.start)
	}
	b.count++
	return true, 0
}

// Remaining reports how many requests are left in the current window.
func (b *RateBudget) Remaining() int {
	if b == nil {
		return -1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.start.IsZero() || b.now().Sub(b.start) >= b.window {
		return b.limit
	}
	return b.limit - b.count
}

// Admit takes from b on behalf of source and converts exhaustion into a
// rate_limited SourceError.
func Admit(b *RateBudget, source string) error {
	ok, wait := b.Take()
	if ok {
		return nil
	}
	e := NewSourceError(source, KindRateLimited, nil)
	e.RetryAfter = wait
	return e
}
