package scrapers

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestRateBudgetWindow(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := NewRateBudget(2, time.Minute).WithClock(clock.now)

	for i := 0; i < 2; i++ {
		if ok, _ := b.Take(); !ok {
			t.Fatalf("take %d should succeed", i+1)
		}
	}

	clock.advance(20 * time.Second)
	ok, wait := b.Take()
	if ok {
		t.Fatal("third take inside the window should fail")
	}
	if wait != 40*time.Second {
		t.Errorf("wait = %v, want 40s", wait)
	}
	if b.Remaining() != 0 {
		t.Errorf("Remaining = %d, want 0", b.Remaining())
	}

	clock.advance(40 * time.Second)
	if ok, _ := b.Take(); !ok {
		t.Error("take after the window elapsed should succeed")
	}
	if b.Remaining() != 1 {
		t.Errorf("Remaining = %d, want 1", b.Remaining())
	}
}

func TestRateBudgetIndependentInstances(t *testing.T) {
	a := NewRateBudget(1, time.Hour)
	b := NewRateBudget(1, time.Hour)

	if ok, _ := a.Take(); !ok {
		t.Fatal("a first take should succeed")
	}
	if ok, _ := b.Take(); !ok {
		t.Error("b must not share a's budget")
	}
}

func TestNilRateBudgetAllows(t *testing.T) {
	b := NewRateBudget(0, time.Minute)
	if b != nil {
		t.Fatal("limit 0 should disable the budget")
	}
	for i := 0; i < 100; i++ {
		if err := Admit(b, "x"); err != nil {
			t.Fatalf("nil budget refused request: %v", err)
		}
	}
}

func TestAdmitReturnsRateLimitedError(t *testing.T) {
	b := NewRateBudget(1, time.Minute)
	if err := Admit(b, "shopgoodwill"); err != nil {
		t.Fatalf("first Admit: %v", err)
	}
	err := Admit(b, "shopgoodwill")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("second Admit = %v, want ErrRateLimited", err)
	}
	var se *SourceError
	if !errors.As(err, &se) || se.Source != "shopgoodwill" || se.RetryAfter <= 0 {
		t.Errorf("unexpected SourceError %+v", se)
	}
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusUnauthorized, ErrAuth},
		{http.StatusForbidden, ErrAuth},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusInternalServerError, ErrUnavailable},
		{http.StatusNotFound, ErrUnavailable},
	}

	for _, tt := range tests {
		resp := &http.Response{StatusCode: tt.code, Header: http.Header{"Retry-After": {"30"}}}
		err := StatusError("api", resp)
		if !errors.Is(err, tt.want) {
			t.Errorf("StatusError(%d) = %v, want %v", tt.code, err, tt.want)
		}
		if tt.code == http.StatusTooManyRequests && err.RetryAfter != 30*time.Second {
			t.Errorf("RetryAfter = %v, want 30s", err.RetryAfter)
		}
	}
}

func TestDegradedErrorUnwraps(t *testing.T) {
	cause := NewSourceError("hibid", KindMarkupChanged, nil)
	err := error(&DegradedError{Source: "hibid", Cause: cause})

	if !errors.Is(err, ErrMarkupChanged) {
		t.Errorf("DegradedError should unwrap to its cause, got %v", err)
	}
	if errors.Is(err, ErrUnavailable) {
		t.Error("markup_changed must not match ErrUnavailable")
	}
}
