package scrapers

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a per-source failure.
type Kind string

const (
	KindUnavailable   Kind = "unavailable"
	KindMarkupChanged Kind = "markup_changed"
	KindAuth          Kind = "auth"
	KindRateLimited   Kind = "rate_limited"
	KindBadResponse   Kind = "bad_response"
)

var (
	ErrUnavailable   = errors.New("source unavailable")
	ErrMarkupChanged = errors.New("markup changed")
	ErrAuth          = errors.New("authentication failed")
	ErrRateLimited   = errors.New("rate limited")
	ErrBadResponse   = errors.New("bad response")
)

var kindSentinels = map[Kind]error{
	KindUnavailable:   ErrUnavailable,
	KindMarkupChanged: ErrMarkupChanged,
	KindAuth:          ErrAuth,
	KindRateLimited:   ErrRateLimited,
	KindBadResponse:   ErrBadResponse,
}

// SourceError is the failure of one adapter call, tagged with the source.
// errors.Is matches it against the sentinel of its Kind.
type SourceError struct {
	Source     string
	Kind       Kind
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (e *SourceError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Source, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" retry after %s", e.RetryAfter)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SourceError) Unwrap() error { return e.Err }

func (e *SourceError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// NewSourceError builds a SourceError for source of the given kind.
func NewSourceError(source string, kind Kind, err error) *SourceError {
	return &SourceError{Source: source, Kind: kind, Err: err}
}

// DegradedError is returned alongside synthetic records when a best-effort
// source failed and placeholder data was substituted.
type DegradedError struct {
	Source string
	Cause  error
}

func (e *DegradedError) Error() string {
	return fmt.Sprintf("%s: serving synthetic data: %v", e.Source, e.Cause)
}

func (e *DegradedError) Unwrap() error { return e.Cause }
