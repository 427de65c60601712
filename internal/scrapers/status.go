package scrapers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// StatusError classifies a non-2xx HTTP response from source.
func StatusError(source string, resp *http.Response) *SourceError {
	var kind Kind
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		kind = KindAuth
	case resp.StatusCode == http.StatusTooManyRequests:
		kind = KindRateLimited
	default:
		kind = KindUnavailable
	}
	e := NewSourceError(source, kind, fmt.Errorf("status code error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	e.StatusCode = resp.StatusCode
	if kind == KindRateLimited {
		e.RetryAfter = ParseRetryAfter(resp.Header.Get("Retry-After"))
	}
	return e
}

// ParseRetryAfter reads a Retry-After header in either delta-seconds or
// HTTP-date form. Unreadable values give 0.
func ParseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
