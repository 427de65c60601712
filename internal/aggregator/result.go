package aggregator

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/ps-vitor/bidscout/internal/domain"
	"github.com/ps-vitor/bidscout/internal/scrapers"
)

// ErrAllSourcesFailed is reported by Result.Err when no source contributed
// any data.
var ErrAllSourcesFailed = errors.New("all sources failed")

// SourceReport is the per-source outcome of one search.
type SourceReport struct {
	// Err is nil on success and a *scrapers.DegradedError when synthetic
	// records were substituted.
	Err       error
	Count     int
	Dropped   int
	Synthetic bool
	Duration  time.Duration
}

// Failed reports whether the source contributed nothing.
func (r *SourceReport) Failed() bool {
	if r.Err == nil {
		return false
	}
	var de *scrapers.DegradedError
	return !errors.As(r.Err, &de)
}

// ReportSummary is the serializable view of a SourceReport.
type ReportSummary struct {
	OK         bool   `json:"ok"`
	Count      int    `json:"count"`
	Dropped    int    `json:"dropped"`
	Synthetic  bool   `json:"synthetic"`
	DurationMS int64  `json:"durationMs"`
	Kind       string `json:"kind,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (r *SourceReport) Summary() ReportSummary {
	out := ReportSummary{
		OK:         r.Err == nil,
		Count:      r.Count,
		Dropped:    r.Dropped,
		Synthetic:  r.Synthetic,
		DurationMS: r.Duration.Milliseconds(),
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
		var se *scrapers.SourceError
		if errors.As(r.Err, &se) {
			out.Kind = string(se.Kind)
		}
	}
	return out
}

func (r *SourceReport) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Summary())
}

// Result is the outcome of one search. A degraded result has the same
// shape as a healthy one; callers inspect Diagnostics.
type Result struct {
	RequestID   string                   `json:"requestId"`
	Items       []domain.Listing         `json:"items"`
	Diagnostics map[string]*SourceReport `json:"diagnostics"`
	FetchedAt   time.Time                `json:"fetchedAt"`
}

// AllSourcesFailed is true when every configured source failed outright.
func (r *Result) AllSourcesFailed() bool {
	if len(r.Diagnostics) == 0 {
		return false
	}
	for _, rep := range r.Diagnostics {
		if !rep.Failed() {
			return false
		}
	}
	return true
}

// Degraded is true when any source failed or served synthetic data.
func (r *Result) Degraded() bool {
	for _, rep := range r.Diagnostics {
		if rep.Err != nil {
			return true
		}
	}
	return false
}

// Err returns ErrAllSourcesFailed for an all-failed result and nil
// otherwise.
func (r *Result) Err() error {
	if r.AllSourcesFailed() {
		return ErrAllSourcesFailed
	}
	return nil
}
