// Package scrapers defines the contract every marketplace adapter
// implements, the typed errors they report, and their per-instance request
// budget.
package scrapers

import (
	"context"

	"github.com/ps-vitor/bidscout/internal/domain"
)

// BrowserUserAgent is sent by every scraped-source request.
const BrowserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Query is one adapter call. An empty Term means browse/trending.
type Query struct {
	Term     string
	Limit    int
	Category domain.Category
}

// Adapter fetches raw records from one marketplace.
type Adapter interface {
	// Name is the platform tag stamped on every listing from this adapter.
	Name() string
	Fetch(ctx context.Context, q Query) ([]domain.RawRecord, error)
}

// CategoryFilterer is implemented by adapters whose source filters by
// category server-side. The aggregator filters the rest itself.
type CategoryFilterer interface {
	FiltersCategory() bool
}

// FiltersCategory reports whether a filters categories server-side.
func FiltersCategory(a Adapter) bool {
	cf, ok := a.(CategoryFilterer)
	return ok && cf.FiltersCategory()
}

// Degrader is implemented by adapters that can substitute placeholder
// records for a failed fetch.
type Degrader interface {
	Degrade(q Query, cause error) ([]domain.RawRecord, error)
}
