package synthetic

import (
	"context"
	"errors"

	"github.com/ps-vitor/bidscout/internal/domain"
	"github.com/ps-vitor/bidscout/internal/scrapers"
	"github.com/ps-vitor/bidscout/pkg/logger"
)

// BestEffort wraps a real adapter. When the real fetch fails it returns
// generated records together with a *scrapers.DegradedError carrying the
// real cause, so a category never goes empty because one site is down.
type BestEffort struct {
	src      scrapers.Adapter
	fallback *Adapter
	log      *logger.Logger
}

func NewBestEffort(src scrapers.Adapter, baseURL string, log *logger.Logger) *BestEffort {
	return &BestEffort{
		src:      src,
		fallback: New(src.Name(), baseURL),
		log:      log.With("besteffort:" + src.Name()),
	}
}

func (b *BestEffort) Name() string { return b.src.Name() }

// FiltersCategory follows the wrapped adapter. Generated records already
// match the category, so filtering them again is harmless.
func (b *BestEffort) FiltersCategory() bool { return scrapers.FiltersCategory(b.src) }

func (b *BestEffort) Fetch(ctx context.Context, q scrapers.Query) ([]domain.RawRecord, error) {
	records, err := b.src.Fetch(ctx, q)
	if err == nil {
		return records, nil
	}
	// A cancelled caller wants nothing, not placeholders. A deadline still
	// degrades.
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil, err
	}
	return b.Degrade(q, err)
}

// Degrade returns generated records for q and a DegradedError wrapping
// cause. The aggregator calls it directly when the source times out.
func (b *BestEffort) Degrade(q scrapers.Query, cause error) ([]domain.RawRecord, error) {
	b.log.Warnf("falling back to synthetic data: %v", cause)
	return b.fallback.generate(q), &scrapers.DegradedError{Source: b.src.Name(), Cause: cause}
}
