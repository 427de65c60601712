// Package aggregator fans a search out to every configured source, turns
// what comes back into scored listings, and merges them into one feed.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ps-vitor/bidscout/internal/domain"
	"github.com/ps-vitor/bidscout/internal/normalize"
	"github.com/ps-vitor/bidscout/internal/scrapers"
	"github.com/ps-vitor/bidscout/pkg/logger"
)

// DefaultTimeout bounds a source that was registered without one.
const DefaultTimeout = 10 * time.Second

// Source is one registered adapter and its per-call timeout.
type Source struct {
	Adapter scrapers.Adapter
	Timeout time.Duration
}

// Request is one search. Limit < 1 is treated as 1. An empty Sort selects
// SortDealPotential.
type Request struct {
	Term     string
	Limit    int
	Category domain.Category
	Sort     SortKey
}

// Aggregator is safe for concurrent Search calls. Sources keep their
// registration order, which fixes the merge order.
type Aggregator struct {
	sources []Source
	norm    *normalize.Normalizer
	log     *logger.Logger
	now     func() time.Time
	newID   func() string
}

func New(norm *normalize.Normalizer, log *logger.Logger, sources ...Source) *Aggregator {
	srcs := make([]Source, len(sources))
	for i, s := range sources {
		if s.Timeout <= 0 {
			s.Timeout = DefaultTimeout
		}
		srcs[i] = s
	}
	return &Aggregator{
		sources: srcs,
		norm:    norm,
		log:     log.With("aggregator"),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Sources returns the registered sources in merge order.
func (a *Aggregator) Sources() []Source {
	out := make([]Source, len(a.sources))
	copy(out, a.sources)
	return out
}

type outcome struct {
	records []domain.RawRecord
	err     error
	elapsed time.Duration
}

// Search queries every source concurrently and returns the merged, sorted
// feed. Per-source failures only show up in Diagnostics; the error is
// non-nil only when ctx is done, and then no partial result is returned.
func (a *Aggregator) Search(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit < 1 {
		limit = 1
	}
	q := scrapers.Query{Term: strings.TrimSpace(req.Term), Limit: limit, Category: req.Category}

	outcomes := make([]outcome, len(a.sources))
	var wg sync.WaitGroup
	for i, src := range a.sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			start := time.Now()
			recs, err := a.fetch(ctx, src, q)
			outcomes[i] = outcome{records: recs, err: err, elapsed: time.Since(start)}
		}(i, src)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		a.log.Infof("search %q cancelled: %v", q.Term, err)
		return nil, err
	}

	res := &Result{
		RequestID:   a.newID(),
		Items:       []domain.Listing{},
		Diagnostics: make(map[string]*SourceReport, len(a.sources)),
		FetchedAt:   a.now().UTC(),
	}
	for i, src := range a.sources {
		name := src.Adapter.Name()
		res.Items = append(res.Items, a.collect(src, q, outcomes[i], res.report(name))...)
	}

	sortListings(res.Items, req.Sort)

	if res.AllSourcesFailed() {
		a.log.Errorf("search %q [%s]: all %d sources failed", q.Term, res.RequestID, len(a.sources))
	} else {
		a.log.Infof("search %q [%s]: %d items from %d sources", q.Term, res.RequestID, len(res.Items), len(a.sources))
	}
	return res, nil
}

// report returns the diagnostics slot for name, creating it on first use.
// Two sources registered under one name share a slot.
func (r *Result) report(name string) *SourceReport {
	rep, ok := r.Diagnostics[name]
	if !ok {
		rep = &SourceReport{}
		r.Diagnostics[name] = rep
	}
	return rep
}

// collect normalizes one source's records into rep and returns its
// listings.
func (a *Aggregator) collect(src Source, q scrapers.Query, out outcome, rep *SourceReport) []domain.Listing {
	name := src.Adapter.Name()
	rep.Duration = out.elapsed

	var degraded *scrapers.DegradedError
	switch {
	case out.err == nil:
	case errors.As(out.err, &degraded):
		rep.Err = out.err
	default:
		rep.Err = out.err
		if errors.Is(out.err, scrapers.ErrMarkupChanged) {
			a.log.Warnf("%s: markup changed: %v", name, out.err)
		} else {
			a.log.Warnf("%s: %v", name, out.err)
		}
		return nil
	}

	filter := q.Category != "" && !scrapers.FiltersCategory(src.Adapter)
	listings := make([]domain.Listing, 0, len(out.records))
	for _, r := range out.records {
		l, err := a.norm.Listing(name, r)
		if err != nil {
			rep.Dropped++
			a.log.Debugf("%s: dropped record: %v", name, err)
			continue
		}
		if filter && l.Category != q.Category {
			continue
		}
		if l.Synthetic {
			rep.Synthetic = true
		}
		listings = append(listings, l)
	}
	rep.Count += len(listings)
	return listings
}

// fetch runs one adapter under its own timeout. An adapter that ignores
// its context is abandoned when the timeout fires; its result is
// discarded.
func (a *Aggregator) fetch(ctx context.Context, src Source, q scrapers.Query) ([]domain.RawRecord, error) {
	name := src.Adapter.Name()
	tctx, cancel := context.WithTimeout(ctx, src.Timeout)
	defer cancel()

	type fetched struct {
		records []domain.RawRecord
		err     error
	}
	done := make(chan fetched, 1)
	go func() {
		recs, err := src.Adapter.Fetch(tctx, q)
		done <- fetched{recs, err}
	}()

	select {
	case f := <-done:
		if f.err == nil {
			return f.records, nil
		}
		var se *scrapers.SourceError
		var de *scrapers.DegradedError
		if errors.As(f.err, &se) || errors.As(f.err, &de) {
			return f.records, f.err
		}
		if ctx.Err() == nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
			return nil, timeoutError(name, src.Timeout)
		}
		return nil, scrapers.NewSourceError(name, scrapers.KindUnavailable, f.err)
	case <-tctx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cause := timeoutError(name, src.Timeout)
		if d, ok := src.Adapter.(scrapers.Degrader); ok {
			return d.Degrade(q, cause)
		}
		return nil, cause
	}
}

func timeoutError(source string, d time.Duration) error {
	return scrapers.NewSourceError(source, scrapers.KindUnavailable, fmt.Errorf("timed out after %s: %w", d, context.DeadlineExceeded))
}
