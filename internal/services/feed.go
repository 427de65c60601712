// Package services sits between the transports (HTTP API, CLI, scheduler)
// and the aggregator: it builds the configured sources and serves feeds
// through the cache.
package services

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/ps-vitor/bidscout/internal/aggregator"
	"github.com/ps-vitor/bidscout/internal/cache"
	"github.com/ps-vitor/bidscout/internal/domain"
	"github.com/ps-vitor/bidscout/pkg/logger"
)

// Searcher is the part of the aggregator FeedService needs.
type Searcher interface {
	Search(ctx context.Context, req aggregator.Request) (*aggregator.Result, error)
}

// Feed is the response shape shared by the API, the CLI and the cache.
type Feed struct {
	RequestID        string                              `json:"requestId"`
	Items            []domain.Listing                    `json:"items"`
	Diagnostics      map[string]aggregator.ReportSummary `json:"diagnostics"`
	FetchedAt        time.Time                           `json:"fetchedAt"`
	Degraded         bool                                `json:"degraded"`
	AllSourcesFailed bool                                `json:"allSourcesFailed"`
	Cached           bool                                `json:"cached"`
}

// NewFeed flattens an aggregator result.
func NewFeed(res *aggregator.Result) *Feed {
	f := &Feed{
		RequestID:        res.RequestID,
		Items:            res.Items,
		Diagnostics:      make(map[string]aggregator.ReportSummary, len(res.Diagnostics)),
		FetchedAt:        res.FetchedAt,
		Degraded:         res.Degraded(),
		AllSourcesFailed: res.AllSourcesFailed(),
	}
	for name, rep := range res.Diagnostics {
		f.Diagnostics[name] = rep.Summary()
	}
	return f
}

// FeedService serves searches through the feed cache. A nil cache or a
// zero TTL disables caching. All-failed results are never cached.
type FeedService struct {
	searcher Searcher
	cache    cache.Cache
	ttl      time.Duration
	log      *logger.Logger
}

func NewFeedService(s Searcher, c cache.Cache, ttl time.Duration, log *logger.Logger) *FeedService {
	return &FeedService{searcher: s, cache: c, ttl: ttl, log: log.With("feed")}
}

// Search returns the feed for req, from cache when warm.
func (s *FeedService) Search(ctx context.Context, req aggregator.Request) (*Feed, error) {
	key := searchKey("search", req)
	if f, ok := s.lookup(ctx, key); ok {
		return f, nil
	}
	return s.refresh(ctx, key, req)
}

// Trending is the browse feed (no term) ordered by trending score.
func (s *FeedService) Trending(ctx context.Context, limit int, category domain.Category) (*Feed, error) {
	req := trendingRequest(limit, category)
	key := searchKey("trending", req)
	if f, ok := s.lookup(ctx, key); ok {
		return f, nil
	}
	return s.refresh(ctx, key, req)
}

// RefreshTrending rebuilds the trending feed and stores it regardless of
// what is cached.
func (s *FeedService) RefreshTrending(ctx context.Context, limit int, category domain.Category) (*Feed, error) {
	req := trendingRequest(limit, category)
	return s.refresh(ctx, searchKey("trending", req), req)
}

func trendingRequest(limit int, category domain.Category) aggregator.Request {
	return aggregator.Request{Limit: limit, Category: category, Sort: aggregator.SortTrending}
}

func searchKey(namespace string, req aggregator.Request) string {
	return cache.Key(namespace, req.Term, strconv.Itoa(req.Limit), string(req.Category), string(req.Sort))
}

func (s *FeedService) lookup(ctx context.Context, key string) (*Feed, bool) {
	if s.cache == nil || s.ttl <= 0 {
		return nil, false
	}
	b, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warnf("cache get: %v", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var f Feed
	if err := json.Unmarshal(b, &f); err != nil {
		s.log.Warnf("cache entry %s unreadable: %v", key, err)
		return nil, false
	}
	f.Cached = true
	return &f, true
}

func (s *FeedService) refresh(ctx context.Context, key string, req aggregator.Request) (*Feed, error) {
	res, err := s.searcher.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	f := NewFeed(res)
	if s.cache == nil || s.ttl <= 0 || f.AllSourcesFailed {
		return f, nil
	}

	b, err := json.Marshal(f)
	if err != nil {
		s.log.Errorf("encode feed: %v", err)
		return f, nil
	}
	if err := s.cache.Set(ctx, key, b, s.ttl); err != nil {
		s.log.Warnf("cache set: %v", err)
	}
	return f, nil
}
