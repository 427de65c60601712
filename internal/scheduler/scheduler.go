// Package scheduler wires up the cron job that keeps the trending feed
// warm in the cache.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/ps-vitor/bidscout/internal/domain"
	"github.com/ps-vitor/bidscout/internal/services"
	"github.com/ps-vitor/bidscout/pkg/logger"
)

// Refresher rebuilds one trending feed.
type Refresher interface {
	RefreshTrending(ctx context.Context, limit int, category domain.Category) (*services.Feed, error)
}

// Scheduler wraps robfig/cron and manages the refresh loop.
type Scheduler struct {
	cron       *cron.Cron
	refresher  Refresher
	spec       string
	limit      int
	categories []domain.Category
	log        *logger.Logger

	mu      sync.Mutex
	running bool
	// warm tracks the refresh started by Start outside cron.
	warm sync.WaitGroup
}

// New creates a Scheduler firing on spec (standard cron or "@every 5m").
// Each tick refreshes the unfiltered feed and then every category feed.
func New(r Refresher, spec string, limit int, log *logger.Logger) *Scheduler {
	cats := make([]domain.Category, 0, len(domain.Categories)+1)
	cats = append(cats, "")
	cats = append(cats, domain.Categories...)
	return &Scheduler{
		cron:       cron.New(),
		refresher:  r,
		spec:       spec,
		limit:      limit,
		categories: cats,
		log:        log.With("scheduler"),
	}
}

// Start registers the job, starts the scheduler and runs one refresh
// immediately so the trending feed is warm without waiting for the first
// tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() { s.Run(ctx) })
	if err != nil {
		return fmt.Errorf("cron.AddFunc(%q): %w", s.spec, err)
	}
	s.cron.Start()
	s.log.Infof("cron started, spec: %s", s.spec)

	s.warm.Add(1)
	go func() {
		defer s.warm.Done()
		s.Run(ctx)
	}()
	return nil
}

// Stop stops the scheduler and waits for running refreshes, including the
// initial one, to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.warm.Wait()
	s.log.Info("cron stopped")
}

// Run refreshes every trending feed once. Overlapping runs are skipped.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Warn("previous refresh still running, skipping tick")
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	refreshed := 0
	for _, cat := range s.categories {
		if ctx.Err() != nil {
			return
		}
		f, err := s.refresher.RefreshTrending(ctx, s.limit, cat)
		if err != nil {
			s.log.Warnf("refresh trending %q: %v", cat, err)
			continue
		}
		if f.AllSourcesFailed {
			s.log.Warnf("refresh trending %q: all sources failed", cat)
			continue
		}
		refreshed++
	}
	s.log.Infof("trending refresh complete: %d/%d feeds", refreshed, len(s.categories))
}
