// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/ps-vitor/bidscout/internal/aggregator"
	"github.com/ps-vitor/bidscout/internal/api/handlers"
	"github.com/ps-vitor/bidscout/internal/cache"
	"github.com/ps-vitor/bidscout/internal/config"
	"github.com/ps-vitor/bidscout/internal/normalize"
	"github.com/ps-vitor/bidscout/internal/scheduler"
	"github.com/ps-vitor/bidscout/internal/services"
	"github.com/ps-vitor/bidscout/pkg/logger"
)

func main() {
	configDir := flag.String("config", "", "directory holding app.yaml and scraping.yaml")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		logger.New("[bidscout] ").Fatalf("load config: %v", err)
	}
	log := logger.NewWithWriter(os.Stdout, "[bidscout] ", logger.ParseLevel(cfg.App.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Setup dependencies
	srcs, err := services.BuildSources(cfg.Scraping, log)
	if err != nil {
		log.Fatalf("build sources: %v", err)
	}
	defer srcs.Close()

	norm := normalize.New(cfg.Scraping.Scoring, cfg.Scraping.DefaultHorizonSeconds)
	agg := aggregator.New(norm, log, srcs.List...)

	feedCache, err := openCache(ctx, cfg.App.Cache, log)
	if err != nil {
		log.Fatalf("open cache: %v", err)
	}
	defer feedCache.Close()

	feeds := services.NewFeedService(agg, feedCache, cfg.App.Cache.TTL(), log)

	if cfg.App.Scheduler.Enabled {
		// Warm with the API's default limit so GET /api/trending hits the cache.
		sched := scheduler.New(feeds, cfg.App.Scheduler.TrendingSpec, cfg.Scraping.DefaultLimit, log)
		if err := sched.Start(ctx); err != nil {
			log.Fatalf("start scheduler: %v", err)
		}
		defer sched.Stop()
	}

	var proxies []netip.Prefix
	for _, p := range cfg.App.TrustedProxies {
		pfx, err := config.ParseProxy(p)
		if err != nil {
			log.Fatalf("trusted proxy: %v", err)
		}
		proxies = append(proxies, pfx)
	}

	budget := handlers.NewClientBudget(cfg.App.RequestBudget.Requests, cfg.App.RequestBudget.Window()).
		TrustProxies(proxies...)

	sortKey, _ := aggregator.ParseSortKey(cfg.Scraping.DefaultSort)
	api := handlers.NewAPIHandler(feeds, srcs.Info, handlers.Options{
		DefaultLimit: cfg.Scraping.DefaultLimit,
		MaxLimit:     cfg.Scraping.MaxLimit,
		DefaultSort:  sortKey,
		Budget:       budget,
	}, log)

	r := mux.NewRouter()
	api.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Infof("server running on %s with %d sources", srv.Addr, len(srcs.List))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("server: %v", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("shutdown: %v", err)
		}
	}
}

// openCache uses Redis when a URL is configured and falls back to the
// in-process cache when it is unreachable.
func openCache(ctx context.Context, cfg config.CacheConfig, log *logger.Logger) (cache.Cache, error) {
	if cfg.RedisURL != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		rc, err := cache.NewRedis(pingCtx, cfg.RedisURL)
		if err == nil {
			log.Info("feed cache: redis")
			return rc, nil
		}
		log.Warnf("redis unavailable, using in-memory cache: %v", err)
	}
	log.Info("feed cache: in-memory")
	return cache.NewMemory(cfg.MaxBytes)
}
