// cmd/scrape/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/ps-vitor/bidscout/internal/aggregator"
	"github.com/ps-vitor/bidscout/internal/config"
	"github.com/ps-vitor/bidscout/internal/domain"
	"github.com/ps-vitor/bidscout/internal/normalize"
	"github.com/ps-vitor/bidscout/internal/services"
	"github.com/ps-vitor/bidscout/pkg/logger"
)

func main() {
	var (
		term      = flag.String("q", "", "search term; empty browses")
		limit     = flag.Int("limit", 0, "per-source result limit")
		category  = flag.String("category", "", "restrict to one category")
		sortBy    = flag.String("sort", "", "deal, trending, ending_soon or price_asc")
		configDir = flag.String("config", "", "directory holding app.yaml and scraping.yaml")
	)
	flag.Parse()

	// Logs go to stderr so stdout stays valid JSON.
	cfg, err := config.Load(*configDir)
	if err != nil {
		logger.NewWithWriter(os.Stderr, "[scrape] ", logger.LevelInfo).Fatalf("load config: %v", err)
	}
	log := logger.NewWithWriter(os.Stderr, "[scrape] ", logger.ParseLevel(cfg.App.LogLevel))

	req := aggregator.Request{Term: *term, Limit: cfg.Scraping.DefaultLimit}
	if *limit > 0 {
		req.Limit = min(*limit, cfg.Scraping.MaxLimit)
	}
	if *category != "" {
		c, ok := domain.ParseCategory(*category)
		if !ok {
			log.Fatalf("unknown category %q", *category)
		}
		req.Category = c
	}
	s := *sortBy
	if s == "" {
		s = cfg.Scraping.DefaultSort
	}
	k, ok := aggregator.ParseSortKey(s)
	if !ok {
		log.Fatalf("unknown sort %q", s)
	}
	req.Sort = k

	srcs, err := services.BuildSources(cfg.Scraping, log)
	if err != nil {
		log.Fatalf("build sources: %v", err)
	}
	defer srcs.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	norm := normalize.New(cfg.Scraping.Scoring, cfg.Scraping.DefaultHorizonSeconds)
	res, err := aggregator.New(norm, log, srcs.List...).Search(ctx, req)
	if err != nil {
		log.Fatalf("search: %v", err)
	}

	jsonData, err := json.MarshalIndent(services.NewFeed(res), "", "  ")
	if err != nil {
		log.Fatalf("Error marshaling to JSON: %v", err)
	}
	fmt.Println(string(jsonData))

	if res.AllSourcesFailed() {
		srcs.Close()
		os.Exit(1)
	}
}
