package services

import (
	"fmt"
	"time"

	"github.com/ps-vitor/bidscout/internal/aggregator"
	"github.com/ps-vitor/bidscout/internal/config"
	"github.com/ps-vitor/bidscout/internal/scrapers"
	"github.com/ps-vitor/bidscout/internal/scrapers/auctionapi"
	"github.com/ps-vitor/bidscout/internal/scrapers/htmlsite"
	"github.com/ps-vitor/bidscout/internal/scrapers/localmarket"
	"github.com/ps-vitor/bidscout/internal/scrapers/synthetic"
	"github.com/ps-vitor/bidscout/pkg/logger"
)

// SourceInfo describes one registered source for the API.
type SourceInfo struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	BestEffort bool   `json:"bestEffort"`
	Render     bool   `json:"render,omitempty"`
	TimeoutMS  int64  `json:"timeoutMs"`
}

// Sources is the adapter set built from configuration.
type Sources struct {
	List []aggregator.Source
	Info []SourceInfo

	browser *htmlsite.RodFetcher
}

// Close releases the headless browser if any source started it.
func (s *Sources) Close() error {
	if s.browser == nil {
		return nil
	}
	return s.browser.Close()
}

// BuildSources constructs one adapter per enabled source, in configuration
// order. Each adapter gets its own rate budget. Sources with render: true
// share one headless browser, launched on first use.
func BuildSources(cfg config.ScrapingConfig, log *logger.Logger) (*Sources, error) {
	out := &Sources{}

	for _, sc := range cfg.Sources {
		if sc.Disabled {
			log.Infof("source %s disabled", sc.Name)
			continue
		}
		budget := scrapers.NewRateBudget(sc.RateLimit.Requests, sc.RateLimit.Window())

		var adapter scrapers.Adapter
		switch sc.Kind {
		case config.KindAuctionAPI:
			if sc.Token == "" {
				log.Warnf("source %s: $%s is not set, requests will fail with auth errors", sc.Name, sc.TokenEnv)
			}
			adapter = auctionapi.New(auctionapi.Config{
				Name:       sc.Name,
				BaseURL:    sc.BaseURL,
				SearchPath: sc.SearchPath,
				Token:      sc.Token,
				Budget:     budget,
			}, log)

		case config.KindHTMLSite:
			var fetcher htmlsite.PageFetcher = htmlsite.NewHTTPFetcher(sc.Timeout())
			if sc.Render {
				if out.browser == nil {
					out.browser = htmlsite.NewRodFetcher(cfg.BrowserBin)
				}
				fetcher = out.browser
			}
			site, err := htmlsite.New(htmlsite.Config{
				Name:       sc.Name,
				BaseURL:    sc.BaseURL,
				SearchPath: sc.SearchPath,
				BrowsePath: sc.BrowsePath,
				Selectors:  sc.Selectors,
				Fetcher:    fetcher,
				Budget:     budget,
			}, log)
			if err != nil {
				return nil, err
			}
			adapter = site

		case config.KindLocalMarket:
			adapter = localmarket.New(localmarket.Config{
				Name:       sc.Name,
				BaseURL:    sc.BaseURL,
				SearchPath: sc.SearchPath,
				Country:    sc.Country,
				Timeout:    sc.Timeout(),
				Budget:     budget,
			}, log)

		case config.KindSynthetic:
			adapter = synthetic.New(sc.Name, sc.BaseURL)

		default:
			return nil, fmt.Errorf("source %s: unknown kind %q", sc.Name, sc.Kind)
		}

		if sc.BestEffort && sc.Kind != config.KindAuctionAPI {
			adapter = synthetic.NewBestEffort(adapter, sc.BaseURL, log)
		}

		out.List = append(out.List, aggregator.Source{Adapter: adapter, Timeout: sc.Timeout()})
		out.Info = append(out.Info, SourceInfo{
			Name:       sc.Name,
			Kind:       sc.Kind,
			BestEffort: sc.BestEffort,
			Render:     sc.Render,
			TimeoutMS:  sc.Timeout().Milliseconds(),
		})
		log.Infof("source %s (%s) registered, timeout %s", sc.Name, sc.Kind, sc.Timeout().Round(time.Millisecond))
	}
	return out, nil
}
