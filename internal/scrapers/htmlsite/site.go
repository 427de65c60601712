// Package htmlsite scrapes auction-style listing pages (countdown and bid
// count per card). Every scraped auction site is an instance of Site with
// its own selectors.
package htmlsite

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ps-vitor/bidscout/internal/domain"
	"github.com/ps-vitor/bidscout/internal/scrapers"
	"github.com/ps-vitor/bidscout/pkg/logger"
)

// Selectors locate the fields of one listing card. Field selectors are
// relative to Card.
type Selectors struct {
	Card      string `yaml:"card"`
	Title     string `yaml:"title"`
	Price     string `yaml:"price"`
	Link      string `yaml:"link"`
	Image     string `yaml:"image"`
	Countdown string `yaml:"countdown"`
	Bids      string `yaml:"bids"`
	// Empty matches the site's "no results" marker. A page with no cards
	// and no Empty match is treated as changed markup.
	Empty string `yaml:"empty"`
}

// Config describes one scraped site.
type Config struct {
	Name    string
	BaseURL string
	// SearchPath is appended to BaseURL; "{term}" is replaced with the
	// escaped search term.
	SearchPath string
	// BrowsePath is used for an empty term. Defaults to SearchPath.
	BrowsePath string
	Selectors  Selectors
	Fetcher    PageFetcher
	Budget     *scrapers.RateBudget
}

// Site is a goquery-based scraper adapter.
type Site struct {
	cfg  Config
	base *url.URL
	log  *logger.Logger
}

func New(cfg Config, log *logger.Logger) (*Site, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("htmlsite %s: invalid base url %q", cfg.Name, cfg.BaseURL)
	}
	if cfg.Selectors.Card == "" || cfg.Selectors.Title == "" || cfg.Selectors.Price == "" {
		return nil, fmt.Errorf("htmlsite %s: card, title and price selectors are required", cfg.Name)
	}
	if cfg.BrowsePath == "" {
		cfg.BrowsePath = cfg.SearchPath
	}
	return &Site{cfg: cfg, base: base, log: log.With("htmlsite:" + cfg.Name)}, nil
}

func (s *Site) Name() string { return s.cfg.Name }

func (s *Site) Fetch(ctx context.Context, q scrapers.Query) ([]domain.RawRecord, error) {
	if err := scrapers.Admit(s.cfg.Budget, s.cfg.Name); err != nil {
		return nil, err
	}

	pageURL := s.pageURL(q.Term)
	html, err := s.cfg.Fetcher.FetchPage(ctx, pageURL)
	if err != nil {
		return nil, s.fetchError(err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, scrapers.NewSourceError(s.cfg.Name, scrapers.KindBadResponse, err)
	}

	sel := s.cfg.Selectors
	cards := doc.Find(sel.Card)
	if cards.Length() == 0 {
		if sel.Empty != "" && doc.Find(sel.Empty).Length() > 0 {
			return []domain.RawRecord{}, nil
		}
		s.log.Warnf("no %q cards on %s, markup may have changed", sel.Card, pageURL)
		return nil, scrapers.NewSourceError(s.cfg.Name, scrapers.KindMarkupChanged,
			fmt.Errorf("selector %q matched nothing", sel.Card))
	}

	var records []domain.RawRecord
	cards.EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if q.Limit > 0 && len(records) >= q.Limit {
			return false
		}
		records = append(records, s.parseCard(card))
		return true
	})
	if !anyUsable(records) {
		s.log.Warnf("%d %q cards on %s but none with title %q and price %q, markup may have changed",
			len(records), sel.Card, pageURL, sel.Title, sel.Price)
		return nil, scrapers.NewSourceError(s.cfg.Name, scrapers.KindMarkupChanged,
			fmt.Errorf("selectors %q / %q matched nothing inside %q", sel.Title, sel.Price, sel.Card))
	}
	s.log.Debugf("%d cards from %s", len(records), pageURL)
	return records, nil
}

// anyUsable reports whether at least one card yielded both a title and a
// price text. Cards matching with every field empty mean the field
// selectors drifted.
func anyUsable(records []domain.RawRecord) bool {
	for _, r := range records {
		if r.Title != "" && r.PriceText != "" {
			return true
		}
	}
	return false
}

func (s *Site) parseCard(card *goquery.Selection) domain.RawRecord {
	sel := s.cfg.Selectors
	r := domain.RawRecord{
		Title:     strings.TrimSpace(card.Find(sel.Title).First().Text()),
		PriceText: strings.TrimSpace(card.Find(sel.Price).First().Text()),
	}

	link := card
	if sel.Link != "" {
		link = card.Find(sel.Link).First()
	}
	if href, ok := link.Attr("href"); ok {
		r.URL = s.resolve(href)
	}
	if sel.Image != "" {
		img := card.Find(sel.Image).First()
		src, ok := img.Attr("src")
		if !ok || src == "" {
			src, _ = img.Attr("data-src")
		}
		if src != "" {
			r.ImageURLs = []string{s.resolve(src)}
		}
	}
	if sel.Countdown != "" {
		r.CountdownText = strings.TrimSpace(card.Find(sel.Countdown).First().Text())
	}
	if sel.Bids != "" {
		r.BidText = strings.TrimSpace(card.Find(sel.Bids).First().Text())
	}
	return r
}

func (s *Site) pageURL(term string) string {
	path := s.cfg.SearchPath
	if term == "" {
		path = s.cfg.BrowsePath
	}
	path = strings.ReplaceAll(path, "{term}", url.QueryEscape(term))
	return strings.TrimRight(s.cfg.BaseURL, "/") + path
}

func (s *Site) resolve(ref string) string {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return s.base.ResolveReference(u).String()
}

func (s *Site) fetchError(err error) error {
	var se *scrapers.SourceError
	if errors.As(err, &se) {
		se.Source = s.cfg.Name
		return se
	}
	return scrapers.NewSourceError(s.cfg.Name, scrapers.KindUnavailable, err)
}
