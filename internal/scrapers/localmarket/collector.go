// Package localmarket collects fixed-price local classifieds. Listings
// carry a seller location and condition but no bids and no end time.
package localmarket

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/ps-vitor/bidscout/internal/domain"
	"github.com/ps-vitor/bidscout/internal/scrapers"
	"github.com/ps-vitor/bidscout/pkg/logger"
)

const (
	resultsSelector = "section.search-results"
	cardSelector    = "div.listing-card"
)

// Config describes one classifieds site.
type Config struct {
	Name    string
	BaseURL string
	// SearchPath is appended to BaseURL; "{term}" is replaced with the
	// escaped search term.
	SearchPath string
	// Country is attached to every parsed location.
	Country string
	Timeout time.Duration
	Budget  *scrapers.RateBudget
}

// Collector scrapes one classifieds site with colly.
type Collector struct {
	cfg Config
	log *logger.Logger
}

func New(cfg Config, log *logger.Logger) *Collector {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Collector{cfg: cfg, log: log.With("localmarket:" + cfg.Name)}
}

func (c *Collector) Name() string { return c.cfg.Name }

// Fetch visits the search page once. A page without the results section,
// or with cards none of which carries a title and price, is reported as
// changed markup; an empty results section is an empty result.
func (c *Collector) Fetch(ctx context.Context, q scrapers.Query) ([]domain.RawRecord, error) {
	if err := scrapers.Admit(c.cfg.Budget, c.cfg.Name); err != nil {
		return nil, err
	}

	col := colly.NewCollector(
		colly.UserAgent(scrapers.BrowserUserAgent),
		colly.StdlibContext(ctx),
	)
	col.SetRequestTimeout(c.cfg.Timeout)

	var (
		records    []domain.RawRecord
		sawResults bool
		usable     bool
		failure    *colly.Response
		failureErr error
	)

	col.OnHTML(resultsSelector, func(e *colly.HTMLElement) {
		sawResults = true
		e.ForEachWithBreak(cardSelector, func(_ int, card *colly.HTMLElement) bool {
			if q.Limit > 0 && len(records) >= q.Limit {
				return false
			}
			r := c.parseCard(card)
			if r.Title != "" && r.PriceText != "" {
				usable = true
			}
			records = append(records, r)
			return true
		})
	})

	col.OnError(func(r *colly.Response, err error) {
		failure = r
		failureErr = err
	})

	pageURL := c.pageURL(q.Term)
	if err := col.Visit(pageURL); err != nil && failureErr == nil {
		failureErr = err
	}

	if failureErr != nil {
		return nil, c.classify(failure, failureErr)
	}
	if !sawResults {
		c.log.Warnf("no %q section on %s, markup may have changed", resultsSelector, pageURL)
		return nil, scrapers.NewSourceError(c.cfg.Name, scrapers.KindMarkupChanged,
			fmt.Errorf("selector %q matched nothing", resultsSelector))
	}
	if len(records) > 0 && !usable {
		c.log.Warnf("%d listing cards on %s but none with a title and price, markup may have changed", len(records), pageURL)
		return nil, scrapers.NewSourceError(c.cfg.Name, scrapers.KindMarkupChanged,
			fmt.Errorf("no %q card had a title and price", cardSelector))
	}
	if records == nil {
		records = []domain.RawRecord{}
	}
	c.log.Debugf("%d listings from %s", len(records), pageURL)
	return records, nil
}

func (c *Collector) parseCard(card *colly.HTMLElement) domain.RawRecord {
	r := domain.RawRecord{
		Title:         strings.TrimSpace(card.ChildText("a.listing-title")),
		PriceText:     strings.TrimSpace(card.ChildText("span.listing-price")),
		LocationText:  strings.TrimSpace(card.ChildText("span.listing-location")),
		ConditionText: strings.TrimSpace(card.ChildText("span.listing-condition")),
		Country:       c.cfg.Country,
		ExternalID:    card.Attr("data-id"),
		NoExpiry:      true,
	}
	if link := card.ChildAttr("a.listing-title", "href"); link != "" {
		r.URL = card.Request.AbsoluteURL(link)
	}
	src := card.ChildAttr("img", "src")
	if src == "" {
		src = card.ChildAttr("img", "data-src")
	}
	if src != "" {
		r.ImageURLs = []string{card.Request.AbsoluteURL(src)}
	}
	return r
}

func (c *Collector) pageURL(term string) string {
	return c.cfg.BaseURL + strings.ReplaceAll(c.cfg.SearchPath, "{term}", url.QueryEscape(term))
}

func (c *Collector) classify(r *colly.Response, err error) error {
	if r != nil && r.StatusCode >= 300 {
		resp := &http.Response{StatusCode: r.StatusCode, Header: http.Header{}}
		if r.Headers != nil {
			resp.Header = *r.Headers
		}
		return scrapers.StatusError(c.cfg.Name, resp)
	}
	return scrapers.NewSourceError(c.cfg.Name, scrapers.KindUnavailable, err)
}
