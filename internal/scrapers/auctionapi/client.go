// Package auctionapi adapts the formal marketplace REST API. Unlike the
// scraped sources its failures are surfaced as typed errors and never
// replaced with placeholder data.
package auctionapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ps-vitor/bidscout/internal/domain"
	"github.com/ps-vitor/bidscout/internal/scrapers"
	"github.com/ps-vitor/bidscout/pkg/logger"
)

const (
	defaultSearchPath = "/v1/items/search"
	httpTimeout       = 15 * time.Second
	maxLimit          = 200
)

// Config describes one API source.
type Config struct {
	Name    string
	BaseURL string
	// SearchPath defaults to /v1/items/search.
	SearchPath string
	// Token is a bearer token issued by the auth collaborator.
	Token  string
	Budget *scrapers.RateBudget
}

// Client fetches listings from the auction API.
type Client struct {
	name       string
	baseURL    string
	searchPath string
	token      string
	budget     *scrapers.RateBudget
	client     *http.Client
	log        *logger.Logger
}

// New constructs a client with its own HTTP client and budget.
func New(cfg Config, log *logger.Logger) *Client {
	path := cfg.SearchPath
	if path == "" {
		path = defaultSearchPath
	}
	return &Client{
		name:       cfg.Name,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		searchPath: "/" + strings.TrimLeft(path, "/"),
		token:      cfg.Token,
		budget:     cfg.Budget,
		client:     &http.Client{Timeout: httpTimeout},
		log:        log.With("auctionapi:" + cfg.Name),
	}
}

func (c *Client) Name() string { return c.name }

// FiltersCategory is true: the API accepts a category parameter.
func (c *Client) FiltersCategory() bool { return true }

// searchResponse mirrors the top-level search JSON response.
type searchResponse struct {
	Items []apiItem `json:"items"`
	Total int       `json:"total"`
}

type apiItem struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	URL           string     `json:"url"`
	CurrentPrice  *apiMoney  `json:"current_price"`
	StartingPrice *apiMoney  `json:"starting_price"`
	BidCount      *int       `json:"bid_count"`
	EndTime       string     `json:"end_time"`
	Condition     string     `json:"condition"`
	Category      string     `json:"category"`
	Images        []apiImage `json:"images"`
}

type apiMoney struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

type apiImage struct {
	URL string `json:"url"`
}

// Fetch runs one search. Missing credentials, non-2xx responses and
// undecodable bodies all come back as *scrapers.SourceError.
func (c *Client) Fetch(ctx context.Context, q scrapers.Query) ([]domain.RawRecord, error) {
	if c.token == "" {
		return nil, scrapers.NewSourceError(c.name, scrapers.KindAuth, errors.New("no bearer token configured"))
	}
	if err := scrapers.Admit(c.budget, c.name); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL(q), nil)
	if err != nil {
		return nil, scrapers.NewSourceError(c.name, scrapers.KindUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, scrapers.NewSourceError(c.name, scrapers.KindUnavailable, fmt.Errorf("http GET: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, scrapers.StatusError(c.name, resp)
	}

	var apiResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, scrapers.NewSourceError(c.name, scrapers.KindBadResponse, fmt.Errorf("json decode: %w", err))
	}

	records := make([]domain.RawRecord, 0, len(apiResp.Items))
	for _, it := range apiResp.Items {
		if len(records) >= q.Limit && q.Limit > 0 {
			break
		}
		records = append(records, c.toRecord(it))
	}
	c.log.Debugf("%d of %d items for %q", len(records), apiResp.Total, q.Term)
	return records, nil
}

func (c *Client) searchURL(q scrapers.Query) string {
	limit := q.Limit
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if q.Term != "" {
		params.Set("q", q.Term)
	} else {
		params.Set("sort", "ending_soon")
	}
	if q.Category != "" {
		params.Set("category", string(q.Category))
	}
	return c.baseURL + c.searchPath + "?" + params.Encode()
}

func (c *Client) toRecord(it apiItem) domain.RawRecord {
	r := domain.RawRecord{
		Title:         it.Title,
		URL:           it.URL,
		ExternalID:    it.ID,
		ConditionText: it.Condition,
		CategoryHint:  it.Category,
		Bids:          it.BidCount,
	}
	if it.CurrentPrice != nil {
		v := it.CurrentPrice.Value
		r.Price = &v
	}
	if it.StartingPrice != nil {
		v := it.StartingPrice.Value
		r.StartingPrice = &v
	}
	if it.EndTime != "" {
		if t, err := time.Parse(time.RFC3339, it.EndTime); err == nil {
			r.EndsAt = &t
		} else {
			c.log.Debugf("item %s: bad end_time %q", it.ID, it.EndTime)
		}
	}
	for _, img := range it.Images {
		r.ImageURLs = append(r.ImageURLs, img.URL)
	}
	return r
}
