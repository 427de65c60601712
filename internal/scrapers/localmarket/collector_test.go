package localmarket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ps-vitor/bidscout/internal/scrapers"
	"github.com/ps-vitor/bidscout/pkg/logger"
)

const searchPage = `<html><body>
<section class="search-results">
  <div class="listing-card" data-id="cl-1">
    <img src="/images/cl-1.jpg">
    <a class="listing-title" href="/post/cl-1">Mid-century walnut dresser</a>
    <span class="listing-price">$180</span>
    <span class="listing-location">(Austin, TX)</span>
    <span class="listing-condition">like new</span>
  </div>
  <div class="listing-card" data-id="cl-2">
    <a class="listing-title" href="https://other.example.net/post/cl-2">Kids bike</a>
    <span class="listing-price">$25</span>
    <span class="listing-location">Round Rock</span>
  </div>
</section>
</body></html>`

func newTestCollector(srv *httptest.Server) *Collector {
	return New(Config{
		Name:       "craigslist",
		BaseURL:    srv.URL + "/",
		SearchPath: "/search/sss?query={term}",
		Country:    "US",
		Timeout:    5 * time.Second,
	}, logger.Discard())
}

func TestCollectorParsesCards(t *testing.T) {
	var gotUA, gotURI string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotURI = r.URL.RequestURI()
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(searchPage))
	}))
	defer srv.Close()

	recs, err := newTestCollector(srv).Fetch(context.Background(), scrapers.Query{Term: "walnut dresser", Limit: 10})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotUA != scrapers.BrowserUserAgent {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if gotURI != "/search/sss?query=walnut+dresser" {
		t.Errorf("request URI = %q", gotURI)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}

	r := recs[0]
	if r.Title != "Mid-century walnut dresser" || r.PriceText != "$180" {
		t.Errorf("title/price = %q / %q", r.Title, r.PriceText)
	}
	if r.URL != srv.URL+"/post/cl-1" {
		t.Errorf("URL = %q", r.URL)
	}
	if len(r.ImageURLs) != 1 || r.ImageURLs[0] != srv.URL+"/images/cl-1.jpg" {
		t.Errorf("ImageURLs = %v", r.ImageURLs)
	}
	if r.LocationText != "(Austin, TX)" || r.Country != "US" || r.ConditionText != "like new" {
		t.Errorf("location/condition = %q %q %q", r.LocationText, r.Country, r.ConditionText)
	}
	if !r.NoExpiry || r.ExternalID != "cl-1" {
		t.Errorf("NoExpiry/ExternalID = %v / %q", r.NoExpiry, r.ExternalID)
	}
	if r.Bids != nil || r.BidText != "" {
		t.Error("classifieds have no bids")
	}

	if recs[1].URL != "https://other.example.net/post/cl-2" || recs[1].ImageURLs != nil {
		t.Errorf("second record = %+v", recs[1])
	}
}

func TestCollectorLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(searchPage))
	}))
	defer srv.Close()

	recs, err := newTestCollector(srv).Fetch(context.Background(), scrapers.Query{Term: "x", Limit: 1})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("got %d records, want 1", len(recs))
	}
}

func TestCollectorEmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><section class="search-results"></section></body></html>`))
	}))
	defer srv.Close()

	recs, err := newTestCollector(srv).Fetch(context.Background(), scrapers.Query{Term: "x", Limit: 5})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if recs == nil || len(recs) != 0 {
		t.Errorf("want empty non-nil slice, got %v", recs)
	}
}

func TestCollectorDriftedCards(t *testing.T) {
	// The results section and cards are still there, the title and price
	// classes are not.
	page := strings.NewReplacer(
		`class="listing-title"`, `class="post-heading"`,
		`class="listing-price"`, `class="post-amount"`,
	).Replace(searchPage)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	recs, err := newTestCollector(srv).Fetch(context.Background(), scrapers.Query{Term: "x", Limit: 5})
	if !errors.Is(err, scrapers.ErrMarkupChanged) {
		t.Fatalf("err = %v, want ErrMarkupChanged", err)
	}
	if recs != nil {
		t.Errorf("drifted page returned records: %v", recs)
	}
}

func TestCollectorFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"markup changed", http.StatusOK, `<html><body><div class="grid"></div></body></html>`, scrapers.ErrMarkupChanged},
		{"not found", http.StatusNotFound, "gone", scrapers.ErrUnavailable},
		{"throttled", http.StatusTooManyRequests, "slow down", scrapers.ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", "5")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			recs, err := newTestCollector(srv).Fetch(context.Background(), scrapers.Query{Term: "x", Limit: 5})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if recs != nil {
				t.Errorf("failed fetch returned records: %v", recs)
			}
			var se *scrapers.SourceError
			if !errors.As(err, &se) || se.Source != "craigslist" {
				t.Errorf("error not tagged with source: %v", err)
			}
		})
	}
}

func TestCollectorUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := newTestCollector(srv)
	srv.Close()

	_, err := c.Fetch(context.Background(), scrapers.Query{Term: "x", Limit: 1})
	if !errors.Is(err, scrapers.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}
