package htmlsite

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

const listingPage = `<html><body>
<div class="results">
  <div class="item">
    <a class="item-link" href="/item/101">
      <h3 class="item-title">  Vintage   Nikon F3 camera </h3>
    </a>
    <img class="thumb" src="/img/101.jpg">
    <span class="price">$45.50</span>
    <span class="ends">2d 3h</span>
    <span class="bids">12 bids</span>
  </div>
  <div class="item">
    <a class="item-link" href="https://cdn.example.org/item/102">
      <h3 class="item-title">Cordless drill</h3>
    </a>
    <img class="thumb" data-src="https://cdn.example.org/102.jpg">
    <span class="price">$120.00</span>
    <span class="ends">45m</span>
    <span class="bids">No bids</span>
  </div>
  <div class="item">
    <a class="item-link" href="/item/103"><h3 class="item-title">Oak table</h3></a>
    <span class="price">$80</span>
  </div>
</div>
</body></html>`

var testSelectors = Selectors{
	Card:      "div.item",
	Title:     ".item-title",
	Price:     ".price",
	Link:      "a.item-link",
	Image:     "img.thumb",
	Countdown: ".ends",
	Bids:      ".bids",
	Empty:     ".no-results",
}

func newTestSite(t *testing.T, srv *httptest.Server) *Site {
	t.Helper()
	s, err := New(Config{
		Name:       "shopgoodwill",
		BaseURL:    srv.URL,
		SearchPath: "/search?q={term}",
		BrowsePath: "/ending-soon",
		Selectors:  testSelectors,
		Fetcher:    NewHTTPFetcher(5 * time.Second),
	}, logger.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestSiteParsesCards(t *testing.T) {
	var gotUA, gotURI string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotURI = r.URL.RequestURI()
		w.Write([]byte(listingPage))
	}))
	defer srv.Close()

	recs, err := newTestSite(t, srv).Fetch(context.Background(), scrapers.Query{Term: "nikon camera", Limit: 10})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotUA != scrapers.BrowserUserAgent {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if gotURI != "/search?q=nikon+camera" {
		t.Errorf("request URI = %q", gotURI)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}

	first := recs[0]
	if first.Title != "Vintage   Nikon F3 camera" {
		t.Errorf("Title = %q", first.Title)
	}
	if first.URL != srv.URL+"/item/101" {
		t.Errorf("URL = %q", first.URL)
	}
	if len(first.ImageURLs) != 1 || first.ImageURLs[0] != srv.URL+"/img/101.jpg" {
		t.Errorf("ImageURLs = %v", first.ImageURLs)
	}
	if first.PriceText != "$45.50" || first.CountdownText != "2d 3h" || first.BidText != "12 bids" {
		t.Errorf("unexpected texts %+v", first)
	}

	second := recs[1]
	if second.URL != "https://cdn.example.org/item/102" {
		t.Errorf("absolute URL rewritten: %q", second.URL)
	}
	if len(second.ImageURLs) != 1 || second.ImageURLs[0] != "https://cdn.example.org/102.jpg" {
		t.Errorf("data-src fallback failed: %v", second.ImageURLs)
	}

	if third := recs[2]; third.ImageURLs != nil || third.CountdownText != "" {
		t.Errorf("missing fields should stay empty: %+v", third)
	}
}

func TestSiteBrowsePathAndLimit(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(listingPage))
	}))
	defer srv.Close()

	recs, err := newTestSite(t, srv).Fetch(context.Background(), scrapers.Query{Limit: 2})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotPath != "/ending-soon" {
		t.Errorf("path = %q, want /ending-soon", gotPath)
	}
	if len(recs) != 2 {
		t.Errorf("got %d records, want 2", len(recs))
	}
}

func TestSiteFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"markup changed", http.StatusOK, `<html><body><ul class="new-grid"></ul></body></html>`, scrapers.ErrMarkupChanged},
		{"server error", http.StatusServiceUnavailable, "", scrapers.ErrUnavailable},
		{"blocked", http.StatusForbidden, "", scrapers.ErrAuth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			recs, err := newTestSite(t, srv).Fetch(context.Background(), scrapers.Query{Term: "x", Limit: 5})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if recs != nil {
				t.Errorf("failed fetch returned records: %v", recs)
			}
			var se *scrapers.SourceError
			if !errors.As(err, &se) || se.Source != "shopgoodwill" {
				t.Errorf("error not tagged with source: %v", err)
			}
		})
	}
}

func TestSiteDriftedFieldSelectors(t *testing.T) {
	// Cards still match but the price class was renamed.
	drifted := strings.ReplaceAll(listingPage, `class="price"`, `class="cost-v2"`)
	f := &stubFetcher{html: drifted}
	s, err := New(Config{
		Name:       "shopgoodwill",
		BaseURL:    "https://sgw.example.com",
		SearchPath: "/search?q={term}",
		Selectors:  testSelectors,
		Fetcher:    f,
	}, logger.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	recs, err := s.Fetch(context.Background(), scrapers.Query{Term: "camera", Limit: 10})
	if !errors.Is(err, scrapers.ErrMarkupChanged) {
		t.Fatalf("err = %v, want ErrMarkupChanged", err)
	}
	if recs != nil {
		t.Errorf("drifted page returned records: %v", recs)
	}

	// One usable card is enough.
	f.html = strings.Replace(drifted, `class="cost-v2"`, `class="price"`, 1)
	recs, err = s.Fetch(context.Background(), scrapers.Query{Term: "camera", Limit: 10})
	if err != nil {
		t.Fatalf("Fetch with one usable card: %v", err)
	}
	if len(recs) != 3 {
		t.Errorf("got %d records, want 3", len(recs))
	}
}

func TestSiteEmptyResultsIsNotAFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p class="no-results">Nothing found</p></body></html>`))
	}))
	defer srv.Close()

	recs, err := newTestSite(t, srv).Fetch(context.Background(), scrapers.Query{Term: "zzz", Limit: 5})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if recs == nil || len(recs) != 0 {
		t.Errorf("want empty non-nil slice, got %v", recs)
	}
}

func TestSiteUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	s := newTestSite(t, srv)
	srv.Close()

	_, err := s.Fetch(context.Background(), scrapers.Query{Term: "x", Limit: 1})
	if !errors.Is(err, scrapers.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

type stubFetcher struct {
	html string
	url  string
}

func (f *stubFetcher) FetchPage(_ context.Context, url string) (string, error) {
	f.url = url
	return f.html, nil
}

func TestSiteUsesInjectedFetcher(t *testing.T) {
	f := &stubFetcher{html: listingPage}
	s, err := New(Config{
		Name:       "hibid",
		BaseURL:    "https://hibid.example.com/",
		SearchPath: "/lots?search={term}",
		Selectors:  testSelectors,
		Fetcher:    f,
	}, logger.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	recs, err := s.Fetch(context.Background(), scrapers.Query{Term: "drill", Limit: 1})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if f.url != "https://hibid.example.com/lots?search=drill" {
		t.Errorf("fetched %q", f.url)
	}
	if len(recs) != 1 || recs[0].URL != "https://hibid.example.com/item/101" {
		t.Errorf("unexpected records %+v", recs)
	}
}

func TestNewValidates(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no base url", Config{Name: "a", Selectors: testSelectors}},
		{"relative base url", Config{Name: "a", BaseURL: "/x", Selectors: testSelectors}},
		{"no card selector", Config{Name: "a", BaseURL: "https://a.example", Selectors: Selectors{Title: "t", Price: "p"}}},
	}
	for _, tt := range tests {
		if _, err := New(tt.cfg, logger.Discard()); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}
