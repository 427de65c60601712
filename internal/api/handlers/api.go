package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/ps-vitor/bidscout/internal/aggregator"
	"github.com/ps-vitor/bidscout/internal/domain"
	"github.com/ps-vitor/bidscout/internal/services"
	"github.com/ps-vitor/bidscout/pkg/logger"
)

// FeedProvider serves search and trending feeds.
type FeedProvider interface {
	Search(ctx context.Context, req aggregator.Request) (*services.Feed, error)
	Trending(ctx context.Context, limit int, category domain.Category) (*services.Feed, error)
}

type Options struct {
	DefaultLimit int
	MaxLimit     int
	DefaultSort  aggregator.SortKey
	Budget       *ClientBudget
}

type APIHandler struct {
	feeds   FeedProvider
	sources []services.SourceInfo
	opts    Options
	log     *logger.Logger
}

func NewAPIHandler(feeds FeedProvider, sources []services.SourceInfo, opts Options, log *logger.Logger) *APIHandler {
	if opts.DefaultLimit < 1 {
		opts.DefaultLimit = 20
	}
	if opts.MaxLimit < opts.DefaultLimit {
		opts.MaxLimit = opts.DefaultLimit
	}
	if opts.DefaultSort == "" {
		opts.DefaultSort = aggregator.SortDealPotential
	}
	return &APIHandler{feeds: feeds, sources: sources, opts: opts, log: log.With("api")}
}

// RegisterRoutes mounts the API on r. The request budget applies to /api
// routes only.
func (h *APIHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.opts.Budget.Middleware)
	api.HandleFunc("/search", h.handleSearch).Methods(http.MethodGet)
	api.HandleFunc("/trending", h.handleTrending).Methods(http.MethodGet)
	api.HandleFunc("/sources", h.handleSources).Methods(http.MethodGet)
}

func (h *APIHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) handleSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"sources": h.sources})
}

func (h *APIHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := h.parseLimit(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	category, err := parseCategory(q.Get("category"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sortKey := h.opts.DefaultSort
	if s := q.Get("sort"); s != "" {
		k, ok := aggregator.ParseSortKey(s)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown sort %q", s))
			return
		}
		sortKey = k
	}

	feed, err := h.feeds.Search(r.Context(), aggregator.Request{
		Term:     strings.TrimSpace(q.Get("q")),
		Limit:    limit,
		Category: category,
		Sort:     sortKey,
	})
	h.respond(w, r, feed, err)
}

func (h *APIHandler) handleTrending(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := h.parseLimit(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	category, err := parseCategory(q.Get("category"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	feed, err := h.feeds.Trending(r.Context(), limit, category)
	h.respond(w, r, feed, err)
}

// respond writes the feed. An all-failed feed is a 503 whose body still
// carries the diagnostics.
func (h *APIHandler) respond(w http.ResponseWriter, r *http.Request, feed *services.Feed, err error) {
	if err != nil {
		if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
			h.log.Debugf("%s cancelled by client", r.URL.Path)
			return
		}
		h.log.Errorf("%s: %v", r.URL.Path, err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	status := http.StatusOK
	if feed.AllSourcesFailed {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, feed)
}

func (h *APIHandler) parseLimit(s string) (int, error) {
	if s == "" {
		return h.opts.DefaultLimit, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("limit must be a positive integer, got %q", s)
	}
	if n > h.opts.MaxLimit {
		n = h.opts.MaxLimit
	}
	return n, nil
}

func parseCategory(s string) (domain.Category, error) {
	if s == "" {
		return "", nil
	}
	c, ok := domain.ParseCategory(strings.ToLower(s))
	if !ok {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
