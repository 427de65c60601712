package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v2"

	"github.com/ps-vitor/bidscout/internal/aggregator"
	"github.com/ps-vitor/bidscout/internal/scoring"
	"github.com/ps-vitor/bidscout/internal/scrapers/htmlsite"
)

// Source kinds.
const (
	KindAuctionAPI  = "auctionapi"
	KindHTMLSite    = "htmlsite"
	KindLocalMarket = "localmarket"
	KindSynthetic   = "synthetic"
)

const defaultTokenEnv = "AUCTION_API_TOKEN"

type Config struct {
	App      AppConfig      `yaml:"app"`
	Scraping ScrapingConfig `yaml:"scraping"`
}

type AppConfig struct {
	Name          string          `yaml:"name"`
	Env           string          `yaml:"env"`
	Debug         bool            `yaml:"debug"`
	Port          int             `yaml:"port"`
	LogLevel      string          `yaml:"log_level"`
	Cache         CacheConfig     `yaml:"cache"`
	Scheduler     SchedulerConfig `yaml:"scheduler"`
	RequestBudget RateLimitConfig `yaml:"request_budget"`
	// TrustedProxies lists the addresses or CIDRs whose X-Forwarded-For
	// header identifies the client. Empty means the header is ignored.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

type CacheConfig struct {
	RedisURL   string `yaml:"redis_url"`
	TTLSeconds int    `yaml:"ttl_seconds"`
	MaxBytes   int64  `yaml:"max_bytes"`
}

func (c CacheConfig) TTL() time.Duration { return time.Duration(c.TTLSeconds) * time.Second }

// SchedulerConfig controls the trending warmer. Feeds are warmed with
// scraping.default_limit so they match GET /api/trending without ?limit.
type SchedulerConfig struct {
	Enabled      bool   `yaml:"enabled"`
	TrendingSpec string `yaml:"trending_spec"`
}

// Interval is the time between two consecutive firings of TrendingSpec.
func (s SchedulerConfig) Interval() (time.Duration, error) {
	sched, err := cron.ParseStandard(s.TrendingSpec)
	if err != nil {
		return 0, err
	}
	ref := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	first := sched.Next(ref)
	return sched.Next(first).Sub(first), nil
}

type RateLimitConfig struct {
	Requests      int `yaml:"requests"`
	WindowSeconds int `yaml:"window_seconds"`
}

func (r RateLimitConfig) Window() time.Duration { return time.Duration(r.WindowSeconds) * time.Second }

type ScrapingConfig struct {
	DefaultHorizonSeconds int64              `yaml:"default_horizon_seconds"`
	DefaultLimit          int                `yaml:"default_limit"`
	MaxLimit              int                `yaml:"max_limit"`
	DefaultSort           string             `yaml:"default_sort"`
	BrowserBin            string             `yaml:"browser_bin"`
	Scoring               scoring.Heuristics `yaml:"scoring"`
	Sources               []SourceConfig     `yaml:"sources"`
}

type SourceConfig struct {
	Name       string `yaml:"name"`
	Kind       string `yaml:"kind"`
	Disabled   bool   `yaml:"disabled"`
	BaseURL    string `yaml:"base_url"`
	SearchPath string `yaml:"search_path"`
	BrowsePath string `yaml:"browse_path"`
	// TimeoutSeconds defaults to 5 for the API and 10 for scraped sites.
	TimeoutSeconds int  `yaml:"timeout_seconds"`
	BestEffort     bool `yaml:"best_effort"`
	// Render fetches pages through the headless browser.
	Render    bool               `yaml:"render"`
	Country   string             `yaml:"country"`
	TokenEnv  string             `yaml:"token_env"`
	RateLimit RateLimitConfig    `yaml:"rate_limit"`
	Selectors htmlsite.Selectors `yaml:"selectors"`

	// Token is read from the TokenEnv environment variable, never from YAML.
	Token string `yaml:"-"`
}

func (s SourceConfig) Timeout() time.Duration { return time.Duration(s.TimeoutSeconds) * time.Second }

// Load reads app.yaml and scraping.yaml from dir, or from
// $BIDSCOUT_CONFIG_DIR, or from ./configs. A .env file in the working
// directory is loaded first when present; environment variables override
// secrets and endpoints.
func Load(dir string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if dir == "" {
		dir = os.Getenv("BIDSCOUT_CONFIG_DIR")
	}
	if dir == "" {
		dir = "configs"
	}

	cfg := &Config{}
	cfg.Scraping.Scoring = scoring.DefaultHeuristics()

	appFile, err := os.ReadFile(filepath.Join(dir, "app.yaml"))
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(appFile, cfg); err != nil {
		return nil, fmt.Errorf("parse app.yaml: %w", err)
	}

	scrapingFile, err := os.ReadFile(filepath.Join(dir, "scraping.yaml"))
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(scrapingFile, &cfg.Scraping); err != nil {
		return nil, fmt.Errorf("parse scraping.yaml: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("BIDSCOUT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BIDSCOUT_PORT must be an integer, got %q", v)
		}
		c.App.Port = port
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.App.Cache.RedisURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.App.LogLevel = v
	}
	for i := range c.Scraping.Sources {
		s := &c.Scraping.Sources[i]
		if s.Kind != KindAuctionAPI {
			continue
		}
		if s.TokenEnv == "" {
			s.TokenEnv = defaultTokenEnv
		}
		s.Token = os.Getenv(s.TokenEnv)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "bidscout"
	}
	if c.App.Port == 0 {
		c.App.Port = 8080
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
		if c.App.Debug {
			c.App.LogLevel = "debug"
		}
	}
	if c.App.Cache.TTLSeconds == 0 {
		c.App.Cache.TTLSeconds = 360
	}
	if c.App.Scheduler.TrendingSpec == "" {
		c.App.Scheduler.TrendingSpec = "@every 5m"
	}
	if c.App.RequestBudget.WindowSeconds == 0 {
		c.App.RequestBudget.WindowSeconds = 60
	}

	if c.Scraping.DefaultLimit == 0 {
		c.Scraping.DefaultLimit = 20
	}
	if c.Scraping.MaxLimit == 0 {
		c.Scraping.MaxLimit = 100
	}
	for i := range c.Scraping.Sources {
		s := &c.Scraping.Sources[i]
		if s.TimeoutSeconds == 0 {
			s.TimeoutSeconds = 10
			if s.Kind == KindAuctionAPI {
				s.TimeoutSeconds = 5
			}
		}
		if s.RateLimit.Requests > 0 && s.RateLimit.WindowSeconds == 0 {
			s.RateLimit.WindowSeconds = 60
		}
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.App.Port < 1 || c.App.Port > 65535 {
		return fmt.Errorf("app.port %d out of range", c.App.Port)
	}
	if c.App.Cache.TTLSeconds < 0 {
		return errors.New("app.cache.ttl_seconds must not be negative")
	}
	if c.App.RequestBudget.Requests < 0 {
		return errors.New("app.request_budget.requests must not be negative")
	}
	for _, p := range c.App.TrustedProxies {
		if _, err := ParseProxy(p); err != nil {
			return fmt.Errorf("app.trusted_proxies: %w", err)
		}
	}
	if c.App.Scheduler.Enabled {
		every, err := c.App.Scheduler.Interval()
		if err != nil {
			return fmt.Errorf("app.scheduler.trending_spec %q: %w", c.App.Scheduler.TrendingSpec, err)
		}
		// A shorter TTL lets warmed feeds expire before the next refresh.
		if c.App.Cache.TTL() < every {
			return fmt.Errorf("app.cache.ttl_seconds (%d) is shorter than the trending refresh interval %v",
				c.App.Cache.TTLSeconds, every)
		}
	}
	if c.Scraping.DefaultLimit < 1 || c.Scraping.MaxLimit < c.Scraping.DefaultLimit {
		return fmt.Errorf("scraping limits must satisfy 1 <= default_limit (%d) <= max_limit (%d)",
			c.Scraping.DefaultLimit, c.Scraping.MaxLimit)
	}
	if _, ok := aggregator.ParseSortKey(c.Scraping.DefaultSort); !ok {
		return fmt.Errorf("scraping.default_sort %q is not a known sort key", c.Scraping.DefaultSort)
	}
	if err := c.Scraping.Scoring.Validate(); err != nil {
		return fmt.Errorf("scraping.scoring: %w", err)
	}

	enabled := 0
	seen := make(map[string]bool)
	for i, s := range c.Scraping.Sources {
		if s.Name == "" {
			return fmt.Errorf("scraping.sources[%d]: name is required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("scraping.sources: duplicate name %q", s.Name)
		}
		seen[s.Name] = true
		if err := s.validate(); err != nil {
			return fmt.Errorf("scraping.sources[%s]: %w", s.Name, err)
		}
		if !s.Disabled {
			enabled++
		}
	}
	if enabled == 0 {
		return errors.New("scraping.sources: no enabled source")
	}
	return nil
}

// ParseProxy accepts a CIDR or a single address.
func ParseProxy(s string) (netip.Prefix, error) {
	if p, err := netip.ParsePrefix(s); err == nil {
		return p.Masked(), nil
	}
	a, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("%q is neither an address nor a CIDR", s)
	}
	return netip.PrefixFrom(a.Unmap(), a.Unmap().BitLen()), nil
}

func (s SourceConfig) validate() error {
	switch s.Kind {
	case KindAuctionAPI, KindLocalMarket:
	case KindHTMLSite:
		if s.Selectors.Card == "" || s.Selectors.Title == "" || s.Selectors.Price == "" {
			return errors.New("selectors.card, title and price are required")
		}
	case KindSynthetic:
		return nil
	default:
		return fmt.Errorf("unknown kind %q", s.Kind)
	}
	if s.BaseURL == "" {
		return errors.New("base_url is required")
	}
	if s.SearchPath == "" {
		return errors.New("search_path is required")
	}
	if s.TimeoutSeconds < 1 {
		return fmt.Errorf("timeout_seconds %d must be positive", s.TimeoutSeconds)
	}
	if s.BestEffort && s.Kind == KindAuctionAPI {
		return errors.New("best_effort is only allowed for scraped sources")
	}
	return nil
}
