package handlers

import (
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ps-vitor/bidscout/internal/scrapers"
)

const pruneThreshold = 10000

// ClientBudget limits each client to a number of requests per window and
// answers 429 with Retry-After once a client's budget is spent.
type ClientBudget struct {
	limit  int
	window time.Duration
	now    func() time.Time

	// proxies may set X-Forwarded-For; other peers are keyed by their own
	// address.
	proxies []netip.Prefix

	mu      sync.Mutex
	clients map[string]*scrapers.RateBudget
}

// NewClientBudget returns nil (no limiting) when limit <= 0.
func NewClientBudget(limit int, window time.Duration) *ClientBudget {
	if limit <= 0 || window <= 0 {
		return nil
	}
	return &ClientBudget{
		limit:   limit,
		window:  window,
		now:     time.Now,
		clients: make(map[string]*scrapers.RateBudget),
	}
}

// TrustProxies lets peers inside prefixes name the client through
// X-Forwarded-For.
func (b *ClientBudget) TrustProxies(prefixes ...netip.Prefix) *ClientBudget {
	if b != nil {
		b.proxies = append(b.proxies, prefixes...)
	}
	return b
}

// Allow consumes one request for client.
func (b *ClientBudget) Allow(client string) (bool, time.Duration) {
	b.mu.Lock()
	rb, ok := b.clients[client]
	if !ok {
		if len(b.clients) >= pruneThreshold {
			b.prune()
		}
		rb = scrapers.NewRateBudget(b.limit, b.window).WithClock(b.now)
		b.clients[client] = rb
	}
	b.mu.Unlock()
	return rb.Take()
}

// prune drops clients whose window has expired. Callers hold b.mu.
func (b *ClientBudget) prune() {
	for k, rb := range b.clients {
		if rb.Remaining() == b.limit {
			delete(b.clients, k)
		}
	}
}

// Middleware enforces the budget. A nil budget passes everything.
func (b *ClientBudget) Middleware(next http.Handler) http.Handler {
	if b == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := b.Allow(b.clientKey(r))
		if !ok {
			secs := int(math.Ceil(wait.Seconds()))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeError(w, http.StatusTooManyRequests, "request budget exhausted")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey identifies the caller by its remote address. When that peer is
// a trusted proxy, X-Forwarded-For is walked from the right and the first
// untrusted hop is the client.
func (b *ClientBudget) clientKey(r *http.Request) string {
	client, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		client = r.RemoteAddr
	}
	if !b.trusted(client) {
		return client
	}
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		client = hop
		if !b.trusted(hop) {
			break
		}
	}
	return client
}

func (b *ClientBudget) trusted(host string) bool {
	if len(b.proxies) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range b.proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
