package normalize

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ps-vitor/bidscout/internal/domain"
	"github.com/ps-vitor/bidscout/internal/scoring"
)

// ErrEmptyTitle is returned for records that carry no usable title.
var ErrEmptyTitle = errors.New("empty title")

// Normalizer assembles canonical listings from raw adapter records and
// scores them. It holds only immutable settings and is safe for concurrent use.
type Normalizer struct {
	heuristics scoring.Heuristics
	horizon    int64
	now        func() time.Time
}

// New creates a Normalizer. horizon is the countdown, in seconds, given to
// listings from sources without an expiry; values <= 0 select DefaultHorizon.
func New(h scoring.Heuristics, horizon int64) *Normalizer {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	return &Normalizer{heuristics: h, horizon: horizon, now: time.Now}
}

// WithClock returns a copy of n that reads the current time from now.
func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	c := *n
	c.now = now
	return &c
}

// Listing converts r into a scored listing attributed to platform. Only an
// empty title or an unrecoverable price rejects the record; every other
// field falls back to its default.
func (n *Normalizer) Listing(platform string, r domain.RawRecord) (domain.Listing, error) {
	title := NormalizeTitle(r.Title)
	if title == "" {
		return domain.Listing{}, ErrEmptyTitle
	}

	price, err := n.price(r)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("%q: %w", title, err)
	}

	remaining := n.timeRemaining(r)

	bids := 0
	if r.Bids != nil {
		bids = *r.Bids
	} else {
		bids = ParseBidCount(r.BidText)
	}
	if bids < 0 {
		bids = 0
	}

	category, ok := domain.ParseCategory(r.CategoryHint)
	if !ok {
		category = InferCategory(title)
	}

	l := domain.Listing{
		Title:                title,
		Category:             category,
		Condition:            ParseCondition(r.ConditionText),
		CurrentPrice:         price,
		BidCount:             bids,
		TimeRemainingSeconds: remaining,
		Images:               images(title, r.ImageURLs),
		Source: domain.Source{
			Platform: sourcePlatform(platform, r.Synthetic),
			URL:      r.URL,
		},
		Location:  ParseLocation(r.LocationText, r.Country),
		Score:     n.heuristics.Score(price, remaining, bids),
		Tags:      ExtractTags(title),
		Synthetic: r.Synthetic,
	}
	if r.StartingPrice != nil && *r.StartingPrice >= 0 {
		l.StartingPrice = roundCents(*r.StartingPrice)
	}
	if r.ExternalID != "" {
		id := r.ExternalID
		l.Source.ExternalID = &id
	}
	return l, nil
}

func (n *Normalizer) price(r domain.RawRecord) (float64, error) {
	if r.Price != nil {
		if *r.Price < 0 || math.IsNaN(*r.Price) || math.IsInf(*r.Price, 0) {
			return 0, ErrUnparseablePrice
		}
		return roundCents(*r.Price), nil
	}
	v, err := ParsePrice(r.PriceText)
	if err != nil {
		return 0, err
	}
	return roundCents(v), nil
}

func (n *Normalizer) timeRemaining(r domain.RawRecord) int64 {
	switch {
	case r.EndsAt != nil:
		secs := int64(r.EndsAt.Sub(n.now()) / time.Second)
		if secs < 0 {
			return 0
		}
		return secs
	case r.NoExpiry:
		return n.horizon
	default:
		return ParseCountdown(r.CountdownText)
	}
}

// sourcePlatform marks synthetic records so consumers can tell them from
// real data by platform alone.
func sourcePlatform(platform string, synthetic bool) string {
	if synthetic && !strings.HasSuffix(platform, domain.SyntheticSuffix) {
		return platform + domain.SyntheticSuffix
	}
	return platform
}

func images(title string, urls []string) []domain.Image {
	out := make([]domain.Image, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		out = append(out, domain.Image{URL: u, AltText: title})
	}
	return out
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
