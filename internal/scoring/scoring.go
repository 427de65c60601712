// Package scoring computes the source-agnostic deal metrics attached to
// every listing. All scorers are pure so results from different adapters
// stay comparable on one scale.
package scoring

import (
	"errors"
	"fmt"

	"github.com/ps-vitor/bidscout/internal/domain"
)

// Tier awards Bonus when a value is strictly below Below.
type Tier struct {
	Below float64 `yaml:"below"`
	Bonus int     `yaml:"bonus"`
}

// Heuristics holds the tuning constants. Tiers are evaluated in order and
// the first matching tier wins, so they must be sorted by Below ascending.
type Heuristics struct {
	DealBase       int    `yaml:"deal_base"`
	PriceTiers     []Tier `yaml:"price_tiers"`
	UrgencyTiers   []Tier `yaml:"urgency_tiers"`
	NoBidBonus     int    `yaml:"no_bid_bonus"`
	FewBidsBelow   int    `yaml:"few_bids_below"`
	FewBidsBonus   int    `yaml:"few_bids_bonus"`
	TrendingBase   int    `yaml:"trending_base"`
	PerBidBonus    int    `yaml:"per_bid_bonus"`
	MaxBidBonus    int    `yaml:"max_bid_bonus"`
	RecencyTiers   []Tier `yaml:"recency_tiers"`
	MediumBidsFrom int    `yaml:"medium_bids_from"`
	HighBidsFrom   int    `yaml:"high_bids_from"`
}

// DefaultHeuristics returns the stock constants.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		DealBase: 50,
		PriceTiers: []Tier{
			{Below: 50, Bonus: 20},
			{Below: 100, Bonus: 15},
			{Below: 500, Bonus: 10},
		},
		UrgencyTiers: []Tier{
			{Below: 3600, Bonus: 15},
			{Below: 86400, Bonus: 10},
		},
		NoBidBonus:   15,
		FewBidsBelow: 3,
		FewBidsBonus: 10,
		TrendingBase: 30,
		PerBidBonus:  5,
		MaxBidBonus:  40,
		RecencyTiers: []Tier{
			{Below: 3600, Bonus: 20},
			{Below: 86400, Bonus: 10},
		},
		MediumBidsFrom: 1,
		HighBidsFrom:   5,
	}
}

var defaults = DefaultHeuristics()

// Validate rejects heuristics the scorers cannot apply as intended.
func (h Heuristics) Validate() error {
	for name, tiers := range map[string][]Tier{
		"price_tiers":   h.PriceTiers,
		"urgency_tiers": h.UrgencyTiers,
		"recency_tiers": h.RecencyTiers,
	} {
		for i := 1; i < len(tiers); i++ {
			if tiers[i].Below <= tiers[i-1].Below {
				return fmt.Errorf("%s must be sorted by below ascending", name)
			}
		}
	}
	if h.PerBidBonus < 0 || h.MaxBidBonus < 0 {
		return errors.New("bid bonuses must not be negative")
	}
	if h.MediumBidsFrom < 1 || h.HighBidsFrom < h.MediumBidsFrom {
		return fmt.Errorf("competition thresholds must satisfy 1 <= medium (%d) <= high (%d)", h.MediumBidsFrom, h.HighBidsFrom)
	}
	return nil
}

// DealPotential scores price, urgency and lack of competition.
func DealPotential(price float64, timeRemainingSeconds int64, bidCount int) int {
	return defaults.DealPotential(price, timeRemainingSeconds, bidCount)
}

// CompetitionLevel buckets bidCount into low, medium or high.
func CompetitionLevel(bidCount int) domain.CompetitionLevel {
	return defaults.CompetitionLevel(bidCount)
}

// TrendingScore scores bidding momentum and recency.
func TrendingScore(timeRemainingSeconds int64, bidCount int) int {
	return defaults.TrendingScore(timeRemainingSeconds, bidCount)
}

// Score computes all three metrics at once.
func Score(price float64, timeRemainingSeconds int64, bidCount int) domain.Score {
	return defaults.Score(price, timeRemainingSeconds, bidCount)
}

func (h Heuristics) DealPotential(price float64, timeRemainingSeconds int64, bidCount int) int {
	score := h.DealBase
	score += tierBonus(h.PriceTiers, price)
	score += tierBonus(h.UrgencyTiers, float64(timeRemainingSeconds))
	switch {
	case bidCount <= 0:
		score += h.NoBidBonus
	case bidCount < h.FewBidsBelow:
		score += h.FewBidsBonus
	}
	return clamp(score)
}

func (h Heuristics) CompetitionLevel(bidCount int) domain.CompetitionLevel {
	switch {
	case bidCount >= h.HighBidsFrom:
		return domain.CompetitionHigh
	case bidCount >= h.MediumBidsFrom:
		return domain.CompetitionMedium
	default:
		return domain.CompetitionLow
	}
}

func (h Heuristics) TrendingScore(timeRemainingSeconds int64, bidCount int) int {
	score := h.TrendingBase
	if bidCount > 0 && h.PerBidBonus > 0 {
		// divide first so huge bid counts cannot overflow
		if bidCount > h.MaxBidBonus/h.PerBidBonus {
			score += h.MaxBidBonus
		} else {
			score += bidCount * h.PerBidBonus
		}
	}
	score += tierBonus(h.RecencyTiers, float64(timeRemainingSeconds))
	return clamp(score)
}

func (h Heuristics) Score(price float64, timeRemainingSeconds int64, bidCount int) domain.Score {
	return domain.Score{
		DealPotential:    h.DealPotential(price, timeRemainingSeconds, bidCount),
		CompetitionLevel: h.CompetitionLevel(bidCount),
		TrendingScore:    h.TrendingScore(timeRemainingSeconds, bidCount),
	}
}

func tierBonus(tiers []Tier, v float64) int {
	for _, t := range tiers {
		if v < t.Below {
			return t.Bonus
		}
	}
	return 0
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
