package aggregator

import (
	"sort"

	"github.com/ps-vitor/bidscout/internal/domain"
)

// SortKey selects the feed order.
type SortKey string

const (
	SortDealPotential SortKey = "deal"
	SortTrending      SortKey = "trending"
	SortEndingSoon    SortKey = "ending_soon"
	SortPriceAsc      SortKey = "price_asc"
)

// ParseSortKey accepts the known keys; "" selects SortDealPotential.
func ParseSortKey(s string) (SortKey, bool) {
	switch k := SortKey(s); k {
	case "":
		return SortDealPotential, true
	case SortDealPotential, SortTrending, SortEndingSoon, SortPriceAsc:
		return k, true
	}
	return "", false
}

// less orders listings by key. Ties on the primary key fall back to the
// soonest ending listing; remaining ties keep merge order.
func less(key SortKey) func(a, b *domain.Listing) bool {
	switch key {
	case SortTrending:
		return func(a, b *domain.Listing) bool {
			if a.Score.TrendingScore != b.Score.TrendingScore {
				return a.Score.TrendingScore > b.Score.TrendingScore
			}
			return a.TimeRemainingSeconds < b.TimeRemainingSeconds
		}
	case SortEndingSoon:
		return func(a, b *domain.Listing) bool {
			return a.TimeRemainingSeconds < b.TimeRemainingSeconds
		}
	case SortPriceAsc:
		return func(a, b *domain.Listing) bool {
			if a.CurrentPrice != b.CurrentPrice {
				return a.CurrentPrice < b.CurrentPrice
			}
			return a.TimeRemainingSeconds < b.TimeRemainingSeconds
		}
	default:
		return func(a, b *domain.Listing) bool {
			if a.Score.DealPotential != b.Score.DealPotential {
				return a.Score.DealPotential > b.Score.DealPotential
			}
			return a.TimeRemainingSeconds < b.TimeRemainingSeconds
		}
	}
}

func sortListings(items []domain.Listing, key SortKey) {
	cmp := less(key)
	sort.SliceStable(items, func(i, j int) bool { return cmp(&items[i], &items[j]) })
}
