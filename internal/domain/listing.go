// internal/domain/listing.go
package domain

import "time"

// Category is the canonical product category of a listing.
type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryFashion     Category = "fashion"
	CategoryHome        Category = "home"
	CategoryVehicles    Category = "vehicles"
	CategoryFurniture   Category = "furniture"
	CategoryTools       Category = "tools"
	CategoryToys        Category = "toys"
	CategoryBooks       Category = "books"
	CategoryOther       Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryElectronics, CategoryFashion, CategoryHome, CategoryVehicles,
	CategoryFurniture, CategoryTools, CategoryToys, CategoryBooks, CategoryOther,
}

// ParseCategory returns the category named s and whether it is known.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Condition is the item condition reported (or assumed) for a listing.
type Condition string

const (
	ConditionNew     Condition = "new"
	ConditionLikeNew Condition = "like-new"
	ConditionGood    Condition = "good"
	ConditionFair    Condition = "fair"
)

// CompetitionLevel buckets bidding activity.
type CompetitionLevel string

const (
	CompetitionLow    CompetitionLevel = "low"
	CompetitionMedium CompetitionLevel = "medium"
	CompetitionHigh   CompetitionLevel = "high"
)

type Image struct {
	URL     string `json:"url"`
	AltText string `json:"altText"`
}

// SyntheticSuffix is appended to the platform of placeholder listings.
const SyntheticSuffix = "-synthetic"

// Source records where a listing came from. ExternalID is nil for sources
// that expose no stable identifier.
type Source struct {
	Platform   string  `json:"platform"`
	ExternalID *string `json:"externalId"`
	URL        string  `json:"url"`
}

type Location struct {
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`
}

type Score struct {
	DealPotential    int              `json:"dealPotential"`
	CompetitionLevel CompetitionLevel `json:"competitionLevel"`
	TrendingScore    int              `json:"trendingScore"`
}

// Listing is the canonical, normalized representation of one marketplace
// item. Listings are built once per search and never modified afterwards.
type Listing struct {
	Title                string    `json:"title"`
	Category             Category  `json:"category"`
	Condition            Condition `json:"condition"`
	CurrentPrice         float64   `json:"currentPrice"`
	StartingPrice        float64   `json:"startingPrice,omitempty"`
	BidCount             int       `json:"bidCount"`
	TimeRemainingSeconds int64     `json:"timeRemainingSeconds"`
	Images               []Image   `json:"images"`
	Source               Source    `json:"source"`
	Location             *Location `json:"location,omitempty"`
	Score                Score     `json:"score"`
	Tags                 []string  `json:"tags"`
	Synthetic            bool      `json:"synthetic,omitempty"`
}

// RawRecord is what an adapter hands to the normalizer. Scraped sources
// fill the free-text fields; API sources fill the typed pointers, which take
// precedence when both are present.
type RawRecord struct {
	Title      string
	URL        string
	ExternalID string
	ImageURLs  []string

	PriceText     string
	CountdownText string
	BidText       string
	ConditionText string
	LocationText  string
	Country       string
	CategoryHint  string

	Price         *float64
	StartingPrice *float64
	EndsAt        *time.Time
	Bids          *int

	// NoExpiry marks fixed-price sources; the default horizon applies.
	NoExpiry  bool
	Synthetic bool
}
