// Package synthetic generates deterministic placeholder listings. It is
// used directly as a demo source and, through BestEffort, as the fallback
// for scraped sources that are allowed to degrade.
package synthetic

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/ps-vitor/bidscout/internal/domain"
	"github.com/ps-vitor/bidscout/internal/scrapers"
)

var nouns = map[domain.Category][]string{
	domain.CategoryElectronics: {"Bluetooth speaker", "Tablet", "Mirrorless camera", "Laptop"},
	domain.CategoryFashion:     {"Leather jacket", "Wool coat", "Sneakers", "Handbag"},
	domain.CategoryHome:        {"Table lamp", "Cookware set", "Area rug", "Wall clock"},
	domain.CategoryVehicles:    {"Motorcycle helmet", "Roof rack", "Bike trailer", "Car stereo"},
	domain.CategoryFurniture:   {"Oak dresser", "Office chair", "Bookshelf", "Coffee table"},
	domain.CategoryTools:       {"Cordless drill", "Socket set", "Table saw", "Tool chest"},
	domain.CategoryToys:        {"Building blocks", "Model train", "Board game", "Action figure"},
	domain.CategoryBooks:       {"First edition novel", "Comic collection", "Cookbook", "Atlas"},
	domain.CategoryOther:       {"Mystery box", "Estate lot", "Storage bin", "Collectible pin"},
}

var adjectives = []string{"Vintage", "Used", "Refurbished", "Boxed", "Classic", "Compact"}

var conditions = []string{"new", "like new", "good", "fair"}

// Adapter produces the same records for the same name and query.
type Adapter struct {
	name    string
	baseURL string
}

// New returns a generator named name. Item URLs are built under baseURL
// when it is set.
func New(name, baseURL string) *Adapter {
	return &Adapter{name: name, baseURL: strings.TrimRight(baseURL, "/")}
}

func (a *Adapter) Name() string { return a.name }

// FiltersCategory is true: generated records always match the query
// category.
func (a *Adapter) FiltersCategory() bool { return true }

func (a *Adapter) Fetch(_ context.Context, q scrapers.Query) ([]domain.RawRecord, error) {
	return a.generate(q), nil
}

func (a *Adapter) generate(q scrapers.Query) []domain.RawRecord {
	limit := q.Limit
	if limit < 1 {
		limit = 1
	}

	seed := xxhash.Sum64String(a.name + "\x00" + q.Term + "\x00" + string(q.Category))
	rng := rand.New(rand.NewPCG(seed, seed>>7|1))

	records := make([]domain.RawRecord, 0, limit)
	for i := 0; i < limit; i++ {
		cat := q.Category
		if _, ok := nouns[cat]; !ok {
			cat = domain.Categories[i%len(domain.Categories)]
		}
		choices := nouns[cat]

		subject := choices[rng.IntN(len(choices))]
		if q.Term != "" {
			subject = strings.TrimSpace(q.Term) + " " + strings.ToLower(subject)
		}
		title := adjectives[rng.IntN(len(adjectives))] + " " + subject

		price := float64(500+rng.IntN(49500)) / 100
		bids := rng.IntN(15)
		id := fmt.Sprintf("%016x-%d", seed, i)

		r := domain.RawRecord{
			Title:         title,
			ExternalID:    id,
			Price:         &price,
			Bids:          &bids,
			CountdownText: fmt.Sprintf("%dh %dm", rng.IntN(72), rng.IntN(60)),
			ConditionText: conditions[rng.IntN(len(conditions))],
			CategoryHint:  string(cat),
			Synthetic:     true,
		}
		if a.baseURL != "" {
			r.URL = a.baseURL + "/synthetic/" + id
		}
		records = append(records, r)
	}
	return records
}
