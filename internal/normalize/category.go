package normalize

import (
	"regexp"
	"strings"

	"github.com/ps-vitor/bidscout/internal/domain"
)

// categoryTable is evaluated top to bottom and the first hit wins, so more
// specific keywords must come before the generic ones they overlap with
// (e.g. "lego car" is toys, not vehicles).
var categoryTable = []struct {
	category domain.Category
	keywords []string
}{
	{domain.CategoryElectronics, []string{
		"iphone", "ipad", "macbook", "laptop", "computer", "monitor", "camera",
		"lens", "phone", "tablet", "tv", "television", "headphones", "airpods",
		"speaker", "console", "playstation", "ps5", "xbox", "nintendo", "switch",
		"drone", "gpu", "graphics card",
	}},
	{domain.CategoryToys, []string{
		"lego", "toy", "doll", "barbie", "puzzle", "action figure", "hot wheels",
		"board game", "plush", "funko",
	}},
	{domain.CategoryTools, []string{
		"drill", "saw", "wrench", "toolbox", "tool chest", "tool set", "tools",
		"tool", "sander", "grinder", "compressor", "dewalt", "makita", "milwaukee",
	}},
	{domain.CategoryVehicles, []string{
		"car", "truck", "suv", "sedan", "motorcycle", "scooter", "atv", "trailer",
		"boat", "van", "jeep", "honda civic", "toyota", "ford",
	}},
	{domain.CategoryFurniture, []string{
		"sofa", "couch", "sectional", "table", "chair", "desk", "dresser",
		"bookshelf", "bed frame", "mattress", "cabinet", "nightstand", "recliner",
	}},
	{domain.CategoryFashion, []string{
		"watch", "rolex", "shoes", "sneakers", "boots", "jacket", "coat", "dress",
		"handbag", "purse", "jewelry", "necklace", "ring", "bracelet", "jeans",
		"shirt", "nike", "adidas", "gucci",
	}},
	{domain.CategoryBooks, []string{
		"book", "novel", "comic", "hardcover", "paperback", "manga", "textbook",
		"first edition",
	}},
	{domain.CategoryHome, []string{
		"kitchen", "lamp", "rug", "vase", "decor", "cookware", "blender",
		"vacuum", "mixer", "pan", "curtains", "mirror", "bedding", "candle",
	}},
}

type categoryMatcher struct {
	category domain.Category
	re       *regexp.Regexp
}

var categoryMatchers = compileCategoryTable()

// compileCategoryTable builds one whole-word matcher per table row. A
// trailing "s" or "es" is allowed so plurals match their keyword.
func compileCategoryTable() []categoryMatcher {
	matchers := make([]categoryMatcher, 0, len(categoryTable))
	for _, row := range categoryTable {
		quoted := make([]string, len(row.keywords))
		for i, kw := range row.keywords {
			quoted[i] = regexp.QuoteMeta(kw)
		}
		re := regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)(?:e?s)?\b`)
		matchers = append(matchers, categoryMatcher{category: row.category, re: re})
	}
	return matchers
}

// InferCategory returns the category of the first table row with a keyword
// present in title, or other when none match.
func InferCategory(title string) domain.Category {
	for _, m := range categoryMatchers {
		if m.re.MatchString(title) {
			return m.category
		}
	}
	return domain.CategoryOther
}
