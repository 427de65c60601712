// Package normalize turns the loosely formatted fields scraped from
// marketplace pages into typed canonical values. Every parser is total:
// bad input maps to a documented default, except prices.
package normalize

import (
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ps-vitor/bidscout/internal/domain"
)

// DefaultHorizon is the countdown assumed when none can be read: 24h.
const DefaultHorizon int64 = 86400

// ErrUnparseablePrice is returned when no price can be recovered; the
// record carrying it is dropped.
var ErrUnparseablePrice = errors.New("unparseable price")

var (
	// countdownRegexp captures a number followed by a unit word, e.g. "2d", "5 hours"
	countdownRegexp = regexp.MustCompile(`(\d+)\s*([a-z]+)`)
	firstIntRegexp  = regexp.MustCompile(`\d+`)
	notPriceRegexp  = regexp.MustCompile(`[^0-9.]`)
)

var countdownUnits = map[string]int64{
	"d": 86400, "day": 86400, "days": 86400,
	"h": 3600, "hr": 3600, "hrs": 3600, "hour": 3600, "hours": 3600,
	"m": 60, "min": 60, "mins": 60, "minute": 60, "minutes": 60,
}

// ParseCountdown converts countdown text such as "2d 3h", "5h 12m" or
// "45m" into seconds. Components may appear in any order or subset.
// Text without any recognizable component yields DefaultHorizon.
func ParseCountdown(text string) int64 {
	matches := countdownRegexp.FindAllStringSubmatch(strings.ToLower(text), -1)

	var total int64
	found := false
	for _, m := range matches {
		unit, ok := countdownUnits[m[2]]
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || n > DefaultHorizon*365 {
			continue
		}
		total += n * unit
		found = true
	}
	if !found {
		return DefaultHorizon
	}
	return total
}

// ParseBidCount returns the first run of digits in text, e.g. "12 bids"
// gives 12. Empty or digit-free text gives 0.
func ParseBidCount(text string) int {
	m := firstIntRegexp.FindString(text)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// ParsePrice strips every character except digits and dots and parses the
// rest, so "$1,299.99" gives 1299.99.
func ParsePrice(text string) (float64, error) {
	cleaned := notPriceRegexp.ReplaceAllString(text, "")
	if cleaned == "" {
		return 0, ErrUnparseablePrice
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, ErrUnparseablePrice
	}
	return v, nil
}

// ExtractTags lower-cases title, splits it on whitespace and keeps tokens
// longer than three characters. The result is de-duplicated, sorted and
// never nil.
func ExtractTags(title string) []string {
	seen := make(map[string]struct{})
	tags := make([]string, 0)
	for _, tok := range strings.Fields(strings.ToLower(title)) {
		if utf8.RuneCountInString(tok) <= 3 {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		tags = append(tags, tok)
	}
	sort.Strings(tags)
	return tags
}

// NormalizeTitle strips leading/trailing whitespace and collapses internal whitespace.
func NormalizeTitle(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

var conditionTable = []struct {
	keyword   string
	condition domain.Condition
}{
	{"like new", domain.ConditionLikeNew},
	{"like-new", domain.ConditionLikeNew},
	{"open box", domain.ConditionLikeNew},
	{"mint", domain.ConditionLikeNew},
	{"brand new", domain.ConditionNew},
	{"sealed", domain.ConditionNew},
	{"new", domain.ConditionNew},
	{"for parts", domain.ConditionFair},
	{"fair", domain.ConditionFair},
	{"worn", domain.ConditionFair},
	{"damaged", domain.ConditionFair},
	{"used", domain.ConditionGood},
	{"good", domain.ConditionGood},
}

// ParseCondition maps free condition text to a Condition, defaulting to good.
func ParseCondition(text string) domain.Condition {
	t := strings.ToLower(text)
	for _, row := range conditionTable {
		if strings.Contains(t, row.keyword) {
			return row.condition
		}
	}
	return domain.ConditionGood
}

// ParseLocation reads "City, Region" text. country fills the country for
// single-country marketplaces. Empty text gives nil.
func ParseLocation(text, country string) *domain.Location {
	text = strings.TrimSpace(strings.Trim(NormalizeTitle(text), "()"))
	if text == "" {
		return nil
	}
	loc := &domain.Location{Country: country}
	parts := strings.SplitN(text, ",", 2)
	loc.City = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		loc.Region = strings.TrimSpace(parts[1])
	}
	return loc
}
