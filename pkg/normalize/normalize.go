// Package normalize converts the loosely typed values found in listing pages
// and site payloads into the typed fields of a listing record. Every function
// is pure and total: bad input yields a zero value, never an error.
package normalize

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/jmylchreest/homescrape/pkg/listing"
)

var (
	nonPriceChars   = regexp.MustCompile(`[^0-9.]`)
	thousandsSep    = regexp.MustCompile(`(\d),(\d{3})`)
	firstNumber     = regexp.MustCompile(`\d+(?:\.\d+)?`)
	priceCutPhrases = regexp.MustCompile(`(?i)\bprice\s+(?:cut|drop(?:ped)?|reduc(?:ed|tion))\b`)
)

// ParsePrice strips everything except digits and the decimal point and
// returns the integer part. Missing or unparsable input yields 0.
func ParsePrice(v any) int {
	switch x := v.(type) {
	case nil:
		return 0
	case int:
		return max(x, 0)
	case int64:
		return max(int(x), 0)
	case float64:
		return truncate(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0
		}
		return truncate(f)
	case string:
		return parsePriceString(x)
	case map[string]any:
		// {"value": 500000} and {"amount": 500000} wrappers
		for _, key := range []string{"value", "amount", "price"} {
			if inner, ok := x[key]; ok {
				return ParsePrice(inner)
			}
		}
	}
	return 0
}

func parsePriceString(s string) int {
	clean := nonPriceChars.ReplaceAllString(s, "")
	if clean == "" {
		return 0
	}
	// keep only the first decimal point
	if i := strings.IndexByte(clean, '.'); i >= 0 {
		clean = clean[:i+1] + strings.ReplaceAll(clean[i+1:], ".", "")
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(clean, "."), 64)
	if err != nil {
		return 0
	}
	return truncate(f)
}

// ParseNumber returns the first decimal number found in v. Thousands
// separators are collapsed first so "2,150 sqft" yields 2150.
func ParseNumber(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0
		}
		return x
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		s := thousandsSep.ReplaceAllString(x, "$1$2")
		// a second pass catches runs like 1,000,000
		s = thousandsSep.ReplaceAllString(s, "$1$2")
		m := firstNumber.FindString(s)
		if m == "" {
			return 0
		}
		f, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0
		}
		return f
	case map[string]any:
		for _, key := range []string{"value", "amount"} {
			if inner, ok := x[key]; ok {
				return ParseNumber(inner)
			}
		}
	}
	return 0
}

// ParseInt is ParseNumber truncated toward zero.
func ParseInt(v any) int {
	return truncate(ParseNumber(v))
}

func truncate(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0
	}
	if f > math.MaxInt32*1000.0 {
		return 0
	}
	return int(f)
}

var propertyTypeKeywords = []struct {
	kind     listing.PropertyType
	keywords []string
}{
	{listing.PropertySingleFamily, []string{"single family", "singlefamily", "sfr", "detached"}},
	{listing.PropertyCondo, []string{"condo", "apartment", "co op", "coop", "cooperative"}},
	{listing.PropertyTownhouse, []string{"townhouse", "townhome", "row house", "rowhouse"}},
	{listing.PropertyMultiFamily, []string{"multi", "duplex", "triplex", "fourplex", "quadplex"}},
}

// PropertyType classifies a raw type string. Groups are checked in a fixed
// priority order and the first keyword hit wins.
func PropertyType(raw string) listing.PropertyType {
	s := strings.ToLower(raw)
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return listing.PropertyOther
	}

	for _, group := range propertyTypeKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(s, kw) {
				return group.kind
			}
		}
	}
	return listing.PropertyOther
}

// PriceReduced reports a price reduction when the history has more than one
// entry or when any site-specific flag is present and truthy.
func PriceReduced(history any, flags ...any) bool {
	if list, ok := history.([]any); ok && len(list) > 1 {
		return true
	}
	for _, f := range flags {
		if truthy(f) {
			return true
		}
	}
	return false
}

// PriceCutPhrase reports whether text mentions a price cut, drop or
// reduction.
func PriceCutPhrase(text string) bool {
	return priceCutPhrases.MatchString(text)
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case int:
		return x != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		return s != "" && s != "false" && s != "0"
	case map[string]any:
		return len(x) > 0
	case []any:
		return len(x) > 0
	}
	return false
}

// TitleCase upper-cases the first letter of every space separated word and
// lower-cases the rest.
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
