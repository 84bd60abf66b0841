package extractor

import (
	"html"
	"regexp"
	"strings"

	"github.com/jmylchreest/homescrape/pkg/listing"
	"github.com/jmylchreest/homescrape/pkg/normalize"
)

// pattern is one alternative for a field. Markup patterns run over the raw
// body, text patterns over the visible text.
type pattern struct {
	re   *regexp.Regexp
	text bool
}

func inMarkup(expr string) pattern { return pattern{re: regexp.MustCompile(expr)} }
func inText(expr string) pattern   { return pattern{re: regexp.MustCompile(expr), text: true} }

var (
	pricePatterns = []pattern{
		inMarkup(`"(?:price|listPrice|unformattedPrice)"\s*:\s*"?\$?([\d,]+(?:\.\d+)?)`),
		inMarkup(`data-testid="price"[^>]*>(?:\s*<[^>]+>)*\s*\$([\d,]+)`),
		inMarkup(`itemprop="price"[^>]*content="([\d,.]+)"`),
		inText(`\$\s?(\d{1,3}(?:,\d{3})+)`),
	}
	addressPatterns = []pattern{
		inMarkup(`"(?:streetAddress|fullAddress|formattedAddress)"\s*:\s*"([^"]{5,200})"`),
		inMarkup(`<h1[^>]*>\s*([^<]{5,200}?)\s*</h1>`),
		inMarkup(`(?i)<title>\s*([^<|]{5,200}?)\s*(?:\||-\s*(?:zillow|redfin)|</title>)`),
	}
	bedPatterns = []pattern{
		inMarkup(`"(?:bedrooms|beds)"\s*:\s*"?(\d+(?:\.\d+)?)`),
		inText(`(?i)(\d+(?:\.\d+)?)\s*(?:bd|beds?|bedrooms?)\b`),
	}
	bathPatterns = []pattern{
		inMarkup(`"(?:bathrooms|baths)"\s*:\s*"?(\d+(?:\.\d+)?)`),
		inText(`(?i)(\d+(?:\.\d+)?)\s*(?:ba|baths?|bathrooms?)\b`),
	}
	daysPatterns = []pattern{
		inMarkup(`"(?:daysOnZillow|daysOnMarket|dom)"\s*:\s*"?(\d+)`),
		inText(`(?i)(\d+)\s+days?\s+on\s+(?:zillow|redfin|market)`),
	}
	sqftPatterns = []pattern{
		inMarkup(`"(?:livingArea|squareFeet|sqFt|sqft)"\s*:\s*"?([\d,]+)`),
		inText(`(?i)([\d,]+)\s*(?:sq\.?\s*ft|sqft|square\s+feet)\b`),
	}
	yearPatterns = []pattern{
		inMarkup(`"yearBuilt"\s*:\s*"?(\d{4})`),
		inText(`(?i)built\s+in\s+(\d{4})`),
	}
	typePatterns = []pattern{
		inMarkup(`"(?:homeType|propertyType)"\s*:\s*"([^"]{2,40})"`),
	}
)

// Plausibility checks. A candidate that fails is skipped and the next
// pattern for the field is tried.
var (
	plausiblePrice = func(v float64) bool { return v >= 10_000 && v <= maxPlausiblePrice }
	plausibleRooms = func(v float64) bool { return v > 0 && v < 20 }
	plausibleDays  = func(v float64) bool { return v >= 0 && v < 10_000 }
	plausibleSqft  = func(v float64) bool { return v >= 100 && v <= 100_000 }
	plausibleYear  = func(v float64) bool { return v >= 1700 && v <= 2100 }
)

// maxPlausiblePrice also keeps the int conversion from overflowing.
const maxPlausiblePrice = 10_000_000_000

var hasDigit = regexp.MustCompile(`\d`)

// Regex is the last-resort locator. Each field is matched independently
// against an ordered list of patterns.
func Regex() Locator {
	return NewLocator("regex", locateRegex)
}

func locateRegex(doc *Document) (listing.Partial, bool) {
	var p listing.Partial

	if v, ok := matchNumber(doc, pricePatterns, plausiblePrice); ok {
		price := int(v)
		p.ListPrice = &price
	}
	if addr, ok := matchAddress(doc); ok {
		p.Address = &addr
	}
	if v, ok := matchNumber(doc, bedPatterns, plausibleRooms); ok {
		p.Bedrooms = &v
	}
	if v, ok := matchNumber(doc, bathPatterns, plausibleRooms); ok {
		p.Bathrooms = &v
	}
	if v, ok := matchNumber(doc, daysPatterns, plausibleDays); ok {
		days := int(v)
		p.DaysOnMarket = &days
	}
	if v, ok := matchNumber(doc, sqftPatterns, plausibleSqft); ok {
		sqft := int(v)
		p.SquareFeet = &sqft
	}
	if v, ok := matchNumber(doc, yearPatterns, plausibleYear); ok {
		year := int(v)
		p.YearBuilt = &year
	}
	if types := findAll(doc, typePatterns); len(types) > 0 {
		pt := normalize.PropertyType(types[0])
		p.PropertyType = &pt
	}
	if normalize.PriceCutPhrase(doc.Text()) {
		reduced := true
		p.PriceReduced = &reduced
	}

	if p.Empty() {
		return p, false
	}
	return p, true
}

func matchNumber(doc *Document, patterns []pattern, plausible func(float64) bool) (float64, bool) {
	for _, m := range findAll(doc, patterns) {
		if v := normalize.ParseNumber(m); plausible(v) {
			return v, true
		}
	}
	return 0, false
}

func matchAddress(doc *Document) (string, bool) {
	for _, m := range findAll(doc, addressPatterns) {
		addr := strings.Join(strings.Fields(html.UnescapeString(m)), " ")
		if len(addr) >= 5 && hasDigit.MatchString(addr) {
			return addr, true
		}
	}
	return "", false
}

// findAll yields, in pattern order, every first-group match of each
// pattern.
func findAll(doc *Document, patterns []pattern) []string {
	var out []string
	for _, pat := range patterns {
		target := doc.Raw
		if pat.text {
			target = doc.Text()
		}
		for _, m := range pat.re.FindAllStringSubmatch(target, -1) {
			out = append(out, m[1])
		}
	}
	return out
}
