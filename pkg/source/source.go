// Package source decides which listing site a URL belongs to and recovers
// what can be learned from the URL alone: the Zillow listing identifier and
// a best-effort street address.
package source

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/jmylchreest/homescrape/pkg/listing"
	"github.com/jmylchreest/homescrape/pkg/normalize"
)

// Domains maps each supported site to the substring that identifies it.
var Domains = []struct {
	Source listing.Source
	Domain string
}{
	{listing.SourceZillow, "zillow.com"},
	{listing.SourceRedfin, "redfin.com"},
}

// Classify maps a URL to a supported source by case-insensitive domain
// substring. Anything else is listing.SourceNone.
func Classify(rawURL string) listing.Source {
	lower := strings.ToLower(rawURL)
	for _, d := range Domains {
		if strings.Contains(lower, d.Domain) {
			return d.Source
		}
	}
	return listing.SourceNone
}

// zpid patterns, tried in order.
var zillowIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/(\d+)_zpid`),
	regexp.MustCompile(`[?&]zpid=(\d+)`),
	regexp.MustCompile(`/homedetails/(?:[^/?#]+/)?(\d{5,})/?(?:[?#]|$)`),
}

// ZillowID extracts the numeric listing identifier embedded in a Zillow URL.
func ZillowID(rawURL string) (string, bool) {
	for _, re := range zillowIDPatterns {
		if m := re.FindStringSubmatch(rawURL); len(m) == 2 {
			return m[1], true
		}
	}
	return "", false
}

var (
	idSegment = regexp.MustCompile(`^\d+(?:_zpid)?$`)
	idSuffix  = regexp.MustCompile(`[-_]?\d+_zpid$`)
)

// AddressFromURL derives an address from a listing URL's slug: hyphens
// become spaces, words are title-cased and any trailing identifier is
// stripped. It reports false when the path has no usable slug.
func AddressFromURL(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	slug := ""
	for i, seg := range segments {
		if seg == "homedetails" && i+1 < len(segments) {
			slug = segments[i+1]
			break
		}
	}
	if slug == "" {
		return "", false
	}

	slug = idSuffix.ReplaceAllString(slug, "")
	if slug == "" || idSegment.MatchString(slug) {
		return "", false
	}

	if decoded, err := url.PathUnescape(slug); err == nil {
		slug = decoded
	}
	words := strings.Fields(strings.NewReplacer("-", " ", "_", " ", "+", " ").Replace(slug))
	if len(words) == 0 {
		return "", false
	}
	return normalize.TitleCase(strings.Join(words, " ")), true
}
