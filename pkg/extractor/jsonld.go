package extractor

import (
	"encoding/json"
	"strings"

	"github.com/jmylchreest/homescrape/pkg/listing"
)

// residentialTypes are the schema.org @type values that describe a home or
// a listing for one.
var residentialTypes = map[string]bool{
	"singlefamilyresidence": true,
	"residence":             true,
	"house":                 true,
	"apartment":             true,
	"apartmentcomplex":      true,
	"accommodation":         true,
	"condominium":           true,
	"townhouse":             true,
	"realestatelisting":     true,
	"product":               true,
}

// entityKeys hold the described home one level below a listing wrapper.
var entityKeys = []string{"mainEntity", "about", "itemOffered"}

// JSONLD reads schema.org linked data from application/ld+json scripts.
func JSONLD() Locator {
	return NewLocator("jsonld", locateJSONLD)
}

func locateJSONLD(doc *Document) (listing.Partial, bool) {
	for _, raw := range doc.Scripts(`script[type="application/ld+json"]`) {
		var data any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			continue
		}
		for _, obj := range ldObjects(data) {
			if !residential(obj) {
				continue
			}
			p := MapNode(obj)
			for _, key := range entityKeys {
				if inner, ok := obj[key].(map[string]any); ok {
					fill(&p, MapNode(inner))
				}
			}
			if p.Viable() {
				return p, true
			}
		}
	}
	return listing.Partial{}, false
}

// ldObjects flattens top-level arrays and @graph containers into a list of
// candidate objects.
func ldObjects(data any) []map[string]any {
	var out []map[string]any
	switch v := data.(type) {
	case []any:
		for _, item := range v {
			out = append(out, ldObjects(item)...)
		}
	case map[string]any:
		out = append(out, v)
		if graph, ok := v["@graph"]; ok {
			out = append(out, ldObjects(graph)...)
		}
	}
	return out
}

func residential(obj map[string]any) bool {
	switch t := obj["@type"].(type) {
	case string:
		return residentialTypes[strings.ToLower(t)]
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && residentialTypes[strings.ToLower(s)] {
				return true
			}
		}
	}
	return false
}
