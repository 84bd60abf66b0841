package extractor

import (
	"encoding/json"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/titanous/json5"

	"github.com/jmylchreest/homescrape/pkg/listing"
)

// Client-hydration blobs. Each has its own lookup but all of them end in
// MapNode.

var (
	apolloAssign    = regexp.MustCompile(`(?:__APOLLO_STATE__|__APOLLO_CACHE__)["']?\]?\s*[=:]\s*`)
	preloadedAssign = regexp.MustCompile(`(?:__PRELOADED_STATE__|__reactServerState\.InitialContext)["']?\]?\s*=\s*`)
	sharedComment   = regexp.MustCompile(`(?s)<!--\s*(\{.*?\})\s*-->`)
	decodeURICall   = regexp.MustCompile(`^decodeURIComponent\(\s*`)
)

// apolloTypes are the cache-key prefixes (before ':') of entity records
// that describe a home.
var apolloTypes = map[string]bool{
	"Property":        true,
	"Home":            true,
	"Listing":         true,
	"ForSaleProperty": true,
}

// ApolloState reads an Apollo client cache keyed by "Type:id".
func ApolloState() Locator {
	return NewLocator("apollo-state", locateApolloState)
}

func locateApolloState(doc *Document) (listing.Partial, bool) {
	for _, cache := range assignedValues(doc.Raw, apolloAssign) {
		m, ok := cache.(map[string]any)
		if !ok {
			continue
		}
		for _, key := range sortedKeys(m) {
			typ, _, _ := strings.Cut(key, ":")
			if !apolloTypes[typ] {
				continue
			}
			node, ok := m[key].(map[string]any)
			if !ok {
				continue
			}
			if p := MapNode(node); p.Viable() {
				return p, true
			}
		}
	}
	return listing.Partial{}, false
}

// PreloadedState reads a preloaded-state global, which may be a JSON
// string, a decodeURIComponent("...") call or a plain object.
func PreloadedState() Locator {
	return NewLocator("preloaded-state", locatePreloadedState)
}

func locatePreloadedState(doc *Document) (listing.Partial, bool) {
	for _, state := range assignedValues(doc.Raw, preloadedAssign) {
		if p, ok := LocateInTree(state); ok {
			return p, true
		}
	}
	return listing.Partial{}, false
}

// SharedComment reads JSON objects stashed in HTML comments.
func SharedComment() Locator {
	return NewLocator("shared-comment", locateSharedComment)
}

func locateSharedComment(doc *Document) (listing.Partial, bool) {
	for _, block := range CommentBlocks(doc.Raw, "") {
		if p, ok := LocateInTree(block); ok {
			return p, true
		}
	}
	return listing.Partial{}, false
}

// CommentBlocks decodes every <!--{...}--> JSON block in raw whose text
// contains key. An empty key accepts every block.
func CommentBlocks(raw, key string) []any {
	var out []any
	for _, m := range sharedComment.FindAllStringSubmatch(raw, -1) {
		if key != "" && !strings.Contains(m[1], key) {
			continue
		}
		var data any
		if err := json.Unmarshal([]byte(m[1]), &data); err != nil {
			continue
		}
		out = append(out, data)
	}
	return out
}

// GDPCache reads the opaque-hash keyed caches whose values are usually JSON
// encoded a second time.
func GDPCache() Locator {
	return NewLocator("gdp-cache", locateGDPCache)
}

func locateGDPCache(doc *Document) (listing.Partial, bool) {
	var caches []any
	if raw := nextDataJSON(doc); raw != "" {
		for _, path := range []string{
			"props.pageProps.componentProps.gdpClientCache",
			"props.pageProps.gdpClientCache",
		} {
			if res := gjson.Get(raw, path); res.Exists() {
				caches = append(caches, res.Value())
			}
		}
	}
	for _, raw := range doc.Scripts("script#hdpApolloPreloadedData") {
		if res := gjson.Get(raw, "apiCache"); res.Exists() {
			caches = append(caches, res.Value())
		}
	}

	for _, cache := range caches {
		m, ok := decodeNested(cache).(map[string]any)
		if !ok {
			continue
		}
		for _, key := range sortedKeys(m) {
			entry, ok := decodeNested(m[key]).(map[string]any)
			if !ok {
				continue
			}
			node, ok := entry["property"].(map[string]any)
			if !ok {
				continue
			}
			if p := MapNode(node); p.Viable() {
				return p, true
			}
		}
	}
	return listing.Partial{}, false
}

// decodeNested parses a value that is itself a JSON document in a string.
// Anything else is returned unchanged.
func decodeNested(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

// LocateInTree maps the first property-shaped node of a decoded payload.
func LocateInTree(tree any) (listing.Partial, bool) {
	node, ok := FindPropertyNode(tree, DefaultWalkLimits)
	if !ok {
		return listing.Partial{}, false
	}
	p := MapNode(node)
	return p, p.Viable()
}

// assignedValues decodes the right-hand side of every match of assign in
// raw. Object literals, JSON strings and decodeURIComponent calls are
// understood; anything else is skipped.
func assignedValues(raw string, assign *regexp.Regexp) []any {
	var out []any
	for _, loc := range assign.FindAllStringIndex(raw, -1) {
		if v, ok := decodeValue(raw[loc[1]:]); ok {
			out = append(out, v)
		}
	}
	return out
}

func decodeValue(rest string) (any, bool) {
	encoded := false
	if m := decodeURICall.FindStringIndex(rest); m != nil {
		rest = rest[m[1]:]
		encoded = true
	}
	if rest == "" {
		return nil, false
	}

	switch rest[0] {
	case '{':
		body, ok := balancedObject(rest, 0)
		if !ok {
			return nil, false
		}
		var v any
		if err := json.Unmarshal([]byte(body), &v); err == nil {
			return v, true
		}
		if err := json5.Unmarshal([]byte(body), &v); err == nil {
			return v, true
		}
		return nil, false
	case '"', '\'':
		s, ok := stringLiteral(rest, 0)
		if !ok {
			return nil, false
		}
		var v any
		if !encoded {
			if err := json.Unmarshal([]byte(s), &v); err == nil {
				return v, true
			}
		}
		// percent-encoded, with or without the decodeURIComponent wrapper
		decoded, err := url.PathUnescape(s)
		if err != nil {
			return nil, false
		}
		if err := json.Unmarshal([]byte(decoded), &v); err != nil {
			return nil, false
		}
		return v, true
	}
	return nil, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
