package extractor

import (
	"slices"
	"sort"
)

// WalkLimits bounds a tree search.
type WalkLimits struct {
	MaxDepth int // deepest level visited, root is 0
	MaxNodes int // total nodes visited before giving up
}

// DefaultWalkLimits caps the search so a hostile payload cannot make a
// locator spin.
var DefaultWalkLimits = WalkLimits{MaxDepth: 12, MaxNodes: 10_000}

// Media and neighbouring-listing subtrees never hold the listing itself.
var skipKeys = map[string]bool{
	"images":           true,
	"photos":           true,
	"media":            true,
	"responsivePhotos": true,
	"nearbyHomes":      true,
	"schools":          true,
}

var (
	walkAddressKeys = []string{"address", "streetAddress", "fullAddress", "formattedAddress", "addressSectionInfo"}
	walkValueKeys   = slices.Concat(priceKeys, bedKeys, bathKeys)
)

// FindPropertyNode searches tree depth-first for the first object carrying
// an address-like key together with a price or room-count key. Map keys are
// visited in sorted order so results are deterministic.
func FindPropertyNode(tree any, limits WalkLimits) (map[string]any, bool) {
	if limits.MaxDepth <= 0 {
		limits.MaxDepth = DefaultWalkLimits.MaxDepth
	}
	if limits.MaxNodes <= 0 {
		limits.MaxNodes = DefaultWalkLimits.MaxNodes
	}

	type frame struct {
		node  any
		depth int
	}
	stack := []frame{{node: tree}}
	visited := 0

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		visited++
		if visited > limits.MaxNodes {
			return nil, false
		}

		var children []any
		switch v := f.node.(type) {
		case map[string]any:
			if looksLikeProperty(v) {
				return v, true
			}
			keys := make([]string, 0, len(v))
			for k := range v {
				if !skipKeys[k] {
					keys = append(keys, k)
				}
			}
			sort.Strings(keys)
			for _, k := range keys {
				children = append(children, v[k])
			}
		case []any:
			children = v
		default:
			continue
		}

		if f.depth >= limits.MaxDepth {
			continue
		}
		// push in reverse so the first child is visited first
		for i := len(children) - 1; i >= 0; i-- {
			switch children[i].(type) {
			case map[string]any, []any:
				stack = append(stack, frame{node: children[i], depth: f.depth + 1})
			}
		}
	}
	return nil, false
}

func looksLikeProperty(m map[string]any) bool {
	return hasAny(m, walkAddressKeys...) && hasAny(m, walkValueKeys...)
}
