package extractor

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/titanous/json5"

	"github.com/jmylchreest/homescrape/pkg/listing"
)

// inlineAssign matches `name = {` where name may be dotted or bracketed.
var inlineAssign = regexp.MustCompile(`([A-Za-z_$][\w$.\[\]"']*)\s*=\s*\{`)

var inlineHints = []string{"listing", "property", "zpid", "homedata"}

// Inline reads loosely keyed object assignments such as
// `window.listingData = {...}` and parses the object permissively.
func Inline() Locator {
	return NewLocator("inline", locateInline)
}

func locateInline(doc *Document) (listing.Partial, bool) {
	for _, script := range doc.Scripts("script:not([src])") {
		for _, loc := range inlineAssign.FindAllStringSubmatchIndex(script, -1) {
			name := strings.ToLower(script[loc[2]:loc[3]])
			if !hinted(name) {
				continue
			}
			body, ok := balancedObject(script, loc[1]-1)
			if !ok {
				continue
			}
			var obj map[string]any
			if err := json5.Unmarshal([]byte(body), &obj); err != nil {
				continue
			}
			if p := MapNode(obj); p.Viable() {
				return p, true
			}
			if node, ok := FindPropertyNode(obj, DefaultWalkLimits); ok {
				if p := MapNode(node); p.Viable() {
					return p, true
				}
			}
		}
	}
	return listing.Partial{}, false
}

func hinted(name string) bool {
	for _, h := range inlineHints {
		if strings.Contains(name, h) {
			return true
		}
	}
	return false
}

// balancedObject returns the object literal starting at s[start] == '{',
// skipping braces inside string literals.
func balancedObject(s string, start int) (string, bool) {
	if start < 0 || start >= len(s) || s[start] != '{' {
		return "", false
	}
	depth := 0
	var quote byte
	for i := start; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// stringLiteral decodes the quoted JavaScript string starting at s[start].
func stringLiteral(s string, start int) (string, bool) {
	if start < 0 || start >= len(s) {
		return "", false
	}
	quote := s[start]
	if quote != '"' && quote != '\'' {
		return "", false
	}
	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case quote:
			lit := s[start : i+1]
			if quote == '\'' {
				lit = `"` + strings.ReplaceAll(strings.ReplaceAll(lit[1:len(lit)-1], `\'`, `'`), `"`, `\"`) + `"`
			}
			var out string
			if err := json.Unmarshal([]byte(lit), &out); err == nil {
				return out, true
			}
			if out, err := strconv.Unquote(lit); err == nil {
				return out, true
			}
			return "", false
		}
	}
	return "", false
}
