package normalize

import (
	"strconv"
	"strings"

	"github.com/jmylchreest/homescrape/pkg/listing"
)

// AddressSeparator joins structured address components.
const AddressSeparator = ", "

// Component key aliases, schema.org names first.
var (
	streetKeys   = []string{"streetAddress", "street", "streetLine", "line1", "addressLine1"}
	localityKeys = []string{"addressLocality", "city", "locality"}
	regionKeys   = []string{"addressRegion", "state", "stateOrProvince", "stateCode", "region"}
	postalKeys   = []string{"postalCode", "zipcode", "zipCode", "zip", "postCode"}
	flatKeys     = []string{"fullAddress", "formattedAddress", "displayAddress", "streetAddressFull", "address"}
)

// Address assembles a single-line address. Structured objects are joined
// component by component, omitting absent parts; a flat full-address field
// is the fallback, then the sentinel.
func Address(v any) string {
	switch x := v.(type) {
	case string:
		if s := cleanSpace(x); s != "" {
			return s
		}
	case map[string]any:
		if s := joinComponents(x); s != "" {
			return s
		}
		for _, key := range flatKeys {
			if s, ok := x[key].(string); ok {
				if s = cleanSpace(s); s != "" {
					return s
				}
			}
		}
		// street can itself be a {"value": "..."} wrapper on some payloads
		if inner, ok := x["value"]; ok {
			return Address(inner)
		}
	}
	return listing.UnknownAddress
}

func joinComponents(m map[string]any) string {
	var parts []string
	for _, keys := range [][]string{streetKeys, localityKeys, regionKeys, postalKeys} {
		if s := firstString(m, keys); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, AddressSeparator)
}

func firstString(m map[string]any, keys []string) string {
	for _, key := range keys {
		switch v := m[key].(type) {
		case string:
			if s := cleanSpace(v); s != "" {
				return s
			}
		case map[string]any:
			// schema.org {"@type": "Text", "name": "..."} and site
			// {"assembledAddress": "..."} wrappers
			for _, inner := range []string{"name", "assembledAddress", "value"} {
				if s, ok := v[inner].(string); ok && cleanSpace(s) != "" {
					return cleanSpace(s)
				}
			}
		case float64:
			// numeric zip codes
			return formatInt(v)
		}
	}
	return ""
}

func formatInt(f float64) string {
	n := truncate(f)
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func cleanSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
