package extractor

import (
	"github.com/tidwall/gjson"

	"github.com/jmylchreest/homescrape/pkg/listing"
)

// nextDataPaths are the historical locations of the property object inside
// the Next.js payload, newest first.
var nextDataPaths = []string{
	"props.pageProps.property",
	"props.pageProps.initialData.property",
	"props.pageProps.componentProps.property",
	"props.pageProps.listing",
	"props.pageProps.initialProps.property",
	"props.pageProps.homeDetails",
}

// NextData reads the server-rendered script#__NEXT_DATA__ payload.
func NextData() Locator {
	return NewLocator("nextdata", locateNextData)
}

func locateNextData(doc *Document) (listing.Partial, bool) {
	raw := nextDataJSON(doc)
	if raw == "" {
		return listing.Partial{}, false
	}

	for _, path := range nextDataPaths {
		res := gjson.Get(raw, path)
		if !res.IsObject() {
			continue
		}
		if node, ok := res.Value().(map[string]any); ok {
			if p := MapNode(node); p.Viable() {
				return p, true
			}
		}
	}

	// newer page shapes move the property under a per-page key
	if node, ok := FindPropertyNode(gjson.Get(raw, "props.pageProps").Value(), DefaultWalkLimits); ok {
		if p := MapNode(node); p.Viable() {
			return p, true
		}
	}
	return listing.Partial{}, false
}

func nextDataJSON(doc *Document) string {
	scripts := doc.Scripts("script#__NEXT_DATA__")
	if len(scripts) == 0 || !gjson.Valid(scripts[0]) {
		return ""
	}
	return scripts[0]
}
