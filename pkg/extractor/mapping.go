package extractor

import (
	"github.com/jmylchreest/homescrape/pkg/listing"
	"github.com/jmylchreest/homescrape/pkg/normalize"
)

// Field aliases seen across schema.org, Zillow and Redfin payloads. Earlier
// keys win.
var (
	addressKeys   = []string{"address", "addressSectionInfo", "addressInfo", "location"}
	priceKeys     = []string{"price", "listPrice", "listingPrice", "unformattedPrice", "priceInfo", "offers"}
	bedKeys       = []string{"bedrooms", "beds", "numberOfBedrooms", "numBeds", "bedroomCount", "numberOfRooms"}
	bathKeys      = []string{"bathrooms", "baths", "numberOfBathroomsTotal", "bathroomsFloat", "numBaths", "bathroomCount"}
	daysKeys      = []string{"daysOnZillow", "daysOnMarket", "daysOnRedfin", "dom"}
	typeKeys      = []string{"homeType", "propertyType", "propertyTypeName", "@type"}
	sqftKeys      = []string{"livingArea", "livingAreaValue", "squareFeet", "sqFt", "sqft", "floorSize", "finishedSqFt"}
	yearKeys      = []string{"yearBuilt", "builtYear"}
	originalKeys  = []string{"originalPrice", "originalListPrice", "priceAtListing"}
	estimateKeys  = []string{"zestimate", "estimatedValue", "redfinEstimate", "predictedValue"}
	historyKeys   = []string{"priceHistory", "priceHistoryList"}
	reductionKeys = []string{"priceReduction", "priceDrop", "isPriceReduced", "priceChange", "priceCut"}
)

// MapNode is the one field-mapping routine every structured locator funnels
// into. It only sets fields whose keys are present.
func MapNode(node map[string]any) listing.Partial {
	var p listing.Partial
	if node == nil {
		return p
	}

	if addr := nodeAddress(node); addr != "" {
		p.Address = &addr
	}
	if v, ok := first(node, priceKeys); ok {
		if price := nodePrice(v); price > 0 {
			p.ListPrice = &price
		}
	}
	if v, ok := first(node, bedKeys); ok {
		beds := normalize.ParseNumber(v)
		p.Bedrooms = &beds
	}
	if v, ok := first(node, bathKeys); ok {
		baths := normalize.ParseNumber(v)
		p.Bathrooms = &baths
	}
	if v, ok := first(node, daysKeys); ok {
		days := normalize.ParseInt(v)
		p.DaysOnMarket = &days
	}
	if v, ok := first(node, typeKeys); ok {
		if raw := typeString(v); raw != "" {
			pt := normalize.PropertyType(raw)
			p.PropertyType = &pt
		}
	}
	if v, ok := first(node, sqftKeys); ok {
		if sqft := normalize.ParseInt(v); sqft > 0 {
			p.SquareFeet = &sqft
		}
	}
	if v, ok := first(node, yearKeys); ok {
		if year := normalize.ParseInt(v); year > 0 {
			p.YearBuilt = &year
		}
	}
	if v, ok := first(node, originalKeys); ok {
		if orig := normalize.ParsePrice(v); orig > 0 {
			p.OriginalPrice = &orig
		}
	}
	if v, ok := first(node, estimateKeys); ok {
		if est := normalize.ParsePrice(v); est > 0 {
			p.EstimatedValue = &est
		}
	}

	history, _ := first(node, historyKeys)
	var flags []any
	for _, key := range reductionKeys {
		if v, ok := node[key]; ok {
			flags = append(flags, v)
		}
	}
	if history != nil || len(flags) > 0 {
		reduced := normalize.PriceReduced(history, flags...)
		p.PriceReduced = &reduced
	}

	return p
}

// nodeAddress tries the nested address keys first, then the node itself as
// a structured address. It returns "" when nothing usable is found.
func nodeAddress(node map[string]any) string {
	for _, key := range addressKeys {
		if v, ok := node[key]; ok {
			if addr := normalize.Address(v); addr != listing.UnknownAddress {
				return addr
			}
		}
	}
	if hasAny(node, "streetAddress", "streetLine", "fullAddress", "formattedAddress", "displayAddress") {
		if addr := normalize.Address(node); addr != listing.UnknownAddress {
			return addr
		}
	}
	return ""
}

// nodePrice handles plain values, {"amount": n} wrappers and schema.org
// offers (object or list).
func nodePrice(v any) int {
	switch x := v.(type) {
	case []any:
		for _, item := range x {
			if price := nodePrice(item); price > 0 {
				return price
			}
		}
		return 0
	case map[string]any:
		if offer, ok := x["offers"]; ok {
			return nodePrice(offer)
		}
		if spec, ok := x["priceSpecification"]; ok {
			if price := nodePrice(spec); price > 0 {
				return price
			}
		}
	}
	return normalize.ParsePrice(v)
}

func typeString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []any:
		for _, item := range x {
			if s, ok := item.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func first(node map[string]any, keys []string) (any, bool) {
	for _, key := range keys {
		if v, ok := node[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func hasAny(node map[string]any, keys ...string) bool {
	_, ok := first(node, keys)
	return ok
}

// fill copies fields missing from dst out of src. It is used only inside a
// single locator, when one embedding splits a listing across nested objects.
func fill(dst *listing.Partial, src listing.Partial) {
	if dst.Address == nil {
		dst.Address = src.Address
	}
	if dst.ListPrice == nil {
		dst.ListPrice = src.ListPrice
	}
	if dst.DaysOnMarket == nil {
		dst.DaysOnMarket = src.DaysOnMarket
	}
	if dst.Bedrooms == nil {
		dst.Bedrooms = src.Bedrooms
	}
	if dst.Bathrooms == nil {
		dst.Bathrooms = src.Bathrooms
	}
	if dst.PropertyType == nil {
		dst.PropertyType = src.PropertyType
	}
	if dst.SquareFeet == nil {
		dst.SquareFeet = src.SquareFeet
	}
	if dst.YearBuilt == nil {
		dst.YearBuilt = src.YearBuilt
	}
	if dst.PriceReduced == nil {
		dst.PriceReduced = src.PriceReduced
	}
	if dst.OriginalPrice == nil {
		dst.OriginalPrice = src.OriginalPrice
	}
	if dst.EstimatedValue == nil {
		dst.EstimatedValue = src.EstimatedValue
	}
}
