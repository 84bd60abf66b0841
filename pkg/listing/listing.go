// Package listing defines the normalized property record produced by the
// extraction pipeline, the per-strategy partial record, and the rules that
// decide when a partial is good enough to return.
package listing

import (
	"strings"
	"time"
)

// Source identifies one of the supported listing sites.
type Source string

const (
	SourceNone   Source = ""
	SourceZillow Source = "zillow"
	SourceRedfin Source = "redfin"
)

// PropertyType is the closed set of residential categories.
type PropertyType string

const (
	PropertySingleFamily PropertyType = "single-family"
	PropertyCondo        PropertyType = "condo"
	PropertyTownhouse    PropertyType = "townhouse"
	PropertyMultiFamily  PropertyType = "multi-family"
	PropertyOther        PropertyType = "other"
)

// UnknownAddress is the sentinel used when no address could be recovered.
const UnknownAddress = "Unknown"

// Record is the canonical property record returned to callers.
type Record struct {
	Address        string       `json:"address" yaml:"address" validate:"required"`
	ListPrice      int          `json:"listPrice" yaml:"listPrice" validate:"gte=0"`
	DaysOnMarket   int          `json:"daysOnMarket" yaml:"daysOnMarket" validate:"gte=0"`
	Bedrooms       float64      `json:"bedrooms" yaml:"bedrooms" validate:"gte=0"`
	Bathrooms      float64      `json:"bathrooms" yaml:"bathrooms" validate:"gte=0"`
	PropertyType   PropertyType `json:"propertyType" yaml:"propertyType" validate:"oneof=single-family condo townhouse multi-family other"`
	SquareFeet     *int         `json:"squareFeet,omitempty" yaml:"squareFeet,omitempty" validate:"omitempty,gt=0"`
	YearBuilt      *int         `json:"yearBuilt,omitempty" yaml:"yearBuilt,omitempty" validate:"omitempty,gt=0"`
	PriceReduced   bool         `json:"priceReduced" yaml:"priceReduced"`
	OriginalPrice  *int         `json:"originalPrice,omitempty" yaml:"originalPrice,omitempty" validate:"omitempty,gt=0"`
	EstimatedValue *int         `json:"estimatedValue,omitempty" yaml:"estimatedValue,omitempty" validate:"omitempty,gt=0"`
	Source         Source       `json:"source" yaml:"source" validate:"oneof=zillow redfin"`
	SourceURL      string       `json:"sourceUrl" yaml:"sourceUrl" validate:"required"`
	ScrapedAt      time.Time    `json:"scrapedAt" yaml:"scrapedAt"`
}

// NeedsCompletion reports whether the record carries no price, which is how
// degraded records are told apart from fully extracted ones.
func (r Record) NeedsCompletion() bool {
	return r.ListPrice == 0
}

// Partial is what a single extraction strategy recovers. Nil fields were not
// found. Partials live for one extraction call and are never shared.
type Partial struct {
	Address        *string
	ListPrice      *int
	DaysOnMarket   *int
	Bedrooms       *float64
	Bathrooms      *float64
	PropertyType   *PropertyType
	SquareFeet     *int
	YearBuilt      *int
	PriceReduced   *bool
	OriginalPrice  *int
	EstimatedValue *int
}

// Viable implements the minimum-viable-data gate: a usable address or a
// positive price.
func (p Partial) Viable() bool {
	if p.Address != nil {
		addr := strings.TrimSpace(*p.Address)
		if addr != "" && addr != UnknownAddress {
			return true
		}
	}
	return p.ListPrice != nil && *p.ListPrice > 0
}

// Empty reports whether no field was recovered at all.
func (p Partial) Empty() bool {
	return p == Partial{}
}

// Complete applies defaults to every absent field and stamps the source,
// source URL and capture time. Negative numbers clamp to zero and optional
// values that are not positive are dropped.
func Complete(p Partial, src Source, sourceURL string, now time.Time) Record {
	r := Record{
		Address:      UnknownAddress,
		PropertyType: PropertyOther,
		Source:       src,
		SourceURL:    sourceURL,
		ScrapedAt:    now,
	}

	if p.Address != nil {
		if addr := strings.TrimSpace(*p.Address); addr != "" {
			r.Address = addr
		}
	}
	if p.ListPrice != nil {
		r.ListPrice = max(*p.ListPrice, 0)
	}
	if p.DaysOnMarket != nil {
		r.DaysOnMarket = max(*p.DaysOnMarket, 0)
	}
	if p.Bedrooms != nil {
		r.Bedrooms = max(*p.Bedrooms, 0)
	}
	if p.Bathrooms != nil {
		r.Bathrooms = max(*p.Bathrooms, 0)
	}
	if p.PropertyType != nil && *p.PropertyType != "" {
		r.PropertyType = *p.PropertyType
	}
	if p.PriceReduced != nil {
		r.PriceReduced = *p.PriceReduced
	}
	r.SquareFeet = positive(p.SquareFeet)
	r.YearBuilt = positive(p.YearBuilt)
	r.OriginalPrice = positive(p.OriginalPrice)
	r.EstimatedValue = positive(p.EstimatedValue)

	return r
}

// Degraded builds the last-resort record carrying only an address. Every
// numeric field stays at zero.
func Degraded(address string, src Source, sourceURL string, now time.Time) Record {
	return Record{
		Address:      address,
		PropertyType: PropertyOther,
		Source:       src,
		SourceURL:    sourceURL,
		ScrapedAt:    now,
	}
}

func positive(v *int) *int {
	if v == nil || *v <= 0 {
		return nil
	}
	n := *v
	return &n
}
