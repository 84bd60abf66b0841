package extractor

import (
	"fmt"
	"strings"

	"github.com/jmylchreest/homescrape/internal/logger"
	"github.com/jmylchreest/homescrape/pkg/listing"
)

// Locator is one way of finding listing data in a document. It reports
// false when its embedding is absent or unusable; it never returns an error.
type Locator interface {
	Name() string
	Locate(doc *Document) (listing.Partial, bool)
}

// LocatorFunc adapts a function to the Locator interface.
type LocatorFunc struct {
	name string
	fn   func(*Document) (listing.Partial, bool)
}

// NewLocator creates a named Locator from a function.
func NewLocator(name string, fn func(*Document) (listing.Partial, bool)) LocatorFunc {
	return LocatorFunc{name: name, fn: fn}
}

// Name returns the locator name.
func (l LocatorFunc) Name() string { return l.name }

// Locate runs the wrapped function.
func (l LocatorFunc) Locate(doc *Document) (listing.Partial, bool) { return l.fn(doc) }

// Outcome is the winning partial and the locator that produced it.
type Outcome struct {
	Partial  listing.Partial
	Strategy string
}

// Cascade tries each locator in order until one yields a viable partial.
type Cascade struct {
	locators []Locator
}

// NewCascade creates a cascade from the given locators, tried in order.
func NewCascade(locators ...Locator) *Cascade {
	return &Cascade{locators: locators}
}

// ForSource returns the locator order for a site. Unknown sources get the
// site-independent locators only.
func ForSource(src listing.Source) *Cascade {
	switch src {
	case listing.SourceZillow:
		return NewCascade(JSONLD(), NextData(), GDPCache(), ApolloState(), SharedComment(), Inline(), Regex())
	case listing.SourceRedfin:
		return NewCascade(JSONLD(), NextData(), PreloadedState(), ApolloState(), SharedComment(), Inline(), Regex())
	default:
		return NewCascade(JSONLD(), NextData(), SharedComment(), Inline(), Regex())
	}
}

// Run evaluates locators strictly in order. A partial that fails the
// minimum-viable-data gate is discarded and the next locator runs.
func (c *Cascade) Run(doc *Document) (Outcome, bool) {
	log := logger.For("extractor")
	for _, l := range c.locators {
		p, ok := safeLocate(l, doc)
		if !ok {
			log.Debug("locator found nothing", "locator", l.Name())
			continue
		}
		if !p.Viable() {
			log.Debug("locator result below minimum data", "locator", l.Name())
			continue
		}
		log.Debug("locator matched", "locator", l.Name())
		return Outcome{Partial: p, Strategy: l.Name()}, true
	}
	return Outcome{}, false
}

// Names lists the locators in evaluation order.
func (c *Cascade) Names() []string {
	names := make([]string, len(c.locators))
	for i, l := range c.locators {
		names[i] = l.Name()
	}
	return names
}

// Name returns the cascade name.
func (c *Cascade) Name() string {
	return "cascade(" + strings.Join(c.Names(), "->") + ")"
}

// safeLocate turns a panicking locator into a miss.
func safeLocate(l Locator, doc *Document) (p listing.Partial, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("locator panicked", "locator", l.Name(), "panic", fmt.Sprint(r))
			p, ok = listing.Partial{}, false
		}
	}()
	return l.Locate(doc)
}
