// Package extractor recovers listing fields from a fetched page. Each
// Locator knows one way a site embeds its data; a Cascade tries them in a
// fixed order and returns the first result that passes the
// minimum-viable-data gate.
package extractor

import (
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is one fetched page. The parsed DOM and the visible text are
// built on first use and shared by every locator in a run.
type Document struct {
	Raw string

	domOnce  sync.Once
	dom      *goquery.Document
	textOnce sync.Once
	text     string
}

// NewDocument wraps a raw HTML body.
func NewDocument(raw string) *Document {
	return &Document{Raw: raw}
}

// DOM returns the parsed document. Unparsable input yields an empty
// document rather than nil.
func (d *Document) DOM() *goquery.Document {
	d.domOnce.Do(func() {
		dom, err := goquery.NewDocumentFromReader(strings.NewReader(d.Raw))
		if err != nil {
			dom, _ = goquery.NewDocumentFromReader(strings.NewReader(""))
		}
		d.dom = dom
	})
	return d.dom
}

// Text returns the visible text of the body with scripts and styles
// removed and whitespace collapsed.
func (d *Document) Text() string {
	d.textOnce.Do(func() {
		body := d.DOM().Find("body")
		if body.Length() == 0 {
			body = d.DOM().Selection
		}
		clone := body.Clone()
		clone.Find("script, style, noscript, template").Remove()

		var parts []string
		for _, n := range clone.Nodes {
			collectText(n, &parts)
		}
		d.text = strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	})
	return d.text
}

// Scripts returns the trimmed text of every element matching selector.
func (d *Document) Scripts(selector string) []string {
	var out []string
	d.DOM().Find(selector).Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			*parts = append(*parts, t)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}
