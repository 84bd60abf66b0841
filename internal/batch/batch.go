// Package batch runs independent listing extractions with bounded
// concurrency.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/homescrape/internal/logger"
	"github.com/jmylchreest/homescrape/internal/output"
	"github.com/jmylchreest/homescrape/pkg/homescrape"
	"github.com/jmylchreest/homescrape/pkg/listing"
)

// DefaultConcurrency is used when a non-positive limit is given.
const DefaultConcurrency = 3

// Extractor is the subset of *homescrape.Scraper a batch needs.
type Extractor interface {
	Extract(ctx context.Context, url string) (*listing.Record, error)
}

// Run extracts every URL and returns one entry per URL in input order.
// A failed URL never cancels the others; only ctx does.
func Run(ctx context.Context, ex Extractor, urls []string, concurrency int) []output.Entry {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	entries := make([]output.Entry, len(urls))
	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, u := range urls {
		g.Go(func() error {
			entries[i] = extractOne(ctx, ex, u)
			return nil
		})
	}
	_ = g.Wait()

	return entries
}

func extractOne(ctx context.Context, ex Extractor, url string) output.Entry {
	if err := ctx.Err(); err != nil {
		return failed(url, err)
	}
	logger.DebugContext(ctx, "extracting", "url", url)
	record, err := ex.Extract(ctx, url)
	if err != nil {
		logger.WarnContext(ctx, "extraction failed", "url", url, "kind", homescrape.KindOf(err), "error", err)
		return failed(url, err)
	}
	return output.Entry{URL: url, Record: record}
}

func failed(url string, err error) output.Entry {
	return output.Entry{URL: url, Err: err, Kind: string(homescrape.KindOf(err))}
}

// Failures counts entries without a record.
func Failures(entries []output.Entry) int {
	n := 0
	for _, e := range entries {
		if e.Failed() {
			n++
		}
	}
	return n
}
