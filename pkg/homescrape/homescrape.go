// Package homescrape extracts normalized property records from Zillow and
// Redfin listing pages.
//
// A Scraper classifies the URL, tries the Zillow data API when the URL
// carries a listing identifier, then fetches the page with retries and runs
// the extraction cascade. For Zillow a URL-derived degraded record is
// returned when nothing else produced data.
package homescrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jmylchreest/homescrape/internal/logger"
	"github.com/jmylchreest/homescrape/pkg/extractor"
	"github.com/jmylchreest/homescrape/pkg/fetcher"
	"github.com/jmylchreest/homescrape/pkg/listing"
	"github.com/jmylchreest/homescrape/pkg/source"
)

// StrategyDegraded names the URL-derived fallback record.
const StrategyDegraded = "degraded"

// Result is a record plus how it was obtained.
type Result struct {
	Record        *listing.Record
	Strategy      string        // api, api-page, a locator name, or degraded
	FetchDuration time.Duration // time spent fetching the page (zero on the API path)
	Attempts      int           // page fetch attempts made
}

// Scraper is the main entry point for listing extraction.
type Scraper struct {
	fetcher fetcher.Fetcher
	api     *apiClient
	config  Config
}

// New creates a Scraper.
func New(opts ...Option) (*Scraper, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.MaxAttempts < 0 {
		return nil, fmt.Errorf("max attempts must not be negative: %d", cfg.MaxAttempts)
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	identities := cfg.Identities
	if identities == nil {
		identities = fetcher.NewRotation()
	}

	// Use injected fetcher or create a default static one
	inner := cfg.Fetcher
	if inner == nil {
		inner = fetcher.NewStatic(fetcher.StaticConfig{
			Timeout:          cfg.Timeout,
			MaxBodySize:      cfg.MaxBodySize,
			CloudflareBypass: cfg.CloudflareBypass,
		})
	}

	s := &Scraper{
		fetcher: fetcher.NewRetrying(inner, fetcher.RetryConfig{
			MaxAttempts: cfg.MaxAttempts,
			BaseDelay:   cfg.Backoff,
			Identities:  identities,
			Sleep:       cfg.Sleep,
		}),
		config: cfg,
	}
	if cfg.APIEnabled && cfg.APIBaseURL != "" {
		s.api = newAPIClient(cfg, identities)
	}
	return s, nil
}

// Extract returns the record for a listing URL.
func (s *Scraper) Extract(ctx context.Context, rawURL string) (*listing.Record, error) {
	res, err := s.ExtractResult(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return res.Record, nil
}

// ExtractResult is Extract with strategy and timing metadata.
func (s *Scraper) ExtractResult(ctx context.Context, rawURL string) (*Result, error) {
	target, err := validateURL(rawURL)
	if err != nil {
		return nil, err
	}

	src := source.Classify(target)
	if src == listing.SourceNone {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSite, target)
	}

	log := logger.For("homescrape").With("url", target, "source", string(src))

	if src == listing.SourceZillow && s.api != nil {
		if zpid, ok := source.ZillowID(target); ok {
			apiCtx, cancel := context.WithTimeout(ctx, apiTimeout(s.config))
			p, strategy, found := s.api.lookup(apiCtx, zpid)
			cancel()
			if found {
				return s.finish(log, &Result{Strategy: strategy}, p, src, rawURL)
			}
		}
	}

	start := time.Now()
	content, fetchErr := s.fetcher.Fetch(ctx, target, fetcher.Options{Timeout: s.config.Timeout})
	res := &Result{FetchDuration: time.Since(start), Attempts: content.Attempts}

	if fetchErr == nil {
		doc := extractor.NewDocument(content.HTML)
		if outcome, ok := extractor.ForSource(src).Run(doc); ok {
			res.Strategy = outcome.Strategy
			return s.finish(log, res, outcome.Partial, src, rawURL)
		}
		log.Debug("cascade exhausted", "bytes", len(content.HTML))
	} else {
		log.Debug("fetch failed", "error", fetchErr)
	}

	if src == listing.SourceZillow {
		if addr, ok := source.AddressFromURL(target); ok {
			record := listing.Degraded(addr, src, rawURL, s.config.Clock())
			res.Record = &record
			res.Strategy = StrategyDegraded
			log.Warn("returning degraded record", "address", addr)
			return res, nil
		}
	}

	if fetchErr != nil {
		return nil, fetchErr
	}
	return nil, fmt.Errorf("%w: %s", ErrParseFailed, target)
}

// finish completes and validates the winning partial.
func (s *Scraper) finish(log *slog.Logger, res *Result, p listing.Partial, src listing.Source, rawURL string) (*Result, error) {
	record := listing.Complete(p, src, rawURL, s.config.Clock())
	if err := listing.Validate(record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	res.Record = &record
	log.Info("listing extracted", "strategy", res.Strategy, "price", record.ListPrice)
	return res, nil
}

// Close releases fetcher resources.
func (s *Scraper) Close() error {
	if s.fetcher != nil {
		return s.fetcher.Close()
	}
	return nil
}

// validateURL accepts absolute http and https URLs with a host.
func validateURL(rawURL string) (string, error) {
	target := strings.TrimSpace(rawURL)
	if target == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return target, nil
}
