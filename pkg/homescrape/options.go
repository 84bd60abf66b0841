package homescrape

import (
	"context"
	"time"

	"github.com/jmylchreest/homescrape/pkg/fetcher"
)

// Default endpoints for the API-first strategy.
const (
	DefaultAPIBaseURL     = "https://www.zillow.com/graphql/"
	DefaultListingBaseURL = "https://www.zillow.com"
)

// Config holds all Scraper configuration.
type Config struct {
	// Fetch settings
	Fetcher          fetcher.Fetcher // single-attempt transport, wrapped with retries
	Identities       fetcher.IdentitySource
	MaxAttempts      int
	Backoff          time.Duration
	Timeout          time.Duration
	MaxBodySize      int
	CloudflareBypass bool

	// API-first settings (Zillow only)
	APIEnabled     bool
	APIBaseURL     string
	ListingBaseURL string

	// Clock stamps records; Sleep waits between retries.
	Clock func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	retry := fetcher.DefaultRetryConfig()
	return Config{
		MaxAttempts:      retry.MaxAttempts,
		Backoff:          retry.BaseDelay,
		Timeout:          30 * time.Second,
		CloudflareBypass: true,
		APIEnabled:       true,
		APIBaseURL:       DefaultAPIBaseURL,
		ListingBaseURL:   DefaultListingBaseURL,
		Clock:            time.Now,
	}
}

// Option configures a Scraper.
type Option func(*Config)

// WithFetcher sets the single-attempt page fetcher (e.g. a browser).
// Retries, identity rotation and block-page detection still apply.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(c *Config) {
		c.Fetcher = f
	}
}

// WithIdentities sets the browser identity source used per attempt.
func WithIdentities(src fetcher.IdentitySource) Option {
	return func(c *Config) {
		c.Identities = src
	}
}

// WithMaxAttempts sets the fetch attempt budget.
func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		c.MaxAttempts = n
	}
}

// WithBackoff sets the base delay between attempts; the nth retry waits
// n times this long.
func WithBackoff(d time.Duration) Option {
	return func(c *Config) {
		c.Backoff = d
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithMaxBodySize caps the response body size in bytes.
func WithMaxBodySize(n int) Option {
	return func(c *Config) {
		c.MaxBodySize = n
	}
}

// WithAPI enables or disables the API-first strategy.
func WithAPI(enabled bool) Option {
	return func(c *Config) {
		c.APIEnabled = enabled
	}
}

// WithAPIBaseURL sets the listing data API endpoint.
func WithAPIBaseURL(url string) Option {
	return func(c *Config) {
		c.APIBaseURL = url
	}
}

// WithListingBaseURL sets the base URL for canonical listing pages.
func WithListingBaseURL(url string) Option {
	return func(c *Config) {
		c.ListingBaseURL = url
	}
}

// WithCloudflareBypass toggles the browser-fingerprint transport.
func WithCloudflareBypass(enabled bool) Option {
	return func(c *Config) {
		c.CloudflareBypass = enabled
	}
}

// WithClock sets the time source used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		c.Clock = now
	}
}

// WithSleep replaces the wait between retry attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Config) {
		c.Sleep = sleep
	}
}
