// Package fetcher retrieves listing pages. A Fetcher performs one attempt;
// Retrying wraps any Fetcher with identity rotation, linear backoff and
// block-page detection.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Fetcher abstracts a single page fetch attempt.
type Fetcher interface {
	// Fetch retrieves page content from a URL.
	Fetch(ctx context.Context, url string, opts Options) (Content, error)

	// Close releases any resources (browser instances, etc.).
	Close() error

	// Type returns a string identifying the fetcher type (e.g., "static", "dynamic").
	Type() string
}

// Options controls a single fetch attempt.
type Options struct {
	UserAgent string
	Headers   map[string]string
	Timeout   time.Duration
}

// Content represents fetched page data.
type Content struct {
	URL         string
	HTML        string
	StatusCode  int
	ContentType string
	FetchedAt   time.Time
	Attempts    int    // set by Retrying
	Identity    string // user agent of the successful attempt
}

// Error types for distinguishing failure reasons.
// Check with errors.Is(err, fetcher.ErrBlocked).
var (
	// ErrFetchFailed indicates the page could not be retrieved.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrBlocked indicates every attempt was throttled or served a block page.
	ErrBlocked = errors.New("blocked by anti-bot protection")
)

// StatusError is returned by a Fetcher for a non-success HTTP status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Throttled reports whether the status signals rate limiting or blocking.
func (e *StatusError) Throttled() bool {
	return e.StatusCode == http.StatusForbidden || e.StatusCode == http.StatusTooManyRequests
}
