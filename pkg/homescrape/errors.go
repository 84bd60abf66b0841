package homescrape

import (
	"errors"

	"github.com/jmylchreest/homescrape/pkg/fetcher"
)

// Error types for distinguishing failure reasons.
// Check with errors.Is(err, homescrape.ErrBlocked).
var (
	// ErrInvalidURL indicates the input is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid url")
	// ErrUnsupportedSite indicates the URL belongs to neither supported site.
	ErrUnsupportedSite = errors.New("unsupported site")
	// ErrFetchFailed indicates the page could not be retrieved.
	ErrFetchFailed = fetcher.ErrFetchFailed
	// ErrBlocked indicates every fetch attempt was throttled or served a block page.
	ErrBlocked = fetcher.ErrBlocked
	// ErrParseFailed indicates the page was fetched but no strategy produced
	// a usable record.
	ErrParseFailed = errors.New("no extraction strategy produced a usable record")
)

// Kind is the closed set of failure categories reported to callers.
type Kind string

const (
	KindNone            Kind = ""
	KindInvalidURL      Kind = "invalid_url"
	KindUnsupportedSite Kind = "unsupported_site"
	KindFetchFailed     Kind = "fetch_failed"
	KindBlocked         Kind = "blocked"
	KindParseFailed     Kind = "parse_failed"
)

// KindOf classifies an error returned by Extract. Errors from elsewhere
// map to KindFetchFailed; nil maps to KindNone.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidURL):
		return KindInvalidURL
	case errors.Is(err, ErrUnsupportedSite):
		return KindUnsupportedSite
	case errors.Is(err, ErrBlocked):
		return KindBlocked
	case errors.Is(err, ErrParseFailed):
		return KindParseFailed
	default:
		return KindFetchFailed
	}
}
