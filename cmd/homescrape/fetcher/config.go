// Package fetcher provides the CLI's heavier page fetchers: a headless
// Chrome fetcher with optional stealth patches and a FlareSolverr client.
// Both perform one attempt and plug into the library's retry wrapper.
package fetcher

import (
	"time"
)

// Mode selects the page fetcher used by the CLI.
type Mode string

const (
	ModeStatic       Mode = "static"
	ModeDynamic      Mode = "dynamic"
	ModeFlareSolverr Mode = "flaresolverr"
)

// Config holds configuration for the CLI fetchers.
type Config struct {
	Timeout    time.Duration
	Stealth    bool   // patch headless fingerprints before navigation
	ChromePath string // empty means search the usual locations
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout: 30 * time.Second,
	}
}
