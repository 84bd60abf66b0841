package fetcher

import (
	"maps"
	"math/rand"
	"sync"
)

// Identity is one browser signature: a user agent plus the headers that
// browser would send with it.
type Identity struct {
	UserAgent string
	Headers   map[string]string
}

// IdentitySource yields the identity for the next attempt. Implementations
// must be safe for concurrent use.
type IdentitySource interface {
	Next() Identity
}

const (
	chromeWindows = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	chromeMac     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
	firefoxLinux  = "Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0"
	safariMac     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4.1 Safari/605.1.15"
	edgeWindows   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0"
)

// DefaultIdentities returns the built-in pool of browser signatures.
func DefaultIdentities() []Identity {
	chromium := map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.9",
		"Accept-Encoding":           "gzip",
		"Cache-Control":             "max-age=0",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
	}
	firefox := map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.5",
		"Accept-Encoding":           "gzip",
		"Cache-Control":             "no-cache",
		"Upgrade-Insecure-Requests": "1",
	}
	safari := map[string]string{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
		"Accept-Encoding": "gzip",
		"Cache-Control":   "max-age=0",
	}

	return []Identity{
		{UserAgent: chromeWindows, Headers: maps.Clone(chromium)},
		{UserAgent: chromeMac, Headers: maps.Clone(chromium)},
		{UserAgent: firefoxLinux, Headers: firefox},
		{UserAgent: safariMac, Headers: safari},
		{UserAgent: edgeWindows, Headers: maps.Clone(chromium)},
	}
}

// Rotation cycles through a pool in order.
type Rotation struct {
	mu   sync.Mutex
	pool []Identity
	next int
}

// NewRotation creates a deterministic round-robin source. An empty pool
// falls back to DefaultIdentities.
func NewRotation(pool ...Identity) *Rotation {
	if len(pool) == 0 {
		pool = DefaultIdentities()
	}
	return &Rotation{pool: pool}
}

// Next returns the next identity in the pool.
func (r *Rotation) Next() Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.pool[r.next%len(r.pool)]
	r.next++
	return id
}

// Random picks identities from a pool with a seeded generator, so a given
// seed always produces the same sequence.
type Random struct {
	mu   sync.Mutex
	pool []Identity
	rng  *rand.Rand
}

// NewRandom creates a seeded random source. An empty pool falls back to
// DefaultIdentities.
func NewRandom(seed int64, pool ...Identity) *Random {
	if len(pool) == 0 {
		pool = DefaultIdentities()
	}
	return &Random{pool: pool, rng: rand.New(rand.NewSource(seed))}
}

// Next returns a randomly chosen identity.
func (r *Random) Next() Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pool[r.rng.Intn(len(r.pool))]
}
