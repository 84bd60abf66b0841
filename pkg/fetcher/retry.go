package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmylchreest/homescrape/internal/logger"
)

// RetryConfig configures a Retrying fetcher.
type RetryConfig struct {
	// MaxAttempts is the total attempt budget (default 3).
	MaxAttempts int

	// BaseDelay is multiplied by the attempt number before each retry
	// (default 2s).
	BaseDelay time.Duration

	// Identities supplies a browser signature per attempt
	// (default round-robin over DefaultIdentities).
	Identities IdentitySource

	// Sleep waits between attempts. Tests replace it to avoid real delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryConfig returns the default retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
	}
}

// Retrying owns the attempt budget for an inner single-attempt Fetcher.
// Throttled statuses and block pages consume an attempt and rotate to the
// next identity; any other failure stops immediately.
type Retrying struct {
	inner  Fetcher
	config RetryConfig
}

// NewRetrying wraps inner with the given policy. Zero fields take defaults.
func NewRetrying(inner Fetcher, cfg RetryConfig) *Retrying {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseDelay < 0 {
		cfg.BaseDelay = 0
	}
	if cfg.Identities == nil {
		cfg.Identities = NewRotation()
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	return &Retrying{inner: inner, config: cfg}
}

// Fetch runs up to MaxAttempts attempts. Errors wrap ErrBlocked when the
// budget is exhausted by throttling, and ErrFetchFailed otherwise.
func (r *Retrying) Fetch(ctx context.Context, url string, opts Options) (Content, error) {
	log := logger.For("fetcher").With("url", url)

	var lastReason string
	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := r.config.BaseDelay * time.Duration(attempt-1)
			log.Debug("backing off before retry", "attempt", attempt, "delay", delay, "reason", lastReason)
			if err := r.config.Sleep(ctx, delay); err != nil {
				return Content{Attempts: attempt - 1}, fmt.Errorf("%w: %v", ErrFetchFailed, err)
			}
		}

		id := r.config.Identities.Next()
		attemptOpts := opts
		attemptOpts.UserAgent = coalesce(opts.UserAgent, id.UserAgent)
		attemptOpts.Headers = mergeHeaders(id.Headers, opts.Headers)

		content, err := r.inner.Fetch(ctx, url, attemptOpts)
		content.Attempts = attempt
		content.Identity = attemptOpts.UserAgent

		if err != nil {
			var se *StatusError
			if errors.As(err, &se) && se.Throttled() {
				lastReason = se.Error()
				log.Warn("attempt throttled", "attempt", attempt, "status", se.StatusCode)
				continue
			}
			if ctx.Err() != nil {
				return content, fmt.Errorf("%w: %v", ErrFetchFailed, ctx.Err())
			}
			log.Debug("attempt failed", "attempt", attempt, "error", err)
			return content, fmt.Errorf("%w: %v", ErrFetchFailed, err)
		}

		if kind := DetectBlockPage(content.HTML); kind != "" {
			lastReason = "block page: " + kind
			log.Warn("block page detected", "attempt", attempt, "kind", kind)
			continue
		}

		log.Debug("fetch succeeded", "attempt", attempt, "status", content.StatusCode, "bytes", len(content.HTML))
		return content, nil
	}

	return Content{URL: url, Attempts: r.config.MaxAttempts},
		fmt.Errorf("%w after %d attempts (%s)", ErrBlocked, r.config.MaxAttempts, lastReason)
}

// Close closes the inner fetcher.
func (r *Retrying) Close() error {
	return r.inner.Close()
}

// Type returns the inner fetcher type.
func (r *Retrying) Type() string {
	return r.inner.Type()
}

func mergeHeaders(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
