package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	clifetcher "github.com/jmylchreest/homescrape/cmd/homescrape/fetcher"
	"github.com/jmylchreest/homescrape/internal/batch"
	"github.com/jmylchreest/homescrape/pkg/fetcher"
	"github.com/jmylchreest/homescrape/pkg/homescrape"
)

// Settings is the resolved configuration from flags, environment and the
// config file, in that order of precedence.
type Settings struct {
	Fetch       FetchSettings `mapstructure:"fetch"`
	API         APISettings   `mapstructure:"api"`
	Log         LogSettings   `mapstructure:"log"`
	Concurrency int           `mapstructure:"concurrency"`
	Debug       bool          `mapstructure:"debug"`
	Quiet       bool          `mapstructure:"quiet"`
}

// FetchSettings controls page retrieval.
type FetchSettings struct {
	Mode             string        `mapstructure:"mode"`
	MaxAttempts      int           `mapstructure:"max_attempts"`
	Backoff          time.Duration `mapstructure:"backoff"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxBodySize      string        `mapstructure:"max_body_size"`
	CloudflareBypass bool          `mapstructure:"cloudflare_bypass"`
	IdentitySeed     int64         `mapstructure:"identity_seed"`
	FlareSolverrURL  string        `mapstructure:"flaresolverr_url"`
	Stealth          bool          `mapstructure:"stealth"`
	ChromePath       string        `mapstructure:"chrome_path"`
}

// APISettings controls the Zillow API-first strategy.
type APISettings struct {
	Enabled        bool   `mapstructure:"enabled"`
	BaseURL        string `mapstructure:"base_url"`
	ListingBaseURL string `mapstructure:"listing_base_url"`
}

// LogSettings controls log output.
type LogSettings struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

func setDefaults(v *viper.Viper) {
	lib := homescrape.DefaultConfig()

	v.SetDefault("fetch.mode", string(clifetcher.ModeStatic))
	v.SetDefault("fetch.max_attempts", lib.MaxAttempts)
	v.SetDefault("fetch.backoff", lib.Backoff)
	v.SetDefault("fetch.timeout", lib.Timeout)
	v.SetDefault("fetch.max_body_size", "10MB")
	v.SetDefault("fetch.cloudflare_bypass", lib.CloudflareBypass)
	v.SetDefault("fetch.identity_seed", 0)
	v.SetDefault("fetch.flaresolverr_url", "")
	v.SetDefault("fetch.stealth", false)
	v.SetDefault("fetch.chrome_path", "")
	v.SetDefault("api.enabled", lib.APIEnabled)
	v.SetDefault("api.base_url", lib.APIBaseURL)
	v.SetDefault("api.listing_base_url", lib.ListingBaseURL)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("concurrency", batch.DefaultConcurrency)
}

func loadSettings(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("invalid configuration: %w", err)
	}
	if s.Fetch.MaxAttempts < 1 {
		return s, fmt.Errorf("fetch.max_attempts must be at least 1, got %d", s.Fetch.MaxAttempts)
	}
	if s.Fetch.Backoff < 0 || s.Fetch.Timeout < 0 {
		return s, fmt.Errorf("fetch.backoff and fetch.timeout must not be negative")
	}
	return s, nil
}

// maxBodyBytes parses fetch.max_body_size. Empty or "0" means unlimited.
func (s Settings) maxBodyBytes() (int, error) {
	raw := strings.TrimSpace(s.Fetch.MaxBodySize)
	if raw == "" || raw == "0" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid fetch.max_body_size %q: %w", raw, err)
	}
	return int(n), nil
}

// newPageFetcher builds the single-attempt fetcher for fetch.mode. A nil
// fetcher means the library default static fetcher.
func newPageFetcher(s Settings) (fetcher.Fetcher, error) {
	switch clifetcher.Mode(strings.ToLower(s.Fetch.Mode)) {
	case clifetcher.ModeStatic, "":
		return nil, nil
	case clifetcher.ModeDynamic:
		return clifetcher.NewDynamicFetcher(clifetcher.Config{
			Timeout:    s.Fetch.Timeout,
			Stealth:    s.Fetch.Stealth,
			ChromePath: s.Fetch.ChromePath,
		})
	case clifetcher.ModeFlareSolverr:
		if s.Fetch.FlareSolverrURL == "" {
			return nil, fmt.Errorf("fetch mode flaresolverr needs fetch.flaresolverr_url")
		}
		return clifetcher.NewFlareSolverr(s.Fetch.FlareSolverrURL, s.Fetch.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown fetch mode: %s (use static, dynamic or flaresolverr)", s.Fetch.Mode)
	}
}

// scraperOptions translates settings into library options.
func scraperOptions(s Settings) ([]homescrape.Option, error) {
	maxBody, err := s.maxBodyBytes()
	if err != nil {
		return nil, err
	}

	opts := []homescrape.Option{
		homescrape.WithMaxAttempts(s.Fetch.MaxAttempts),
		homescrape.WithBackoff(s.Fetch.Backoff),
		homescrape.WithTimeout(s.Fetch.Timeout),
		homescrape.WithMaxBodySize(maxBody),
		homescrape.WithCloudflareBypass(s.Fetch.CloudflareBypass),
		homescrape.WithAPI(s.API.Enabled),
		homescrape.WithAPIBaseURL(s.API.BaseURL),
		homescrape.WithListingBaseURL(s.API.ListingBaseURL),
	}
	if s.Fetch.IdentitySeed != 0 {
		opts = append(opts, homescrape.WithIdentities(fetcher.NewRandom(s.Fetch.IdentitySeed)))
	}

	f, err := newPageFetcher(s)
	if err != nil {
		return nil, err
	}
	if f != nil {
		opts = append(opts, homescrape.WithFetcher(f))
	}
	return opts, nil
}
