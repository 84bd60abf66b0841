package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/homescrape/internal/batch"
	"github.com/jmylchreest/homescrape/internal/logger"
	"github.com/jmylchreest/homescrape/internal/output"
	"github.com/jmylchreest/homescrape/pkg/homescrape"
)

var extractCmd = &cobra.Command{
	Use:   "extract [url...]",
	Short: "Extract property records from listing URLs",
	Long: `Extract fetches each listing URL and writes one record per URL.

Failed URLs are written in place as {url, error, kind} entries, where kind
is one of invalid_url, unsupported_site, fetch_failed, blocked or
parse_failed. The command exits with status 1 if any URL failed.

A Zillow record with a zero price was derived from the URL alone and needs
manual completion.

Examples:
  homescrape extract -u "https://www.redfin.com/CA/Oakland/123-Main-St-94610/home/1234567"
  homescrape extract --format jsonl -c 5 URL1 URL2 URL3`,
	Args: cobra.ArbitraryArgs,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	flags := extractCmd.Flags()

	// URL inputs
	flags.StringSliceP("url", "u", nil, "listing URL(s) to extract (can be repeated)")

	// Output settings
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.String("format", "json", "output format: json, jsonl, yaml, csv")

	// Fetch settings
	flags.String("fetch-mode", "static", "fetch mode: static, dynamic, flaresolverr")
	flags.Int("max-attempts", 3, "fetch attempts per URL")
	flags.Duration("backoff", 2*time.Second, "base delay between attempts (multiplied by attempt number)")
	flags.Duration("timeout", 30*time.Second, "request timeout")
	flags.String("max-body-size", "10MB", "max response body size (e.g. 5MB, 0=unlimited)")
	flags.Bool("stealth", false, "patch headless browser fingerprints (dynamic mode)")
	flags.String("flaresolverr-url", "", "FlareSolverr API URL (e.g. http://localhost:8191/v1)")
	flags.Bool("api", true, "try the Zillow data API before fetching the page")
	flags.IntP("concurrency", "c", batch.DefaultConcurrency, "URLs extracted in parallel")

	// Bind to viper
	_ = viper.BindPFlag("fetch.mode", flags.Lookup("fetch-mode"))
	_ = viper.BindPFlag("fetch.max_attempts", flags.Lookup("max-attempts"))
	_ = viper.BindPFlag("fetch.backoff", flags.Lookup("backoff"))
	_ = viper.BindPFlag("fetch.timeout", flags.Lookup("timeout"))
	_ = viper.BindPFlag("fetch.max_body_size", flags.Lookup("max-body-size"))
	_ = viper.BindPFlag("fetch.stealth", flags.Lookup("stealth"))
	_ = viper.BindPFlag("fetch.flaresolverr_url", flags.Lookup("flaresolverr-url"))
	_ = viper.BindPFlag("api.enabled", flags.Lookup("api"))
	_ = viper.BindPFlag("concurrency", flags.Lookup("concurrency"))
}

func runExtract(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(viper.GetViper())
	if err != nil {
		return err
	}
	if err := logger.Init(logger.Options{
		Level: settings.Log.Level,
		Debug: settings.Debug,
		Quiet: settings.Quiet,
		JSON:  settings.Log.JSON,
	}); err != nil {
		logger.Warn("ignoring log level", "error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	urls, _ := cmd.Flags().GetStringSlice("url")
	urls = append(urls, args...)
	if len(urls) == 0 {
		return cmd.Help()
	}

	format, err := output.ParseFormat(mustString(cmd, "format"))
	if err != nil {
		return err
	}

	opts, err := scraperOptions(settings)
	if err != nil {
		return err
	}
	scraper, err := homescrape.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() { _ = scraper.Close() }()

	var out io.Writer = cmd.OutOrStdout()
	if outPath := mustString(cmd, "output"); outPath != "" {
		f, err := os.Create(outPath) //#nosec G304 -- CLI tool writes to user-specified output file
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	logger.InfoContext(ctx, "starting extraction",
		"urls", len(urls),
		"fetch_mode", settings.Fetch.Mode,
		"concurrency", settings.Concurrency)

	start := time.Now()
	entries := batch.Run(ctx, scraper, urls, settings.Concurrency)
	failed := batch.Failures(entries)

	if err := writeEntries(out, format, entries); err != nil {
		return err
	}

	logger.InfoContext(ctx, "extraction complete",
		"extracted", len(entries)-failed,
		"failed", failed,
		"duration", time.Since(start).Round(time.Millisecond))

	if failed > 0 {
		return fmt.Errorf("%d of %d URLs failed", failed, len(entries))
	}
	return nil
}

func writeEntries(w io.Writer, format output.Format, entries []output.Entry) error {
	writer, err := output.NewWriter(w, format)
	if err != nil {
		return err
	}
	if err := writer.WriteAll(entries); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return writer.Close()
}

func mustString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}
