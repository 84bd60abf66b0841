package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/homescrape/internal/logger"
	"github.com/jmylchreest/homescrape/pkg/fetcher"
)

// DynamicFetcher renders pages in headless Chrome. Each Fetch is one
// attempt in a fresh tab carrying the identity chosen by the caller.
type DynamicFetcher struct {
	config    Config
	allocCtx  context.Context
	cancelCtx context.CancelFunc
}

// NewDynamicFetcher starts a browser allocator. Chrome itself is launched
// lazily on the first fetch.
func NewDynamicFetcher(cfg Config) (*DynamicFetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	opts := allocatorOptions(cfg.Stealth)
	chromePath := cfg.ChromePath
	if chromePath == "" {
		chromePath = FindChromePath()
	}
	if chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	logger.Debug("dynamic fetcher created", "stealth", cfg.Stealth, "timeout", cfg.Timeout)

	return &DynamicFetcher{
		config:    cfg,
		allocCtx:  allocCtx,
		cancelCtx: cancel,
	}, nil
}

// Fetch navigates to targetURL and returns the rendered document. A
// document status of 400 or above is returned as *fetcher.StatusError.
func (f *DynamicFetcher) Fetch(ctx context.Context, targetURL string, opts fetcher.Options) (fetcher.Content, error) {
	result := fetcher.Content{URL: targetURL, FetchedAt: time.Now()}

	tabCtx, cancelTab := chromedp.NewContext(f.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)
	defer cancelTab()

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = f.config.Timeout
	}
	runCtx, cancelRun := context.WithTimeout(tabCtx, timeout)
	defer cancelRun()

	// tie the tab to the caller's cancellation as well
	stop := context.AfterFunc(ctx, cancelRun)
	defer stop()

	actions := []chromedp.Action{network.Enable()}
	if opts.UserAgent != "" {
		actions = append(actions, emulation.SetUserAgentOverride(opts.UserAgent))
	}
	if headers := browserHeaders(opts.Headers); len(headers) > 0 {
		actions = append(actions, network.SetExtraHTTPHeaders(headers))
	}
	if f.config.Stealth {
		actions = append(actions, injectStealth())
	}
	actions = append(actions, chromedp.Navigate(targetURL))

	resp, err := chromedp.RunResponse(runCtx, actions...)
	if err != nil {
		f.saveScreenshot(tabCtx)
		return result, fmt.Errorf("browser navigation failed: %w", err)
	}

	if resp != nil {
		result.StatusCode = int(resp.Status)
		result.ContentType = resp.MimeType
	}
	if result.StatusCode >= http.StatusBadRequest {
		return result, &fetcher.StatusError{StatusCode: result.StatusCode}
	}
	if result.StatusCode == 0 {
		result.StatusCode = http.StatusOK
	}

	var html string
	if err := chromedp.Run(runCtx,
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
	); err != nil {
		return result, fmt.Errorf("read rendered document: %w", err)
	}
	result.HTML = html

	logger.Debug("dynamic fetch complete", "url", targetURL, "status", result.StatusCode, "bytes", len(html))
	return result, nil
}

func (f *DynamicFetcher) saveScreenshot(ctx context.Context) {
	shot := captureScreenshot(ctx)
	if shot == nil {
		return
	}
	path := filepath.Join(os.TempDir(), fmt.Sprintf("homescrape-debug-%d.png", time.Now().UnixNano()))
	if err := os.WriteFile(path, shot, 0o600); err == nil {
		logger.Debug("debug screenshot saved", "path", path)
	}
}

// browserHeaders drops headers Chrome manages itself.
func browserHeaders(in map[string]string) network.Headers {
	out := network.Headers{}
	for k, v := range in {
		switch strings.ToLower(k) {
		case "accept-encoding", "user-agent", "host", "connection":
			continue
		}
		out[k] = v
	}
	return out
}

// Close shuts down the browser.
func (f *DynamicFetcher) Close() error {
	if f.cancelCtx != nil {
		f.cancelCtx()
	}
	return nil
}

// Type returns the fetcher type.
func (f *DynamicFetcher) Type() string {
	return string(ModeDynamic)
}

var _ fetcher.Fetcher = (*DynamicFetcher)(nil)
