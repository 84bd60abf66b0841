package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/singleflight"

	"github.com/jmylchreest/homescrape/internal/logger"
	"github.com/jmylchreest/homescrape/pkg/fetcher"
)

// ErrFlareSolverrUnavailable indicates the FlareSolverr service is not reachable.
var ErrFlareSolverrUnavailable = errors.New("FlareSolverr service unavailable")

type flareRequest struct {
	Cmd        string `json:"cmd"`
	URL        string `json:"url,omitempty"`
	Session    string `json:"session,omitempty"`
	MaxTimeout int    `json:"maxTimeout,omitempty"`
}

type flareResponse struct {
	Status   string         `json:"status"`
	Message  string         `json:"message"`
	Solution *flareSolution `json:"solution,omitempty"`
}

type flareSolution struct {
	URL       string `json:"url"`
	Status    int    `json:"status"`
	Response  string `json:"response"`
	UserAgent string `json:"userAgent"`
}

// FlareSolverr fetches pages through a FlareSolverr proxy, which solves
// Cloudflare style challenges in its own browser. One session is kept per
// host so solved challenges are reused.
type FlareSolverr struct {
	client     *resty.Client
	endpoint   string
	maxTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]string // host -> session id
	creating singleflight.Group
}

// NewFlareSolverr creates a client for the given v1 endpoint.
func NewFlareSolverr(endpoint string, maxTimeout time.Duration) *FlareSolverr {
	if maxTimeout <= 0 {
		maxTimeout = 60 * time.Second
	}
	client := resty.New().
		SetHeader("Content-Type", "application/json").
		// solving can take most of maxTimeout
		SetTimeout(maxTimeout + 30*time.Second)

	return &FlareSolverr{
		client:     client,
		endpoint:   endpoint,
		maxTimeout: maxTimeout,
		sessions:   make(map[string]string),
	}
}

// Fetch asks FlareSolverr for the page. Identity headers are ignored since
// FlareSolverr drives its own browser. An unsolved challenge is reported as
// a 403 so the retry wrapper treats it as throttling.
func (f *FlareSolverr) Fetch(ctx context.Context, targetURL string, _ fetcher.Options) (fetcher.Content, error) {
	result := fetcher.Content{URL: targetURL, FetchedAt: time.Now()}

	u, err := url.Parse(targetURL)
	if err != nil {
		return result, fmt.Errorf("invalid URL: %w", err)
	}
	session := f.session(ctx, u.Host)

	resp, err := f.call(ctx, flareRequest{
		Cmd:        "request.get",
		URL:        targetURL,
		Session:    session,
		MaxTimeout: int(f.maxTimeout.Milliseconds()),
	})
	if err != nil {
		return result, err
	}
	if resp.Status != "ok" {
		return result, classify(targetURL, resp.Message)
	}
	if resp.Solution == nil || resp.Solution.Response == "" {
		return result, &fetcher.StatusError{StatusCode: http.StatusForbidden}
	}

	result.HTML = resp.Solution.Response
	result.StatusCode = resp.Solution.Status
	if result.StatusCode >= http.StatusBadRequest {
		return result, &fetcher.StatusError{StatusCode: result.StatusCode}
	}

	logger.Debug("FlareSolverr solved", "url", targetURL, "session", session, "status", result.StatusCode, "bytes", len(result.HTML))
	return result, nil
}

// session returns the session for host, creating it on first use. A
// failed create falls back to sessionless requests. Creates for different
// hosts run concurrently; callers for the same host share one create.
func (f *FlareSolverr) session(ctx context.Context, host string) string {
	if id, ok := f.cached(host); ok {
		return id
	}
	v, _, _ := f.creating.Do(host, func() (any, error) {
		if id, ok := f.cached(host); ok {
			return id, nil
		}
		id := "homescrape-" + strings.ReplaceAll(host, ".", "-")
		resp, err := f.call(ctx, flareRequest{Cmd: "sessions.create", Session: id})
		if err != nil || resp.Status != "ok" {
			logger.Debug("FlareSolverr session create failed", "session", id, "error", err)
			return "", nil
		}
		f.mu.Lock()
		f.sessions[host] = id
		f.mu.Unlock()
		return id, nil
	})
	id, _ := v.(string)
	return id
}

func (f *FlareSolverr) cached(host string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.sessions[host]
	return id, ok
}

func (f *FlareSolverr) call(ctx context.Context, body flareRequest) (*flareResponse, error) {
	var out flareResponse
	// FlareSolverr answers errors with a 500 and the same JSON envelope
	res, err := f.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post(f.endpoint)
	if err != nil {
		logger.Warn("FlareSolverr request failed", "cmd", body.Cmd, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrFlareSolverrUnavailable, err)
	}
	if out.Status == "" {
		return nil, fmt.Errorf("%w: unexpected response (status %d)", ErrFlareSolverrUnavailable, res.StatusCode())
	}
	return &out, nil
}

// classify maps a FlareSolverr error message to a fetch error. Challenge
// failures count as throttling; anything else is a plain failure.
func classify(targetURL, message string) error {
	lower := strings.ToLower(message)
	for _, marker := range []string{"challenge", "captcha", "turnstile", "cloudflare", "timeout", "blocked", "denied", "403"} {
		if strings.Contains(lower, marker) {
			logger.Warn("FlareSolverr challenge not solved", "url", targetURL, "message", message)
			return &fetcher.StatusError{StatusCode: http.StatusForbidden}
		}
	}
	return fmt.Errorf("FlareSolverr error: %s", message)
}

// Close destroys every session.
func (f *FlareSolverr) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for host, id := range f.sessions {
		if _, err := f.call(ctx, flareRequest{Cmd: "sessions.destroy", Session: id}); err != nil {
			logger.Debug("FlareSolverr session destroy failed", "session", id, "error", err)
		}
		delete(f.sessions, host)
	}
	return nil
}

// Type returns the fetcher type.
func (f *FlareSolverr) Type() string {
	return string(ModeFlareSolverr)
}

var _ fetcher.Fetcher = (*FlareSolverr)(nil)
