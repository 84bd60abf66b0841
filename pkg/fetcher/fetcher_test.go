package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// scriptedFetcher replays a fixed sequence of results and records the
// options each attempt was made with.
type scriptedFetcher struct {
	steps []scriptedStep
	calls []Options
}

type scriptedStep struct {
	status int
	html   string
	err    error
}

func (s *scriptedFetcher) Fetch(_ context.Context, url string, opts Options) (Content, error) {
	s.calls = append(s.calls, opts)
	step := s.steps[min(len(s.calls), len(s.steps))-1]
	c := Content{URL: url, HTML: step.html, StatusCode: step.status}
	if step.err != nil {
		return c, step.err
	}
	if step.status < 200 || step.status > 299 {
		return c, &StatusError{StatusCode: step.status}
	}
	return c, nil
}

func (s *scriptedFetcher) Close() error { return nil }
func (s *scriptedFetcher) Type() string { return "scripted" }

type recordedSleeps []time.Duration

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	*r = append(*r, d)
	return nil
}

func testIdentities() []Identity {
	return []Identity{
		{UserAgent: "ua-one", Headers: map[string]string{"X-Id": "1"}},
		{UserAgent: "ua-two", Headers: map[string]string{"X-Id": "2"}},
		{UserAgent: "ua-three", Headers: map[string]string{"X-Id": "3"}},
	}
}

func TestRetrying_ExhaustsBudgetOnThrottle(t *testing.T) {
	inner := &scriptedFetcher{steps: []scriptedStep{{status: 403}}}
	var sleeps recordedSleeps
	r := NewRetrying(inner, RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Identities:  NewRotation(testIdentities()...),
		Sleep:       sleeps.sleep,
	})

	content, err := r.Fetch(context.Background(), "https://example.test/", Options{})
	if !errors.Is(err, ErrBlocked) {
		t.Fatalf("Fetch() error = %v, want ErrBlocked", err)
	}
	if len(inner.calls) != 3 {
		t.Errorf("inner calls = %d, want 3", len(inner.calls))
	}
	if content.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", content.Attempts)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(sleeps) != len(want) || sleeps[0] != want[0] || sleeps[1] != want[1] {
		t.Errorf("sleeps = %v, want %v", sleeps, want)
	}
}

func TestRetrying_RecoversAfterThrottle(t *testing.T) {
	inner := &scriptedFetcher{steps: []scriptedStep{
		{status: 429},
		{status: 200, html: "<html>listing</html>"},
	}}
	var sleeps recordedSleeps
	r := NewRetrying(inner, RetryConfig{
		Identities: NewRotation(testIdentities()...),
		Sleep:      sleeps.sleep,
	})

	content, err := r.Fetch(context.Background(), "https://example.test/", Options{})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if content.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", content.Attempts)
	}
	if content.Identity != "ua-two" {
		t.Errorf("Identity = %q, want ua-two", content.Identity)
	}
	if len(sleeps) != 1 || sleeps[0] != 2*time.Second {
		t.Errorf("sleeps = %v, want [2s]", sleeps)
	}

	// each attempt carries a fresh identity
	if inner.calls[0].UserAgent != "ua-one" || inner.calls[1].UserAgent != "ua-two" {
		t.Errorf("user agents = %q, %q", inner.calls[0].UserAgent, inner.calls[1].UserAgent)
	}
	if inner.calls[1].Headers["X-Id"] != "2" {
		t.Errorf("headers = %v, want X-Id 2", inner.calls[1].Headers)
	}
}

func TestRetrying_NonThrottleFailureStops(t *testing.T) {
	tests := []struct {
		name string
		step scriptedStep
	}{
		{"server error", scriptedStep{status: 500}},
		{"not found", scriptedStep{status: 404}},
		{"transport error", scriptedStep{err: errors.New("connection refused")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &scriptedFetcher{steps: []scriptedStep{tt.step}}
			var sleeps recordedSleeps
			r := NewRetrying(inner, RetryConfig{Sleep: sleeps.sleep})

			_, err := r.Fetch(context.Background(), "https://example.test/", Options{})
			if !errors.Is(err, ErrFetchFailed) {
				t.Fatalf("Fetch() error = %v, want ErrFetchFailed", err)
			}
			if errors.Is(err, ErrBlocked) {
				t.Error("non-throttle failure must not report ErrBlocked")
			}
			if len(inner.calls) != 1 {
				t.Errorf("inner calls = %d, want 1", len(inner.calls))
			}
			if len(sleeps) != 0 {
				t.Errorf("unexpected backoff: %v", sleeps)
			}
		})
	}
}

func TestRetrying_BlockPageRetries(t *testing.T) {
	inner := &scriptedFetcher{steps: []scriptedStep{
		{status: 200, html: `<div id="px-captcha">Press &amp; Hold</div>`},
		{status: 200, html: "<html>clean</html>"},
	}}
	var sleeps recordedSleeps
	r := NewRetrying(inner, RetryConfig{Sleep: sleeps.sleep})

	content, err := r.Fetch(context.Background(), "https://example.test/", Options{})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if content.HTML != "<html>clean</html>" || content.Attempts != 2 {
		t.Errorf("got %q after %d attempts", content.HTML, content.Attempts)
	}
}

func TestRetrying_BlockPageEveryTime(t *testing.T) {
	inner := &scriptedFetcher{steps: []scriptedStep{{status: 200, html: "<title>Just a moment...</title>"}}}
	var sleeps recordedSleeps
	r := NewRetrying(inner, RetryConfig{MaxAttempts: 2, Sleep: sleeps.sleep})

	_, err := r.Fetch(context.Background(), "https://example.test/", Options{})
	if !errors.Is(err, ErrBlocked) {
		t.Fatalf("Fetch() error = %v, want ErrBlocked", err)
	}
	if len(inner.calls) != 2 {
		t.Errorf("inner calls = %d, want 2", len(inner.calls))
	}
}

func TestRetrying_CancelledDuringBackoff(t *testing.T) {
	inner := &scriptedFetcher{steps: []scriptedStep{{status: 403}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRetrying(inner, RetryConfig{BaseDelay: time.Hour})
	_, err := r.Fetch(ctx, "https://example.test/", Options{})
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("Fetch() error = %v, want ErrFetchFailed", err)
	}
	if len(inner.calls) != 1 {
		t.Errorf("inner calls = %d, want 1", len(inner.calls))
	}
}

func TestRetrying_CallerHeadersWin(t *testing.T) {
	inner := &scriptedFetcher{steps: []scriptedStep{{status: 200, html: "ok"}}}
	r := NewRetrying(inner, RetryConfig{Identities: NewRotation(testIdentities()...)})

	_, err := r.Fetch(context.Background(), "https://example.test/", Options{
		UserAgent: "custom-agent",
		Headers:   map[string]string{"X-Id": "caller"},
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	got := inner.calls[0]
	if got.UserAgent != "custom-agent" || got.Headers["X-Id"] != "caller" {
		t.Errorf("options = %+v", got)
	}
}

func TestStaticFetcher_Fetch(t *testing.T) {
	var gotUA, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
		gotHeader = r.Header.Get("Accept-Language")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	f := NewStatic(StaticConfig{Timeout: 5 * time.Second})
	content, err := f.Fetch(context.Background(), srv.URL, Options{
		UserAgent: "test-agent",
		Headers:   map[string]string{"Accept-Language": "en-GB"},
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if content.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", content.StatusCode)
	}
	if !strings.Contains(content.HTML, "hello") {
		t.Errorf("HTML = %q", content.HTML)
	}
	if !strings.HasPrefix(content.ContentType, "text/html") {
		t.Errorf("ContentType = %q", content.ContentType)
	}
	if gotUA != "test-agent" || gotHeader != "en-GB" {
		t.Errorf("request UA = %q, Accept-Language = %q", gotUA, gotHeader)
	}
}

func TestStaticFetcher_StatusErrors(t *testing.T) {
	tests := []struct {
		status    int
		throttled bool
	}{
		{http.StatusForbidden, true},
		{http.StatusTooManyRequests, true},
		{http.StatusNotFound, false},
		{http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			content, err := NewStatic(StaticConfig{}).Fetch(context.Background(), srv.URL, Options{})
			var se *StatusError
			if !errors.As(err, &se) {
				t.Fatalf("Fetch() error = %v, want *StatusError", err)
			}
			if se.StatusCode != tt.status || content.StatusCode != tt.status {
				t.Errorf("status = %d / %d, want %d", se.StatusCode, content.StatusCode, tt.status)
			}
			if se.Throttled() != tt.throttled {
				t.Errorf("Throttled() = %v, want %v", se.Throttled(), tt.throttled)
			}
		})
	}
}

type countingTransport struct {
	inner http.RoundTripper
	calls int
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.calls++
	return c.inner.RoundTrip(r)
}

func TestStaticFetcher_CloudflareBypass(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("<html><body>listing</body></html>"))
	}))
	defer srv.Close()

	rt := &countingTransport{inner: http.DefaultTransport}
	f := NewStatic(StaticConfig{Timeout: 5 * time.Second, CloudflareBypass: true, Transport: rt})

	if wrapped := f.transport(); wrapped == http.RoundTripper(rt) {
		t.Fatal("transport() returned the configured transport unwrapped")
	}

	content, err := f.Fetch(context.Background(), srv.URL, Options{UserAgent: "ua-bypass"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !strings.Contains(content.HTML, "listing") {
		t.Errorf("HTML = %q, want listing body", content.HTML)
	}
	if rt.calls != 1 {
		t.Errorf("configured transport calls = %d, want 1", rt.calls)
	}
	if gotUA != "ua-bypass" {
		t.Errorf("User-Agent = %q, want the attempt identity kept", gotUA)
	}
}

func TestStaticFetcher_Type(t *testing.T) {
	f := NewStatic(DefaultStaticConfig())
	if f.Type() != "static" {
		t.Errorf("Type() = %q, want static", f.Type())
	}
	if err := f.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestDetectBlockPage(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`<div id="px-captcha"></div>`, "perimeterx"},
		{"Please PRESS & HOLD to confirm", "perimeterx"},
		{"<title>Just a moment...</title>", "cloudflare"},
		{`<script>window._cf_chl_opt={}</script>`, "cloudflare"},
		{`<div class="g-recaptcha"></div>`, "recaptcha"},
		{"Access Denied", "access-denied"},
		{"<html><body>3 bd 2 ba</body></html>", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := DetectBlockPage(tt.body); got != tt.want {
			t.Errorf("DetectBlockPage(%q) = %q, want %q", tt.body, got, tt.want)
		}
	}
}

func TestRotation_Cycles(t *testing.T) {
	r := NewRotation(testIdentities()...)
	want := []string{"ua-one", "ua-two", "ua-three", "ua-one"}
	for i, w := range want {
		if got := r.Next().UserAgent; got != w {
			t.Errorf("Next() #%d = %q, want %q", i, got, w)
		}
	}
}

func TestRotation_EmptyPoolUsesDefaults(t *testing.T) {
	r := NewRotation()
	if r.Next().UserAgent != DefaultIdentities()[0].UserAgent {
		t.Error("empty pool should fall back to DefaultIdentities")
	}
}

func TestRandom_SeedIsDeterministic(t *testing.T) {
	a := NewRandom(42, testIdentities()...)
	b := NewRandom(42, testIdentities()...)
	for i := 0; i < 10; i++ {
		if x, y := a.Next().UserAgent, b.Next().UserAgent; x != y {
			t.Fatalf("draw %d differs: %q vs %q", i, x, y)
		}
	}
}

func TestDefaultIdentities_IndependentHeaders(t *testing.T) {
	ids := DefaultIdentities()
	ids[0].Headers["Accept-Language"] = "xx"
	if ids[1].Headers["Accept-Language"] == "xx" {
		t.Error("identities must not share header maps")
	}
}
