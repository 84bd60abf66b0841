package homescrape

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/homescrape/pkg/fetcher"
	"github.com/jmylchreest/homescrape/pkg/listing"
)

const zillowURL = "https://www.zillow.com/homedetails/1-Main-St-Cambridge-MA-02139/12345_zpid/"

var testTime = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

// fakeFetcher replays one response per call; the last response repeats.
type fakeFetcher struct {
	responses []fakeResponse
	calls     int
}

type fakeResponse struct {
	html string
	err  error
}

func (f *fakeFetcher) Fetch(_ context.Context, url string, _ fetcher.Options) (fetcher.Content, error) {
	r := f.responses[min(f.calls, len(f.responses)-1)]
	f.calls++
	if r.err != nil {
		return fetcher.Content{URL: url}, r.err
	}
	return fetcher.Content{URL: url, HTML: r.html, StatusCode: http.StatusOK}, nil
}

func (f *fakeFetcher) Close() error { return nil }
func (f *fakeFetcher) Type() string { return "fake" }

func serving(html string) *fakeFetcher {
	return &fakeFetcher{responses: []fakeResponse{{html: html}}}
}

func failing(err error) *fakeFetcher {
	return &fakeFetcher{responses: []fakeResponse{{err: err}}}
}

func noSleep(context.Context, time.Duration) error { return nil }

func newTestScraper(t *testing.T, f fetcher.Fetcher, opts ...Option) *Scraper {
	t.Helper()
	base := []Option{
		WithFetcher(f),
		WithClock(func() time.Time { return testTime }),
		WithSleep(noSleep),
		WithCloudflareBypass(false),
		WithAPI(false),
	}
	s, err := New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

const jsonLDPage = `<html><head><script type="application/ld+json">{
	"@type": "SingleFamilyResidence",
	"address": {"streetAddress": "9 Birch Rd", "addressLocality": "Austin", "addressRegion": "TX"},
	"offers": {"price": "415000"}
}</script></head><body></body></html>`

func TestExtract_InvalidURLNeverFetches(t *testing.T) {
	for _, raw := range []string{"", "   ", "not a url", "ftp://www.zillow.com/homedetails/x", "https://", "zillow.com/homedetails/1_zpid/"} {
		t.Run(fmt.Sprintf("%q", raw), func(t *testing.T) {
			f := serving(jsonLDPage)
			s := newTestScraper(t, f)

			_, err := s.Extract(context.Background(), raw)
			require.ErrorIs(t, err, ErrInvalidURL)
			assert.Equal(t, KindInvalidURL, KindOf(err))
			assert.Zero(t, f.calls)
		})
	}
}

func TestExtract_UnsupportedSite(t *testing.T) {
	f := serving(jsonLDPage)
	s := newTestScraper(t, f)

	_, err := s.Extract(context.Background(), "https://www.example.com/homes/1")
	require.ErrorIs(t, err, ErrUnsupportedSite)
	assert.Equal(t, KindUnsupportedSite, KindOf(err))
	assert.Zero(t, f.calls)
}

func TestExtract_CascadeRecord(t *testing.T) {
	f := serving(jsonLDPage)
	s := newTestScraper(t, f)

	rawURL := "https://www.redfin.com/TX/Austin/9-Birch-Rd-78701/home/555"
	res, err := s.ExtractResult(context.Background(), rawURL)
	require.NoError(t, err)

	assert.Equal(t, "jsonld", res.Strategy)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, f.calls)

	rec := res.Record
	assert.Equal(t, "9 Birch Rd, Austin, TX", rec.Address)
	assert.Equal(t, 415000, rec.ListPrice)
	assert.Equal(t, listing.PropertySingleFamily, rec.PropertyType)
	assert.Equal(t, listing.SourceRedfin, rec.Source)
	assert.Equal(t, rawURL, rec.SourceURL)
	assert.Equal(t, testTime, rec.ScrapedAt)
}

func TestExtract_RetriesThrottledThenSucceeds(t *testing.T) {
	f := &fakeFetcher{responses: []fakeResponse{
		{err: &fetcher.StatusError{StatusCode: http.StatusTooManyRequests}},
		{html: jsonLDPage},
	}}
	s := newTestScraper(t, f)

	res, err := s.ExtractResult(context.Background(), "https://www.redfin.com/TX/Austin/home/555")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, 415000, res.Record.ListPrice)
}

func TestExtract_Failures(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		fetcher   *fakeFetcher
		wantErr   error
		wantKind  Kind
		wantCalls int
	}{
		{
			name:      "redfin blocked after every attempt",
			url:       "https://www.redfin.com/CA/Oakland/home/1",
			fetcher:   failing(&fetcher.StatusError{StatusCode: http.StatusForbidden}),
			wantErr:   ErrBlocked,
			wantKind:  KindBlocked,
			wantCalls: 3,
		},
		{
			name:      "redfin block page every attempt",
			url:       "https://www.redfin.com/CA/Oakland/home/1",
			fetcher:   serving(`<html><body><div id="px-captcha"></div></body></html>`),
			wantErr:   ErrBlocked,
			wantKind:  KindBlocked,
			wantCalls: 3,
		},
		{
			name:      "redfin server error",
			url:       "https://www.redfin.com/CA/Oakland/home/1",
			fetcher:   failing(&fetcher.StatusError{StatusCode: http.StatusInternalServerError}),
			wantErr:   ErrFetchFailed,
			wantKind:  KindFetchFailed,
			wantCalls: 1,
		},
		{
			name:      "redfin page without data",
			url:       "https://www.redfin.com/CA/Oakland/home/1",
			fetcher:   serving(`<html><body><p>hello</p></body></html>`),
			wantErr:   ErrParseFailed,
			wantKind:  KindParseFailed,
			wantCalls: 1,
		},
		{
			name:      "zillow url without address slug",
			url:       "https://www.zillow.com/homedetails/12345_zpid/",
			fetcher:   failing(errors.New("connection refused")),
			wantErr:   ErrFetchFailed,
			wantKind:  KindFetchFailed,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScraper(t, tt.fetcher)

			rec, err := s.Extract(context.Background(), tt.url)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, rec)
			assert.Equal(t, tt.wantKind, KindOf(err))
			assert.Equal(t, tt.wantCalls, tt.fetcher.calls)
		})
	}
}

func TestExtract_DegradedZillowRecord(t *testing.T) {
	tests := []struct {
		name    string
		fetcher *fakeFetcher
	}{
		{"blocked", failing(&fetcher.StatusError{StatusCode: http.StatusForbidden})},
		{"nothing parseable", serving(`<html><body>empty</body></html>`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScraper(t, tt.fetcher, WithMaxAttempts(2))

			rawURL := "https://www.zillow.com/homedetails/123-Main-St-Cambridge-MA/12345_zpid/"
			res, err := s.ExtractResult(context.Background(), rawURL)
			require.NoError(t, err)

			assert.Equal(t, StrategyDegraded, res.Strategy)
			rec := res.Record
			assert.Equal(t, "123 Main St Cambridge Ma", rec.Address)
			assert.Zero(t, rec.ListPrice)
			assert.Zero(t, rec.Bedrooms)
			assert.Zero(t, rec.Bathrooms)
			assert.Zero(t, rec.DaysOnMarket)
			assert.False(t, rec.PriceReduced)
			assert.True(t, rec.NeedsCompletion())
			assert.Equal(t, listing.SourceZillow, rec.Source)
			assert.Equal(t, rawURL, rec.SourceURL)
		})
	}
}

const apiPayload = `{"data": {"property": {
	"address": {"streetAddress": "1 Main St", "city": "Cambridge", "state": "MA", "zipcode": "02139"},
	"price": 750000,
	"bedrooms": 3,
	"bathrooms": 2.5,
	"livingArea": 1850,
	"yearBuilt": 1924,
	"homeType": "SINGLE_FAMILY",
	"daysOnZillow": 4,
	"zestimate": 762000,
	"priceHistory": [
		{"date": "2026-04-01", "event": "Listed for sale", "price": 790000},
		{"date": "2026-04-20", "event": "Price change", "price": 750000}
	]
}}}`

const listingPage = `<html><body>
<!--{"zpid":12345,"property":{"address":{"streetAddress":"1 Main St","city":"Cambridge"},"price":810000}}-->
</body></html>`

// zillowServer serves the data API at /api and listing pages under
// /homedetails/. Any status other than 200 makes the handler fail.
func zillowServer(t *testing.T, apiStatus, pageStatus int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	hits := new(atomic.Int32)
	mux := http.NewServeMux()
	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("zpid") != "12345" || apiStatus != http.StatusOK {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(apiPayload))
	})
	mux.HandleFunc("/homedetails/12345_zpid/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if pageStatus != http.StatusOK {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(listingPage))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, hits
}

func withTestAPI(srv *httptest.Server) []Option {
	return []Option{WithAPI(true), WithAPIBaseURL(srv.URL + "/api"), WithListingBaseURL(srv.URL)}
}

func TestExtract_APIFirst(t *testing.T) {
	srv, hits := zillowServer(t, http.StatusOK, http.StatusOK)
	f := serving(jsonLDPage)
	s := newTestScraper(t, f, withTestAPI(srv)...)

	res, err := s.ExtractResult(context.Background(), zillowURL)
	require.NoError(t, err)

	assert.Equal(t, StrategyAPI, res.Strategy)
	assert.Equal(t, 1, int(hits.Load()))
	assert.Zero(t, f.calls, "page fetch skipped when the api answers")

	rec := res.Record
	assert.Equal(t, "1 Main St, Cambridge, MA, 02139", rec.Address)
	assert.Equal(t, 750000, rec.ListPrice)
	assert.Equal(t, 3.0, rec.Bedrooms)
	assert.Equal(t, 2.5, rec.Bathrooms)
	assert.Equal(t, 4, rec.DaysOnMarket)
	assert.Equal(t, listing.PropertySingleFamily, rec.PropertyType)
	require.NotNil(t, rec.SquareFeet)
	assert.Equal(t, 1850, *rec.SquareFeet)
	require.NotNil(t, rec.EstimatedValue)
	assert.Equal(t, 762000, *rec.EstimatedValue)
	assert.True(t, rec.PriceReduced)
	assert.Equal(t, zillowURL, rec.SourceURL)
}

func TestExtract_APIListingPage(t *testing.T) {
	srv, hits := zillowServer(t, 0, http.StatusOK)
	f := serving(jsonLDPage)
	s := newTestScraper(t, f, withTestAPI(srv)...)

	res, err := s.ExtractResult(context.Background(), zillowURL)
	require.NoError(t, err)

	assert.Equal(t, StrategyAPIPage, res.Strategy)
	assert.Equal(t, 2, int(hits.Load()))
	assert.Zero(t, f.calls)
	assert.Equal(t, "1 Main St, Cambridge", res.Record.Address)
	assert.Equal(t, 810000, res.Record.ListPrice)
}

func TestExtract_APIFailureFallsThrough(t *testing.T) {
	srv, hits := zillowServer(t, 0, 0)
	f := serving(jsonLDPage)
	s := newTestScraper(t, f, withTestAPI(srv)...)

	res, err := s.ExtractResult(context.Background(), zillowURL)
	require.NoError(t, err)

	assert.Equal(t, "jsonld", res.Strategy)
	assert.Equal(t, 2, int(hits.Load()))
	assert.Equal(t, 1, f.calls)
	assert.Equal(t, 415000, res.Record.ListPrice)
}

func TestExtract_APILooselyShapedFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"property":{
			"address":{"streetAddress":"1 Elm St","city":"Boston"},
			"price":"$500,000",
			"priceReduction":{"amount":15000,"date":"2026-04-02"}
		}}}`))
	}))
	t.Cleanup(srv.Close)

	f := failing(errors.New("connection refused"))
	s := newTestScraper(t, f, withTestAPI(srv)...)

	res, err := s.ExtractResult(context.Background(), zillowURL)
	require.NoError(t, err)
	assert.Equal(t, StrategyAPI, res.Strategy)
	assert.Equal(t, "1 Elm St, Boston", res.Record.Address)
	assert.Equal(t, 500000, res.Record.ListPrice)
	assert.True(t, res.Record.PriceReduced)
	assert.Zero(t, f.calls)
}

func TestExtract_APISkippedForRedfin(t *testing.T) {
	srv, hits := zillowServer(t, http.StatusOK, http.StatusOK)
	f := serving(jsonLDPage)
	s := newTestScraper(t, f, withTestAPI(srv)...)

	_, err := s.Extract(context.Background(), "https://www.redfin.com/MA/Cambridge/home/12345")
	require.NoError(t, err)
	assert.Zero(t, int(hits.Load()))
	assert.Equal(t, 1, f.calls)
}

func TestNew_RejectsNegativeAttempts(t *testing.T) {
	_, err := New(WithMaxAttempts(-1))
	require.Error(t, err)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, KindNone},
		{fmt.Errorf("%w: x", ErrInvalidURL), KindInvalidURL},
		{fmt.Errorf("%w: x", ErrUnsupportedSite), KindUnsupportedSite},
		{fmt.Errorf("%w after 3 attempts", fetcher.ErrBlocked), KindBlocked},
		{fmt.Errorf("%w: dial tcp", fetcher.ErrFetchFailed), KindFetchFailed},
		{fmt.Errorf("%w: x", ErrParseFailed), KindParseFailed},
		{errors.New("something else"), KindFetchFailed},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), "KindOf(%v)", tt.err)
	}
}
