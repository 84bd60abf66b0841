package homescrape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"

	"github.com/jmylchreest/homescrape/internal/logger"
	"github.com/jmylchreest/homescrape/pkg/extractor"
	"github.com/jmylchreest/homescrape/pkg/fetcher"
	"github.com/jmylchreest/homescrape/pkg/listing"
)

// Strategy names reported for the API-first paths.
const (
	StrategyAPI     = "api"
	StrategyAPIPage = "api-page"
)

// zillowResponse is the listing payload returned by the data API. The
// property is left loosely typed; side fields change shape between
// listings and go through the same field mapping as the page locators.
type zillowResponse struct {
	Data struct {
		Property map[string]any `json:"property"`
	} `json:"data"`
}

// apiClient implements the API-first strategy. Every failure is logged and
// swallowed; callers only see a hit or a miss.
type apiClient struct {
	http       *resty.Client
	identities fetcher.IdentitySource
	apiURL     string
	listingURL string
}

func newAPIClient(cfg Config, identities fetcher.IdentitySource) *apiClient {
	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	if cfg.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	return &apiClient{
		http:       client,
		identities: identities,
		apiURL:     cfg.APIBaseURL,
		listingURL: strings.TrimRight(cfg.ListingBaseURL, "/"),
	}
}

// lookup tries the data API, then the canonical listing page. It returns
// the first viable partial and the strategy that produced it.
func (a *apiClient) lookup(ctx context.Context, zpid string) (listing.Partial, string, bool) {
	log := logger.For("api").With("zpid", zpid)

	if p, err := a.fromAPI(ctx, zpid); err != nil {
		log.Debug("api lookup failed", "error", err)
	} else if p.Viable() {
		log.Debug("api lookup matched")
		return p, StrategyAPI, true
	} else {
		log.Debug("api payload below minimum data")
	}

	if p, err := a.fromListingPage(ctx, zpid); err != nil {
		log.Debug("listing page lookup failed", "error", err)
	} else if p.Viable() {
		log.Debug("listing page lookup matched")
		return p, StrategyAPIPage, true
	}

	return listing.Partial{}, "", false
}

func (a *apiClient) fromAPI(ctx context.Context, zpid string) (listing.Partial, error) {
	res, err := a.request(ctx).
		SetQueryParam("zpid", zpid).
		SetHeader("Accept", "application/json").
		Get(a.apiURL)
	if err != nil {
		return listing.Partial{}, err
	}
	if !res.IsSuccess() {
		return listing.Partial{}, &fetcher.StatusError{StatusCode: res.StatusCode()}
	}

	var payload zillowResponse
	if err := json.Unmarshal(res.Body(), &payload); err != nil {
		return listing.Partial{}, fmt.Errorf("decode api payload: %w", err)
	}
	if payload.Data.Property == nil {
		return listing.Partial{}, errors.New("api payload has no property")
	}
	return extractor.MapNode(payload.Data.Property), nil
}

func (a *apiClient) fromListingPage(ctx context.Context, zpid string) (listing.Partial, error) {
	res, err := a.request(ctx).Get(fmt.Sprintf("%s/homedetails/%s_zpid/", a.listingURL, zpid))
	if err != nil {
		return listing.Partial{}, err
	}
	if res.StatusCode() != http.StatusOK {
		return listing.Partial{}, &fetcher.StatusError{StatusCode: res.StatusCode()}
	}

	for _, block := range extractor.CommentBlocks(string(res.Body()), `"zpid"`) {
		if p, ok := extractor.LocateInTree(block); ok {
			return p, nil
		}
	}
	return listing.Partial{}, errors.New("no listing comment block")
}

func (a *apiClient) request(ctx context.Context) *resty.Request {
	id := a.identities.Next()
	return a.http.R().
		SetContext(ctx).
		SetHeaders(id.Headers).
		SetHeader("User-Agent", id.UserAgent)
}

// apiTimeout bounds the whole API-first phase.
func apiTimeout(cfg Config) time.Duration {
	if cfg.Timeout <= 0 {
		return DefaultConfig().Timeout
	}
	return cfg.Timeout
}
