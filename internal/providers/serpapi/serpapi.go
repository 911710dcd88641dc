// Package serpapi provides the SerpApi Google Shopping adapter.
package serpapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"shopkit/internal/core"
	"shopkit/internal/providers"
	"shopkit/internal/searchclient"
)

const defaultBaseURL = "https://serpapi.com"

func init() {
	providers.Register("serpapi", func(cfg providers.Settings) (core.Fetcher, error) {
		p := New(cfg.APIKey)
		if cfg.BaseURL != "" {
			p.SetBaseURL(cfg.BaseURL)
		}
		return p, nil
	})
}

// rules maps SerpApi shopping-result rows to candidates.
// extracted_price is preferred because it is already numeric; the price
// field is display text like "$24.99".
var rules = providers.RuleSet{
	Source:        "serpapi",
	Name:          []string{"title", "name", "product_title"},
	Price:         []string{"extracted_price", "price"},
	Link:          []string{"product_link", "link", "url"},
	Image:         []string{"thumbnail", "image", "image_url"},
	Rating:        []string{"rating"},
	Reviews:       []string{"reviews"},
	Merchant:      []string{"source", "merchant", "store"},
	DefaultReason: "Found on Google Shopping",
}

// Provider implements core.Fetcher for SerpApi.
type Provider struct {
	client *searchclient.Client
	apiKey string
}

// New creates a new SerpApi adapter.
func New(apiKey string) *Provider {
	p := &Provider{apiKey: apiKey}
	p.client = searchclient.New(searchclient.DefaultConfig("serpapi", defaultBaseURL), nil)
	return p
}

// NewWithHTTPClient creates a new SerpApi adapter with a custom HTTP client.
// If httpClient is nil, http.DefaultClient is used.
func NewWithHTTPClient(apiKey string, httpClient *http.Client) *Provider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	p := &Provider{apiKey: apiKey}
	p.client = searchclient.NewWithHTTPClient(httpClient, searchclient.DefaultConfig("serpapi", defaultBaseURL), nil)
	return p
}

// SetBaseURL allows configuring a custom base URL for the provider
func (p *Provider) SetBaseURL(u string) {
	p.client.SetBaseURL(u)
}

// Name returns the provider tag attached to candidates.
func (p *Provider) Name() string { return "serpapi" }

// Host returns the provider host for debug output.
func (p *Provider) Host() string {
	if u, err := url.Parse(p.client.BaseURL()); err == nil && u.Host != "" {
		return u.Host
	}
	return p.client.BaseURL()
}

// Fetch runs a Google Shopping search and normalizes the result rows.
func (p *Provider) Fetch(ctx context.Context, query string, limit int) ([]core.Candidate, error) {
	q := url.Values{}
	q.Set("engine", "google_shopping")
	q.Set("q", query)
	q.Set("api_key", p.apiKey)
	q.Set("num", strconv.Itoa(limit))

	resp, err := p.client.Do(ctx, searchclient.Request{
		Method:   http.MethodGet,
		Endpoint: "/search.json",
		Query:    q,
	})
	if err != nil {
		return nil, err
	}

	body := gjson.ParseBytes(resp.Body)
	if !body.IsObject() {
		return nil, core.NewProviderError("serpapi", http.StatusBadGateway, "malformed response payload", nil)
	}
	if errMsg := body.Get("error"); errMsg.Exists() {
		return nil, core.NewProviderError("serpapi", http.StatusBadGateway, errMsg.String(), nil)
	}

	rows := body.Get("shopping_results").Array()
	candidates := rules.ExtractAll(rows, limit)
	if len(candidates) == 0 {
		return nil, core.NewProviderError("serpapi", http.StatusBadGateway, "no usable shopping results for query: "+query, nil)
	}
	return candidates, nil
}
