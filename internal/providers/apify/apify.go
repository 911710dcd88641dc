// Package apify provides an Apify actor-run adapter for product search.
//
// Apify backends are asynchronous: a search is started as a remote actor run,
// polled until it reaches a terminal state, and its dataset is then fetched.
package apify

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"shopkit/internal/core"
	"shopkit/internal/providers"
	"shopkit/internal/searchclient"
)

const defaultBaseURL = "https://api.apify.com"

func init() {
	providers.Register("apify", func(cfg providers.Settings) (core.Fetcher, error) {
		p := New(cfg.APIKey, cfg.ActorID)
		if cfg.BaseURL != "" {
			p.SetBaseURL(cfg.BaseURL)
		}
		p.SetPolling(cfg.PollInterval, cfg.PollTimeout)
		return p, nil
	})
}

// rules maps actor dataset items to candidates. Actor outputs vary more than
// hosted search APIs, so every known field variant is probed.
var rules = providers.RuleSet{
	Source:        "apify",
	Name:          []string{"title", "name", "product_title", "productName"},
	Price:         []string{"price", "price.value", "currentPrice", "salePrice"},
	Link:          []string{"url", "link", "product_link", "productUrl"},
	Image:         []string{"image", "thumbnail", "image_url", "imageUrl"},
	Rating:        []string{"rating", "stars"},
	Reviews:       []string{"reviews", "reviewsCount", "ratings_total"},
	Merchant:      []string{"seller", "merchant", "store", "brand"},
	DefaultReason: "Scraped marketplace listing",
}

// RunState is the lifecycle state of a remote actor run.
type RunState int

const (
	RunPending RunState = iota
	RunSucceeded
	RunFailed
	RunAborted
	RunTimedOut
)

// Terminal reports whether the run has finished, successfully or not.
func (s RunState) Terminal() bool { return s != RunPending }

// parseRunState maps an Apify run status string to a RunState. Unknown
// statuses count as pending so the poll loop keeps waiting until its own
// deadline fires.
func parseRunState(status string) RunState {
	switch status {
	case "SUCCEEDED":
		return RunSucceeded
	case "FAILED":
		return RunFailed
	case "ABORTED", "ABORTING":
		return RunAborted
	case "TIMED-OUT", "TIMING-OUT":
		return RunTimedOut
	default:
		return RunPending
	}
}

// Provider implements core.Fetcher for Apify actor runs.
type Provider struct {
	client       *searchclient.Client
	token        string
	actorID      string
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// New creates a new Apify adapter for the given actor.
func New(token, actorID string) *Provider {
	p := &Provider{
		token:        token,
		actorID:      actorID,
		pollInterval: 2 * time.Second,
		pollTimeout:  60 * time.Second,
	}
	cfg := searchclient.DefaultConfig("apify", defaultBaseURL)
	// The poll loop handles transient failures itself; client-level retries
	// would stretch the interval unpredictably.
	cfg.MaxRetries = 0
	p.client = searchclient.New(cfg, p.setHeaders)
	return p
}

// NewWithHTTPClient creates a new Apify adapter with a custom HTTP client.
// If httpClient is nil, http.DefaultClient is used.
func NewWithHTTPClient(token, actorID string, httpClient *http.Client) *Provider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	p := &Provider{
		token:        token,
		actorID:      actorID,
		pollInterval: 2 * time.Second,
		pollTimeout:  60 * time.Second,
	}
	cfg := searchclient.DefaultConfig("apify", defaultBaseURL)
	cfg.MaxRetries = 0
	p.client = searchclient.NewWithHTTPClient(httpClient, cfg, p.setHeaders)
	return p
}

// SetBaseURL allows configuring a custom base URL for the provider
func (p *Provider) SetBaseURL(u string) {
	p.client.SetBaseURL(u)
}

// SetPolling overrides the poll interval and wall-clock deadline.
func (p *Provider) SetPolling(interval, timeout time.Duration) {
	if interval > 0 {
		p.pollInterval = interval
	}
	if timeout > 0 {
		p.pollTimeout = timeout
	}
}

// Name returns the provider tag attached to candidates.
func (p *Provider) Name() string { return "apify" }

// Host returns the provider host for debug output.
func (p *Provider) Host() string {
	if u, err := url.Parse(p.client.BaseURL()); err == nil && u.Host != "" {
		return u.Host
	}
	return p.client.BaseURL()
}

func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.token)
}

// Fetch starts an actor run for the query, waits for it to succeed, and
// normalizes its dataset items.
func (p *Provider) Fetch(ctx context.Context, query string, limit int) ([]core.Candidate, error) {
	runID, datasetID, err := p.startRun(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	datasetID, err = p.waitForRun(ctx, runID, datasetID)
	if err != nil {
		return nil, err
	}

	return p.fetchItems(ctx, datasetID, query, limit)
}

// startRun starts the actor and returns the run ID plus the default dataset
// ID when the API already reports one.
func (p *Provider) startRun(ctx context.Context, query string, limit int) (string, string, error) {
	resp, err := p.client.Do(ctx, searchclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/v2/acts/" + url.PathEscape(p.actorID) + "/runs",
		Body: map[string]interface{}{
			"search":     query,
			"maxResults": limit,
		},
	})
	if err != nil {
		return "", "", err
	}

	data := gjson.GetBytes(resp.Body, "data")
	runID := data.Get("id").String()
	if runID == "" {
		return "", "", core.NewProviderError("apify", http.StatusBadGateway, "run response missing run id", nil)
	}
	return runID, data.Get("defaultDatasetId").String(), nil
}

// waitForRun polls the run until it reaches a terminal state or the
// wall-clock deadline expires. The wait is cancellable through ctx so an
// aborted request does not leak a pending poll.
func (p *Provider) waitForRun(ctx context.Context, runID, datasetID string) (string, error) {
	deadline := time.Now().Add(p.pollTimeout)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		state, dsID, err := p.runStatus(ctx, runID)
		if err == nil {
			if dsID != "" {
				datasetID = dsID
			}
			switch state {
			case RunSucceeded:
				return datasetID, nil
			case RunFailed:
				return "", core.NewProviderError("apify", http.StatusBadGateway, "actor run failed: "+runID, nil)
			case RunAborted:
				return "", core.NewProviderError("apify", http.StatusBadGateway, "actor run aborted: "+runID, nil)
			case RunTimedOut:
				return "", core.NewTimeoutError("apify", "actor run timed out upstream: "+runID)
			}
		}
		// Transient status-poll errors are retried until the deadline.

		if time.Now().After(deadline) {
			return "", core.NewTimeoutError("apify", "actor run did not complete within "+p.pollTimeout.String())
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

// runStatus fetches the current run state and dataset ID.
func (p *Provider) runStatus(ctx context.Context, runID string) (RunState, string, error) {
	resp, err := p.client.Do(ctx, searchclient.Request{
		Method:   http.MethodGet,
		Endpoint: "/v2/actor-runs/" + url.PathEscape(runID),
	})
	if err != nil {
		return RunPending, "", err
	}
	data := gjson.GetBytes(resp.Body, "data")
	return parseRunState(data.Get("status").String()), data.Get("defaultDatasetId").String(), nil
}

// fetchItems retrieves and normalizes the run's dataset.
func (p *Provider) fetchItems(ctx context.Context, datasetID, query string, limit int) ([]core.Candidate, error) {
	if datasetID == "" {
		return nil, core.NewProviderError("apify", http.StatusBadGateway, "actor run has no dataset", nil)
	}

	q := url.Values{}
	q.Set("clean", "true")

	resp, err := p.client.Do(ctx, searchclient.Request{
		Method:   http.MethodGet,
		Endpoint: "/v2/datasets/" + url.PathEscape(datasetID) + "/items",
		Query:    q,
	})
	if err != nil {
		return nil, err
	}

	rows := gjson.ParseBytes(resp.Body).Array()
	candidates := rules.ExtractAll(rows, limit)
	if len(candidates) == 0 {
		return nil, core.NewProviderError("apify", http.StatusBadGateway, "no usable dataset items for query: "+query, nil)
	}
	return candidates, nil
}
