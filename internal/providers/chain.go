package providers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"shopkit/internal/core"
	"shopkit/internal/observability"
)

// Chain tries adapters in priority order and short-circuits on the first
// non-empty result. When every adapter is unconfigured, errors, or returns
// empty, it synthesizes placeholder candidates, so Search never fails and
// never returns an empty list. This is the hard outer boundary that keeps
// provider and timeout errors from escaping into the aggregator.
type Chain struct {
	adapters []core.Fetcher
}

// NewChain creates a fallback chain over the given adapters, in priority
// order. An empty adapter list is valid: every search is then synthetic.
func NewChain(adapters ...core.Fetcher) *Chain {
	return &Chain{adapters: adapters}
}

// FromConfig builds the chain from resolved adapter settings.
func FromConfig(settings []Settings) (*Chain, error) {
	adapters := make([]core.Fetcher, 0, len(settings))
	for _, s := range settings {
		adapter, err := Create(s)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, adapter)
	}
	return NewChain(adapters...), nil
}

// Adapters returns the names of the active adapters, in priority order.
func (c *Chain) Adapters() []string {
	names := make([]string, 0, len(c.adapters))
	for _, a := range c.adapters {
		names = append(names, a.Name())
	}
	return names
}

// Hosts returns the upstream hosts of adapters that report one, for debug
// output.
func (c *Chain) Hosts() []string {
	hosts := make([]string, 0, len(c.adapters))
	for _, a := range c.adapters {
		if h, ok := a.(interface{ Host() string }); ok {
			hosts = append(hosts, h.Host())
		}
	}
	return hosts
}

// Search returns between 1 and limit candidates for the query.
func (c *Chain) Search(ctx context.Context, query string, limit int) []core.Candidate {
	for _, adapter := range c.adapters {
		start := time.Now()
		candidates, err := adapter.Fetch(ctx, query, limit)
		elapsed := time.Since(start)

		if err != nil {
			observability.ObserveProviderRequest(adapter.Name(), outcomeFor(err), elapsed)
			slog.Warn("provider fetch failed, falling through",
				"provider", adapter.Name(),
				"query", query,
				"error", err,
			)
			continue
		}
		if len(candidates) == 0 {
			observability.ObserveProviderRequest(adapter.Name(), observability.OutcomeEmpty, elapsed)
			continue
		}

		observability.ObserveProviderRequest(adapter.Name(), observability.OutcomeOK, elapsed)
		return candidates
	}

	slog.Debug("all providers exhausted, synthesizing candidates", "query", query, "limit", limit)
	return Synthetic(query, limit)
}

// outcomeFor maps a fetch error to a metrics outcome label.
func outcomeFor(err error) string {
	var se *core.ServiceError
	if errors.As(err, &se) && se.Type == core.ErrorTypeTimeout {
		return observability.OutcomeTimeout
	}
	return observability.OutcomeError
}
