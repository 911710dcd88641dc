// Package aggregator gathers candidates per requested category through the
// cache and the source fallback chain.
package aggregator

import (
	"context"
	"log/slog"
	"sync"

	"shopkit/internal/cache"
	"shopkit/internal/core"
	"shopkit/internal/observability"
)

// Defaults matching the reference pipeline. MaxCategories bounds external
// call fan-out; CategoryLimit is the fixed per-category fetch size.
const (
	DefaultCategoryLimit = 3
	DefaultMaxCategories = 8
)

// Aggregator resolves a spec's categories into a flat, category-tagged
// candidate pool. Categories are fetched concurrently with a worker pool
// bounded by the category cap; the cache is the only shared mutable state.
type Aggregator struct {
	store         cache.Store
	chain         core.Searcher
	categoryLimit int
	maxCategories int
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithCategoryLimit overrides the fixed per-category fetch limit.
func WithCategoryLimit(limit int) Option {
	return func(a *Aggregator) {
		if limit > 0 {
			a.categoryLimit = limit
		}
	}
}

// WithMaxCategories overrides the category working-set cap.
func WithMaxCategories(max int) Option {
	return func(a *Aggregator) {
		if max > 0 {
			a.maxCategories = max
		}
	}
}

// New creates an aggregator over the given cache store and fallback chain.
func New(store cache.Store, chain core.Searcher, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:         store,
		chain:         chain,
		categoryLimit: DefaultCategoryLimit,
		maxCategories: DefaultMaxCategories,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Categories returns the ordered working set for a spec: must-have then
// nice-to-have, deduped by first occurrence, capped to the working-set bound.
func (a *Aggregator) Categories(spec core.Spec) []string {
	seen := make(map[string]struct{}, len(spec.MustHave)+len(spec.NiceToHave))
	out := make([]string, 0, a.maxCategories)
	for _, c := range append(append([]string{}, spec.MustHave...), spec.NiceToHave...) {
		key := core.NormalizeCategory(c)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
		if len(out) == a.maxCategories {
			break
		}
	}
	return out
}

// Aggregate gathers candidates for every category in the spec's working set
// and returns them as a flat pool in category order, each candidate tagged
// with its originating category.
func (a *Aggregator) Aggregate(ctx context.Context, spec core.Spec) []core.Candidate {
	categories := a.Categories(spec)
	if len(categories) == 0 {
		return nil
	}

	// Fan out one goroutine per category; the working-set cap already
	// bounds concurrency, and results are joined in category order.
	results := make([][]core.Candidate, len(categories))
	var wg sync.WaitGroup
	for i, category := range categories {
		wg.Add(1)
		go func(i int, category string) {
			defer wg.Done()
			results[i] = a.fetchCategory(ctx, category)
		}(i, category)
	}
	wg.Wait()

	var pool []core.Candidate
	for i, candidates := range results {
		for _, c := range candidates {
			pool = append(pool, c.WithCategory(categories[i]))
		}
	}
	return pool
}

// fetchCategory consults the cache and falls through to the chain on miss.
// Only non-empty results are cached: a transient outage is retried on the
// next request instead of being remembered as permanently empty.
func (a *Aggregator) fetchCategory(ctx context.Context, category string) []core.Candidate {
	key := cache.Key(category, a.categoryLimit)

	if cached, ok := a.store.Get(key); ok {
		observability.CacheHit()
		slog.Debug("candidate cache hit", "category", category, "count", len(cached))
		return cached
	}
	observability.CacheMiss()

	candidates := a.chain.Search(ctx, category, a.categoryLimit)
	if len(candidates) > 0 {
		a.store.Set(key, candidates)
	}
	return candidates
}
