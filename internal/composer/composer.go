// Package composer selects the final bundle from an aggregated candidate
// pool under the spec's budget and item-count caps.
package composer

import (
	"math"
	"sort"

	"shopkit/internal/core"
	"shopkit/internal/observability"
)

// Composer implements a two-phase greedy selection:
//
//  1. Coverage pass: one cheapest affordable item per must-have category, in
//     spec order. A category with no affordable candidate is silently
//     skipped; must-have is advisory, not a hard failure.
//  2. Fill pass: all remaining candidates ascending by price, accepted
//     greedily until the pool is exhausted or both caps refuse everything.
//
// This is a first-fit-by-price heuristic, not an optimal budgeted-knapsack
// solution: it trades depth for breadth (one of each requested category
// first), then backfills with whatever is cheapest regardless of category.
// Fill-pass ties on price break by original aggregation order, which keeps
// the result deterministic for identical inputs.
type Composer struct{}

// New creates a Composer.
func New() *Composer {
	return &Composer{}
}

// selection tracks the running pick state. pick enforces both bundle
// invariants: total never exceeds budget, and the item count never exceeds
// the cap.
type selection struct {
	budget   float64
	maxItems int
	total    float64
	items    []core.Candidate
	taken    map[int]bool // pool indexes already selected
}

// pick accepts the candidate at pool index i iff the item cap is free, the
// price is finite, and the running total stays within budget.
func (s *selection) pick(pool []core.Candidate, i int) bool {
	c := pool[i]
	if len(s.items) >= s.maxItems {
		return false
	}
	if math.IsNaN(c.Price) || math.IsInf(c.Price, 0) {
		return false
	}
	if s.total+c.Price > s.budget {
		return false
	}
	s.items = append(s.items, c)
	s.total += c.Price
	s.taken[i] = true
	return true
}

// Compose selects a bundle from the candidate pool. The returned bundle
// always satisfies total <= spec.Budget and len(items) <= spec.MaxItems.
func (c *Composer) Compose(spec core.Spec, pool []core.Candidate) core.Bundle {
	sel := &selection{
		budget:   spec.Budget,
		maxItems: spec.MaxItems,
		taken:    make(map[int]bool, spec.MaxItems),
	}

	// Coverage pass: cheapest acceptable candidate per must-have category,
	// at most one per category, in spec order.
	for _, category := range spec.MustHave {
		want := core.NormalizeCategory(category)
		indexes := make([]int, 0, len(pool))
		for i := range pool {
			if core.NormalizeCategory(pool[i].Category) == want {
				indexes = append(indexes, i)
			}
		}
		sort.SliceStable(indexes, func(a, b int) bool {
			return pool[indexes[a]].Price < pool[indexes[b]].Price
		})
		for _, i := range indexes {
			if sel.pick(pool, i) {
				break
			}
		}
	}

	// Fill pass: every remaining candidate, cheapest first, stable by pool
	// order on equal prices.
	remaining := make([]int, 0, len(pool))
	for i := range pool {
		if !sel.taken[i] {
			remaining = append(remaining, i)
		}
	}
	sort.SliceStable(remaining, func(a, b int) bool {
		return pool[remaining[a]].Price < pool[remaining[b]].Price
	})
	for _, i := range remaining {
		sel.pick(pool, i)
	}

	observability.BundleComposed()

	return core.Bundle{
		Title:  spec.Title,
		Budget: spec.Budget,
		Total:  core.Round2(sel.total),
		Items:  sel.items,
	}
}
