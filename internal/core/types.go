// Package core provides core types and interfaces for the bundle service.
package core

import (
	"context"
	"math"
	"strings"
)

// Spec bounds. Values outside these ranges are clamped during normalization,
// never rejected.
const (
	MinBudget     = 50.0
	MaxBudget     = 5000.0
	MinItems      = 3
	MaxItems      = 15
	MaxCategories = 10
)

// Spec is the structured shopping requirement derived from free-text input.
// It is produced by the spec translator and treated as read-only by the
// pipeline.
type Spec struct {
	Title      string   `json:"title"`
	Budget     float64  `json:"budget"`
	MustHave   []string `json:"must_have"`
	NiceToHave []string `json:"nice_to_have"`
	MaxItems   int      `json:"max_items"`
}

// Normalize clamps budget and max_items into their allowed ranges and
// dedupes/caps the category lists. It returns a copy; the receiver is not
// mutated.
func (s Spec) Normalize() Spec {
	out := s
	if math.IsNaN(out.Budget) || math.IsInf(out.Budget, 0) || out.Budget <= 0 {
		out.Budget = MinBudget
	}
	out.Budget = math.Min(math.Max(out.Budget, MinBudget), MaxBudget)
	if out.MaxItems < MinItems {
		out.MaxItems = MinItems
	}
	if out.MaxItems > MaxItems {
		out.MaxItems = MaxItems
	}
	out.MustHave = dedupeCategories(s.MustHave, MaxCategories)
	out.NiceToHave = dedupeCategories(s.NiceToHave, MaxCategories)
	return out
}

// NormalizeCategory lower-cases and trims a category string. It is the
// canonical form used for dedupe and cache keys.
func NormalizeCategory(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}

// dedupeCategories returns the input categories deduped by first occurrence
// (case-insensitive) with blanks removed, capped to max entries.
func dedupeCategories(in []string, max int) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, c := range in {
		key := NormalizeCategory(c)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
		if len(out) == max {
			break
		}
	}
	return out
}

// Candidate is one normalized purchasable item option for a category.
// Candidates are immutable once constructed; Category is attached at
// aggregation time.
type Candidate struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Link     string  `json:"link"`
	Image    string  `json:"image,omitempty"`
	Reason   string  `json:"reason,omitempty"`
	Source   string  `json:"source"`
	Category string  `json:"category"`
}

// Valid reports whether the candidate survives the adapter boundary: a
// finite non-negative price, a non-empty link, and a non-empty name.
func (c Candidate) Valid() bool {
	if c.Name == "" || c.Link == "" {
		return false
	}
	return !math.IsNaN(c.Price) && !math.IsInf(c.Price, 0) && c.Price >= 0
}

// WithCategory returns a copy of the candidate tagged with the category.
func (c Candidate) WithCategory(category string) Candidate {
	c.Category = category
	return c
}

// Bundle is the final curated selection returned to the caller. Total never
// exceeds the spec budget and len(Items) never exceeds the spec item cap;
// both are composer-enforced invariants.
type Bundle struct {
	Title  string      `json:"title"`
	Budget float64     `json:"budget"`
	Total  float64     `json:"total"`
	Items  []Candidate `json:"items"`
	Note   string      `json:"note,omitempty"`
}

// Searcher is the candidate-sourcing boundary consumed by the aggregator.
// Implementations never fail and never return an empty list.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) []Candidate
}

// Fetcher is implemented by provider adapters. A nil error implies at least
// one candidate.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, query string, limit int) ([]Candidate, error)
}

// Round2 rounds a dollar amount to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
