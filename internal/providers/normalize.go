package providers

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"shopkit/internal/core"
)

// RuleSet declares, per logical candidate field, the payload paths to probe
// in priority order. First match wins. Provider payloads disagree on field
// names for the same attribute, so each adapter ships its own rule set with
// the known variants for its backend.
type RuleSet struct {
	Source string

	Name  []string
	Price []string
	Link  []string
	Image []string

	// Rating, Reviews, and Merchant feed the synthesized human-readable
	// reason when present.
	Rating   []string
	Reviews  []string
	Merchant []string

	// DefaultReason is used when no rating/merchant data is available.
	DefaultReason string
}

// Extract normalizes one payload row into a Candidate. Returns false when
// the row fails to yield a finite price, a non-empty link, or a non-empty
// name; such rows are dropped, never forwarded with placeholder values.
func (rs RuleSet) Extract(row gjson.Result) (core.Candidate, bool) {
	name := strings.TrimSpace(first(row, rs.Name).String())
	link := strings.TrimSpace(first(row, rs.Link).String())
	price, ok := ParsePrice(first(row, rs.Price))

	c := core.Candidate{
		Name:   name,
		Price:  price,
		Link:   link,
		Image:  strings.TrimSpace(first(row, rs.Image).String()),
		Reason: rs.reason(row),
		Source: rs.Source,
	}
	if !ok || !c.Valid() {
		return core.Candidate{}, false
	}
	return c, true
}

// ExtractAll normalizes every row, drops the unusable ones, sorts ascending
// by price, and truncates to limit.
func (rs RuleSet) ExtractAll(rows []gjson.Result, limit int) []core.Candidate {
	out := make([]core.Candidate, 0, len(rows))
	for _, row := range rows {
		if c, ok := rs.Extract(row); ok {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// reason synthesizes a short human-readable pick reason from rating,
// review count, and merchant fields when the payload carries them.
func (rs RuleSet) reason(row gjson.Result) string {
	rating := first(row, rs.Rating)
	merchant := strings.TrimSpace(first(row, rs.Merchant).String())

	if rating.Exists() && rating.Float() > 0 {
		reviews := first(row, rs.Reviews)
		switch {
		case reviews.Exists() && reviews.Int() > 0:
			return fmt.Sprintf("Rated %.1f by %d shoppers", rating.Float(), reviews.Int())
		case merchant != "":
			return fmt.Sprintf("Rated %.1f at %s", rating.Float(), merchant)
		default:
			return fmt.Sprintf("Rated %.1f", rating.Float())
		}
	}
	if merchant != "" {
		return "Sold by " + merchant
	}
	return rs.DefaultReason
}

// first probes the row with each path in order and returns the first
// existing, non-empty result.
func first(row gjson.Result, paths []string) gjson.Result {
	for _, p := range paths {
		if v := row.Get(p); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

// priceRe matches the first numeric run in mixed price text, tolerating
// thousands separators ("$1,299.00", "USD 24.99", "24,99 approx").
var priceRe = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// ParsePrice extracts a finite non-negative price from a numeric or string
// payload value. Returns false when no usable number is present.
func ParsePrice(v gjson.Result) (float64, bool) {
	switch v.Type {
	case gjson.Number:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return 0, false
		}
		return f, true
	case gjson.String:
		m := priceRe.FindString(v.String())
		if m == "" {
			return 0, false
		}
		m = strings.ReplaceAll(m, ",", "")
		parsed := gjson.Parse(m)
		if parsed.Type != gjson.Number {
			return 0, false
		}
		f := parsed.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
