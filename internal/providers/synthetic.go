package providers

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"shopkit/internal/core"
)

// syntheticBasePrice and syntheticPriceStep define the fixed ascending price
// ladder for placeholder candidates: 19.99, 29.99, 39.99, ...
const (
	syntheticBasePrice = 19.99
	syntheticPriceStep = 10.0
)

// Synthetic generates exactly limit deterministic placeholder candidates for
// a query, sorted ascending by price. It is the terminal link of the fallback
// chain and guarantees the pipeline downstream is never starved.
func Synthetic(query string, limit int) []core.Candidate {
	if limit <= 0 {
		return nil
	}
	q := strings.TrimSpace(query)
	link := "https://www.google.com/search?tbm=shop&q=" + url.QueryEscape(q)

	out := make([]core.Candidate, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, core.Candidate{
			Name:   fmt.Sprintf("%s (option %d)", titleCase(q), i+1),
			Price:  core.Round2(syntheticBasePrice + float64(i)*syntheticPriceStep),
			Link:   link,
			Reason: "Popular pick in this category",
			Source: "synthetic",
		})
	}
	return out
}

// titleCase upper-cases the first rune of each word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
