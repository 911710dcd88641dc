package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

var testRules = RuleSet{
	Source:        "test",
	Name:          []string{"title", "name", "product_title"},
	Price:         []string{"extracted_price", "price"},
	Link:          []string{"link", "url"},
	Image:         []string{"image", "thumbnail"},
	Rating:        []string{"rating"},
	Reviews:       []string{"reviews"},
	Merchant:      []string{"source"},
	DefaultReason: "Found in search",
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name string
		json string
		want float64
		ok   bool
	}{
		{"plain number", `{"p": 24.99}`, 24.99, true},
		{"integer", `{"p": 120}`, 120, true},
		{"dollar string", `{"p": "$24.99"}`, 24.99, true},
		{"currency prefix", `{"p": "USD 1,299.00"}`, 1299.00, true},
		{"trailing text", `{"p": "24.99 per unit"}`, 24.99, true},
		{"thousands separator", `{"p": "$1,024"}`, 1024, true},
		{"no digits", `{"p": "call for price"}`, 0, false},
		{"empty string", `{"p": ""}`, 0, false},
		{"negative number", `{"p": -5}`, 0, false},
		{"null", `{"p": null}`, 0, false},
		{"missing", `{}`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePrice(gjson.Get(tt.json, "p"))
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestExtract_FieldVariants(t *testing.T) {
	tests := []struct {
		name string
		row  string
		want string // expected candidate name; empty means dropped
	}{
		{
			name: "canonical fields",
			row:  `{"title":"Desk lamp","price":"$24.99","link":"https://a.test/1"}`,
			want: "Desk lamp",
		},
		{
			name: "name variant",
			row:  `{"name":"Desk lamp","price":24.99,"url":"https://a.test/1"}`,
			want: "Desk lamp",
		},
		{
			name: "product_title variant",
			row:  `{"product_title":"Desk lamp","extracted_price":24.99,"link":"https://a.test/1"}`,
			want: "Desk lamp",
		},
		{
			name: "missing name dropped",
			row:  `{"price":24.99,"link":"https://a.test/1"}`,
			want: "",
		},
		{
			name: "missing link dropped",
			row:  `{"title":"Desk lamp","price":24.99}`,
			want: "",
		},
		{
			name: "unparseable price dropped",
			row:  `{"title":"Desk lamp","price":"ask in store","link":"https://a.test/1"}`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := testRules.Extract(gjson.Parse(tt.row))
			if tt.want == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, c.Name)
			assert.Equal(t, 24.99, c.Price)
			assert.Equal(t, "test", c.Source)
		})
	}
}

func TestExtract_PriceVariantPriority(t *testing.T) {
	// extracted_price is listed first and must win over the display string.
	row := gjson.Parse(`{"title":"Lamp","extracted_price":22.50,"price":"$24.99","link":"https://a.test/1"}`)
	c, ok := testRules.Extract(row)
	require.True(t, ok)
	assert.Equal(t, 22.50, c.Price)
}

func TestExtract_ReasonSynthesis(t *testing.T) {
	tests := []struct {
		name string
		row  string
		want string
	}{
		{
			name: "rating and reviews",
			row:  `{"title":"Lamp","price":10,"link":"https://a.test","rating":4.5,"reviews":1200}`,
			want: "Rated 4.5 by 1200 shoppers",
		},
		{
			name: "rating and merchant",
			row:  `{"title":"Lamp","price":10,"link":"https://a.test","rating":4.2,"source":"BrightCo"}`,
			want: "Rated 4.2 at BrightCo",
		},
		{
			name: "merchant only",
			row:  `{"title":"Lamp","price":10,"link":"https://a.test","source":"BrightCo"}`,
			want: "Sold by BrightCo",
		},
		{
			name: "no signals",
			row:  `{"title":"Lamp","price":10,"link":"https://a.test"}`,
			want: "Found in search",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := testRules.Extract(gjson.Parse(tt.row))
			require.True(t, ok)
			assert.Equal(t, tt.want, c.Reason)
		})
	}
}

func TestExtractAll_SortsAndTruncates(t *testing.T) {
	rows := gjson.Parse(`[
		{"title":"C","price":30,"link":"https://a.test/c"},
		{"title":"A","price":10,"link":"https://a.test/a"},
		{"bad":"row"},
		{"title":"B","price":20,"link":"https://a.test/b"},
		{"title":"D","price":40,"link":"https://a.test/d"}
	]`).Array()

	got := testRules.ExtractAll(rows, 3)

	require.Len(t, got, 3)
	assert.Equal(t, "A", got[0].Name)
	assert.Equal(t, "B", got[1].Name)
	assert.Equal(t, "C", got[2].Name)
}
