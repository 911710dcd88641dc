// Package specgen translates free-text shopping prompts into structured
// specs using a hosted language model, with a static fallback so the
// pipeline always receives a well-formed spec.
package specgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"shopkit/internal/core"
)

const defaultBaseURL = "https://api.openai.com/v1"

const specPrompt = `You are a shopping planner. Convert the request below into a JSON object with EXACTLY these fields and nothing else:

{"title": string, "budget": number (USD, between 50 and 5000), "must_have": array of up to 10 short category strings, "nice_to_have": array of up to 10 short category strings, "max_items": integer between 3 and 15}

Respond with ONLY the JSON object. No prose, no code fences.

Request: %s
Budget hint: %s`

// Translator converts a prompt plus optional budget into a normalized Spec.
type Translator interface {
	Translate(ctx context.Context, prompt string, budget float64) core.Spec
}

// Options configure the OpenAI-backed translator.
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// OpenAI is a Translator backed by the OpenAI chat completions API. Any
// failure, from a missing key to malformed model output, degrades to the
// static fallback spec; Translate never fails.
type OpenAI struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// New creates an OpenAI-backed translator.
func New(opts Options) *OpenAI {
	t := &OpenAI{
		apiKey:  opts.APIKey,
		baseURL: opts.BaseURL,
		model:   opts.Model,
		client:  opts.HTTPClient,
	}
	if t.baseURL == "" {
		t.baseURL = defaultBaseURL
	}
	if t.model == "" {
		t.model = "gpt-4o-mini"
	}
	if t.client == nil {
		t.client = &http.Client{Timeout: 30 * time.Second}
	}
	return t
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

// Translate converts the prompt into a normalized Spec. The caller's budget,
// when positive, overrides whatever the model proposes.
func (t *OpenAI) Translate(ctx context.Context, prompt string, budget float64) core.Spec {
	if t.apiKey == "" {
		return Fallback(prompt, budget)
	}

	text, err := t.call(ctx, prompt, budget)
	if err != nil {
		slog.Warn("spec translation failed, using fallback spec", "error", err)
		return Fallback(prompt, budget)
	}

	spec, ok := ParseSpec(text)
	if !ok {
		slog.Warn("spec translation returned unparseable output, using fallback spec")
		return Fallback(prompt, budget)
	}

	if budget > 0 {
		spec.Budget = budget
	}
	return spec.Normalize()
}

func (t *OpenAI) call(ctx context.Context, prompt string, budget float64) (string, error) {
	hint := "none given"
	if budget > 0 {
		hint = fmt.Sprintf("%.2f USD", budget)
	}

	body, _ := json.Marshal(chatRequest{
		Model:          t.model,
		Messages:       []chatMessage{{Role: "user", Content: fmt.Sprintf(specPrompt, prompt, hint)}},
		Temperature:    0.2,
		ResponseFormat: &respFormat{Type: "json_object"},
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("openai API %d: %s", resp.StatusCode, string(b))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	content := gjson.GetBytes(raw, "choices.0.message.content").String()
	if content == "" {
		return "", fmt.Errorf("empty openai response")
	}
	return content, nil
}

// ParseSpec tolerantly extracts a Spec from model output: code fences are
// stripped and the first JSON object in the text is used. Returns false when
// no object with at least a title or a category list can be found.
func ParseSpec(text string) (core.Spec, bool) {
	text = stripFences(text)

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return core.Spec{}, false
	}
	obj := gjson.Parse(text[start : end+1])
	if !obj.IsObject() {
		return core.Spec{}, false
	}

	spec := core.Spec{
		Title:      strings.TrimSpace(obj.Get("title").String()),
		Budget:     obj.Get("budget").Float(),
		MustHave:   stringList(obj.Get("must_have")),
		NiceToHave: stringList(obj.Get("nice_to_have")),
		MaxItems:   int(obj.Get("max_items").Int()),
	}
	if spec.Title == "" && len(spec.MustHave) == 0 {
		return core.Spec{}, false
	}
	return spec, true
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func stringList(v gjson.Result) []string {
	if !v.IsArray() {
		return nil
	}
	var out []string
	for _, e := range v.Array() {
		if s := strings.TrimSpace(e.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// fallbackCategories is the static essentials list used when translation is
// unavailable.
var fallbackCategories = []string{"bedding", "lighting", "storage", "decor"}

// Fallback returns the static default spec: an essentials bundle titled from
// the prompt, with the caller's budget when given.
func Fallback(prompt string, budget float64) core.Spec {
	title := strings.TrimSpace(prompt)
	if r := []rune(title); len(r) > 60 {
		title = string(r[:60])
	}
	if title == "" {
		title = "Shopping bundle"
	} else {
		title = "Bundle: " + title
	}

	if budget <= 0 {
		budget = 300
	}

	return core.Spec{
		Title:      title,
		Budget:     budget,
		MustHave:   append([]string{}, fallbackCategories...),
		NiceToHave: nil,
		MaxItems:   8,
	}.Normalize()
}
