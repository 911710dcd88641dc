// Package server provides HTTP handlers and server setup for the bundle service.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"shopkit/internal/core"
	"shopkit/internal/specgen"
)

// Aggregator is the candidate-gathering boundary consumed by the handler.
type Aggregator interface {
	Aggregate(ctx context.Context, spec core.Spec) []core.Candidate
	Categories(spec core.Spec) []string
}

// Composer selects the final bundle from a candidate pool.
type Composer interface {
	Compose(spec core.Spec, pool []core.Candidate) core.Bundle
}

// DebugInfo describes the active sourcing configuration for debug output.
type DebugInfo interface {
	Adapters() []string
	Hosts() []string
}

// Handler holds the HTTP handlers
type Handler struct {
	translator specgen.Translator
	aggregator Aggregator
	composer   Composer
	debug      DebugInfo
}

// NewHandler creates a new handler over the pipeline collaborators.
func NewHandler(translator specgen.Translator, agg Aggregator, comp Composer, debug DebugInfo) *Handler {
	return &Handler{
		translator: translator,
		aggregator: agg,
		composer:   comp,
		debug:      debug,
	}
}

// BundleRequest is the POST /v1/bundles request body.
type BundleRequest struct {
	Prompt string  `json:"prompt"`
	Budget float64 `json:"budget,omitempty"`
	Debug  bool    `json:"debug,omitempty"`
}

// BundleResponse wraps a bundle with the optional debug object.
type BundleResponse struct {
	core.Bundle
	Debug *BundleDebug `json:"debug,omitempty"`
}

// BundleDebug carries pipeline internals when the caller asks for them.
type BundleDebug struct {
	Providers      []string  `json:"providers"`
	ProviderHosts  []string  `json:"provider_hosts"`
	CandidateCount int       `json:"candidate_count"`
	Categories     []string  `json:"categories"`
	Spec           core.Spec `json:"spec"`
}

// CreateBundle handles POST /v1/bundles
func (h *Handler) CreateBundle(c echo.Context) error {
	var req BundleRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return handleError(c, core.NewInvalidRequestError("prompt is required", nil))
	}

	ctx := c.Request().Context()

	// Unexpected faults anywhere in the pipeline must never surface as a
	// broken response: the caller always gets a usable bundle.
	resp, err := h.runPipeline(ctx, req)
	if err != nil {
		slog.Error("pipeline failed, serving last-resort bundle",
			"request_id", core.GetRequestID(ctx),
			"error", err,
		)
		return c.JSON(http.StatusOK, lastResortBundle(req))
	}

	return c.JSON(http.StatusOK, resp)
}

// runPipeline executes spec resolution, aggregation, and composition.
// Panics are converted to errors so CreateBundle can degrade gracefully.
func (h *Handler) runPipeline(ctx context.Context, req BundleRequest) (resp *BundleResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = &core.ServiceError{
				Type:    core.ErrorTypeValidation,
				Message: "pipeline panic",
				Err:     panicErr(r),
			}
		}
	}()

	spec := h.translator.Translate(ctx, req.Prompt, req.Budget)
	pool := h.aggregator.Aggregate(ctx, spec)
	bundle := h.composer.Compose(spec, pool)

	resp = &BundleResponse{Bundle: bundle}
	if req.Debug {
		resp.Debug = &BundleDebug{
			Providers:      h.debug.Adapters(),
			ProviderHosts:  h.debug.Hosts(),
			CandidateCount: len(pool),
			Categories:     h.aggregator.Categories(spec),
			Spec:           spec,
		}
	}
	return resp, nil
}

// lastResortBundle is the static response served when the pipeline itself
// faults. Still HTTP 200: the core's failure modes never break the caller.
func lastResortBundle(req BundleRequest) *BundleResponse {
	spec := specgen.Fallback(req.Prompt, req.Budget)
	return &BundleResponse{
		Bundle: core.Bundle{
			Title:  spec.Title,
			Budget: spec.Budget,
			Total:  0,
			Items:  []core.Candidate{},
			Note:   "We hit a snag building your bundle; here is a fresh start. Please try again.",
		},
	}
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleError converts service errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	if se, ok := err.(*core.ServiceError); ok {
		return c.JSON(se.HTTPStatusCode(), se.ToJSON())
	}

	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]interface{}{
			"type":    "internal_error",
			"message": "an unexpected error occurred",
		},
	})
}

// panicErr wraps a recovered panic value as an error.
func panicErr(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}
