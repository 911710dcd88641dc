// Package providers provides adapter registration, normalization rules, and
// the source fallback chain for product-search backends.
package providers

import (
	"fmt"
	"time"

	"shopkit/internal/core"
)

// Settings holds the fully resolved configuration for one adapter.
type Settings struct {
	Type    string
	APIKey  string
	BaseURL string
	// ActorID is the remote job identifier for job-based backends.
	ActorID string
	// PollInterval and PollTimeout apply to job-based backends only.
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// Builder creates an adapter instance from settings.
type Builder func(cfg Settings) (core.Fetcher, error)

// registry holds all registered adapter builders
var registry = make(map[string]Builder)

// Register allows adapter packages to register themselves.
// This should be called from init() functions in adapter packages.
func Register(providerType string, builder Builder) {
	registry[providerType] = builder
}

// Create instantiates an adapter based on settings.
func Create(cfg Settings) (core.Fetcher, error) {
	builder, ok := registry[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
	return builder(cfg)
}

// ListRegistered returns a list of all registered adapter types.
func ListRegistered() []string {
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	return types
}
