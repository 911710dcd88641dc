package providers

import (
	"shopkit/config"
)

// knownProviders lists the supported adapters in fallback priority order.
// An adapter whose credentials are absent is skipped without ever being
// constructed, so no network call is attempted for it.
var knownProviders = []struct {
	providerType string
	configured   func(cfg *config.Config) bool
	settings     func(cfg *config.Config) Settings
}{
	{
		providerType: "serpapi",
		configured: func(cfg *config.Config) bool {
			return cfg.Search.SerpapiAPIKey != ""
		},
		settings: func(cfg *config.Config) Settings {
			return Settings{
				Type:    "serpapi",
				APIKey:  cfg.Search.SerpapiAPIKey,
				BaseURL: cfg.Search.SerpapiBaseURL,
			}
		},
	},
	{
		providerType: "apify",
		configured: func(cfg *config.Config) bool {
			return cfg.Search.ApifyToken != "" && cfg.Search.ApifyActorID != ""
		},
		settings: func(cfg *config.Config) Settings {
			return Settings{
				Type:         "apify",
				APIKey:       cfg.Search.ApifyToken,
				BaseURL:      cfg.Search.ApifyBaseURL,
				ActorID:      cfg.Search.ApifyActorID,
				PollInterval: cfg.Search.PollInterval,
				PollTimeout:  cfg.Search.PollTimeout,
			}
		},
	},
}

// Resolve returns settings for every configured adapter, in fallback
// priority order.
func Resolve(cfg *config.Config) []Settings {
	out := make([]Settings, 0, len(knownProviders))
	for _, kp := range knownProviders {
		if kp.configured(cfg) {
			out = append(out, kp.settings(cfg))
		}
	}
	return out
}
