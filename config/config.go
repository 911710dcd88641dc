// Package config provides configuration management for the application.
//
// Credentials come from environment variables (optionally via a .env file);
// tuning knobs can additionally be set in an optional shopkit.yaml. Env vars
// always win over the YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults for tuning knobs. These mirror the reference pipeline behavior;
// change them via shopkit.yaml or env vars, not here.
const (
	DefaultPort          = "8080"
	DefaultBodySizeLimit = 1 << 20 // 1MB; bundle requests are tiny
	DefaultCategoryLimit = 3
	DefaultMaxCategories = 8
	DefaultCacheTTL      = 45 * time.Minute
	DefaultPollInterval  = 2 * time.Second
	DefaultPollTimeout   = 60 * time.Second
	DefaultSpecModel     = "gpt-4o-mini"
)

// Config holds the application configuration
type Config struct {
	Env     string        `yaml:"env"`
	Server  ServerConfig  `yaml:"server"`
	Search  SearchConfig  `yaml:"search"`
	Cache   CacheConfig   `yaml:"cache"`
	SpecGen SpecGenConfig `yaml:"specgen"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port          string `yaml:"port"`
	BodySizeLimit int64  `yaml:"body_size_limit"`
}

// SearchConfig holds provider-sourcing configuration. Credential presence
// toggles whether an adapter is attempted at all.
type SearchConfig struct {
	SerpapiAPIKey  string `yaml:"-"`
	SerpapiBaseURL string `yaml:"serpapi_base_url"`
	ApifyToken     string `yaml:"-"`
	ApifyBaseURL   string `yaml:"apify_base_url"`
	ApifyActorID   string `yaml:"apify_actor_id"`

	// CategoryLimit is the fixed per-category fetch limit.
	CategoryLimit int `yaml:"category_limit"`
	// MaxCategories bounds the aggregator's working set of categories.
	MaxCategories int `yaml:"max_categories"`
	// PollInterval and PollTimeout drive the async job adapter's wait loop.
	PollInterval time.Duration `yaml:"poll_interval"`
	PollTimeout  time.Duration `yaml:"poll_timeout"`
}

// CacheConfig holds candidate cache configuration
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// SpecGenConfig holds spec-translation configuration
type SpecGenConfig struct {
	OpenAIAPIKey  string `yaml:"-"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	Model         string `yaml:"model"`
}

// MetricsConfig holds Prometheus metrics configuration
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// Load reads configuration from the optional .env file, the optional
// shopkit.yaml, and the environment, in increasing precedence.
func Load() (*Config, error) {
	// Optional .env; absence is fine.
	_ = godotenv.Load()

	cfg := defaults()

	if path := filePath(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	applyBounds(cfg)
	return cfg, nil
}

// filePath returns the YAML config path: SHOPKIT_CONFIG if set, else
// ./shopkit.yaml.
func filePath() string {
	if p := os.Getenv("SHOPKIT_CONFIG"); p != "" {
		return p
	}
	return "shopkit.yaml"
}

func defaults() *Config {
	return &Config{
		Env: "production",
		Server: ServerConfig{
			Port:          DefaultPort,
			BodySizeLimit: DefaultBodySizeLimit,
		},
		Search: SearchConfig{
			CategoryLimit: DefaultCategoryLimit,
			MaxCategories: DefaultMaxCategories,
			PollInterval:  DefaultPollInterval,
			PollTimeout:   DefaultPollTimeout,
		},
		Cache: CacheConfig{
			TTL: DefaultCacheTTL,
		},
		SpecGen: SpecGenConfig{
			Model: DefaultSpecModel,
		},
		Metrics: MetricsConfig{
			Endpoint: "/metrics",
		},
	}
}

// applyEnv overlays environment variables onto the config.
func applyEnv(cfg *Config) {
	setString(&cfg.Env, "SHOPKIT_ENV")
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Search.SerpapiAPIKey, "SERPAPI_API_KEY")
	setString(&cfg.Search.SerpapiBaseURL, "SERPAPI_BASE_URL")
	setString(&cfg.Search.ApifyToken, "APIFY_TOKEN")
	setString(&cfg.Search.ApifyBaseURL, "APIFY_BASE_URL")
	setString(&cfg.Search.ApifyActorID, "APIFY_ACTOR_ID")
	setString(&cfg.SpecGen.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&cfg.SpecGen.OpenAIBaseURL, "OPENAI_BASE_URL")
	setString(&cfg.SpecGen.Model, "SHOPKIT_SPEC_MODEL")
	setDuration(&cfg.Cache.TTL, "SHOPKIT_CACHE_TTL")
	setDuration(&cfg.Search.PollInterval, "SHOPKIT_POLL_INTERVAL")
	setDuration(&cfg.Search.PollTimeout, "SHOPKIT_POLL_TIMEOUT")
	setBool(&cfg.Metrics.Enabled, "SHOPKIT_METRICS_ENABLED")
	setString(&cfg.Metrics.Endpoint, "SHOPKIT_METRICS_ENDPOINT")
}

// applyBounds clamps nonsensical tuning values back to defaults.
func applyBounds(cfg *Config) {
	if cfg.Search.CategoryLimit <= 0 {
		cfg.Search.CategoryLimit = DefaultCategoryLimit
	}
	if cfg.Search.MaxCategories <= 0 {
		cfg.Search.MaxCategories = DefaultMaxCategories
	}
	if cfg.Search.PollInterval <= 0 {
		cfg.Search.PollInterval = DefaultPollInterval
	}
	if cfg.Search.PollTimeout <= 0 {
		cfg.Search.PollTimeout = DefaultPollTimeout
	}
	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Server.BodySizeLimit <= 0 {
		cfg.Server.BodySizeLimit = DefaultBodySizeLimit
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Metrics.Endpoint == "" {
		cfg.Metrics.Endpoint = "/metrics"
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// setDuration accepts either plain integers (seconds) or Go duration strings.
func setDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if secs, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(secs) * time.Second
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
	}
}
