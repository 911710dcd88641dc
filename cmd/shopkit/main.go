// Package main is the entry point for the bundle service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopkit/config"
	"shopkit/internal/aggregator"
	"shopkit/internal/cache"
	"shopkit/internal/composer"
	"shopkit/internal/logging"
	"shopkit/internal/providers"
	"shopkit/internal/server"
	"shopkit/internal/specgen"

	// Import adapter packages to trigger their init() registration
	_ "shopkit/internal/providers/apify"
	_ "shopkit/internal/providers/serpapi"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	versionFlag := flag.Bool("version", false, "Print version information")
	flag.Parse()

	if *versionFlag {
		fmt.Println("shopkit " + Version)
		os.Exit(0)
	}

	// Load configuration (also loads .env)
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Setup(os.Stdout, cfg.Env)

	slog.Info("starting shopkit",
		"version", Version,
		"env", cfg.Env,
	)

	// Build the sourcing chain from configured adapters. An empty chain is
	// valid: every search falls through to synthetic candidates.
	settings := providers.Resolve(cfg)
	chain, err := providers.FromConfig(settings)
	if err != nil {
		slog.Error("failed to initialize providers", "error", err)
		os.Exit(1)
	}
	if len(settings) == 0 {
		slog.Warn("no search providers configured, serving synthetic candidates only",
			"supported", providers.ListRegistered(),
			"hint", "set SERPAPI_API_KEY or APIFY_TOKEN and APIFY_ACTOR_ID")
	} else {
		slog.Info("search providers configured", "providers", chain.Adapters())
	}

	store := cache.NewMemory(cache.WithTTL(cfg.Cache.TTL))
	agg := aggregator.New(store, chain,
		aggregator.WithCategoryLimit(cfg.Search.CategoryLimit),
		aggregator.WithMaxCategories(cfg.Search.MaxCategories),
	)

	translator := specgen.New(specgen.Options{
		APIKey:  cfg.SpecGen.OpenAIAPIKey,
		BaseURL: cfg.SpecGen.OpenAIBaseURL,
		Model:   cfg.SpecGen.Model,
	})
	if cfg.SpecGen.OpenAIAPIKey == "" {
		slog.Warn("OPENAI_API_KEY not set, spec translation will use the static fallback spec")
	}

	handler := server.NewHandler(translator, agg, composer.New(), chain)
	srv := server.New(handler, &server.Config{
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsEndpoint: cfg.Metrics.Endpoint,
		BodySizeLimit:   cfg.Server.BodySizeLimit,
	})

	// Start server in a goroutine so we can handle shutdown signals
	go func() {
		slog.Info("server listening", "port", cfg.Server.Port)
		if err := srv.Start(cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
