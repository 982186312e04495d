// Package main is the entry point for the aigate server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"aigate/internal/cache"
	"aigate/internal/config"
	httpserver "aigate/internal/http"
	"aigate/internal/orchestrator"
	"aigate/internal/provider"
	"aigate/internal/ratelimit"
	"aigate/internal/storage/postgres"
	"aigate/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "config.toml", "Path to configuration file")
	flag.Parse()

	// Config decides the log shape, so bootstrap logging happens twice: a
	// plain default first, the configured handler after load.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger = buildLogger(cfg.Telemetry)
	slog.SetDefault(logger)

	slog.Info("Starting aigate",
		"version", "0.1.0",
		"http_port", cfg.Server.HTTPPort,
	)

	registry := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(registry)

	store, closeStore, err := buildCacheStore(cfg.Cache, logger)
	if err != nil {
		slog.Error("Failed to initialize cache store", "error", err)
		os.Exit(1)
	}
	if closeStore != nil {
		defer closeStore()
	}
	responseCache := cache.New(store, cfg.Cache.DefaultTTL, cfg.Cache.Enabled, logger)

	providers := provider.NewRegistry(cfg.Providers, logger)
	status := providers.Status()
	for p, configured := range status.Providers {
		if configured {
			slog.Info("Registered provider", "provider", p)
		}
	}
	metrics.RegisterProviderStatus(providers.Status)

	orch := orchestrator.New(providers, responseCache, metrics, cfg.Timeouts, logger)

	var general, expensive *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		general = ratelimit.New(cfg.RateLimit.GeneralWindow, cfg.RateLimit.GeneralMax)
		expensive = ratelimit.New(cfg.RateLimit.ExpensiveWindow, cfg.RateLimit.ExpensiveMax)
		if cfg.RateLimit.ExemptLoopback {
			general.ExemptFunc = ratelimit.LoopbackExempt
			expensive.ExemptFunc = ratelimit.LoopbackExempt
		}
	}

	server := httpserver.NewServer(cfg, orch, metrics, general, expensive, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		slog.Info("Received shutdown signal", "signal", sig)
		cancel()
	}()

	slog.Info("aigate ready",
		"api_endpoint", fmt.Sprintf("http://localhost:%d/v1", cfg.Server.HTTPPort),
		"metrics_endpoint", fmt.Sprintf("http://localhost:%d/metrics", cfg.Server.HTTPPort),
	)

	if err := server.Start(ctx); err != nil {
		slog.Error("HTTP server error", "error", err)
		os.Exit(1)
	}

	slog.Info("aigate stopped")
}

// buildLogger constructs the configured slog handler
func buildLogger(cfg config.TelemetryConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// buildCacheStore selects the cache backend from config
func buildCacheStore(cfg config.CacheConfig, logger *slog.Logger) (cache.Store, func(), error) {
	switch cfg.Driver {
	case "postgres":
		pg, err := postgres.NewStore(cfg.DSN, logger)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("Using PostgreSQL cache store")
		return pg, func() { pg.Close() }, nil
	default:
		slog.Info("Using in-memory cache store", "max_entries", cfg.MaxEntries)
		return cache.NewMemoryStore(cfg.MaxEntries, cfg.DefaultTTL), nil, nil
	}
}
