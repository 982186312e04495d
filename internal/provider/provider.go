// Package provider implements AI provider adapters.
package provider

import (
	"context"
	"net/http"
	"time"

	"aigate/internal/domain"
)

// Client is the single capability every provider adapter implements.
// Generate returns the extracted text (or JSON) content for a normalized
// request. Adapters surface raw, unclassified errors; classification is the
// orchestrator's job.
type Client interface {
	Generate(ctx context.Context, req *domain.Request) (string, error)
	Provider() domain.Provider
}

// ConnectionSettings controls the shared HTTP transport behavior
type ConnectionSettings struct {
	MaxIdleConnections int
	MaxConnections     int
	IdleTimeout        time.Duration
	RequestTimeout     time.Duration
}

// DefaultConnectionSettings returns sensible transport defaults. The request
// timeout is an upper bound only; per-call deadlines come from the context.
func DefaultConnectionSettings() ConnectionSettings {
	return ConnectionSettings{
		MaxIdleConnections: 10,
		MaxConnections:     100,
		IdleTimeout:        90 * time.Second,
		RequestTimeout:     2 * time.Minute,
	}
}

// BuildHTTPClient creates an HTTP client with the specified connection settings
func BuildHTTPClient(settings ConnectionSettings) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        settings.MaxIdleConnections,
		MaxIdleConnsPerHost: settings.MaxIdleConnections,
		MaxConnsPerHost:     settings.MaxConnections,
		IdleConnTimeout:     settings.IdleTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &http.Client{
		Timeout:   settings.RequestTimeout,
		Transport: transport,
	}
}
