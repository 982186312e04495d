package provider

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"aigate/internal/config"
	"aigate/internal/domain"
)

// Registry holds the provider clients built from configuration
type Registry struct {
	clients map[domain.Provider]Client
	mu      sync.RWMutex
}

// NewRegistry creates a registry with a client for every provider whose
// credentials are present. A provider that fails to initialize is skipped,
// not fatal; selection just never picks it.
func NewRegistry(cfg config.ProvidersConfig, logger *slog.Logger) *Registry {
	r := &Registry{
		clients: make(map[domain.Provider]Client),
	}

	if cfg.OpenAI.APIKey != "" {
		client, err := NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.OrgID)
		if err != nil {
			logger.Warn("skipping OpenAI client", "error", err)
		} else {
			r.clients[domain.ProviderOpenAI] = client
		}
	}

	if cfg.Gemini.APIKey != "" {
		client, err := NewGeminiClient(cfg.Gemini.APIKey, cfg.Gemini.BaseURL)
		if err != nil {
			logger.Warn("skipping Gemini client", "error", err)
		} else {
			r.clients[domain.ProviderGemini] = client
		}
	}

	if cfg.Bedrock.Configured() {
		client, err := NewBedrockClient(cfg.Bedrock)
		if err != nil {
			logger.Warn("skipping Bedrock client", "error", err)
		} else {
			r.clients[domain.ProviderBedrock] = client
		}
	}

	return r
}

// Register adds or replaces a provider client
func (r *Registry) Register(provider domain.Provider, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[provider] = client
}

// Select returns the client for the highest-priority configured provider.
// Priority is fixed (OpenAI, then Gemini, then Bedrock) so the same
// configuration always yields the same choice; there is no fallback to a
// secondary provider once a request is in flight.
func (r *Registry) Select() (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range domain.AllProviders() {
		if client, ok := r.clients[p]; ok {
			return client, nil
		}
	}

	return nil, &domain.ConfigurationError{
		Message: "no AI provider configured: set an OpenAI, Gemini, or Bedrock credential",
	}
}

// Get returns the client for a specific provider
func (r *Registry) Get(provider domain.Provider) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[provider]
	if !ok {
		return nil, fmt.Errorf("provider %s not configured", provider)
	}
	return client, nil
}

// Status reports which providers have a configured client
func (r *Registry) Status() domain.ProviderStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := domain.ProviderStatus{
		Providers: make(map[domain.Provider]bool, len(domain.AllProviders())),
		CheckedAt: time.Now().UTC(),
	}
	for _, p := range domain.AllProviders() {
		_, ok := r.clients[p]
		status.Providers[p] = ok
	}
	return status
}
