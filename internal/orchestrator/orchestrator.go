// Package orchestrator coordinates cache, provider selection, and telemetry
// for a single AI request.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"aigate/internal/cache"
	"aigate/internal/config"
	"aigate/internal/domain"
	"aigate/internal/provider"
	"aigate/internal/responses"
	"aigate/internal/telemetry"
)

// Orchestrator is the single entry point for AI calls. Every request flows
// through the same sequence: cache lookup, provider selection, the provider
// call under a per-class deadline, classification of any failure, then cache
// write. There is no fallback to another provider mid-request; a failure
// surfaces to the caller.
type Orchestrator struct {
	providers *provider.Registry
	cache     *cache.Cache
	metrics   *telemetry.Metrics
	validator *responses.Validator
	timeouts  config.TimeoutConfig
	logger    *slog.Logger
}

// New creates an orchestrator
func New(
	providers *provider.Registry,
	responseCache *cache.Cache,
	metrics *telemetry.Metrics,
	timeouts config.TimeoutConfig,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		providers: providers,
		cache:     responseCache,
		metrics:   metrics,
		validator: responses.NewValidator(),
		timeouts:  timeouts,
		logger:    logger,
	}
}

// Execute runs one AI request end to end
func (o *Orchestrator) Execute(ctx context.Context, req *domain.Request) (*domain.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}

	started := time.Now()
	log := o.logger.With("request_id", req.RequestID, "model", req.Model)

	if resp, ok := o.cache.Get(ctx, req); ok {
		resp.LatencyMS = time.Since(started).Milliseconds()
		rec := o.metrics.NewRequestRecorder(resp.Provider, resp.Model)
		rec.RecordCacheHit()
		log.Info("request served from cache", "provider", resp.Provider, "latency_ms", resp.LatencyMS)
		return resp, nil
	}

	// Selection happens after the cache check so an unconfigured deployment
	// can still serve cached responses, and before any counter increment so
	// a configuration error never shows up as provider traffic.
	client, err := o.providers.Select()
	if err != nil {
		log.Error("no provider available", "error", err)
		return nil, err
	}

	selected := client.Provider()
	rec := o.metrics.NewRequestRecorder(selected, req.Model)
	log = log.With("provider", selected)

	callCtx, cancel := context.WithTimeout(ctx, o.timeouts.For(req.OperationClassOrDefault()))
	content, err := client.Generate(callCtx, req)
	cancel()
	if err != nil {
		classified := domain.Classify(selected, err)
		code := domain.CodeUnknown
		var perr *domain.ProviderError
		if errors.As(classified, &perr) {
			code = perr.Code
		}
		rec.RecordError(code)
		log.Error("provider call failed", "code", code, "error", err)
		return nil, classified
	}

	if req.ResponseFormat == domain.FormatJSON {
		body, verr := o.validator.Validate(content, req.Schema)
		if verr != nil {
			classified := &domain.ProviderError{
				Provider: selected,
				Code:     domain.CodeInvalidOutput,
				Message:  verr.Error(),
				Err:      verr,
			}
			rec.RecordError(domain.CodeInvalidOutput)
			log.Error("provider returned invalid structured output", "error", verr)
			return nil, classified
		}
		content = body
	}

	resp := &domain.Response{
		Content:   content,
		Provider:  selected,
		Model:     req.Model,
		LatencyMS: time.Since(started).Milliseconds(),
	}

	rec.RecordSuccess()
	o.cache.Set(ctx, req, resp)
	log.Info("request completed", "latency_ms", resp.LatencyMS)

	return resp, nil
}

// ProviderStatus reports which providers have credentials
func (o *Orchestrator) ProviderStatus() domain.ProviderStatus {
	return o.providers.Status()
}

// ClearCache removes one cached entry, or all of them when key is empty
func (o *Orchestrator) ClearCache(ctx context.Context, key string) error {
	return o.cache.Clear(ctx, key)
}
