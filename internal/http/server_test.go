package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"aigate/internal/cache"
	"aigate/internal/config"
	"aigate/internal/domain"
	"aigate/internal/orchestrator"
	"aigate/internal/provider"
	"aigate/internal/ratelimit"
	"aigate/internal/telemetry"
)

type echoClient struct {
	provider domain.Provider
	reply    string
	err      error
}

func (e *echoClient) Generate(ctx context.Context, req *domain.Request) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	return e.reply, nil
}

func (e *echoClient) Provider() domain.Provider { return e.provider }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, client provider.Client, general, expensive *ratelimit.Limiter) *Server {
	t.Helper()

	cfg := config.Default()
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())

	providers := provider.NewRegistry(config.ProvidersConfig{}, testLogger())
	if client != nil {
		providers.Register(client.Provider(), client)
	}

	responseCache := cache.New(cache.NewMemoryStore(64, time.Hour), time.Hour, true, testLogger())
	orch := orchestrator.New(providers, responseCache, metrics, cfg.Timeouts, testLogger())

	return NewServer(cfg, orch, metrics, general, expensive, testLogger())
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.0.0.7:52311"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

const pingBody = `{"model":"gpt-4o-mini","messages":[{"role":"user","content":"ping"}]}`

func TestHandleGenerate(t *testing.T) {
	s := newTestServer(t, &echoClient{provider: domain.ProviderOpenAI, reply: "pong"}, nil, nil)

	rec := postJSON(t, s.Handler(), "/v1/generate", pingBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp domain.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Content != "pong" {
		t.Errorf("content = %q, want %q", resp.Content, "pong")
	}
	if resp.Provider != domain.ProviderOpenAI {
		t.Errorf("provider = %s", resp.Provider)
	}
}

func TestHandleGenerateValidation(t *testing.T) {
	s := newTestServer(t, &echoClient{provider: domain.ProviderOpenAI, reply: "pong"}, nil, nil)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"missing model", `{"messages":[{"role":"user","content":"hi"}]}`},
		{"no messages", `{"model":"gpt-4o-mini","messages":[]}`},
		{"bad role", `{"model":"gpt-4o-mini","messages":[{"role":"robot","content":"hi"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, s.Handler(), "/v1/generate", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			var payload domain.ErrorPayload
			if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
				t.Fatalf("decode payload: %v", err)
			}
			if payload.Category != domain.CategoryValidation {
				t.Errorf("category = %q, want %q", payload.Category, domain.CategoryValidation)
			}
		})
	}
}

func TestHandleGenerateNoProvider(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)

	rec := postJSON(t, s.Handler(), "/v1/generate", pingBody)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var payload domain.ErrorPayload
	json.Unmarshal(rec.Body.Bytes(), &payload)
	if payload.Category != domain.CategoryConfiguration {
		t.Errorf("category = %q, want %q", payload.Category, domain.CategoryConfiguration)
	}
}

func TestHandleGenerateProviderFailureStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"rate limited upstream", errUpstream("API error: 429 Too Many Requests - quota"), http.StatusTooManyRequests},
		{"server error upstream", errUpstream("API error: 503 Service Unavailable - down"), http.StatusBadGateway},
		{"empty response", domain.ErrEmptyResponse, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &echoClient{provider: domain.ProviderOpenAI, err: tt.err}, nil, nil)
			rec := postJSON(t, s.Handler(), "/v1/generate", pingBody)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var payload domain.ErrorPayload
			json.Unmarshal(rec.Body.Bytes(), &payload)
			if payload.Category != domain.CategoryProvider {
				t.Errorf("category = %q, want %q", payload.Category, domain.CategoryProvider)
			}
		})
	}
}

func TestAnalyzeUsesExpensiveLimiter(t *testing.T) {
	expensive := ratelimit.New(time.Hour, 1)
	s := newTestServer(t, &echoClient{provider: domain.ProviderOpenAI, reply: "a cat"}, nil, expensive)

	if rec := postJSON(t, s.Handler(), "/v1/analyze", pingBody); rec.Code != http.StatusOK {
		t.Fatalf("first analyze status = %d", rec.Code)
	}
	if rec := postJSON(t, s.Handler(), "/v1/analyze", pingBody); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second analyze status = %d, want 429", rec.Code)
	}

	// The general endpoint is not bound to the expensive policy.
	if rec := postJSON(t, s.Handler(), "/v1/generate", pingBody); rec.Code != http.StatusOK {
		t.Errorf("generate status = %d, want 200", rec.Code)
	}
}

func TestHandleProviderStatus(t *testing.T) {
	s := newTestServer(t, &echoClient{provider: domain.ProviderGemini, reply: "x"}, nil, nil)

	req := httptest.NewRequest("GET", "/v1/providers/status", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var out StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Providers["gemini"] {
		t.Error("gemini should be reported configured")
	}
	if out.Providers["openai"] {
		t.Error("openai should be reported unconfigured")
	}
}

func TestHandleCacheClear(t *testing.T) {
	s := newTestServer(t, &echoClient{provider: domain.ProviderOpenAI, reply: "pong"}, nil, nil)

	postJSON(t, s.Handler(), "/v1/generate", pingBody)

	rec := postJSON(t, s.Handler(), "/v1/cache/clear", `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)

	for _, path := range []string{"/health", "/ready"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, &echoClient{provider: domain.ProviderOpenAI, reply: "pong"}, nil, nil)

	postJSON(t, s.Handler(), "/v1/generate", pingBody)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "aigate_requests_total") {
		t.Error("metrics output should include the request counter")
	}
}

type errUpstream string

func (e errUpstream) Error() string { return string(e) }
