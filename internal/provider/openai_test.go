package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"aigate/internal/domain"
)

func chatRequest(msgs ...domain.Message) *domain.Request {
	return &domain.Request{
		Model:    "gpt-4o-mini",
		Messages: msgs,
	}
}

func TestOpenAIGenerate(t *testing.T) {
	var gotBody map[string]any
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "pong"}},
			},
		})
	}))
	defer server.Close()

	client, err := NewOpenAIClient("test-key", server.URL, "")
	if err != nil {
		t.Fatalf("NewOpenAIClient: %v", err)
	}

	content, err := client.Generate(context.Background(), chatRequest(
		domain.Message{Role: domain.RoleUser, Content: "ping"},
	))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if content != "pong" {
		t.Errorf("content = %q, want %q", content, "pong")
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v", gotBody["model"])
	}
	if gotBody["stream"] != false {
		t.Errorf("stream = %v, want false", gotBody["stream"])
	}
}

func TestOpenAIGenerateJSONMode(t *testing.T) {
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": `{"ok":true}`}},
			},
		})
	}))
	defer server.Close()

	client, _ := NewOpenAIClient("test-key", server.URL, "")
	req := chatRequest(domain.Message{Role: domain.RoleUser, Content: "structured"})
	req.ResponseFormat = domain.FormatJSON

	if _, err := client.Generate(context.Background(), req); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	format, ok := gotBody["response_format"].(map[string]any)
	if !ok || format["type"] != "json_object" {
		t.Errorf("response_format = %v, want json_object", gotBody["response_format"])
	}
}

func TestOpenAIGenerateEmptyContent(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no choices", `{"choices":[]}`},
		{"empty content", `{"choices":[{"message":{"role":"assistant","content":""}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, _ := NewOpenAIClient("test-key", server.URL, "")
			_, err := client.Generate(context.Background(), chatRequest(
				domain.Message{Role: domain.RoleUser, Content: "ping"},
			))
			if !errors.Is(err, domain.ErrEmptyResponse) {
				t.Errorf("err = %v, want ErrEmptyResponse", err)
			}
		})
	}
}

func TestOpenAIGenerateAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limit reached"}}`))
	}))
	defer server.Close()

	client, _ := NewOpenAIClient("test-key", server.URL, "")
	_, err := client.Generate(context.Background(), chatRequest(
		domain.Message{Role: domain.RoleUser, Content: "ping"},
	))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "API error") || !strings.Contains(err.Error(), "429") {
		t.Errorf("err = %v, want API error with status", err)
	}
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	if _, err := NewOpenAIClient("", "", ""); err == nil {
		t.Error("expected error for missing API key")
	}
}
