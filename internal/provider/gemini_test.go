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

func TestGeminiGenerate(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("key query param = %q", r.URL.Query().Get("key"))
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "pong"}}}},
			},
		})
	}))
	defer server.Close()

	client, err := NewGeminiClient("test-key", server.URL)
	if err != nil {
		t.Fatalf("NewGeminiClient: %v", err)
	}

	req := &domain.Request{
		Model: "gemini-2.0-flash",
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: "be terse"},
			{Role: domain.RoleUser, Content: "ping"},
		},
	}

	content, err := client.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if content != "pong" {
		t.Errorf("content = %q, want %q", content, "pong")
	}
	if gotPath != "/models/gemini-2.0-flash:generateContent" {
		t.Errorf("path = %q", gotPath)
	}

	// All turns collapse into a single user prompt.
	contents, ok := gotBody["contents"].([]any)
	if !ok || len(contents) != 1 {
		t.Fatalf("contents = %v, want one entry", gotBody["contents"])
	}
	first := contents[0].(map[string]any)
	parts := first["parts"].([]any)
	text := parts[0].(map[string]any)["text"].(string)
	if !strings.Contains(text, "be terse") || !strings.Contains(text, "ping") {
		t.Errorf("prompt = %q, want concatenated message contents", text)
	}
}

func TestGeminiGenerateJSONMode(t *testing.T) {
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": `{"ok":true}`}}}},
			},
		})
	}))
	defer server.Close()

	client, _ := NewGeminiClient("test-key", server.URL)
	req := &domain.Request{
		Model:          "gemini-2.0-flash",
		Messages:       []domain.Message{{Role: domain.RoleUser, Content: "structured"}},
		ResponseFormat: domain.FormatJSON,
	}

	if _, err := client.Generate(context.Background(), req); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	cfg, ok := gotBody["generationConfig"].(map[string]any)
	if !ok || cfg["responseMimeType"] != "application/json" {
		t.Errorf("generationConfig = %v, want responseMimeType application/json", gotBody["generationConfig"])
	}
}

func TestGeminiGenerateEmptyContent(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no candidates", `{"candidates":[]}`},
		{"no parts", `{"candidates":[{"content":{"parts":[]}}]}`},
		{"empty text", `{"candidates":[{"content":{"parts":[{"text":""}]}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, _ := NewGeminiClient("test-key", server.URL)
			_, err := client.Generate(context.Background(), &domain.Request{
				Model:    "gemini-2.0-flash",
				Messages: []domain.Message{{Role: domain.RoleUser, Content: "ping"}},
			})
			if !errors.Is(err, domain.ErrEmptyResponse) {
				t.Errorf("err = %v, want ErrEmptyResponse", err)
			}
		})
	}
}

func TestGeminiGenerateAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"message":"API key not valid"}}`))
	}))
	defer server.Close()

	client, _ := NewGeminiClient("test-key", server.URL)
	_, err := client.Generate(context.Background(), &domain.Request{
		Model:    "gemini-2.0-flash",
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "ping"}},
	})
	if err == nil || !strings.Contains(err.Error(), "API error") {
		t.Errorf("err = %v, want API error", err)
	}
}
