package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"aigate/internal/domain"
)

// OpenAIClient is a chat-completion-shaped adapter for the OpenAI API.
// The message list is sent as-is; the first completion's text is extracted.
type OpenAIClient struct {
	apiKey     string
	orgID      string
	baseURL    string
	httpClient *http.Client
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(apiKey, baseURL, orgID string, settings ...ConnectionSettings) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	connSettings := DefaultConnectionSettings()
	if len(settings) > 0 {
		connSettings = settings[0]
	}

	return &OpenAIClient{
		apiKey:     apiKey,
		orgID:      orgID,
		baseURL:    baseURL,
		httpClient: BuildHTTPClient(connSettings),
	}, nil
}

// Provider returns the provider type
func (c *OpenAIClient) Provider() domain.Provider {
	return domain.ProviderOpenAI
}

// Generate performs a non-streaming chat completion and extracts the first
// choice's message content
func (c *OpenAIClient) Generate(ctx context.Context, req *domain.Request) (string, error) {
	url := c.baseURL + "/chat/completions"

	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.orgID != "" {
		httpReq.Header.Set("OpenAI-Organization", c.orgID)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API error: %s - %s", resp.Status, string(bodyBytes))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", domain.ErrEmptyResponse
	}

	return result.Choices[0].Message.Content, nil
}

// buildRequest builds an OpenAI chat completions request
func (c *OpenAIClient) buildRequest(req *domain.Request) map[string]any {
	openaiReq := map[string]any{
		"model":  req.Model,
		"stream": false,
	}

	var messages []map[string]any
	for _, msg := range req.Messages {
		messages = append(messages, map[string]any{
			"role":    msg.Role,
			"content": msg.Content,
		})
	}
	openaiReq["messages"] = messages

	if req.Temperature != nil {
		openaiReq["temperature"] = *req.Temperature
	}
	if req.MaxTokens != nil {
		openaiReq["max_tokens"] = *req.MaxTokens
	}
	if req.ResponseFormat == domain.FormatJSON {
		openaiReq["response_format"] = map[string]any{"type": "json_object"}
	}

	return openaiReq
}
