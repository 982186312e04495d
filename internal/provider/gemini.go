package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"aigate/internal/domain"
)

// GeminiClient is a single-prompt-shaped adapter for the Google Gemini API.
// Gemini does not mirror the multi-turn role structure one-to-one, so all
// message contents are concatenated into one prompt string; the first
// candidate's text is extracted.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(apiKey, baseURL string, settings ...ConnectionSettings) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	connSettings := DefaultConnectionSettings()
	if len(settings) > 0 {
		connSettings = settings[0]
	}

	return &GeminiClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: BuildHTTPClient(connSettings),
	}, nil
}

// Provider returns the provider type
func (c *GeminiClient) Provider() domain.Provider {
	return domain.ProviderGemini
}

// Generate performs a non-streaming content generation call
func (c *GeminiClient) Generate(ctx context.Context, req *domain.Request) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, req.Model, c.apiKey)

	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

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
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", domain.ErrEmptyResponse
	}
	text := result.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", domain.ErrEmptyResponse
	}

	return text, nil
}

// buildRequest builds a Gemini generateContent request. All turns collapse
// into a single user prompt.
func (c *GeminiClient) buildRequest(req *domain.Request) map[string]any {
	var prompt strings.Builder
	for i, msg := range req.Messages {
		if i > 0 {
			prompt.WriteString("\n\n")
		}
		prompt.WriteString(msg.Content)
	}

	geminiReq := map[string]any{
		"contents": []map[string]any{
			{
				"role":  "user",
				"parts": []map[string]string{{"text": prompt.String()}},
			},
		},
	}

	generationConfig := map[string]any{}
	if req.Temperature != nil {
		generationConfig["temperature"] = *req.Temperature
	}
	if req.MaxTokens != nil {
		generationConfig["maxOutputTokens"] = *req.MaxTokens
	}
	if req.ResponseFormat == domain.FormatJSON {
		generationConfig["responseMimeType"] = "application/json"
	}
	if len(generationConfig) > 0 {
		geminiReq["generationConfig"] = generationConfig
	}

	return geminiReq
}
