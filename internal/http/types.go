package http

import "aigate/internal/domain"

// GenerateRequest is the wire shape for POST /v1/generate and
// POST /v1/analyze.
type GenerateRequest struct {
	Model          string           `json:"model"`
	Messages       []MessageRequest `json:"messages"`
	ResponseFormat string           `json:"response_format,omitempty"`
	Schema         map[string]any   `json:"schema,omitempty"`
	Temperature    *float32         `json:"temperature,omitempty"`
	MaxTokens      *int32           `json:"max_tokens,omitempty"`
}

// MessageRequest is one conversation turn on the wire
type MessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// toDomain converts the wire request into a normalized request for the given
// operation class. Caller identity comes from headers, not the body.
func (g *GenerateRequest) toDomain(class domain.OperationClass, callerID string) *domain.Request {
	messages := make([]domain.Message, 0, len(g.Messages))
	for _, m := range g.Messages {
		messages = append(messages, domain.Message{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	return &domain.Request{
		Model:          g.Model,
		Messages:       messages,
		ResponseFormat: g.ResponseFormat,
		Schema:         g.Schema,
		Temperature:    g.Temperature,
		MaxTokens:      g.MaxTokens,
		Class:          class,
		CallerID:       callerID,
	}
}

// ClearCacheRequest is the wire shape for POST /v1/cache/clear. An empty key
// clears every entry.
type ClearCacheRequest struct {
	Key string `json:"key,omitempty"`
}

// StatusResponse is the wire shape for GET /v1/providers/status
type StatusResponse struct {
	Providers map[string]bool `json:"providers"`
	CheckedAt string          `json:"checked_at"`
}
