// Package domain defines core domain types for the AI orchestration core.
package domain

import (
	"strconv"
	"time"
)

// =============================================================================
// Provider Types
// =============================================================================

// Provider represents an AI text-generation provider
type Provider string

const (
	ProviderOpenAI  Provider = "openai"
	ProviderGemini  Provider = "gemini"
	ProviderBedrock Provider = "bedrock"
)

// AllProviders returns all supported providers in selection priority order
func AllProviders() []Provider {
	return []Provider{
		ProviderOpenAI,
		ProviderGemini,
		ProviderBedrock,
	}
}

// ParseProvider parses a provider string
func ParseProvider(s string) (Provider, bool) {
	switch s {
	case "openai", "gpt":
		return ProviderOpenAI, true
	case "gemini", "google":
		return ProviderGemini, true
	case "bedrock", "aws", "aws-bedrock", "aws_bedrock":
		return ProviderBedrock, true
	default:
		return "", false
	}
}

// =============================================================================
// Message Types
// =============================================================================

// Role identifies who authored a message turn
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role-tagged turn in a conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// =============================================================================
// Request / Response Types
// =============================================================================

// Output format constants for Request.ResponseFormat
const (
	FormatText = "text"
	FormatJSON = "json"
)

// OperationClass selects the timeout applied to a request
type OperationClass string

const (
	// ClassChat covers ordinary text-only completions
	ClassChat OperationClass = "chat"
	// ClassVision covers multimodal/image analysis and other long-running calls
	ClassVision OperationClass = "vision"
)

// Request is the normalized unit of work passed to the orchestrator.
// It is immutable once constructed and doubles as the cache key input.
type Request struct {
	Model          string         `json:"model"`
	Messages       []Message      `json:"messages"`
	ResponseFormat string         `json:"response_format,omitempty"` // "text" (default) or "json"
	Schema         map[string]any `json:"schema,omitempty"`          // optional JSON schema when ResponseFormat is "json"
	Temperature    *float32       `json:"temperature,omitempty"`     // 0.0 - 2.0
	MaxTokens      *int32         `json:"max_tokens,omitempty"`
	Stream         bool           `json:"stream,omitempty"`
	Class          OperationClass `json:"class,omitempty"` // defaults to ClassChat

	// Request context (not part of the cache key)
	RequestID string `json:"request_id,omitempty"`
	CallerID  string `json:"caller_id,omitempty"`
}

// Validate checks the request shape and returns a *ValidationError
// naming the offending field
func (r *Request) Validate() error {
	if r.Model == "" {
		return &ValidationError{Field: "model", Message: "model is required"}
	}
	if len(r.Messages) == 0 {
		return &ValidationError{Field: "messages", Message: "at least one message is required"}
	}
	for i, msg := range r.Messages {
		switch msg.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return &ValidationError{Field: "messages", Message: "invalid role at index " + strconv.Itoa(i) + ": " + msg.Role}
		}
		if msg.Content == "" {
			return &ValidationError{Field: "messages", Message: "empty content at index " + strconv.Itoa(i)}
		}
	}
	if r.ResponseFormat != "" && r.ResponseFormat != FormatText && r.ResponseFormat != FormatJSON {
		return &ValidationError{Field: "response_format", Message: "must be \"text\" or \"json\""}
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 2) {
		return &ValidationError{Field: "temperature", Message: "must be between 0.0 and 2.0"}
	}
	if r.MaxTokens != nil && *r.MaxTokens <= 0 {
		return &ValidationError{Field: "max_tokens", Message: "must be positive"}
	}
	return nil
}

// OperationClassOrDefault returns the operation class, defaulting to chat
func (r *Request) OperationClassOrDefault() OperationClass {
	if r.Class == ClassVision {
		return ClassVision
	}
	return ClassChat
}

// Response is the normalized result of an orchestrated request.
// Cached and freshly computed responses are structurally identical;
// the Cached flag is the only difference visible to callers.
type Response struct {
	Content   string   `json:"content"`
	Provider  Provider `json:"provider"`
	Model     string   `json:"model"`
	LatencyMS int64    `json:"latency_ms"`
	Cached    bool     `json:"cached,omitempty"`
}

// ProviderStatus is a point-in-time snapshot of provider availability,
// recomputed on demand and never persisted
type ProviderStatus struct {
	Providers map[Provider]bool `json:"providers"`
	CheckedAt time.Time         `json:"checked_at"`
}
