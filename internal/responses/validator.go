// Package responses validates structured-JSON provider output.
package responses

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Validator checks JSON-mode provider content against a request schema.
// Providers asked for JSON still wrap it in code fences or prose often
// enough that extraction runs before validation.
type Validator struct{}

// NewValidator creates a validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate returns the canonical JSON body of content, validated against
// schema. A nil or empty schema only requires the content to be JSON at all.
// The returned string is what callers should cache and serve: extraction
// noise never reaches the response.
func (v *Validator) Validate(content string, schema map[string]any) (string, error) {
	body := content
	var parsed any
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		body = extractJSON(content)
		if err := json.Unmarshal([]byte(body), &parsed); err != nil {
			return "", fmt.Errorf("response is not valid JSON: %w", err)
		}
	}

	if len(schema) == 0 {
		return body, nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewStringLoader(body),
	)
	if err != nil {
		return "", fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var errs []string
		for _, resultErr := range result.Errors() {
			errs = append(errs, resultErr.String())
		}
		return "", fmt.Errorf("response does not match schema: %s", strings.Join(errs, "; "))
	}

	return body, nil
}

var codeBlockRe = regexp.MustCompile("```(?:json)?\\s*\\n([\\s\\S]*?)\\n```")

// extractJSON pulls a JSON document out of markdown code blocks or mixed
// text. Candidates are only returned when they parse.
func extractJSON(content string) string {
	if matches := codeBlockRe.FindStringSubmatch(content); len(matches) > 1 {
		if candidate := validJSON(strings.TrimSpace(matches[1])); candidate != "" {
			return candidate
		}
	}

	if start, end := strings.Index(content, "{"), strings.LastIndex(content, "}"); start >= 0 && end > start {
		if candidate := validJSON(content[start : end+1]); candidate != "" {
			return candidate
		}
	}

	if start, end := strings.Index(content, "["), strings.LastIndex(content, "]"); start >= 0 && end > start {
		if candidate := validJSON(content[start : end+1]); candidate != "" {
			return candidate
		}
	}

	return content
}

func validJSON(candidate string) string {
	var probe any
	if err := json.Unmarshal([]byte(candidate), &probe); err != nil {
		return ""
	}
	return candidate
}
