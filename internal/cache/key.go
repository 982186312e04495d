package cache

import (
	"encoding/json"
	"fmt"
	"hash/fnv"

	"aigate/internal/domain"
)

// KeyPrefix namespaces every cache entry so a shared backing store can be
// cleared without touching unrelated keys.
const KeyPrefix = "ai:"

// keyMaterial is the canonical serialization input. Field order is fixed so
// the same request always marshals to the same bytes. Caller identity and
// request IDs are deliberately excluded: identical content shares one entry.
type keyMaterial struct {
	Model          string           `json:"model"`
	Messages       []domain.Message `json:"messages"`
	ResponseFormat string           `json:"response_format"`
	Temperature    *float32         `json:"temperature,omitempty"`
	MaxTokens      *int32           `json:"max_tokens,omitempty"`
}

// Key derives the content-addressed cache key for a request.
//
// The hash is FNV-1a over the canonical JSON, truncated to 32 bits. Two
// distinct requests can collide and share an entry; the per-entry TTL bounds
// how long a collision can serve the wrong response.
func Key(req *domain.Request) string {
	material := keyMaterial{
		Model:          req.Model,
		Messages:       req.Messages,
		ResponseFormat: req.ResponseFormat,
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
	}

	data, err := json.Marshal(material)
	if err != nil {
		// Marshal of plain structs and strings cannot fail; fall back to a
		// non-colliding degenerate key rather than panic.
		data = []byte(req.Model)
	}

	h := fnv.New32a()
	h.Write(data)
	return fmt.Sprintf("%s%08x", KeyPrefix, h.Sum32())
}
