package recommender

import (
	"bytes"
	"errors"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/animuse/animuse/internal/domain/recommend"
)

var errMalformedResponse = errors.New("AI response did not contain a recommendations list")

// parseRecommendations accepts either {"recommendations":[...]} or a bare
// array, optionally wrapped in a markdown code fence. Non-object elements are
// skipped; field shapes are left to recommend.Normalize.
func parseRecommendations(raw string) ([]recommend.RawItem, error) {
	sanitized := strings.TrimSpace(raw)
	sanitized = strings.TrimPrefix(sanitized, "```json")
	sanitized = strings.TrimPrefix(sanitized, "```")
	sanitized = strings.TrimSuffix(sanitized, "```")
	sanitized = strings.TrimSpace(sanitized)
	if sanitized == "" {
		return nil, errMalformedResponse
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(sanitized)))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, err
	}

	var list []any
	switch v := decoded.(type) {
	case []any:
		list = v
	case map[string]any:
		arr, ok := v["recommendations"].([]any)
		if !ok {
			return nil, errMalformedResponse
		}
		list = arr
	default:
		return nil, errMalformedResponse
	}

	out := make([]recommend.RawItem, 0, len(list))
	for _, el := range list {
		if obj, ok := el.(map[string]any); ok {
			out = append(out, recommend.RawItem(obj))
		}
	}
	return out, nil
}
