package normalizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bashoori/sustainable-energy-data-platform/internal/models"
)

// ErrSchema is returned when an extracted payload is not a list of records.
var ErrSchema = errors.New("payload records must be a list of objects")

// Extractor locates the record list inside a decoded API payload.
type Extractor struct{}

// NewExtractor creates a new extractor instance.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract walks the dot-separated path through payload and returns the
// records found there. An empty path means payload is the list itself.
//
// A missing key, or a step into something that is not an object, yields an
// empty object rather than an error, so odd responses degrade to ErrSchema
// instead of a crash.
func (e *Extractor) Extract(payload any, path string) ([]models.Record, error) {
	current := payload

	if path != "" {
		for _, key := range strings.Split(path, ".") {
			obj, ok := current.(map[string]any)
			if !ok {
				current = map[string]any{}

				continue
			}

			next, ok := obj[key]
			if !ok {
				next = map[string]any{}
			}

			current = next
		}
	}

	list, ok := current.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %s at path %q", ErrSchema, describe(current), path)
	}

	records := make([]models.Record, 0, len(list))

	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: element %d is %s", ErrSchema, i, describe(item))
		}

		records = append(records, models.Record(obj))
	}

	return records, nil
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
