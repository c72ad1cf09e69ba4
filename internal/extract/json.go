package extract

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rohmanhakim/docs-crawler/internal/model"
)

// JSONExtractor implements the JSON extractor variant: for each
// document in payload.Documents, iterate its "jobs" list, and for each
// job pluck each logical field via a dotted path (integer path
// segments index into lists). Structured values are flattened to
// strings: lists become comma-joined, maps become "k: v" newline-joined,
// and null becomes "".
type JSONExtractor struct{}

func NewJSONExtractor() JSONExtractor { return JSONExtractor{} }

func (JSONExtractor) Extract(ctx context.Context, payload Payload, selectors map[model.Field]string) (model.RawExtraction, error) {
	result := make(model.RawExtraction, len(selectors))
	for field := range selectors {
		result[field] = []string{}
	}

	for _, doc := range payload.Documents {
		jobsRaw, ok := doc["jobs"]
		if !ok {
			continue
		}
		jobs, ok := jobsRaw.([]any)
		if !ok {
			continue
		}

		for _, jobRaw := range jobs {
			job, ok := jobRaw.(map[string]any)
			if !ok {
				continue
			}
			for field, path := range selectors {
				value, found := pluck(job, path)
				flattened := ""
				if found {
					flattened = flatten(value)
				}
				result[field] = append(result[field], flattened)
			}
		}
	}

	return result, nil
}

// pluck walks a dotted path like "company.name" or "tags.0" through a
// nested map/slice structure, treating purely-numeric segments as list
// indices.
func pluck(doc map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	var current any = doc

	for _, seg := range segments {
		if idx, err := strconv.Atoi(seg); err == nil {
			list, ok := current.([]any)
			if !ok || idx < 0 || idx >= len(list) {
				return nil, false
			}
			current = list[idx]
			continue
		}

		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		value, exists := m[seg]
		if !exists {
			return nil, false
		}
		current = value
	}

	return current, true
}

func flatten(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = flatten(item)
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		var lines []string
		for k, val := range v {
			lines = append(lines, fmt.Sprintf("%s: %s", k, flatten(val)))
		}
		return strings.Join(lines, "\n")
	default:
		return fmt.Sprintf("%v", v)
	}
}
