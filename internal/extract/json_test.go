package extract

import (
	"context"
	"testing"

	"github.com/rohmanhakim/docs-crawler/internal/model"
)

func TestJSONExtractorPlucksDottedPaths(t *testing.T) {
	docs := []map[string]any{
		{
			"jobs": []any{
				map[string]any{
					"title":   "Engineer",
					"company": map[string]any{"name": "Acme"},
					"tags":    []any{"go", "backend"},
				},
			},
		},
	}

	e := NewJSONExtractor()
	selectors := map[model.Field]string{
		model.FieldPosition:    "title",
		model.FieldCompanyName: "company.name",
		model.FieldDescription: "tags",
	}

	ext, err := e.Extract(context.Background(), Payload{Documents: docs}, selectors)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ext[model.FieldPosition]; len(got) != 1 || got[0] != "Engineer" {
		t.Fatalf("unexpected position: %v", got)
	}
	if got := ext[model.FieldCompanyName]; len(got) != 1 || got[0] != "Acme" {
		t.Fatalf("unexpected company_name: %v", got)
	}
	if got := ext[model.FieldDescription]; len(got) != 1 || got[0] != "go, backend" {
		t.Fatalf("unexpected flattened list: %v", got)
	}
}

func TestJSONExtractorMissingPathYieldsEmptyString(t *testing.T) {
	docs := []map[string]any{
		{"jobs": []any{map[string]any{"title": "Engineer"}}},
	}
	e := NewJSONExtractor()
	ext, err := e.Extract(context.Background(), Payload{Documents: docs}, map[model.Field]string{model.FieldCompanyName: "company.name"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ext[model.FieldCompanyName]; len(got) != 1 || got[0] != "" {
		t.Fatalf("expected empty string for a missing path, got %v", got)
	}
}

func TestPluckWithIntegerIndex(t *testing.T) {
	doc := map[string]any{"tags": []any{"first", "second"}}
	value, found := pluck(doc, "tags.1")
	if !found || value != "second" {
		t.Fatalf("expected tags.1 to pluck 'second', got %v (found=%v)", value, found)
	}
}
