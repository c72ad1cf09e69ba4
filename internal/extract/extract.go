// Package extract implements the four Extractor variants — CSV, HTML,
// DOM and JSON — each turning a fetched Payload into a
// model.RawExtraction (column-oriented). The variants do not make the
// columns equal in length: a CSV header that is missing yields an empty
// column, and each HTML/DOM selector keeps however many matches it has.
package extract

import (
	"context"

	"github.com/rohmanhakim/docs-crawler/internal/model"
)

// Extractor is the shared contract. selectors maps logical field to
// a field-specific selector string (CSS selector, JSON dotted path, or
// CSV header name, depending on the variant).
type Extractor interface {
	Extract(ctx context.Context, payload Payload, selectors map[model.Field]string) (model.RawExtraction, error)
}

// Payload is the minimal surface an extractor needs from
// fetch.Payload; extract does not import fetch to avoid a dependency
// cycle with parser composition, so the parser package adapts
// fetch.Payload into this shape.
type Payload struct {
	HTML      string
	CSV       string
	DOM       DOMSource
	Documents []map[string]any
}

// DOMSource is a live page handle an extractor can pull rendered HTML
// from without forcing a round trip through the fetched HTML string
// (needed for BROWSER_PAGE, where content is produced by JS after
// load).
type DOMSource interface {
	Content(ctx context.Context) (string, error)
}
