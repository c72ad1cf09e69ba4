package extract

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/rohmanhakim/docs-crawler/internal/model"
)

// HTMLExtractor implements the HTML extractor variant: CSS-select each
// configured selector out of static markup. For application_link,
// prefer the element's href attribute and fall back to its trimmed
// text; every other field uses trimmed text.
type HTMLExtractor struct{}

func NewHTMLExtractor() HTMLExtractor { return HTMLExtractor{} }

func (HTMLExtractor) Extract(ctx context.Context, payload Payload, selectors map[model.Field]string) (model.RawExtraction, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(payload.HTML))
	if err != nil {
		return nil, err
	}
	stripNoiseNodes(doc.Nodes[0])
	return extractFromDocument(doc, selectors), nil
}

func extractFromDocument(doc *goquery.Document, selectors map[model.Field]string) model.RawExtraction {
	result := make(model.RawExtraction, len(selectors))
	for field, selector := range selectors {
		if selector == "" {
			continue
		}
		var values []string
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			values = append(values, fieldValue(field, s))
		})
		result[field] = values
	}
	return result
}

func fieldValue(field model.Field, s *goquery.Selection) string {
	if field == model.FieldApplicationLink {
		if href, ok := s.Attr("href"); ok {
			return strings.TrimSpace(href)
		}
	}
	return strings.TrimSpace(s.Text())
}
