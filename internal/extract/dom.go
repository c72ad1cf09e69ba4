package extract

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/rohmanhakim/docs-crawler/internal/model"
)

// DOMExtractor implements the DOM extractor variant: identical
// selector semantics to HTMLExtractor, but reads from a live browser
// handle's rendered HTML rather than a static fetch body — needed for
// JS-rendered pages. Any per-selector failure records an empty list
// for that field rather than aborting the whole extraction, so other
// fields still get a chance to populate.
//
// Releasing the underlying browser instance back to the pool is the
// caller's responsibility (the Parser that composed this Extractor
// with a BROWSER_PAGE fetch) — Extractor itself only reads content.
type DOMExtractor struct{}

func NewDOMExtractor() DOMExtractor { return DOMExtractor{} }

func (DOMExtractor) Extract(ctx context.Context, payload Payload, selectors map[model.Field]string) (model.RawExtraction, error) {
	if payload.DOM == nil {
		return model.RawExtraction{}, nil
	}

	html, err := payload.DOM.Content(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	stripNoiseNodes(doc.Nodes[0])

	result := make(model.RawExtraction, len(selectors))
	for field, selector := range selectors {
		var values []string
		var selErr error
		if isXPathSelector(selector) {
			values, selErr = extractOneXPathSelector(html, field, selector)
		} else {
			values, selErr = extractOneSelector(doc, field, selector)
		}
		if selErr != nil {
			result[field] = []string{}
			continue
		}
		result[field] = values
	}
	return result, nil
}

func extractOneSelector(doc *goquery.Document, field model.Field, selector string) (values []string, err error) {
	if selector == "" {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			values, err = nil, errSelectorFailed
		}
	}()

	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		values = append(values, fieldValue(field, s))
	})
	return values, nil
}

// isXPathSelector reports whether a configured selector is an XPath
// expression rather than a CSS selector, so the JS-rendered path can
// reach elements goquery's CSS engine (cascadia) cannot address, such
// as text-content or sibling-axis queries.
func isXPathSelector(selector string) bool {
	return strings.HasPrefix(selector, "/") || strings.HasPrefix(selector, "//")
}

func extractOneXPathSelector(rawHTML string, field model.Field, expr string) (values []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			values, err = nil, errSelectorFailed
		}
	}()

	doc, parseErr := htmlquery.Parse(strings.NewReader(rawHTML))
	if parseErr != nil {
		return nil, errSelectorFailed
	}
	stripNoiseNodes(doc)
	nodes, queryErr := htmlquery.QueryAll(doc, expr)
	if queryErr != nil {
		return nil, errSelectorFailed
	}
	for _, n := range nodes {
		values = append(values, xpathFieldValue(field, n))
	}
	return values, nil
}

func xpathFieldValue(field model.Field, n *html.Node) string {
	if field == model.FieldApplicationLink {
		if href := htmlquery.SelectAttr(n, "href"); href != "" {
			return strings.TrimSpace(href)
		}
	}
	return strings.TrimSpace(htmlquery.InnerText(n))
}

// stripNoiseNodes removes script/style/noscript elements via a
// post-order traversal so nested ones are cleaned innermost-first,
// mirroring the teacher's sanitizer's bottom-up empty-node removal.
// Without this, a selector whose match wraps one of these elements
// would pull inline JS or CSS text into the extracted field.
func stripNoiseNodes(n *html.Node) {
	if n == nil {
		return
	}
	var children []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		children = append(children, c)
	}
	for _, c := range children {
		stripNoiseNodes(c)
	}
	if n.Type == html.ElementNode && isNoiseElement(n.Data) && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func isNoiseElement(tag string) bool {
	switch tag {
	case "script", "style", "noscript":
		return true
	}
	return false
}
