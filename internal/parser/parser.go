// Package parser implements the Parser: parse(config) -> row sequence?
// per the spec's five-step algorithm, composing one of the Content
// Fetchers, one of the Extractor variants, and the Processing Pipeline
// behind a single ParserKind-selected Parser value.
package parser

import (
	"context"
	"errors"

	"github.com/rohmanhakim/docs-crawler/internal/extract"
	"github.com/rohmanhakim/docs-crawler/internal/fetch"
	"github.com/rohmanhakim/docs-crawler/internal/model"
	"github.com/rohmanhakim/docs-crawler/internal/pipeline"
)

// ErrInvalidConfig is returned when a site's selectors are empty; per the
// spec this aborts the parse outright rather than returning an empty
// result.
var ErrInvalidConfig = errors.New("parser: empty selectors")

// Parser composes one cycle's worth of fetch, extract and pipeline work
// for a single ParserKind. Exactly one of Fetcher or JSONFetcher is set,
// matching the JSON_API variant's distinct query-set-driven contract.
type Parser struct {
	Fetcher     fetch.Fetcher
	JSONFetcher *fetch.JSONAPIFetcher
	Extractor   extract.Extractor
	Pipeline    pipeline.Pipeline
	FeedProbe   *fetch.FeedProbe
}

// Parse runs the spec's five-step parse algorithm: validate selectors,
// fetch, extract, run the pipeline, and materialize rows. A nil row
// slice with a nil error means "nothing to publish this cycle" (failed
// feed probe, failed fetch, empty extraction or empty pipeline output).
// Empty selectors, extractor errors and pipeline errors are returned as
// errors with nil rows; the Worker records them and treats the cycle as
// empty.
func (p *Parser) Parse(ctx context.Context, cfg model.SiteConfig) ([]model.Row, error) {
	if len(cfg.Selectors) == 0 {
		return nil, ErrInvalidConfig
	}

	if p.FeedProbe != nil && !p.FeedProbe.Healthy(ctx, cfg.FeedURL) {
		return nil, nil
	}

	payload, ok := p.fetchPayload(ctx, cfg)
	if !ok {
		return nil, nil
	}
	if payload.Release != nil {
		defer payload.Release()
	}

	extracted, err := p.Extractor.Extract(ctx, toExtractPayload(payload), cfg.Selectors)
	if err != nil {
		return nil, err
	}
	if extracted.Empty() {
		return nil, nil
	}

	frame, err := p.Pipeline.Run(ctx, extracted, cfg)
	if err != nil {
		return nil, err
	}
	if frame.Empty() {
		return nil, nil
	}

	return model.RowsFromExtraction(frame), nil
}

// fetchPayload dispatches to the JSON_API query-set runner or the
// common Fetcher interface depending on which is configured, reporting
// ok=false for every "skip this cycle" outcome (nil payload or an error
// a fetcher failed to absorb internally — per the fetch package's
// contract this should not happen, but the Parser never treats it as
// fatal either way).
func (p *Parser) fetchPayload(ctx context.Context, cfg model.SiteConfig) (fetch.Payload, bool) {
	if p.JSONFetcher != nil {
		docs := p.JSONFetcher.FetchQuerySet(ctx, cfg.BaseURL, cfg.JSONAPIQuerySet)
		if len(docs) == 0 {
			return fetch.Payload{}, false
		}
		return fetch.Payload{Documents: docs}, true
	}

	opts := fetch.Options{BaseURL: cfg.BaseURL, Accept: cfg.AcceptMIME}
	result, err := p.Fetcher.Fetch(ctx, cfg.URL, opts)
	if err != nil || result == nil {
		return fetch.Payload{}, false
	}
	return *result, true
}

func toExtractPayload(p fetch.Payload) extract.Payload {
	ep := extract.Payload{HTML: p.HTML, CSV: p.CSV, Documents: p.Documents}
	if p.Page != nil {
		ep.DOM = p.Page
	}
	return ep
}
