package parser

import (
	"net/http"

	"github.com/rohmanhakim/docs-crawler/internal/extract"
	"github.com/rohmanhakim/docs-crawler/internal/fetch"
	"github.com/rohmanhakim/docs-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-crawler/internal/model"
	"github.com/rohmanhakim/docs-crawler/internal/pipeline"
	"github.com/rohmanhakim/docs-crawler/internal/robots"
	"github.com/rohmanhakim/docs-crawler/internal/tracker"
	"github.com/rohmanhakim/docs-crawler/pkg/limiter"
	"github.com/rohmanhakim/docs-crawler/pkg/retry"
)

// Builder assembles a Parser for a given ParserKind from the process's
// shared resources. One Builder is constructed at startup and reused
// across every site in the catalog; each Build call returns a Parser
// whose Pipeline is fresh (stateless bar the shared Tracker) so sites
// never share filtering state, only the Tracker and the rate limiter.
type Builder struct {
	HTTPClient   *http.Client
	Advisor      *robots.Advisor
	RateLimiter  limiter.RateLimiter
	BrowserPool  *fetch.BrowserPool
	Tracker      *tracker.Tracker
	MetadataSink metadata.MetadataSink
	GlobalFilters model.FilterSet
	JSONAPIKey   string

	// RetryParam governs HTTPTextFetcher's transient-failure retries.
	// Zero value leaves the fetcher's own default in place.
	RetryParam retry.RetryParam
}

// Build returns the Parser for one site's configured ParserKind.
// Unrecognized kinds are a configuration-loading bug, not a runtime
// condition the Builder needs to handle: the catalog loader already
// rejects them before a SiteConfig reaches here.
func (b *Builder) Build(kind model.ParserKind) *Parser {
	pipe := pipeline.New(
		pipeline.NewChangeDetection(b.Tracker),
		pipeline.NewDateFilter(),
		pipeline.NewFilterProcessor(b.GlobalFilters),
		pipeline.NewPositionNormalization(),
	)

	p := &Parser{Pipeline: pipe, FeedProbe: fetch.NewFeedProbe(b.MetadataSink)}

	switch kind {
	case model.ParserHTTPHTML:
		textFetcher := fetch.NewHTTPTextFetcher(b.HTTPClient, b.Advisor, b.RateLimiter, b.MetadataSink)
		if b.RetryParam.MaxAttempts > 0 {
			textFetcher.SetRetryParam(b.RetryParam)
		}
		p.Fetcher = textFetcher
		p.Extractor = extract.NewHTMLExtractor()
	case model.ParserHTTPCSV:
		p.Fetcher = fetch.NewHTTPDownloadFetcher(b.HTTPClient, b.MetadataSink)
		p.Extractor = extract.NewCSVExtractor()
	case model.ParserBrowserPage:
		p.Fetcher = fetch.NewBrowserPageFetcher(b.BrowserPool, b.Advisor, b.RateLimiter, b.MetadataSink)
		p.Extractor = extract.NewDOMExtractor()
	case model.ParserBrowserCSV:
		p.Fetcher = fetch.NewBrowserCSVFetcher(b.BrowserPool, b.MetadataSink)
		p.Extractor = extract.NewCSVExtractor()
	case model.ParserJSONAPI:
		p.JSONFetcher = fetch.NewJSONAPIFetcher(b.HTTPClient, b.JSONAPIKey, b.MetadataSink)
		p.Extractor = extract.NewJSONExtractor()
	}

	return p
}
