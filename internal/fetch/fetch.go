// Package fetch implements the Content Fetchers: HTTP_TEXT, HTTP_DOWNLOAD,
// BROWSER_PAGE, BROWSER_CSV and the JSON_API query runner, plus the
// FeedProbe pre-flight health check. Every fetcher shares the contract
// that a nil payload (not an error) means "skip this cycle" — only
// genuinely exceptional conditions are returned as errors, and even
// those never propagate past the Worker that owns the fetch.
package fetch

import (
	"context"
	"time"
)

// Payload is whatever a fetcher produced for one cycle. Exactly one of
// HTML, CSV, Page or Documents is populated, matching the fetcher that
// produced it. Release, if non-nil, must be called exactly once the
// payload is done being used (browser payloads hold pool resources).
type Payload struct {
	HTML      string
	CSV       string
	Page      BrowserPage
	Documents []map[string]any

	Release func()
}

// Options carries the per-call tunables a fetcher may need. Not every
// field applies to every fetcher; unused fields are ignored.
type Options struct {
	BaseURL   string
	Accept    string
	UserAgent string
}

// Fetcher is the shared contract every content fetcher implements.
// A nil Payload with a nil error means "skip this cycle" — never an
// error condition. A non-nil error indicates something the caller
// should record but, per spec, still must not propagate as a fatal
// failure of the cycle.
type Fetcher interface {
	Fetch(ctx context.Context, targetURL string, opts Options) (*Payload, error)
}

// BrowserPage is a live DOM handle checked out from a BrowserPool. It
// must be released back to the pool on every exit path — see
// BrowserPool.Release.
type BrowserPage interface {
	// Content returns the current rendered HTML of the page.
	Content(ctx context.Context) (string, error)
}

const loadWait = 10 * time.Second
