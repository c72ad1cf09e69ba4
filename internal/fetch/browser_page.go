package fetch

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/rohmanhakim/docs-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-crawler/pkg/limiter"
)

// chromedpPage adapts a live chromedp tab to the BrowserPage interface
// an Extractor consumes.
type chromedpPage struct {
	ctx context.Context
}

func (p chromedpPage) Content(ctx context.Context) (string, error) {
	var html string
	if err := chromedp.Run(p.ctx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", err
	}
	return html, nil
}

// BrowserPageFetcher implements BROWSER_PAGE (JS): acquires one pooled
// headless instance, navigates, waits for content to settle, and hands
// back a live DOM handle the caller must release via Payload.Release.
type BrowserPageFetcher struct {
	pool         *BrowserPool
	advisor      robotsGate
	rateLimiter  limiter.RateLimiter
	metadataSink metadata.MetadataSink
}

func NewBrowserPageFetcher(pool *BrowserPool, advisor robotsGate, rateLimiter limiter.RateLimiter, metadataSink metadata.MetadataSink) *BrowserPageFetcher {
	return &BrowserPageFetcher{pool: pool, advisor: advisor, rateLimiter: rateLimiter, metadataSink: metadataSink}
}

func (b *BrowserPageFetcher) Fetch(ctx context.Context, targetURL string, opts Options) (*Payload, error) {
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = randomUserAgent()
	}

	rules := b.advisor.GetRules(ctx, targetURL, opts.BaseURL, userAgent)
	if !rules.CanFetch {
		return nil, nil
	}

	host := hostOf(targetURL)
	if b.rateLimiter != nil {
		b.rateLimiter.SetCrawlDelay(host, rules.CrawlDelay)
		if delay := b.rateLimiter.ResolveDelay(host); delay > 0 {
			select {
			case <-ctx.Done():
				return nil, nil
			case <-time.After(delay):
			}
		}
	}

	instance, err := b.pool.Acquire(ctx)
	if err != nil {
		b.recordError(targetURL, err)
		return nil, nil
	}

	startedAt := time.Now()
	runErr := chromedp.Run(instance.Context(), chromedp.Navigate(targetURL), chromedp.Sleep(loadWait))
	if b.rateLimiter != nil {
		b.rateLimiter.MarkLastFetchAsNow(host)
	}

	if runErr != nil {
		b.pool.Release(instance)
		if b.rateLimiter != nil {
			b.rateLimiter.Backoff(host)
		}
		b.recordError(targetURL, runErr)
		return nil, nil
	}

	if b.rateLimiter != nil {
		b.rateLimiter.ResetBackoff(host)
	}

	if b.metadataSink != nil {
		b.metadataSink.RecordFetch(targetURL, 200, time.Since(startedAt), "text/html", 0, 0)
	}

	page := chromedpPage{ctx: instance.Context()}
	return &Payload{
		Page:    page,
		Release: func() { b.pool.Release(instance) },
	}, nil
}

func (b *BrowserPageFetcher) recordError(targetURL string, err error) {
	if b.metadataSink == nil {
		return
	}
	b.metadataSink.RecordError(
		time.Now(),
		"fetch",
		"BrowserPageFetcher.Fetch",
		metadata.CauseUnknown,
		err.Error(),
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrURL, targetURL)},
	)
}
