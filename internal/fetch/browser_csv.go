package fetch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/rohmanhakim/docs-crawler/internal/metadata"
)

const (
	downloadMenuSelector    = `div[class*="viewMenuButton"]`
	downloadButtonSelector  = `//*[contains(text(), "Download")]`
	downloadPollInterval    = time.Second
	downloadPollTimeout     = 45 * time.Second
	crdownloadSuffix        = ".crdownload"
)

// BrowserCSVFetcher implements BROWSER_CSV (SEL_DOWNLOAD): drive the
// UI to trigger a CSV export, then poll the instance's own download
// directory until a finished .csv file appears (no .crdownload
// sibling) or the timeout elapses, in which case it returns nil
// (skip this cycle), matching the spec's "timeout terminates with
// None" rule. Each instance's download directory is exclusive to it,
// so no cross-talk between concurrent fetches is possible.
type BrowserCSVFetcher struct {
	pool         *BrowserPool
	metadataSink metadata.MetadataSink
}

func NewBrowserCSVFetcher(pool *BrowserPool, metadataSink metadata.MetadataSink) *BrowserCSVFetcher {
	return &BrowserCSVFetcher{pool: pool, metadataSink: metadataSink}
}

func (b *BrowserCSVFetcher) Fetch(ctx context.Context, targetURL string, opts Options) (*Payload, error) {
	instance, err := b.pool.Acquire(ctx)
	if err != nil {
		b.recordError(targetURL, err)
		return nil, nil
	}
	defer b.pool.Release(instance)

	startedAt := time.Now()
	runErr := chromedp.Run(instance.Context(),
		chromedp.Navigate(targetURL),
		chromedp.Sleep(loadWait),
		chromedp.WaitVisible(downloadMenuSelector, chromedp.ByQuery),
		chromedp.Click(downloadMenuSelector, chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
		chromedp.WaitVisible(downloadButtonSelector),
		chromedp.Click(downloadButtonSelector),
	)
	if runErr != nil {
		b.recordError(targetURL, runErr)
		return nil, nil
	}

	content, ok := b.pollForCSV(ctx, instance.DownloadDir())
	if b.metadataSink != nil {
		status := 200
		if !ok {
			status = 0
		}
		b.metadataSink.RecordFetch(targetURL, status, time.Since(startedAt), "text/csv", 0, 0)
	}
	if !ok {
		return nil, nil
	}

	return &Payload{CSV: content}, nil
}

// pollForCSV waits for exactly the shape the source's Airtable fetcher
// expected: a *.csv file with no lingering *.crdownload sibling.
func (b *BrowserCSVFetcher) pollForCSV(ctx context.Context, dir string) (string, bool) {
	return b.pollForCSVWithTimeout(ctx, dir, downloadPollTimeout)
}

func (b *BrowserCSVFetcher) pollForCSVWithTimeout(ctx context.Context, dir string, timeout time.Duration) (string, bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return "", false
		case <-time.After(downloadPollInterval):
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		var pending bool
		var csvPath string
		for _, entry := range entries {
			name := entry.Name()
			if strings.HasSuffix(name, crdownloadSuffix) {
				pending = true
				continue
			}
			if strings.HasSuffix(name, ".csv") {
				csvPath = filepath.Join(dir, name)
			}
		}

		if pending || csvPath == "" {
			continue
		}

		content, err := os.ReadFile(csvPath)
		if err != nil {
			continue
		}
		os.Remove(csvPath)
		return string(content), true
	}
	return "", false
}

func (b *BrowserCSVFetcher) recordError(targetURL string, err error) {
	if b.metadataSink == nil {
		return
	}
	b.metadataSink.RecordError(
		time.Now(),
		"fetch",
		"BrowserCSVFetcher.Fetch",
		metadata.CauseUnknown,
		err.Error(),
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrURL, targetURL)},
	)
}
