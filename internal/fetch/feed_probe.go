package fetch

import (
	"context"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/rohmanhakim/docs-crawler/internal/metadata"
)

// FeedProbe is a supplemented pre-flight health check: when a site
// carries a feed_url, Parser.Parse probes it before running the
// configured parser, skipping the cycle outright if the feed cannot be
// parsed at all (a strong signal the site is down or has changed
// shape in a way a one-off scrape retry won't fix).
type FeedProbe struct {
	parser       *gofeed.Parser
	metadataSink metadata.MetadataSink
}

func NewFeedProbe(metadataSink metadata.MetadataSink) *FeedProbe {
	return &FeedProbe{parser: gofeed.NewParser(), metadataSink: metadataSink}
}

// Healthy reports whether feedURL parses as a syndication feed with at
// least one item. An empty feedURL is treated as "no probe configured"
// and always reports healthy.
func (f *FeedProbe) Healthy(ctx context.Context, feedURL string) bool {
	if feedURL == "" {
		return true
	}

	startedAt := time.Now()
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	duration := time.Since(startedAt)

	if f.metadataSink != nil {
		status := 200
		if err != nil {
			status = 0
		}
		f.metadataSink.RecordFetch(feedURL, status, duration, "application/rss+xml", 0, 0)
	}

	if err != nil {
		if f.metadataSink != nil {
			f.metadataSink.RecordError(
				time.Now(),
				"fetch",
				"FeedProbe.Healthy",
				metadata.CauseNetworkFailure,
				err.Error(),
				[]metadata.Attribute{metadata.NewAttr(metadata.AttrURL, feedURL)},
			)
		}
		return false
	}

	return len(feed.Items) > 0
}
