package robots

import (
	"context"
	"time"

	"github.com/rohmanhakim/docs-crawler/internal/metadata"
)

// defaultRefreshInterval matches the original RobotsCacheRefresher's
// 24-hour default.
const defaultRefreshInterval = 24 * time.Hour

// Refresher periodically revalidates every cached RobotsRules entry,
// evicting any whose fresh fetch says can_fetch = false. It yields
// cooperatively between entries so a large cache does not starve the
// Advisor's own readers.
type Refresher struct {
	advisor      *Advisor
	userAgent    string
	baseURLs     map[string]string // request url -> base url, needed to re-fetch
	interval     time.Duration
	metadataSink metadata.MetadataSink

	stop chan struct{}
	done chan struct{}
}

// NewRefresher builds a Refresher over the given Advisor. baseURLs maps
// each request URL that may appear in the cache to the base_url needed
// to refetch its robots.txt.
func NewRefresher(advisor *Advisor, userAgent string, baseURLs map[string]string, interval time.Duration, metadataSink metadata.MetadataSink) *Refresher {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	return &Refresher{
		advisor:      advisor,
		userAgent:    userAgent,
		baseURLs:     baseURLs,
		interval:     interval,
		metadataSink: metadataSink,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start launches the background revalidation loop. Cancellation via ctx
// or Stop() takes effect within one revalidation step.
func (r *Refresher) Start(ctx context.Context) {
	go r.run(ctx)
}

// Stop requests shutdown and blocks until the loop has exited.
func (r *Refresher) Stop() {
	close(r.stop)
	<-r.done
}

func (r *Refresher) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-ticker.C:
			r.revalidateAll(ctx)
		}
	}
}

func (r *Refresher) revalidateAll(ctx context.Context) {
	keys := r.advisor.rulesCache.Keys()
	for _, key := range keys {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		default:
		}

		baseURL, ok := r.baseURLs[key]
		if !ok {
			continue
		}

		// Evict first so GetRules performs a genuine re-fetch rather than
		// reusing the entry we are trying to revalidate.
		r.advisor.rulesCache.Delete(key)
		fresh := r.advisor.GetRules(ctx, key, baseURL, r.userAgent)
		if !fresh.CanFetch {
			r.advisor.rulesCache.Delete(key)
		}

		// cooperative yield between entries
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Millisecond):
		}
	}
}
