package robots

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rohmanhakim/docs-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-crawler/internal/model"
	"github.com/rohmanhakim/docs-crawler/internal/robots/cache"
)

// Advisor gates every network-facing fetcher behind robots.txt policy.
// GetRules is the single operation: it normalizes the target host,
// consults the cache, and on miss fetches+parses robots.txt, caching the
// result only when the fresh rules allow fetching. Any failure along the
// way returns the conservative, uncached "deny" default.
type Advisor struct {
	fetcher      *RobotsFetcher
	rulesCache   cache.Cache
	metadataSink metadata.MetadataSink
}

// NewAdvisor builds an Advisor around a RobotsFetcher (which itself owns
// the raw robots.txt byte cache) and a second cache keyed by request URL
// that holds the mapped, decision-ready RobotsRules.
func NewAdvisor(fetcher *RobotsFetcher, rulesCache cache.Cache, metadataSink metadata.MetadataSink) *Advisor {
	return &Advisor{
		fetcher:      fetcher,
		rulesCache:   rulesCache,
		metadataSink: metadataSink,
	}
}

// conservativeDefault is returned whenever anything about the robots.txt
// round trip fails; it fails closed rather than open.
func conservativeDefault(userAgent string) model.RobotsRules {
	return model.RobotsRules{
		CanFetch:   false,
		CrawlDelay: defaultCrawlDelay,
		UserAgent:  userAgent,
	}
}

// GetRules implements the Robots Advisor algorithm: normalize base_url,
// consult the cache by request_url (the canonical cache key — two URLs
// under the same host share a cache entry only if they are identical),
// and on miss fetch+parse, caching only if the result allows fetching.
func (a *Advisor) GetRules(ctx context.Context, requestURL, baseURL, userAgent string) model.RobotsRules {
	if cached, ok := a.rulesCache.Get(requestURL); ok {
		if rules, ok := decodeRules(cached); ok {
			return rules
		}
	}

	parsed, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil || parsed.Host == "" {
		a.recordError("GetRules", ErrCauseInvalidRobotsUrl, requestURL, err)
		return conservativeDefault(userAgent)
	}

	scheme := parsed.Scheme
	if scheme == "" {
		scheme = "https"
	}

	fetchResult, fetchErr := a.fetcher.Fetch(ctx, scheme, parsed.Host)
	if fetchErr != nil {
		a.recordError("GetRules", fetchErr.Cause, requestURL, fetchErr)
		return conservativeDefault(userAgent)
	}

	rs := MapResponseToRuleSet(fetchResult.Response, userAgent, fetchResult.FetchedAt)

	target, err := url.Parse(requestURL)
	path := "/"
	if err == nil && target.Path != "" {
		path = target.Path
	}

	rules := model.RobotsRules{
		CanFetch:   Allows(rs, path),
		CrawlDelay: CrawlDelay(rs),
		UserAgent:  userAgent,
	}

	if rules.CanFetch {
		if encoded, ok := encodeRules(rules); ok {
			a.rulesCache.Put(requestURL, encoded)
		}
	}

	return rules
}

func (a *Advisor) recordError(action string, cause RobotsErrorCause, requestURL string, err error) {
	if a.metadataSink == nil {
		return
	}
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	a.metadataSink.RecordError(
		time.Now(),
		"robots",
		action,
		mapRobotsErrorToMetadataCause(&RobotsError{Cause: cause}),
		detail,
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrURL, requestURL)},
	)
}

// encodeRules/decodeRules serialize model.RobotsRules to the simple
// string shape the cache.Cache port expects.
func encodeRules(rules model.RobotsRules) (string, bool) {
	ua := strings.ReplaceAll(rules.UserAgent, "|", " ")
	canFetch := "0"
	if rules.CanFetch {
		canFetch = "1"
	}
	return canFetch + "|" + rules.CrawlDelay.String() + "|" + ua, true
}

func decodeRules(encoded string) (model.RobotsRules, bool) {
	parts := strings.SplitN(encoded, "|", 3)
	if len(parts) != 3 {
		return model.RobotsRules{}, false
	}
	delay, err := time.ParseDuration(parts[1])
	if err != nil {
		return model.RobotsRules{}, false
	}
	return model.RobotsRules{
		CanFetch:   parts[0] == "1",
		CrawlDelay: delay,
		UserAgent:  parts[2],
	}, true
}
