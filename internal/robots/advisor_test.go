package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rohmanhakim/docs-crawler/internal/robots/cache"
)

func TestAdvisorGetRulesAllowsAndCaches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nAllow: /jobs\nDisallow: /\n"))
	}))
	defer srv.Close()

	rawCache := cache.NewMemoryCache()
	rulesCache := cache.NewMemoryCache()
	fetcher := NewRobotsFetcherWithClient(nil, "TestBot", srv.Client(), rawCache)
	advisor := NewAdvisor(fetcher, rulesCache, nil)

	requestURL := srv.URL + "/jobs/listing"
	rules := advisor.GetRules(context.Background(), requestURL, srv.URL, "TestBot")
	if !rules.CanFetch {
		t.Fatal("expected /jobs/listing to be allowed")
	}

	if rulesCache.Size() != 1 {
		t.Fatalf("expected the allowed result to be cached, got size %d", rulesCache.Size())
	}

	cached, ok := rulesCache.Get(requestURL)
	if !ok {
		t.Fatal("expected a cache hit for the request URL")
	}
	decoded, ok := decodeRules(cached)
	if !ok || !decoded.CanFetch {
		t.Fatal("expected the cached entry to decode back to an allowed result")
	}
}

func TestAdvisorGetRulesDoesNotCacheDisallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /\n"))
	}))
	defer srv.Close()

	rawCache := cache.NewMemoryCache()
	rulesCache := cache.NewMemoryCache()
	fetcher := NewRobotsFetcherWithClient(nil, "TestBot", srv.Client(), rawCache)
	advisor := NewAdvisor(fetcher, rulesCache, nil)

	requestURL := srv.URL + "/private"
	rules := advisor.GetRules(context.Background(), requestURL, srv.URL, "TestBot")
	if rules.CanFetch {
		t.Fatal("expected /private to be disallowed")
	}
	if rulesCache.Size() != 0 {
		t.Fatalf("expected a disallowed result not to be cached, got size %d", rulesCache.Size())
	}
}

func TestAdvisorGetRulesFailsClosedOnInvalidBaseURL(t *testing.T) {
	rawCache := cache.NewMemoryCache()
	rulesCache := cache.NewMemoryCache()
	fetcher := NewRobotsFetcherWithClient(nil, "TestBot", http.DefaultClient, rawCache)
	advisor := NewAdvisor(fetcher, rulesCache, nil)

	rules := advisor.GetRules(context.Background(), "not a url", "://bad", "TestBot")
	if rules.CanFetch {
		t.Fatal("expected the conservative default to deny fetching")
	}
	if rules.CrawlDelay != defaultCrawlDelay {
		t.Fatalf("expected the conservative default crawl delay, got %v", rules.CrawlDelay)
	}
}

func TestAdvisorGetRulesReturnsCachedEntryWithoutRefetch(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte("User-agent: *\nAllow: /\n"))
	}))
	defer srv.Close()

	rawCache := cache.NewMemoryCache()
	rulesCache := cache.NewMemoryCache()
	fetcher := NewRobotsFetcherWithClient(nil, "TestBot", srv.Client(), rawCache)
	advisor := NewAdvisor(fetcher, rulesCache, nil)

	requestURL := srv.URL + "/jobs"
	advisor.GetRules(context.Background(), requestURL, srv.URL, "TestBot")
	advisor.GetRules(context.Background(), requestURL, srv.URL, "TestBot")

	if calls != 1 {
		t.Fatalf("expected a single robots.txt fetch across both calls, got %d", calls)
	}
}
