package limiter_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/rohmanhakim/docs-crawler/pkg/limiter"
	"github.com/rohmanhakim/docs-crawler/pkg/timeutil"
)

func TestNewConcurrentRateLimiterDefaults(t *testing.T) {
	rl := limiter.NewConcurrentRateLimiter()

	if rl.BaseDelay() != 0 {
		t.Errorf("default baseDelay = %v, want 0", rl.BaseDelay())
	}
	if rl.Jitter() != 0 {
		t.Errorf("default jitter = %v, want 0", rl.Jitter())
	}
	if rl.RNG() == nil {
		t.Error("default rng not initialized")
	}
	if rl.HostTimings() == nil {
		t.Error("hostTimings map not initialized")
	}

	rl.SetJitter(0)
	host := "example.com"
	rl.Backoff(host)
	if got := rl.HostTimings()[host].BackOffDelay(); got != 1*time.Second {
		t.Errorf("default backoff initial delay = %v, want 1s", got)
	}
}

func TestRateLimiterSetBaseDelayAndJitter(t *testing.T) {
	rl := limiter.NewConcurrentRateLimiter()
	rl.SetBaseDelay(1 * time.Second)
	rl.SetJitter(100 * time.Millisecond)
	rl.SetRandomSeed(42)

	if rl.BaseDelay() != 1*time.Second {
		t.Errorf("baseDelay = %v, want 1s", rl.BaseDelay())
	}
	if rl.Jitter() != 100*time.Millisecond {
		t.Errorf("jitter = %v, want 100ms", rl.Jitter())
	}
}

func TestRateLimiterSetCrawlDelay(t *testing.T) {
	rl := limiter.NewConcurrentRateLimiter()
	host := "example.com"
	newDelay := 2 * time.Second

	rl.SetCrawlDelay(host, newDelay)

	if got := rl.HostTimings()[host].CrawlDelay(); got != newDelay {
		t.Errorf("crawlDelay = %v, want %v", got, newDelay)
	}
}

// Backoff's default curve is 1s doubling, capped at 30s (NewConcurrentRateLimiter's default BackoffParam).
func TestRateLimiterBackoffExponentialGrowthAndCap(t *testing.T) {
	rl := limiter.NewConcurrentRateLimiter()
	rl.SetJitter(0)
	host := "example.com"

	expectedDelays := []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 30 * time.Second, 30 * time.Second,
	}
	for i, expected := range expectedDelays {
		rl.Backoff(host)
		timing := rl.HostTimings()[host]
		if timing.BackOffDelay() != expected {
			t.Errorf("backoff %d: delay = %v, want %v", i+1, timing.BackOffDelay(), expected)
		}
		if timing.BackoffCount() != i+1 {
			t.Errorf("backoff %d: count = %d, want %d", i+1, timing.BackoffCount(), i+1)
		}
	}
}

func TestRateLimiterBackoffWithJitter(t *testing.T) {
	rl := limiter.NewConcurrentRateLimiter()
	rl.SetJitter(50 * time.Millisecond)
	rl.SetRandomSeed(12345)
	host := "example.com"

	rl.Backoff(host)
	delay := rl.HostTimings()[host].BackOffDelay()
	if delay < 1*time.Second || delay > 1*time.Second+60*time.Millisecond {
		t.Errorf("backoff with jitter = %v, want between 1s and 1.06s", delay)
	}
}

func TestRateLimiterResetBackoff(t *testing.T) {
	rl := limiter.NewConcurrentRateLimiter()
	rl.SetJitter(0)
	host := "example.com"

	rl.Backoff(host)
	rl.Backoff(host)
	if got := rl.HostTimings()[host].BackoffCount(); got != 2 {
		t.Fatalf("setup: backoffCount = %d, want 2", got)
	}

	rl.ResetBackoff(host)
	timing := rl.HostTimings()[host]
	if timing.BackoffCount() != 0 || timing.BackOffDelay() != 0 {
		t.Errorf("after reset: count=%d delay=%v, want 0/0", timing.BackoffCount(), timing.BackOffDelay())
	}

	rl.Backoff(host)
	if got := rl.HostTimings()[host].BackoffCount(); got != 1 {
		t.Errorf("backoff after reset = %d, want 1", got)
	}
}

func TestRateLimiterBackoffOnNewHost(t *testing.T) {
	rl := limiter.NewConcurrentRateLimiter()
	rl.SetJitter(0)
	host := "newhost.example"

	rl.Backoff(host)

	timing := rl.HostTimings()[host]
	if timing.BackoffCount() != 1 || timing.BackOffDelay() != 1*time.Second {
		t.Errorf("new host backoff = count=%d delay=%v, want 1/1s", timing.BackoffCount(), timing.BackOffDelay())
	}
	if !timing.LastFetchAt().IsZero() {
		t.Errorf("lastFetchAt for new host should be zero, got %v", timing.LastFetchAt())
	}
}

func TestConcurrentRateLimiterSetBackoffParam(t *testing.T) {
	rl := limiter.NewConcurrentRateLimiter()
	rl.SetJitter(0)
	host := "example.com"

	rl.SetBackoffParam(timeutil.NewBackoffParam(2*time.Second, 3.0, 60*time.Second))

	expectedDelays := []time.Duration{2 * time.Second, 6 * time.Second, 18 * time.Second, 54 * time.Second, 60 * time.Second}
	for i, expected := range expectedDelays {
		rl.Backoff(host)
		if got := rl.HostTimings()[host].BackOffDelay(); got != expected {
			t.Errorf("backoff %d after SetBackoffParam: got %v, want %v", i+1, got, expected)
		}
	}
}

func TestRateLimiterResolveDelayUnregisteredHostReturnsZero(t *testing.T) {
	rl := limiter.NewConcurrentRateLimiter()
	rl.SetBaseDelay(1 * time.Second)

	if delay := rl.ResolveDelay("unregistered.com"); delay != 0 {
		t.Errorf("ResolveDelay for unregistered host = %v, want 0", delay)
	}
}

func TestRateLimiterResolveDelayPrecedence(t *testing.T) {
	t.Run("base delay only", func(t *testing.T) {
		rl := limiter.NewConcurrentRateLimiter()
		rl.SetBaseDelay(500 * time.Millisecond)
		rl.SetJitter(0)
		host := "example.com"
		rl.MarkLastFetchAsNow(host)

		delay := rl.ResolveDelay(host)
		if delay < 490*time.Millisecond || delay > 500*time.Millisecond {
			t.Errorf("ResolveDelay = %v, want ~500ms", delay)
		}
	})

	t.Run("crawl delay overrides base", func(t *testing.T) {
		rl := limiter.NewConcurrentRateLimiter()
		rl.SetBaseDelay(100 * time.Millisecond)
		rl.SetJitter(0)
		host := "example.com"
		rl.SetCrawlDelay(host, 500*time.Millisecond)
		rl.MarkLastFetchAsNow(host)

		if delay := rl.ResolveDelay(host); delay < 490*time.Millisecond {
			t.Errorf("ResolveDelay = %v, want at least 490ms (crawlDelay should win)", delay)
		}
	})

	t.Run("backoff delay takes precedence", func(t *testing.T) {
		rl := limiter.NewConcurrentRateLimiter()
		rl.SetBaseDelay(100 * time.Millisecond)
		rl.SetJitter(0)
		host := "example.com"
		rl.SetCrawlDelay(host, 200*time.Millisecond)
		rl.Backoff(host)
		rl.MarkLastFetchAsNow(host)

		if delay := rl.ResolveDelay(host); delay < 990*time.Millisecond {
			t.Errorf("ResolveDelay = %v, want at least 990ms (backoff should win)", delay)
		}
	})

	t.Run("elapsed time clears delay", func(t *testing.T) {
		rl := limiter.NewConcurrentRateLimiter()
		rl.SetBaseDelay(100 * time.Millisecond)
		rl.SetJitter(0)
		host := "example.com"
		rl.MarkLastFetchAsNow(host)
		time.Sleep(150 * time.Millisecond)

		if delay := rl.ResolveDelay(host); delay != 0 {
			t.Errorf("ResolveDelay after elapsed time = %v, want 0", delay)
		}
	})
}

func TestRateLimiterResolveDelayJitterStaysWithinConfiguredMax(t *testing.T) {
	rl := limiter.NewConcurrentRateLimiter()
	rl.SetBaseDelay(100 * time.Millisecond)
	rl.SetJitter(50 * time.Millisecond)
	rl.SetRandomSeed(42)
	host := "example.com"
	rl.MarkLastFetchAsNow(host)

	delay := rl.ResolveDelay(host)
	if delay < 95*time.Millisecond || delay > 160*time.Millisecond {
		t.Errorf("ResolveDelay = %v, want between ~100ms and ~160ms", delay)
	}
}

func TestRateLimiterResolveDelayDeterministicWithSameSeed(t *testing.T) {
	const seed = int64(12345)
	rl1 := limiter.NewConcurrentRateLimiter()
	rl1.SetBaseDelay(1 * time.Second)
	rl1.SetJitter(100 * time.Millisecond)
	rl1.SetRandomSeed(seed)
	rl2 := limiter.NewConcurrentRateLimiter()
	rl2.SetBaseDelay(1 * time.Second)
	rl2.SetJitter(100 * time.Millisecond)
	rl2.SetRandomSeed(seed)

	host := "deterministic.example"
	const tolerance = 5 * time.Millisecond
	for i := 0; i < 5; i++ {
		rl1.MarkLastFetchAsNow(host)
		rl2.MarkLastFetchAsNow(host)
		d1, d2 := rl1.ResolveDelay(host), rl2.ResolveDelay(host)
		if d1 < d2-tolerance || d1 > d2+tolerance {
			t.Errorf("iteration %d: not deterministic, got %v and %v", i, d1, d2)
		}
	}
}

func TestRateLimiterSetRNG(t *testing.T) {
	rl := limiter.NewConcurrentRateLimiter()
	newRng := rand.New(rand.NewSource(99999))

	rl.SetRNG(newRng)

	if rl.RNG() != newRng {
		t.Error("SetRNG did not set rng correctly")
	}
}

// SetRNG(nil) must not leave the limiter unable to compute jitter.
func TestRateLimiterNilRNGIsReinitializedLazily(t *testing.T) {
	rl := limiter.NewConcurrentRateLimiter()
	rl.SetBaseDelay(500 * time.Millisecond)
	rl.SetJitter(0)

	var nilRng *rand.Rand
	rl.SetRNG(nilRng)

	host := "example.com"
	rl.MarkLastFetchAsNow(host)
	delay := rl.ResolveDelay(host)

	if rl.RNG() == nil {
		t.Error("rng should be lazily reinitialized after ResolveDelay with a nil rng")
	}
	if delay < 490*time.Millisecond || delay > 500*time.Millisecond {
		t.Errorf("ResolveDelay = %v, want ~500ms", delay)
	}
}
