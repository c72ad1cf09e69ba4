// Package app is the composition root: it owns every long-lived,
// process-wide resource (Tracker, robots Advisor/Refresher, browser
// pool, shared HTTP client, Message Bus, Sink Gateway, Housekeeper,
// one Worker per site) and exposes an explicit Start/Shutdown pair in
// place of the source's construct-and-await singletons.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rohmanhakim/docs-crawler/internal/bus"
	"github.com/rohmanhakim/docs-crawler/internal/config"
	"github.com/rohmanhakim/docs-crawler/internal/fetch"
	"github.com/rohmanhakim/docs-crawler/internal/housekeeper"
	"github.com/rohmanhakim/docs-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-crawler/internal/model"
	"github.com/rohmanhakim/docs-crawler/internal/parser"
	"github.com/rohmanhakim/docs-crawler/internal/robots"
	"github.com/rohmanhakim/docs-crawler/internal/robots/cache"
	"github.com/rohmanhakim/docs-crawler/internal/scheduler"
	"github.com/rohmanhakim/docs-crawler/internal/sink"
	"github.com/rohmanhakim/docs-crawler/internal/tracker"
	"github.com/rohmanhakim/docs-crawler/pkg/limiter"
	"github.com/rohmanhakim/docs-crawler/pkg/retry"
	"github.com/rohmanhakim/docs-crawler/pkg/timeutil"
)

// notionAPIBase is the downstream sink's wire endpoint, per section 6's
// external interface contract.
const notionAPIBase = "https://api.notion.com/v1"

// App wires every component named in the package map together. Apart
// from Recorder, fields are unexported: callers interact with it through
// New, Start and Shutdown.
type App struct {
	Recorder *metadata.Recorder

	tracker     *tracker.Tracker
	browserPool *fetch.BrowserPool
	httpClient  *http.Client
	advisor     *robots.Advisor
	refresher   *robots.Refresher
	rateLimiter limiter.RateLimiter

	bus         *bus.Bus
	gateway     *sink.Gateway
	housekeeper *housekeeper.Housekeeper

	coordination *scheduler.Coordination
	workers      []*scheduler.Worker

	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New assembles an App from its fully-loaded configuration: process
// settings, sink credentials, the site catalog and the merged global
// filter set. No goroutine is started until Start is called.
func New(settings config.Settings, secrets config.Secrets, sites []model.SiteConfig, globalFilters model.FilterSet, logger *slog.Logger) *App {
	recorder := metadata.NewRecorder(logger)

	httpClient := &http.Client{Timeout: 30 * time.Second}

	rateLimiter := limiter.NewConcurrentRateLimiter()
	rateLimiter.SetBaseDelay(time.Second)
	rateLimiter.SetRandomSeed(settings.RandomSeed())
	rateLimiter.SetBackoffParam(timeutil.NewBackoffParam(
		settings.BackoffInitialDuration(), settings.BackoffMultiplier(), settings.BackoffMaxDuration(),
	))

	robotsFetcher := robots.NewRobotsFetcher(recorder, settings.UserAgent(), cache.NewMemoryCache())
	advisor := robots.NewAdvisor(robotsFetcher, cache.NewMemoryCache(), recorder)
	refresher := robots.NewRefresher(advisor, settings.UserAgent(), baseURLsBySite(sites), 24*time.Hour, recorder)

	trk := tracker.New()
	pool := fetch.NewBrowserPool(settings.BrowserPoolSize())

	b := bus.New()

	writeClient := sink.NewHTTPWriteClient(httpClient, notionAPIBase+"/pages", secrets.SinkToken, secrets.DatabaseID)
	queryClient := sink.NewHTTPQueryClient(httpClient, notionAPIBase+"/data_sources/"+secrets.DataSourceID+"/query", secrets.SinkToken)
	deleteClient := sink.NewHTTPDeleteClient(httpClient, notionAPIBase+"/pages", secrets.SinkToken)

	cleanerActive := &atomic.Bool{}

	gateway := sink.NewGateway(b, writeClient, recorder, cleanerActive)
	gateway.WriteSpacing = time.Second / time.Duration(settings.SinkWriteRatePerSec())

	hk := housekeeper.New(queryClient, deleteClient, recorder, cleanerActive)
	hk.OldEntryInterval = settings.OldEntryInterval()
	hk.OldEntryAge = settings.OldEntryCutoff()
	hk.OldEntryDeleteSpacing = settings.OldEntryDeleteRate()
	hk.DuplicateSpacing = settings.DupPurgeDeleteRate()

	builder := &parser.Builder{
		HTTPClient:    httpClient,
		Advisor:       advisor,
		RateLimiter:   rateLimiter,
		BrowserPool:   pool,
		Tracker:       trk,
		MetadataSink:  recorder,
		GlobalFilters: globalFilters,
		JSONAPIKey:    secrets.JSONAPIKey,
		RetryParam: retry.NewRetryParam(
			0,
			0,
			settings.RandomSeed(),
			settings.MaxAttempt(),
			timeutil.NewBackoffParam(settings.BackoffInitialDuration(), settings.BackoffMultiplier(), settings.BackoffMaxDuration()),
		),
	}

	coord := scheduler.NewCoordination()
	workers := make([]*scheduler.Worker, 0, len(sites))
	for _, site := range sites {
		w := scheduler.NewWorker(site, builder.Build(site.ParserKind), b, coord, hk, recorder)
		w.QuietWindowPoll = settings.QuietWindowPollInterval()
		w.DrainPollInterval = settings.DrainPollInterval()
		w.CadenceJitter = settings.CycleJitter()
		workers = append(workers, w)
	}

	return &App{
		Recorder:     recorder,
		tracker:      trk,
		browserPool:  pool,
		httpClient:   httpClient,
		advisor:      advisor,
		refresher:    refresher,
		rateLimiter:  rateLimiter,
		bus:          b,
		gateway:      gateway,
		housekeeper:  hk,
		coordination: coord,
		workers:      workers,
	}
}

// Start spawns the robots Refresher, the Sink Gateway, the
// Housekeeper's old-entry deletion timer and one goroutine per site
// Worker, all bound to a child of ctx. It returns that child context
// so callers can observe cancellation without holding a reference to
// the App's internal CancelFunc.
func (a *App) Start(ctx context.Context) context.Context {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.started = true

	a.refresher.Start(runCtx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.gateway.Run(runCtx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.housekeeper.RunOldEntryDeletion(runCtx)
	}()

	for _, w := range a.workers {
		w := w
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			w.Run(runCtx)
		}()
	}

	return runCtx
}

// Shutdown cancels the single context shared by the Workers, the
// Housekeeper and the Gateway, then stops the robots Refresher, and
// waits for every goroutine to finish or for ctx to expire, whichever
// comes first. All tasks see the cancellation at once; no order is
// applied among them. Each task's Run checks the context at its own
// suspension points.
func (a *App) Shutdown(ctx context.Context) {
	if !a.started {
		return
	}
	if a.cancel != nil {
		a.cancel()
	}
	a.refresher.Stop()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
}

// baseURLsBySite builds the request-URL -> base-URL map the robots
// Refresher needs to revalidate every cached entry.
func baseURLsBySite(sites []model.SiteConfig) map[string]string {
	out := make(map[string]string, len(sites))
	for _, s := range sites {
		base := s.BaseURL
		if base == "" {
			base = s.URL
		}
		out[s.URL] = base
	}
	return out
}
