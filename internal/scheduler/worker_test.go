package scheduler

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rohmanhakim/docs-crawler/internal/bus"
	"github.com/rohmanhakim/docs-crawler/internal/extract"
	"github.com/rohmanhakim/docs-crawler/internal/fetch"
	"github.com/rohmanhakim/docs-crawler/internal/model"
	"github.com/rohmanhakim/docs-crawler/internal/parser"
	"github.com/rohmanhakim/docs-crawler/internal/pipeline"
)

// fakeFetcher returns a canned HTML payload forever, or a nil payload
// once exhausted, so tests can force exactly N non-empty cycles.
type fakeFetcher struct {
	mu        sync.Mutex
	remaining int32
}

func (f *fakeFetcher) Fetch(ctx context.Context, targetURL string, opts fetch.Options) (*fetch.Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.remaining <= 0 {
		return nil, nil
	}
	f.remaining--
	return &fetch.Payload{HTML: "<html></html>"}, nil
}

type fakeExtractor struct{}

func (fakeExtractor) Extract(ctx context.Context, payload extract.Payload, selectors map[model.Field]string) (model.RawExtraction, error) {
	return model.RawExtraction{
		model.FieldCompanyName: {"Acme"},
		model.FieldPosition:    {"Engineer"},
	}, nil
}

func testSite() model.SiteConfig {
	return model.SiteConfig{
		SiteID:         "acme",
		URL:            "https://acme.example/jobs",
		ParserKind:     model.ParserHTTPHTML,
		DateFormat:     "2006-01-02",
		Selectors:      map[model.Field]string{model.FieldCompanyName: ".company"},
		CadenceSeconds: 0,
	}
}

func newTestWorker(remainingCycles int32, b *bus.Bus, coord *Coordination, hk DuplicatePurger) *Worker {
	p := &parser.Parser{
		Fetcher:   &fakeFetcher{remaining: remainingCycles},
		Extractor: fakeExtractor{},
		Pipeline:  pipeline.New(),
	}
	w := NewWorker(testSite(), p, b, coord, hk, nil)
	w.QuietWindowPoll = time.Millisecond
	w.DrainPollInterval = time.Millisecond
	w.CadenceJitter = 0
	w.SetRNG(rand.New(rand.NewSource(1)))
	return w
}

func TestWorkerPublishesRowsThenStopsOnEmptyCycle(t *testing.T) {
	b := bus.New()
	coord := NewCoordination()
	w := newTestWorker(1, b, coord, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	subCtx, subCancel := context.WithTimeout(context.Background(), time.Second)
	defer subCancel()
	msg, ok := b.Subscribe(subCtx)
	if !ok {
		t.Fatalf("expected the worker to publish a batch")
	}
	if len(msg.Batch) != 1 || msg.Batch[0][model.FieldCompanyName] != "Acme" {
		t.Fatalf("unexpected published batch: %v", msg.Batch)
	}

	<-done
}

type countingPurger struct {
	calls atomic.Int32
}

func (p *countingPurger) PurgeDuplicates(ctx context.Context) {
	p.calls.Add(1)
}

func TestWorkerTriggersDuplicatePurgeWhenIdleAndDrained(t *testing.T) {
	b := bus.New()
	coord := NewCoordination()
	purger := &countingPurger{}
	w := newTestWorker(1, b, coord, purger)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	// Drain the one published batch so the worker's drain-poll succeeds.
	subCtx, subCancel := context.WithTimeout(context.Background(), time.Second)
	defer subCancel()
	if _, ok := b.Subscribe(subCtx); !ok {
		t.Fatalf("expected a published batch to drain")
	}

	<-done

	if purger.calls.Load() == 0 {
		t.Fatalf("expected PurgeDuplicates to be called once the sole worker goes idle with a drained bus")
	}
}

func TestWorkerStopsImmediatelyOnCanceledContext(t *testing.T) {
	b := bus.New()
	coord := NewCoordination()
	w := newTestWorker(0, b, coord, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected Run to return promptly on an already-canceled context")
	}
}

func TestJitterOffsetStaysWithinBounds(t *testing.T) {
	w := &Worker{CadenceJitter: 10 * time.Millisecond}
	w.SetRNG(rand.New(rand.NewSource(2)))
	for i := 0; i < 50; i++ {
		d := w.jitterOffset()
		if d < -10*time.Millisecond || d > 10*time.Millisecond {
			t.Fatalf("jitter offset %v out of bounds", d)
		}
	}
}
