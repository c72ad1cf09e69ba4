// Package scheduler drives one Worker goroutine per configured site:
// each Worker repeatedly parses its site, publishes whatever rows it
// finds to the Message Bus, and — once every Worker is simultaneously
// idle and the bus has drained — triggers the Housekeeper's duplicate
// purge while the rest back off.
package scheduler

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rohmanhakim/docs-crawler/internal/bus"
	"github.com/rohmanhakim/docs-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-crawler/internal/model"
	"github.com/rohmanhakim/docs-crawler/internal/parser"
)

const (
	defaultQuietWindowPoll   = 12 * time.Minute
	defaultDrainPollInterval = 5 * time.Minute
	defaultCadenceJitter     = 45 * time.Minute
)

// Coordination is the state shared by every Worker in a process: the
// count of Workers currently mid-cycle, and whether the Housekeeper's
// duplicate-purge quiet window is in effect. Eventual consistency
// between the Worker that sets quietWindowActive and the Workers that
// read it is acceptable; both fields are plain atomics rather than
// mutex-guarded, matching spec's cleaner_active flag.
type Coordination struct {
	activeCount       atomic.Int32
	quietWindowActive atomic.Bool
}

func NewCoordination() *Coordination {
	return &Coordination{}
}

// DuplicatePurger is the Worker's dependency on the Housekeeper's
// idle-triggered task. A narrow interface keeps the Worker from
// depending on the rest of the Housekeeper's surface (old-entry
// deletion, query/delete clients).
type DuplicatePurger interface {
	PurgeDuplicates(ctx context.Context)
}

// Worker owns one site's poll cycle. Site, Parser, Bus, Coordination
// and Housekeeper are fixed for the Worker's lifetime; only the
// internal cycle-empty flag and the injectable RNG mutate.
type Worker struct {
	Site         model.SiteConfig
	Parser       *parser.Parser
	Bus          *bus.Bus
	Coordination *Coordination
	Housekeeper  DuplicatePurger
	MetadataSink metadata.MetadataSink

	QuietWindowPoll   time.Duration
	DrainPollInterval time.Duration
	CadenceJitter     time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

func NewWorker(site model.SiteConfig, p *parser.Parser, b *bus.Bus, coord *Coordination, hk DuplicatePurger, metadataSink metadata.MetadataSink) *Worker {
	return &Worker{
		Site:              site,
		Parser:            p,
		Bus:               b,
		Coordination:      coord,
		Housekeeper:       hk,
		MetadataSink:      metadataSink,
		QuietWindowPoll:   defaultQuietWindowPoll,
		DrainPollInterval: defaultDrainPollInterval,
		CadenceJitter:     defaultCadenceJitter,
	}
}

// SetRNG injects a deterministic source for the cadence jitter; tests
// use this to make sleeps short and reproducible.
func (w *Worker) SetRNG(rng *rand.Rand) {
	w.mu.Lock()
	w.rng = rng
	w.mu.Unlock()
}

// Run is the per-site loop from spec's scheduler section, faithfully
// including its control-flow quirk: an empty cycle skips both the
// drain check and the bottom-of-loop cadence sleep, relying on the
// top-of-loop "last cycle was empty" branch to sleep instead.
func (w *Worker) Run(ctx context.Context) {
	lastCycleWasEmpty := false
	for {
		if ctx.Err() != nil {
			return
		}
		if lastCycleWasEmpty {
			if !w.sleepCadence(ctx) {
				return
			}
			lastCycleWasEmpty = false
		}
		for w.Coordination.quietWindowActive.Load() {
			if !w.sleep(ctx, w.QuietWindowPoll) {
				return
			}
		}

		w.Coordination.activeCount.Add(1)
		rows, err := w.Parser.Parse(ctx, w.Site)
		w.Coordination.activeCount.Add(-1)
		if err != nil {
			w.recordError(err)
		}
		if rows == nil {
			lastCycleWasEmpty = true
			continue
		}
		w.Bus.Publish(w.Site.ParserKind, rows)

		if w.Coordination.activeCount.Load() == 0 {
			w.drainAndPurge(ctx)
		}
		if !w.sleepCadence(ctx) {
			return
		}
	}
}

func (w *Worker) drainAndPurge(ctx context.Context) {
	for !w.Bus.Drained() {
		if !w.sleep(ctx, w.DrainPollInterval) {
			return
		}
	}
	w.Coordination.quietWindowActive.Store(true)
	defer w.Coordination.quietWindowActive.Store(false)
	if w.Housekeeper != nil {
		w.Housekeeper.PurgeDuplicates(ctx)
	}
}

func (w *Worker) sleepCadence(ctx context.Context) bool {
	base := time.Duration(w.Site.CadenceSeconds) * time.Second
	d := base + w.jitterOffset()
	if d < 0 {
		d = 0
	}
	return w.sleep(ctx, d)
}

func (w *Worker) jitterOffset() time.Duration {
	if w.CadenceJitter <= 0 {
		return 0
	}
	w.mu.Lock()
	if w.rng == nil {
		w.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	rng := w.rng
	w.mu.Unlock()

	span := int64(2*w.CadenceJitter) + 1
	return time.Duration(rng.Int63n(span)) - w.CadenceJitter
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func (w *Worker) recordError(err error) {
	if w.MetadataSink == nil {
		return
	}
	w.MetadataSink.RecordError(
		time.Now(),
		"scheduler",
		"Worker.Run",
		metadata.CauseUnknown,
		err.Error(),
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrSiteID, w.Site.SiteID)},
	)
}
