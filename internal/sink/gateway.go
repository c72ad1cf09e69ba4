// Package sink implements the Sink Gateway: the single consumer of the
// Message Bus. It validates and caps each row into a SinkRecord, paces
// outbound writes to stay under the downstream API's rate ceiling, and
// re-publishes any record the sink reports a conflict on.
package sink

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rohmanhakim/docs-crawler/internal/bus"
	"github.com/rohmanhakim/docs-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-crawler/internal/model"
	"github.com/rohmanhakim/docs-crawler/pkg/failure"
	"github.com/rohmanhakim/docs-crawler/pkg/retry"
	"github.com/rohmanhakim/docs-crawler/pkg/timeutil"
)

const (
	defaultWriteSpacing   = 350 * time.Millisecond
	defaultCleanerPause   = time.Second
	defaultMinCycleTime   = 500 * time.Millisecond
	defaultTargetCycleTime = time.Second
)

// Gateway is the Bus's sole consumer.
type Gateway struct {
	Bus          *bus.Bus
	Client       WriteClient
	MetadataSink metadata.MetadataSink

	// CleanerActive is read on every batch; the Housekeeper's old-entry
	// deletion task flips it for the duration of its run so the Gateway
	// switches to the slower, Housekeeper-aware pacing.
	CleanerActive *atomic.Bool

	WriteSpacing    time.Duration
	CleanerPause    time.Duration
	MinCycleTime    time.Duration
	TargetCycleTime time.Duration

	// RetryParam governs how many times a retryable write failure
	// (network failure, transient write failure) is retried before the
	// record is recorded as an error and dropped. NewGateway sets 3
	// attempts with a 200ms initial backoff doubling up to 5s. With
	// MaxAttempts below 1, retry.Retry makes no write attempt and the
	// record is recorded as an error and dropped.
	RetryParam retry.RetryParam
}

func NewGateway(b *bus.Bus, client WriteClient, metadataSink metadata.MetadataSink, cleanerActive *atomic.Bool) *Gateway {
	if cleanerActive == nil {
		cleanerActive = &atomic.Bool{}
	}
	return &Gateway{
		Bus:             b,
		Client:          client,
		MetadataSink:    metadataSink,
		CleanerActive:   cleanerActive,
		WriteSpacing:    defaultWriteSpacing,
		CleanerPause:    defaultCleanerPause,
		MinCycleTime:    defaultMinCycleTime,
		TargetCycleTime: defaultTargetCycleTime,
		RetryParam: retry.NewRetryParam(
			0, 0, time.Now().UnixNano(), 3,
			timeutil.NewBackoffParam(200*time.Millisecond, 2.0, 5*time.Second),
		),
	}
}

// Run drains the Bus until ctx is canceled. Per the cancellation
// contract, the current in-flight batch is allowed to finish before
// Run returns.
func (g *Gateway) Run(ctx context.Context) {
	for {
		msg, ok := g.Bus.Subscribe(ctx)
		if !ok {
			return
		}
		g.processBatch(ctx, msg)
	}
}

func (g *Gateway) processBatch(ctx context.Context, msg bus.Message) {
	started := time.Now()

	type pair struct {
		row    model.Row
		record model.SinkRecord
	}
	var pairs []pair
	for _, row := range msg.Batch {
		record, ok := ToSinkRecord(row)
		if !ok {
			continue
		}
		pairs = append(pairs, pair{row: row, record: record})
	}

	if g.CleanerActive.Load() {
		n := len(pairs)
		lead := pairs
		if n > 2 {
			lead = pairs[:2]
		}
		for i, p := range lead {
			if i > 0 {
				g.sleep(ctx, g.WriteSpacing)
			}
			g.write(ctx, msg.ParserTag, p.row, p.record)
		}
		if n > 2 {
			g.sleep(ctx, g.CleanerPause)
			g.write(ctx, msg.ParserTag, pairs[2].row, pairs[2].record)
		}
	} else {
		for i, p := range pairs {
			if i > 0 {
				g.sleep(ctx, g.WriteSpacing)
			}
			g.write(ctx, msg.ParserTag, p.row, p.record)
		}
	}

	elapsed := time.Since(started)
	remaining := g.TargetCycleTime - elapsed
	if remaining < g.MinCycleTime {
		remaining = g.MinCycleTime
	}
	g.sleep(ctx, remaining)
}

// write issues one POST, retrying transient failures per RetryParam. On
// conflict the record is re-published to the Bus under its original
// parser tag so the next pass sees the downstream state resolved; any
// other failure, including one that exhausts its retries, is recorded
// and dropped.
func (g *Gateway) write(ctx context.Context, tag model.ParserKind, row model.Row, record model.SinkRecord) {
	result := retry.Retry(g.RetryParam, func() (struct{}, failure.ClassifiedError) {
		err := g.Client.Write(ctx, record)
		if err == nil {
			return struct{}{}, nil
		}
		var sinkErr *SinkError
		if errors.As(err, &sinkErr) {
			if sinkErr.Cause == ErrCauseConflict {
				// Conflict is resolved by re-publishing to the Bus, not by
				// retrying the same write again, so stop the loop here.
				conflict := *sinkErr
				conflict.Retryable = false
				return struct{}{}, &conflict
			}
			return struct{}{}, sinkErr
		}
		return struct{}{}, &SinkError{Message: err.Error(), Retryable: false, Cause: ErrCauseWriteFailure}
	})
	if result.IsSuccess() {
		return
	}

	var sinkErr *SinkError
	if errors.As(result.Err(), &sinkErr) && sinkErr.Cause == ErrCauseConflict {
		g.Bus.Publish(tag, []model.Row{row})
		return
	}
	g.recordError(record, result.Err())
}

func (g *Gateway) recordError(record model.SinkRecord, err error) {
	if g.MetadataSink == nil {
		return
	}
	var sinkErr *SinkError
	cause := metadata.CauseUnknown
	if errors.As(err, &sinkErr) {
		cause = mapSinkErrorToMetadataCause(sinkErr)
	}
	g.MetadataSink.RecordError(
		time.Now(),
		"sink",
		"Gateway.write",
		cause,
		err.Error(),
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrField, record.CompanyName)},
	)
}

func (g *Gateway) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
