// Package bus implements the Message Bus: a single unbounded FIFO queue
// between every site Worker (producer) and the Sink Gateway (the sole
// consumer).
package bus

import (
	"context"
	"sync"

	"github.com/rohmanhakim/docs-crawler/internal/frontier"
	"github.com/rohmanhakim/docs-crawler/internal/model"
)

// maxBatchSize is the spec's publish-time batching cap: a Worker's row
// sequence is split into batches of at most this many rows before being
// enqueued, so the Gateway never has to pace more than a handful of
// writes per published chunk.
const maxBatchSize = 3

// Message is one queued unit: a parser tag plus the batch of rows
// produced under it.
type Message struct {
	ParserTag model.ParserKind
	Batch     []model.Row
}

// Bus is safe for concurrent use by many producers and one consumer.
type Bus struct {
	mu        sync.Mutex
	queue     frontier.FIFOQueue[Message]
	producers int
	wake      chan struct{}
}

func New() *Bus {
	return &Bus{wake: make(chan struct{}, 1)}
}

func (b *Bus) notify() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Publish splits rows into batches of at most maxBatchSize and enqueues
// them in order under tag. It tracks itself as an in-flight producer for
// the duration of the call so Drained can distinguish "queue is empty"
// from "queue is empty and nobody is about to add to it".
func (b *Bus) Publish(tag model.ParserKind, rows []model.Row) {
	b.mu.Lock()
	b.producers++
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.producers--
		b.mu.Unlock()
	}()

	for start := 0; start < len(rows); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := append([]model.Row(nil), rows[start:end]...)

		b.mu.Lock()
		b.queue.Enqueue(Message{ParserTag: tag, Batch: batch})
		b.mu.Unlock()
		b.notify()
	}
}

// Subscribe blocks until a message is available or ctx is canceled. A
// false second return means ctx was canceled before anything arrived.
func (b *Bus) Subscribe(ctx context.Context) (Message, bool) {
	for {
		b.mu.Lock()
		msg, ok := b.queue.Dequeue()
		b.mu.Unlock()
		if ok {
			return msg, true
		}

		select {
		case <-ctx.Done():
			return Message{}, false
		case <-b.wake:
		}
	}
}

// Drained reports whether the queue is empty and no producer is
// currently inside Publish — the Scheduler's signal that it is safe to
// trigger the Housekeeper's duplicate purge.
func (b *Bus) Drained() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.Size() == 0 && b.producers == 0
}
