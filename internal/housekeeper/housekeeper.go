// Package housekeeper implements the Housekeeper's two periodic sink
// maintenance tasks: age-based deletion of old entries and duplicate
// purge on an idle bus.
package housekeeper

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rohmanhakim/docs-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-crawler/internal/sink"
)

const (
	defaultOldEntryInterval     = 48 * time.Hour
	defaultOldEntryAge          = 48 * time.Hour
	defaultOldEntryDeleteSpacing = time.Second
	defaultDuplicateSpacing      = 500 * time.Millisecond
)

// Housekeeper owns the cleaner_active flag the Gateway reads (Workers
// wait on the Coordination quiet window instead). Eventual consistency between writer and readers is acceptable
// per the concurrency model; the flag is advisory rate-shaping only.
type Housekeeper struct {
	Query        sink.QueryClient
	Delete       sink.DeleteClient
	MetadataSink metadata.MetadataSink
	CleanerActive *atomic.Bool

	OldEntryInterval      time.Duration
	OldEntryAge           time.Duration
	OldEntryDeleteSpacing time.Duration
	DuplicateSpacing      time.Duration
}

func New(query sink.QueryClient, del sink.DeleteClient, metadataSink metadata.MetadataSink, cleanerActive *atomic.Bool) *Housekeeper {
	if cleanerActive == nil {
		cleanerActive = &atomic.Bool{}
	}
	return &Housekeeper{
		Query:                 query,
		Delete:                del,
		MetadataSink:          metadataSink,
		CleanerActive:         cleanerActive,
		OldEntryInterval:      defaultOldEntryInterval,
		OldEntryAge:           defaultOldEntryAge,
		OldEntryDeleteSpacing: defaultOldEntryDeleteSpacing,
		DuplicateSpacing:      defaultDuplicateSpacing,
	}
}

// RunOldEntryDeletion ticks every OldEntryInterval until ctx is
// canceled, running one deletion pass per tick.
func (h *Housekeeper) RunOldEntryDeletion(ctx context.Context) {
	ticker := time.NewTicker(h.OldEntryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.deleteOldEntries(ctx)
		}
	}
}

func (h *Housekeeper) deleteOldEntries(ctx context.Context) {
	h.CleanerActive.Store(true)
	defer h.CleanerActive.Store(false)

	records, err := h.Query.QueryAll(ctx)
	if err != nil {
		h.recordError("deleteOldEntries", err)
		return
	}

	cutoff := time.Now().Add(-h.OldEntryAge)
	for i, rec := range records {
		if !rec.CreatedTime.Before(cutoff) {
			continue
		}
		if i > 0 {
			h.sleep(ctx, h.OldEntryDeleteSpacing)
		}
		if err := h.Delete.Delete(ctx, rec.ID); err != nil {
			h.recordError("deleteOldEntries", err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// PurgeDuplicates is invoked by the Scheduler once every Worker is idle
// and the bus has drained. A duplicate is any record sharing
// (company_name, position) with an earlier one; the earlier record is
// kept.
func (h *Housekeeper) PurgeDuplicates(ctx context.Context) {
	records, err := h.Query.QueryAll(ctx)
	if err != nil {
		h.recordError("PurgeDuplicates", err)
		return
	}

	seen := make(map[duplicateKey]bool, len(records))
	first := true
	for _, rec := range records {
		key := duplicateKey{companyName: rec.CompanyName, position: rec.Position}
		if seen[key] {
			if !first {
				h.sleep(ctx, h.DuplicateSpacing)
			}
			first = false
			if err := h.Delete.Delete(ctx, rec.ID); err != nil {
				h.recordError("PurgeDuplicates", err)
			}
			if ctx.Err() != nil {
				return
			}
			continue
		}
		seen[key] = true
	}
}

type duplicateKey struct {
	companyName string
	position    string
}

func (h *Housekeeper) recordError(op string, err error) {
	if h.MetadataSink == nil {
		return
	}
	var sinkErr *sink.SinkError
	cause := metadata.CauseUnknown
	if errors.As(err, &sinkErr) {
		cause = metadata.CauseStorageFailure
	}
	h.MetadataSink.RecordError(time.Now(), "housekeeper", op, cause, err.Error(), nil)
}

func (h *Housekeeper) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
