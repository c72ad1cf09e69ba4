package metadata

/*
Metadata Collected
- Fetch timestamps
- HTTP status codes
- Content hashes
- Cycle/site identifiers

Logging Goals
- Debuggable worker behavior
- Post-run auditability
- Failure diagnostics

Structured logging is preferred.

Allowed:
- Primitive values
- Timestamps
- URLs (as values, not objects with behavior)
- Hashes
- Status codes
- Durations
- Identifiers (site id, parser tag)
*/

import (
	"log/slog"
	"time"
)

// MetadataSink is the observational seam every pipeline package reports
// through. It is never consulted for control-flow decisions: a call to
// any of these methods must be safe to skip, delay, or duplicate without
// changing program behavior.
type MetadataSink interface {
	RecordFetch(
		fetchUrl string,
		httpStatus int,
		duration time.Duration,
		contentType string,
		retryCount int,
		crawlDepth int,
	)
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		details string,
		attrs []Attribute,
	)
	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
	RecordAssetFetch(
		fetchUrl string,
		httpStatus int,
		duration time.Duration,
		retryCount int,
	)
}

// CrawlFinalizer records a one-shot terminal summary of rows, errors,
// batches and duration. Neither the Scheduler nor App.Shutdown calls it.
type CrawlFinalizer interface {
	RecordFinalCrawlStats(
		totalRows int,
		totalErrors int,
		totalBatches int,
		duration time.Duration,
	)
}

// Recorder is the default MetadataSink/CrawlFinalizer, backed by
// structured logging. It carries no buffering or control-flow state:
// every call is a direct, synchronous log emission.
type Recorder struct {
	logger *slog.Logger
}

// NewRecorder builds a Recorder around the given logger. A nil logger
// falls back to slog.Default().
func NewRecorder(logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{logger: logger}
}

func (r *Recorder) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	retryCount int,
	crawlDepth int,
) {
	r.logger.Info("fetch",
		"url", fetchUrl,
		"http_status", httpStatus,
		"duration", duration,
		"content_type", contentType,
		"retry_count", retryCount,
		"crawl_depth", crawlDepth,
	)
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	details string,
	attrs []Attribute,
) {
	args := []any{
		"package", packageName,
		"action", action,
		"cause", cause,
		"observed_at", observedAt,
		"details", details,
	}
	for _, a := range attrs {
		args = append(args, string(a.Key), a.Value)
	}
	r.logger.Warn("error", args...)
}

func (r *Recorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	args := []any{"kind", kind, "path", path}
	for _, a := range attrs {
		args = append(args, string(a.Key), a.Value)
	}
	r.logger.Info("artifact", args...)
}

func (r *Recorder) RecordAssetFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	retryCount int,
) {
	r.logger.Info("asset_fetch",
		"url", fetchUrl,
		"http_status", httpStatus,
		"duration", duration,
		"retry_count", retryCount,
	)
}

func (r *Recorder) RecordFinalCrawlStats(
	totalRows int,
	totalErrors int,
	totalBatches int,
	duration time.Duration,
) {
	r.logger.Info("cycle_stats",
		"total_rows", totalRows,
		"total_errors", totalErrors,
		"total_batches", totalBatches,
		"duration", duration,
	)
}
