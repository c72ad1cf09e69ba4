package metadata

import (
	"time"
)

type FetchEvent struct {
	fetchUrl    string
	httpStatus  int
	duration    time.Duration
	contentType string
	retryCount  int
	crawlDepth  int
}

/*
cycleStats
  - Represents a terminal, derived summary of one Worker's life (or the
    whole process at shutdown).
  - Contains only aggregate counts and durations.
  - Is not constructed by any package: neither the Scheduler nor the
    App computes it after a cycle or at shutdown.
  - Must not influence scheduling, retries, or cycle termination.
  - Must be constructed without reading metadata.
*/
type cycleStats struct {
	totalRows    int
	totalErrors  int
	totalBatches int
	durationMs   int64
}

// ArtifactKind classifies what RecordArtifact is reporting about.
type ArtifactKind string

const (
	ArtifactMarkdown  ArtifactKind = "markdown"
	ArtifactSinkWrite ArtifactKind = "sink_write"
	ArtifactBusBatch  ArtifactKind = "bus_batch"
)

type ArtifactRecord struct {
	Kind  ArtifactKind
	Path  string
	Attrs []Attribute
}

/*
	ErrorCause is a closed, canonical classification used exclusively for
	observability (logging, metrics, reporting).

	Rules:
	 - ErrorCause is for observability only.
	 - It must never be used to derive retry, continuation, or abort decisions.
	 - Any use of metadata.ErrorCause outside logging, metrics, or reporting is a design violation.
	 - ErrorCause MUST NOT influence control flow.
	 - ErrorCause MUST NOT be used for retry, continuation, or abort decisions.
	 - ErrorCause values MUST have stable, package-agnostic semantics.
	 - Pipeline packages MAY map their local errors to ErrorCause,
	   but MUST NOT invent new meanings.
	Non-goals:
	 - ErrorCause does not encode severity.
	 - ErrorCause does not imply retryability.
	 - ErrorCause does not imply cycle termination.
	 - ErrorCause does not imply correctness of downstream behavior.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

const (
	CauseUnknown ErrorCause = iota
	CauseNetworkFailure
	CausePolicyDisallow
	CauseContentInvalid
	CauseStorageFailure
	CauseInvariantViolation
	CauseRetryFailure
)

type ErrorRecord struct {
	packageName string
	action      string
	cause       ErrorCause
	errorString string
	observedAt  time.Time
	attrs       []Attribute
}

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

type AttributeKey string

const (
	AttrTime        AttributeKey = "time"
	AttrURL         AttributeKey = "url"
	AttrHost        AttributeKey = "host"
	AttrPath        AttributeKey = "path"
	AttrSiteID      AttributeKey = "site_id"
	AttrField       AttributeKey = "field"
	AttrHTTPStatus  AttributeKey = "http_status"
	AttrWritePath   AttributeKey = "write_path"
	AttrParserTag   AttributeKey = "parser_tag"
	AttrBatchSize   AttributeKey = "batch_size"
	AttrMessage     AttributeKey = "message"
)
