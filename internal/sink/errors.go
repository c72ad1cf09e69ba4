package sink

import (
	"fmt"

	"github.com/rohmanhakim/docs-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-crawler/pkg/failure"
)

type SinkErrorCause string

const (
	ErrCauseConflict       SinkErrorCause = "conflict"
	ErrCauseNetworkFailure SinkErrorCause = "network failure"
	ErrCauseWriteFailure   SinkErrorCause = "write failed"
	ErrCauseQueryFailure   SinkErrorCause = "query failed"
)

// SinkError is the classified error every WriteClient and QueryClient
// call returns. A Conflict-caused error is never logged-and-dropped:
// the Gateway re-publishes the record instead.
type SinkError struct {
	Message   string
	Retryable bool
	Cause     SinkErrorCause
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink error: %s", e.Cause)
}

func (e *SinkError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *SinkError) IsRetryable() bool {
	return e.Retryable
}

var _ failure.ClassifiedError = (*SinkError)(nil)

func mapSinkErrorToMetadataCause(err *SinkError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseConflict:
		return metadata.CauseInvariantViolation
	case ErrCauseNetworkFailure:
		return metadata.CauseNetworkFailure
	case ErrCauseWriteFailure, ErrCauseQueryFailure:
		return metadata.CauseStorageFailure
	default:
		return metadata.CauseUnknown
	}
}
