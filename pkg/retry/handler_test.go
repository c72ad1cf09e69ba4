package retry_test

import (
	"errors"
	"testing"
	"time"

	"github.com/rohmanhakim/docs-crawler/pkg/failure"
	"github.com/rohmanhakim/docs-crawler/pkg/retry"
	"github.com/rohmanhakim/docs-crawler/pkg/timeutil"
)

// defaultBackoffParam mirrors the shape internal/sink.Gateway and
// internal/fetch wire into NewRetryParam: a small initial delay, no
// unbounded growth surprises within a test's timeout.
func defaultBackoffParam() timeutil.BackoffParam {
	return timeutil.NewBackoffParam(10*time.Millisecond, 2.0, 30*time.Second)
}

// mockError is a minimal failure.ClassifiedError for exercising Retry
// without pulling in a real sink/fetch error type.
type mockError struct {
	msg       string
	retryable bool
	severity  failure.Severity
}

func (m *mockError) Error() string             { return m.msg }
func (m *mockError) Severity() failure.Severity { return m.severity }
func (m *mockError) IsRetryable() bool         { return m.retryable }

func TestRetrySuccessOnFirstAttempt(t *testing.T) {
	callCount := 0
	fn := func() (string, failure.ClassifiedError) {
		callCount++
		return "success", nil
	}

	params := retry.NewRetryParam(100*time.Millisecond, 10*time.Millisecond, 42, 3, defaultBackoffParam())
	result := retry.Retry(params, fn)

	if result.IsFailure() {
		t.Fatalf("expected no error, got: %v", result.Err())
	}
	if result.Value() != "success" || result.Attempts() != 1 || callCount != 1 {
		t.Fatalf("expected one successful call, got value=%q attempts=%d calls=%d", result.Value(), result.Attempts(), callCount)
	}
}

func TestRetrySuccessAfterRetries(t *testing.T) {
	callCount := 0
	fn := func() (string, failure.ClassifiedError) {
		callCount++
		if callCount < 3 {
			return "", &mockError{msg: "transient error", retryable: true, severity: failure.SeverityRecoverable}
		}
		return "success", nil
	}

	params := retry.NewRetryParam(10*time.Millisecond, 5*time.Millisecond, 42, 5, defaultBackoffParam())
	result := retry.Retry(params, fn)

	if result.IsFailure() {
		t.Fatalf("expected no error, got: %v", result.Err())
	}
	if result.Value() != "success" || result.Attempts() != 3 || callCount != 3 {
		t.Fatalf("expected success on the 3rd attempt, got value=%q attempts=%d calls=%d", result.Value(), result.Attempts(), callCount)
	}
}

func TestRetryNonRetryableErrorReturnsImmediately(t *testing.T) {
	callCount := 0
	expectedErr := &mockError{msg: "fatal error", retryable: false, severity: failure.SeverityFatal}
	fn := func() (string, failure.ClassifiedError) {
		callCount++
		return "", expectedErr
	}

	params := retry.NewRetryParam(100*time.Millisecond, 10*time.Millisecond, 42, 5, defaultBackoffParam())
	result := retry.Retry(params, fn)

	if result.IsSuccess() {
		t.Fatal("expected error, got nil")
	}
	if callCount != 1 {
		t.Fatalf("expected 1 call for a non-retryable error, got: %d", callCount)
	}
	if result.Err().Error() != expectedErr.Error() {
		t.Fatalf("expected error %q, got %q", expectedErr.Error(), result.Err().Error())
	}
}

func TestRetryExhaustedAttempts(t *testing.T) {
	callCount := 0
	fn := func() (int, failure.ClassifiedError) {
		callCount++
		return 0, &mockError{msg: "persistent transient error", retryable: true, severity: failure.SeverityRecoverable}
	}

	const maxAttempts = 3
	params := retry.NewRetryParam(10*time.Millisecond, 5*time.Millisecond, 42, maxAttempts, defaultBackoffParam())
	result := retry.Retry(params, fn)

	if result.IsSuccess() {
		t.Fatal("expected error after exhausting attempts, got nil")
	}
	if result.Attempts() != maxAttempts || callCount != maxAttempts {
		t.Fatalf("expected %d attempts, got attempts=%d calls=%d", maxAttempts, result.Attempts(), callCount)
	}
	if result.Err().Severity() != failure.SeverityRecoverable {
		t.Fatalf("expected SeverityRecoverable, got: %v", result.Err().Severity())
	}
	var retryErr *retry.RetryError
	errors.As(result.Err(), &retryErr)
	if retryErr.Cause != retry.ErrExhaustedAttempts {
		t.Fatalf("expected cause ErrExhaustedAttempts, got: %s", retryErr.Cause)
	}
}

func TestRetryMaxAttemptsLessThanOne(t *testing.T) {
	fn := func() (string, failure.ClassifiedError) { return "success", nil }

	params := retry.NewRetryParam(100*time.Millisecond, 10*time.Millisecond, 42, 0, defaultBackoffParam())
	result := retry.Retry(params, fn)

	if result.IsSuccess() {
		t.Fatal("expected error for MaxAttempts < 1, got nil")
	}
	var retryErr *retry.RetryError
	errors.As(result.Err(), &retryErr)
	if retryErr.Cause != retry.ErrZeroAttempt {
		t.Fatalf("expected cause ErrZeroAttempt, got: %s", retryErr.Cause)
	}
	if result.Attempts() != 0 {
		t.Fatalf("expected 0 attempts, got: %d", result.Attempts())
	}
}

// internal/sink.Gateway retries a struct{} success value; confirm Retry
// stays correct for a non-string type parameter too.
func TestRetryGenericTypePointer(t *testing.T) {
	type Data struct{ Value int }

	callCount := 0
	fn := func() (*Data, failure.ClassifiedError) {
		callCount++
		if callCount < 2 {
			return nil, &mockError{msg: "transient error", retryable: true, severity: failure.SeverityRecoverable}
		}
		return &Data{Value: 42}, nil
	}

	params := retry.NewRetryParam(10*time.Millisecond, 5*time.Millisecond, 42, 3, defaultBackoffParam())
	result := retry.Retry(params, fn)

	if result.IsFailure() {
		t.Fatalf("expected no error, got: %v", result.Err())
	}
	if result.Value() == nil || result.Value().Value != 42 {
		t.Fatalf("expected &Data{Value: 42}, got: %v", result.Value())
	}
}

func TestRetryMixedRetryableAndNonRetryable(t *testing.T) {
	callCount := 0
	fn := func() (string, failure.ClassifiedError) {
		callCount++
		switch callCount {
		case 1, 2:
			return "", &mockError{msg: "retryable error", retryable: true, severity: failure.SeverityRecoverable}
		case 3:
			return "", &mockError{msg: "non-retryable error", retryable: false, severity: failure.SeverityFatal}
		default:
			return "success", nil
		}
	}

	params := retry.NewRetryParam(10*time.Millisecond, 5*time.Millisecond, 42, 5, defaultBackoffParam())
	result := retry.Retry(params, fn)

	if result.IsSuccess() {
		t.Fatal("expected error, got nil")
	}
	if callCount != 3 {
		t.Fatalf("expected retry to stop at the non-retryable 3rd call, got: %d", callCount)
	}
}

// errorWithoutIsRetryable implements failure.ClassifiedError but not the
// duck-typed IsRetryable() interface Retry checks for.
type errorWithoutIsRetryable struct{ msg string }

func (e *errorWithoutIsRetryable) Error() string             { return e.msg }
func (e *errorWithoutIsRetryable) Severity() failure.Severity { return failure.SeverityRecoverable }

func TestRetryDefaultRetryableWhenNoIsRetryable(t *testing.T) {
	callCount := 0
	fn := func() (string, failure.ClassifiedError) {
		callCount++
		if callCount < 2 {
			return "", &errorWithoutIsRetryable{msg: "error without retryable flag"}
		}
		return "success", nil
	}

	params := retry.NewRetryParam(10*time.Millisecond, 5*time.Millisecond, 42, 3, defaultBackoffParam())
	result := retry.Retry(params, fn)

	if result.IsFailure() || callCount != 2 {
		t.Fatalf("expected default-to-retryable recovery on the 2nd call, got error=%v calls=%d", result.Err(), callCount)
	}
}
