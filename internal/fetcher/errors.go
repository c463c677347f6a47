package fetcher

import (
	"fmt"

	"github.com/Nwokike/museum-harvester/pkg/failure"
)

type FetchErrorCause string

const (
	ErrCauseTimeout               FetchErrorCause = "timeout"
	ErrCauseNetworkFailure        FetchErrorCause = "network issues"
	ErrCauseReadResponseBodyError FetchErrorCause = "failed to read response body"
	ErrCauseContentTypeInvalid    FetchErrorCause = "unexpected content type"
	ErrCauseRequestDenied         FetchErrorCause = "denied"
	ErrCauseRequestNotFound       FetchErrorCause = "not found"
	ErrCauseRequestTooMany        FetchErrorCause = "too many requests"
	ErrCauseRequest5xx            FetchErrorCause = "5xx"
)

type FetchError struct {
	Message    string
	Retryable  bool
	Cause      FetchErrorCause
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetcher error: %s", e.Cause)
}

func (e *FetchError) Severity() failure.Severity {
	// Fetch failures never abort the run on their own; the scheduler
	// decides retry vs terminal per task.
	return failure.SeverityRecoverable
}

// IsRetryable returns whether this error is retryable
func (e *FetchError) IsRetryable() bool {
	return e.Retryable
}

// Kind maps fetcher-local error semantics onto the canonical failure
// kind table consumed by the backoff policy and the run summary.
func (e *FetchError) Kind() failure.Kind {
	switch e.Cause {
	case ErrCauseTimeout, ErrCauseNetworkFailure, ErrCauseRequest5xx,
		ErrCauseRequestTooMany, ErrCauseReadResponseBodyError:
		return failure.KindTransientNetwork
	case ErrCauseRequestDenied, ErrCauseRequestNotFound, ErrCauseContentTypeInvalid:
		return failure.KindPermanentDenied
	default:
		return failure.KindUnknown
	}
}
