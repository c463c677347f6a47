package failure_test

import (
	"testing"

	"github.com/Nwokike/museum-harvester/pkg/failure"
)

type stubError struct {
	severity failure.Severity
}

func (e *stubError) Error() string              { return "stub" }
func (e *stubError) Severity() failure.Severity { return e.severity }

func TestIsFatal(t *testing.T) {
	if failure.IsFatal(nil) {
		t.Error("nil error reported fatal")
	}
	if !failure.IsFatal(&stubError{severity: failure.SeverityFatal}) {
		t.Error("fatal error not reported fatal")
	}
	if failure.IsFatal(&stubError{severity: failure.SeverityRecoverable}) {
		t.Error("recoverable error reported fatal")
	}
}

func TestKindTransient(t *testing.T) {
	if !failure.KindTransientNetwork.Transient() {
		t.Error("transient-network must be retryable")
	}
	for _, kind := range []failure.Kind{
		failure.KindPermanentDenied,
		failure.KindParseMismatch,
		failure.KindResolutionUnavailable,
		failure.KindPersistenceIO,
		failure.KindUnknown,
	} {
		if kind.Transient() {
			t.Errorf("%s must not be retryable", kind)
		}
	}
}
