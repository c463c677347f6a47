package normalize

import (
	"fmt"

	"github.com/Nwokike/museum-harvester/pkg/failure"
)

type ConstraintErrorCause string

const (
	ErrCauseIdentityMissing ConstraintErrorCause = "identity missing"
)

type ConstraintError struct {
	Message string
	Cause   ConstraintErrorCause
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("normalize error: %s", e.Cause)
}

func (e *ConstraintError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}

func (e *ConstraintError) Kind() failure.Kind {
	return failure.KindParseMismatch
}
