package iiif

import (
	"fmt"

	"github.com/Nwokike/museum-harvester/pkg/failure"
)

type ResolveErrorCause string

const (
	ErrCauseDescriptorInvalid ResolveErrorCause = "descriptor unparseable"
	ErrCauseNoCandidates      ResolveErrorCause = "no candidate urls"
)

type ResolveError struct {
	Message string
	Cause   ResolveErrorCause
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve error: %s", e.Cause)
}

func (e *ResolveError) Severity() failure.Severity {
	// Image absence is never fatal to the overall run.
	return failure.SeverityRecoverable
}

func (e *ResolveError) Kind() failure.Kind {
	return failure.KindResolutionUnavailable
}
