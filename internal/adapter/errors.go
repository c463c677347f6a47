package adapter

import (
	"fmt"

	"github.com/Nwokike/museum-harvester/pkg/failure"
)

type ParseErrorCause string

const (
	ErrCauseNotHTML          ParseErrorCause = "not html"
	ErrCauseStructureMissing ParseErrorCause = "expected structure missing"
	ErrCauseBadSeed          ParseErrorCause = "seed invalid"
	ErrCauseBadTabular       ParseErrorCause = "tabular input invalid"
)

// ParseError is a parse-mismatch: the page is skipped and logged with
// enough context to reproduce, the run continues.
type ParseError struct {
	Message string
	Cause   ParseErrorCause
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("adapter error: %s, %s", e.Cause, e.Message)
}

func (e *ParseError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}

func (e *ParseError) Kind() failure.Kind {
	return failure.KindParseMismatch
}
