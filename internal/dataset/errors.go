package dataset

import (
	"fmt"

	"github.com/Nwokike/museum-harvester/pkg/failure"
)

type StorageErrorCause string

const (
	ErrCauseOpen        StorageErrorCause = "open failed"
	ErrCauseWrite       StorageErrorCause = "write failed"
	ErrCauseCompact     StorageErrorCause = "compaction failed"
	ErrCauseNotAnImage  StorageErrorCause = "payload is not a supported image"
	ErrCauseIndexQuery  StorageErrorCause = "index query failed"
	ErrCauseIndexUpsert StorageErrorCause = "index upsert failed"
)

// StorageError is fatal: the run aborts rather than continue into a
// dataset that can no longer be written consistently.
type StorageError struct {
	Message string
	Cause   StorageErrorCause
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("dataset error: %s, %s", e.Cause, e.Message)
}

func (e *StorageError) Severity() failure.Severity {
	if e.Cause == ErrCauseNotAnImage {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *StorageError) Kind() failure.Kind {
	return failure.KindPersistenceIO
}
