package failure

// Kind is the closed classification of pipeline failures. It is part
// of the retry contract: backoff policy consults it, and the run
// summary reports per-kind counts.
type Kind string

const (
	// KindTransientNetwork covers timeouts, connection resets, 5xx
	// and 429 responses. Retried under the backoff policy.
	KindTransientNetwork Kind = "transient-network"
	// KindPermanentDenied covers 401/403 and other 4xx responses.
	// Terminal for the task, never retried.
	KindPermanentDenied Kind = "permanent-denied"
	// KindParseMismatch means an adapter could not extract the
	// structure it expected from fetched bytes. The page is skipped.
	KindParseMismatch Kind = "parse-mismatch"
	// KindResolutionUnavailable means no image tier was confirmed
	// servable. Degrades the image ref, does not fail the record.
	KindResolutionUnavailable Kind = "resolution-unavailable"
	// KindPersistenceIO is a dataset or image store write failure.
	// Always fatal to the run.
	KindPersistenceIO Kind = "persistence-io-failure"
	// KindUnknown is the fallback when no kind fits.
	KindUnknown Kind = "unknown"
)

// Transient reports whether errors of this kind may succeed on retry.
func (k Kind) Transient() bool {
	return k == KindTransientNetwork
}
