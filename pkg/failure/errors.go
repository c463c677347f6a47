package failure

// Severity drives orchestrator control flow: fatal errors abort the
// run, recoverable errors finalize the offending task and let the
// drain continue.
type Severity int

const (
	SeverityFatal Severity = iota
	SeverityRecoverable
)

// ClassifiedError is the error contract every pipeline package
// returns across its boundary. Raw errors never cross packages.
type ClassifiedError interface {
	error
	Severity() Severity
}

// IsFatal reports whether err must abort the whole run.
// A nil error is never fatal.
func IsFatal(err ClassifiedError) bool {
	return err != nil && err.Severity() == SeverityFatal
}
