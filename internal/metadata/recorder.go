package metadata

import (
	"time"

	"go.uber.org/zap"

	"github.com/Nwokike/museum-harvester/pkg/failure"
)

/*
Metadata is observational only.

Recorded events must not:
- influence scheduling, retries, or run termination
- be read back by any pipeline component

Events are recorded synchronously in the order a single worker emits
them; no global ordering across workers is guaranteed. The run summary
is derived from orchestrator state, not from recorded metadata.
*/

// MetadataSink is the write-only event boundary injected into every
// pipeline component.
type MetadataSink interface {
	RecordFetch(
		fetchUrl string,
		httpStatus int,
		duration time.Duration,
		attemptCount int,
	)
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		kind failure.Kind,
		details string,
		attrs []Attribute,
	)
	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
}

// RunFinalizer records the terminal summary of a completed run,
// exactly once, derived from orchestrator state.
type RunFinalizer interface {
	RecordFinalRunStats(
		runID string,
		recordsWritten int,
		imagesStored int,
		imagesDeduplicated int,
		imagesDegraded int,
		tasksFailed int,
		duration time.Duration,
	)
}

// Recorder logs structured crawl events through zap. It imposes no
// other backend and holds no aggregate state.
type Recorder struct {
	logger *zap.Logger
}

func NewRecorder(logger *zap.Logger) Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Recorder{
		logger: logger,
	}
}

func (r *Recorder) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	attemptCount int,
) {
	r.logger.Debug("fetch",
		zap.String("url", fetchUrl),
		zap.Int("status", httpStatus),
		zap.Duration("duration", duration),
		zap.Int("attempt_count", attemptCount),
	)
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	kind failure.Kind,
	details string,
	attrs []Attribute,
) {
	fields := []zap.Field{
		zap.Time("observed_at", observedAt),
		zap.String("package", packageName),
		zap.String("action", action),
		zap.String("kind", string(kind)),
		zap.String("details", details),
	}
	for _, attr := range attrs {
		fields = append(fields, zap.String(string(attr.Key), attr.Value))
	}
	r.logger.Warn("pipeline error", fields...)
}

func (r *Recorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	fields := []zap.Field{
		zap.String("kind", string(kind)),
		zap.String("path", path),
	}
	for _, attr := range attrs {
		fields = append(fields, zap.String(string(attr.Key), attr.Value))
	}
	r.logger.Info("artifact", fields...)
}

func (r *Recorder) RecordFinalRunStats(
	runID string,
	recordsWritten int,
	imagesStored int,
	imagesDeduplicated int,
	imagesDegraded int,
	tasksFailed int,
	duration time.Duration,
) {
	r.logger.Info("run finished",
		zap.String("run_id", runID),
		zap.Int("records_written", recordsWritten),
		zap.Int("images_stored", imagesStored),
		zap.Int("images_deduplicated", imagesDeduplicated),
		zap.Int("images_degraded", imagesDegraded),
		zap.Int("tasks_failed", tasksFailed),
		zap.Duration("duration", duration),
	)
}

// NoopSink implements MetadataSink and RunFinalizer but does nothing.
// Tests inject it when recorded events are irrelevant.
type NoopSink struct{}

func (n *NoopSink) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	attemptCount int,
) {
}

func (n *NoopSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	kind failure.Kind,
	details string,
	attrs []Attribute,
) {
}

func (n *NoopSink) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {}

func (n *NoopSink) RecordFinalRunStats(
	runID string,
	recordsWritten int,
	imagesStored int,
	imagesDeduplicated int,
	imagesDegraded int,
	tasksFailed int,
	duration time.Duration,
) {
}
