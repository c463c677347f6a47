package metadata_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Nwokike/museum-harvester/internal/metadata"
	"github.com/Nwokike/museum-harvester/pkg/failure"
)

func newObservedRecorder() (metadata.Recorder, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return metadata.NewRecorder(zap.New(core)), logs
}

func TestRecordFetchEmitsStructuredEvent(t *testing.T) {
	rec, logs := newObservedRecorder()

	rec.RecordFetch("http://example.org/p", 200, 120*time.Millisecond, 2)

	entries := logs.FilterMessage("fetch").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "http://example.org/p", fields["url"])
	assert.Equal(t, int64(200), fields["status"])
	assert.Equal(t, int64(2), fields["attempt_count"])
}

func TestRecordErrorCarriesKindAndAttrs(t *testing.T) {
	rec, logs := newObservedRecorder()

	rec.RecordError(
		time.Now(),
		"fetcher",
		"HttpFetcher.Fetch",
		failure.KindTransientNetwork,
		"server error: 500",
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, "http://example.org/p"),
			metadata.NewAttr(metadata.AttrHost, "example.org"),
		},
	)

	entries := logs.FilterMessage("pipeline error").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, string(failure.KindTransientNetwork), fields["kind"])
	assert.Equal(t, "http://example.org/p", fields["url"])
	assert.Equal(t, "example.org", fields["host"])
}

func TestRecordArtifact(t *testing.T) {
	rec, logs := newObservedRecorder()

	rec.RecordArtifact(metadata.ArtifactImage, "ab/abcd.jpg", []metadata.Attribute{
		metadata.NewAttr(metadata.AttrHash, "abcd"),
	})

	entries := logs.FilterMessage("artifact").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, string(metadata.ArtifactImage), fields["kind"])
	assert.Equal(t, "ab/abcd.jpg", fields["path"])
}

func TestRecordFinalRunStats(t *testing.T) {
	rec, logs := newObservedRecorder()

	rec.RecordFinalRunStats("run-1", 10, 8, 2, 1, 3, time.Minute)

	entries := logs.FilterMessage("run finished").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(10), fields["records_written"])
	assert.Equal(t, int64(2), fields["images_deduplicated"])
	assert.Equal(t, int64(3), fields["tasks_failed"])
}

func TestNewRecorderNilLoggerIsSafe(t *testing.T) {
	rec := metadata.NewRecorder(nil)
	// Must not panic.
	rec.RecordFetch("http://example.org", 200, time.Millisecond, 0)
}
