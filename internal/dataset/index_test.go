package dataset_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nwokike/museum-harvester/internal/archive"
	"github.com/Nwokike/museum-harvester/internal/dataset"
)

func TestResumeIndexRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.db")
	ix, err := dataset.OpenResumeIndex(path)
	require.Nil(t, err)
	defer ix.Close()

	done, qerr := ix.Completed("ukpuru", "2016-05-ikenga")
	require.Nil(t, qerr)
	assert.False(t, done)

	rec := archive.Record{
		Archive:  "ukpuru",
		SourceID: "2016-05-ikenga",
		ImageRefs: []archive.ImageRef{
			{ContentHash: "abc123", Status: archive.ImageDownloaded},
			{Status: archive.ImageFailed},
		},
	}
	require.Nil(t, ix.MarkCompleted(rec, "run-1"))

	done, qerr = ix.Completed("ukpuru", "2016-05-ikenga")
	require.Nil(t, qerr)
	assert.True(t, done)

	n, cerr := ix.CompletedCount()
	require.Nil(t, cerr)
	assert.Equal(t, 1, n)
}

func TestResumeIndexUpsertIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.db")
	ix, err := dataset.OpenResumeIndex(path)
	require.Nil(t, err)
	defer ix.Close()

	rec := archive.Record{Archive: "gijones", SourceID: "awka-gallery"}
	require.Nil(t, ix.MarkCompleted(rec, "run-1"))
	require.Nil(t, ix.MarkCompleted(rec, "run-2"))

	n, cerr := ix.CompletedCount()
	require.Nil(t, cerr)
	assert.Equal(t, 1, n)
}

func TestResumeIndexSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.db")

	ix, err := dataset.OpenResumeIndex(path)
	require.Nil(t, err)
	require.Nil(t, ix.MarkCompleted(archive.Record{Archive: "britishmuseum", SourceID: "Af1956,27.1"}, "run-1"))
	require.Nil(t, ix.Close())

	reopened, err := dataset.OpenResumeIndex(path)
	require.Nil(t, err)
	defer reopened.Close()

	done, qerr := reopened.Completed("britishmuseum", "Af1956,27.1")
	require.Nil(t, qerr)
	assert.True(t, done)
}
