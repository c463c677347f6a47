package dataset

import (
	"database/sql"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Nwokike/museum-harvester/internal/archive"
	"github.com/Nwokike/museum-harvester/pkg/failure"
)

// ResumeIndex tracks which records a previous run already completed,
// so an interrupted harvest can be re-run without re-downloading
// finished work. It lives in a sqlite file next to the dataset.
type ResumeIndex struct {
	db *sql.DB
}

const resumeSchema = `
CREATE TABLE IF NOT EXISTS records (
	archive        TEXT NOT NULL,
	source_id      TEXT NOT NULL,
	content_hashes TEXT NOT NULL,
	written_at     TEXT NOT NULL,
	run_id         TEXT NOT NULL,
	PRIMARY KEY (archive, source_id)
);
`

func OpenResumeIndex(path string) (*ResumeIndex, failure.ClassifiedError) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &StorageError{Message: err.Error(), Cause: ErrCauseOpen}
	}
	if _, err := db.Exec(resumeSchema); err != nil {
		db.Close()
		return nil, &StorageError{Message: err.Error(), Cause: ErrCauseOpen}
	}
	return &ResumeIndex{db: db}, nil
}

// Completed reports whether the record was fully persisted by an
// earlier run.
func (ix *ResumeIndex) Completed(archiveName, sourceID string) (bool, failure.ClassifiedError) {
	var one int
	err := ix.db.QueryRow(
		"SELECT 1 FROM records WHERE archive = ? AND source_id = ?",
		archiveName, sourceID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, &StorageError{Message: err.Error(), Cause: ErrCauseIndexQuery}
	}
	return true, nil
}

// MarkCompleted upserts the record's completion row with the hashes of
// its stored images.
func (ix *ResumeIndex) MarkCompleted(rec archive.Record, runID string) failure.ClassifiedError {
	hashes := make([]string, 0, len(rec.ImageRefs))
	for _, ref := range rec.ImageRefs {
		if ref.ContentHash != "" {
			hashes = append(hashes, ref.ContentHash)
		}
	}
	_, err := ix.db.Exec(
		`INSERT INTO records (archive, source_id, content_hashes, written_at, run_id)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (archive, source_id) DO UPDATE SET
		   content_hashes = excluded.content_hashes,
		   written_at     = excluded.written_at,
		   run_id         = excluded.run_id`,
		rec.Archive, rec.SourceID, strings.Join(hashes, ","),
		time.Now().UTC().Format(time.RFC3339), runID,
	)
	if err != nil {
		return &StorageError{Message: err.Error(), Cause: ErrCauseIndexUpsert}
	}
	return nil
}

// CompletedCount returns how many records the index holds.
func (ix *ResumeIndex) CompletedCount() (int, failure.ClassifiedError) {
	var n int
	if err := ix.db.QueryRow("SELECT COUNT(*) FROM records").Scan(&n); err != nil {
		return 0, &StorageError{Message: err.Error(), Cause: ErrCauseIndexQuery}
	}
	return n, nil
}

func (ix *ResumeIndex) Close() failure.ClassifiedError {
	if err := ix.db.Close(); err != nil {
		return &StorageError{Message: err.Error(), Cause: ErrCauseWrite}
	}
	return nil
}
