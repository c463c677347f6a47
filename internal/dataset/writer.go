package dataset

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Nwokike/museum-harvester/internal/archive"
	"github.com/Nwokike/museum-harvester/internal/metadata"
	"github.com/Nwokike/museum-harvester/pkg/failure"
)

/*
Responsibilities
- Append normalized records to the run's JSONL dataset file
- Collapse re-fetched records onto their (archive, source_id) key
- Keep the on-disk file line-complete at every moment so a cancelled
  run still leaves a parseable dataset

Writes append immediately. An overwrite of an existing key appends the
new line too and flags the file for compaction; Close rewrites the
file keeping the latest line per key, in first-seen order.
*/

// WriteStatus reports what a Write did to the dataset.
type WriteStatus string

const (
	WriteInserted WriteStatus = "inserted"
	WriteUpdated  WriteStatus = "updated"
)

// Writer is the JSONL record sink. Safe for concurrent use.
type Writer struct {
	mu           sync.Mutex
	path         string
	file         *os.File
	buf          *bufio.Writer
	order        []string
	latest       map[string]archive.Record
	overwrote    bool
	metadataSink metadata.MetadataSink
}

func NewWriter(path string, metadataSink metadata.MetadataSink) (*Writer, failure.ClassifiedError) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, &StorageError{Message: err.Error(), Cause: ErrCauseOpen}
	}
	return &Writer{
		path:         path,
		file:         file,
		buf:          bufio.NewWriter(file),
		latest:       make(map[string]archive.Record),
		metadataSink: metadataSink,
	}, nil
}

// Write appends the record and reports whether it was a first write or
// an overwrite of an already-seen key.
func (w *Writer) Write(rec archive.Record) (WriteStatus, failure.ClassifiedError) {
	w.mu.Lock()
	defer w.mu.Unlock()

	line, err := json.Marshal(rec)
	if err != nil {
		return "", &StorageError{Message: err.Error(), Cause: ErrCauseWrite}
	}
	if _, err := w.buf.Write(append(line, '\n')); err != nil {
		return "", w.ioError(rec, err.Error())
	}
	if err := w.buf.Flush(); err != nil {
		return "", w.ioError(rec, err.Error())
	}

	key := rec.Key()
	status := WriteInserted
	if _, seen := w.latest[key]; seen {
		status = WriteUpdated
		w.overwrote = true
	} else {
		w.order = append(w.order, key)
	}
	w.latest[key] = rec

	w.metadataSink.RecordArtifact(metadata.ArtifactRecord, w.path, []metadata.Attribute{
		metadata.NewAttr(metadata.AttrArchive, rec.Archive),
		metadata.NewAttr(metadata.AttrSourceID, rec.SourceID),
	})
	return status, nil
}

// Count returns the number of distinct keys written so far.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.order)
}

// Close flushes and, when any key was overwritten, compacts the file
// down to one line per key.
func (w *Writer) Close() failure.ClassifiedError {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return &StorageError{Message: err.Error(), Cause: ErrCauseWrite}
	}
	if err := w.file.Close(); err != nil {
		return &StorageError{Message: err.Error(), Cause: ErrCauseWrite}
	}
	if !w.overwrote {
		return nil
	}
	return w.compact()
}

// compact rewrites the dataset atomically: latest record per key,
// first-seen order, temp file renamed over the original.
func (w *Writer) compact() failure.ClassifiedError {
	tmp, err := os.CreateTemp(filepath.Dir(w.path), ".compact-*")
	if err != nil {
		return &StorageError{Message: err.Error(), Cause: ErrCauseCompact}
	}
	buf := bufio.NewWriter(tmp)
	for _, key := range w.order {
		line, err := json.Marshal(w.latest[key])
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return &StorageError{Message: err.Error(), Cause: ErrCauseCompact}
		}
		if _, err := buf.Write(append(line, '\n')); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return &StorageError{Message: err.Error(), Cause: ErrCauseCompact}
		}
	}
	if err := buf.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return &StorageError{Message: err.Error(), Cause: ErrCauseCompact}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return &StorageError{Message: err.Error(), Cause: ErrCauseCompact}
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		os.Remove(tmp.Name())
		return &StorageError{Message: err.Error(), Cause: ErrCauseCompact}
	}
	return nil
}

func (w *Writer) ioError(rec archive.Record, msg string) failure.ClassifiedError {
	serr := &StorageError{Message: msg, Cause: ErrCauseWrite}
	w.metadataSink.RecordError(
		time.Now(),
		"dataset",
		"Writer.Write",
		serr.Kind(),
		serr.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrArchive, rec.Archive),
			metadata.NewAttr(metadata.AttrSourceID, rec.SourceID),
			metadata.NewAttr(metadata.AttrWritePath, w.path),
		},
	)
	return serr
}
