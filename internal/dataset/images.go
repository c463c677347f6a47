package dataset

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Nwokike/museum-harvester/internal/metadata"
	"github.com/Nwokike/museum-harvester/pkg/failure"
	"github.com/Nwokike/museum-harvester/pkg/fileutil"
	"github.com/Nwokike/museum-harvester/pkg/hashutil"
)

// StoreStatus reports what Store did with a payload.
type StoreStatus string

const (
	StoreWritten      StoreStatus = "written"
	StoreDeduplicated StoreStatus = "deduplicated"
)

// ImageStore writes downloaded images under a content-addressed
// layout: <root>/<hash[:2]>/<hash>.<ext>. Identical bytes fetched from
// different URLs land on the same path exactly once.
type ImageStore struct {
	mu           sync.Mutex
	root         string
	hashAlgo     hashutil.HashAlgo
	metadataSink metadata.MetadataSink
}

func NewImageStore(root string, hashAlgo hashutil.HashAlgo, metadataSink metadata.MetadataSink) (*ImageStore, failure.ClassifiedError) {
	if err := fileutil.EnsureDir(root); err != nil {
		return nil, &StorageError{Message: err.Error(), Cause: ErrCauseOpen}
	}
	return &ImageStore{
		root:         root,
		hashAlgo:     hashAlgo,
		metadataSink: metadataSink,
	}, nil
}

// Store validates that body is a real image, hashes it, and writes it
// if absent. Returns the digest and the store-relative path.
func (s *ImageStore) Store(body []byte) (StoreStatus, string, string, failure.ClassifiedError) {
	ext, ok := sniffImage(body)
	if !ok {
		return "", "", "", &StorageError{
			Message: "payload failed image signature check",
			Cause:   ErrCauseNotAnImage,
		}
	}

	hash, err := hashutil.HashBytes(body, s.hashAlgo)
	if err != nil {
		return "", "", "", &StorageError{Message: err.Error(), Cause: ErrCauseWrite}
	}
	relPath := filepath.Join(hash[:2], hash+ext)
	absPath := filepath.Join(s.root, relPath)

	s.mu.Lock()
	defer s.mu.Unlock()

	if fileutil.FileExists(absPath) {
		return StoreDeduplicated, hash, relPath, nil
	}
	if cerr := fileutil.EnsureDir(s.root, hash[:2]); cerr != nil {
		return "", "", "", &StorageError{Message: cerr.Error(), Cause: ErrCauseWrite}
	}
	if werr := s.writeAtomic(absPath, body); werr != nil {
		s.metadataSink.RecordError(
			time.Now(),
			"dataset",
			"ImageStore.Store",
			werr.Kind(),
			werr.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrHash, hash),
				metadata.NewAttr(metadata.AttrWritePath, absPath),
			},
		)
		return "", "", "", werr
	}

	s.metadataSink.RecordArtifact(metadata.ArtifactImage, relPath, []metadata.Attribute{
		metadata.NewAttr(metadata.AttrHash, hash),
	})
	return StoreWritten, hash, relPath, nil
}

// writeAtomic writes via temp file plus rename so a crashed download
// never leaves a truncated blob at a content-addressed path.
func (s *ImageStore) writeAtomic(path string, body []byte) *StorageError {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".img-*")
	if err != nil {
		return &StorageError{Message: err.Error(), Cause: ErrCauseWrite}
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return &StorageError{Message: err.Error(), Cause: ErrCauseWrite}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return &StorageError{Message: err.Error(), Cause: ErrCauseWrite}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return &StorageError{Message: err.Error(), Cause: ErrCauseWrite}
	}
	return nil
}

// sniffImage checks the payload against known raster signatures and
// returns the canonical extension. Servers lie about Content-Type;
// bytes do not.
func sniffImage(body []byte) (string, bool) {
	switch {
	case bytes.HasPrefix(body, []byte{0xFF, 0xD8, 0xFF}):
		return ".jpg", true
	case bytes.HasPrefix(body, []byte("\x89PNG\r\n\x1a\n")):
		return ".png", true
	case bytes.HasPrefix(body, []byte("GIF87a")) || bytes.HasPrefix(body, []byte("GIF89a")):
		return ".gif", true
	case len(body) >= 12 && bytes.Equal(body[0:4], []byte("RIFF")) && bytes.Equal(body[8:12], []byte("WEBP")):
		return ".webp", true
	case bytes.HasPrefix(body, []byte("II*\x00")) || bytes.HasPrefix(body, []byte("MM\x00*")):
		return ".tif", true
	default:
		return "", false
	}
}
