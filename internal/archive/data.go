package archive

import (
	"fmt"
	"net/url"
	"time"
)

// Normalized record schema shared by every adapter variant.

// Record is one cultural-heritage object's normalized metadata.
//
// Invariants:
//   - (Archive, SourceID) is globally unique; re-fetching the same
//     object overwrites its dataset entry instead of duplicating it.
//   - Attributes preserve value order within a key (multi-valued
//     fields like several photographers or contexts).
type Record struct {
	Archive     string              `json:"archive"`
	SourceID    string              `json:"source_id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Attributes  map[string][]string `json:"attributes"`
	ImageRefs   []ImageRef          `json:"-"`
	ImagePaths  []string            `json:"image_paths"`
	FetchedAt   time.Time           `json:"fetched_at"`
}

// Key returns the record's global dedup key.
func (r *Record) Key() string {
	return r.Archive + "/" + r.SourceID
}

// SetAttr appends values under key, preserving order. Empty values
// are dropped.
func (r *Record) SetAttr(key string, values ...string) {
	if r.Attributes == nil {
		r.Attributes = make(map[string][]string)
	}
	for _, v := range values {
		if v == "" {
			continue
		}
		r.Attributes[key] = append(r.Attributes[key], v)
	}
}

// ImageStatus is the ImageRef lifecycle. Transitions are monotonic:
// pending → resolved → downloaded, or failed from any non-terminal
// state. A ref never moves backwards.
type ImageStatus string

const (
	ImagePending    ImageStatus = "pending"
	ImageResolved   ImageStatus = "resolved"
	ImageDownloaded ImageStatus = "downloaded"
	ImageFailed     ImageStatus = "failed"
)

// ImageRef is one image belonging to a Record.
type ImageRef struct {
	// CandidateURLs are known size/quality variants ordered lowest to
	// highest confidence; the last entry is the adapter's best guess
	// at the richest variant.
	CandidateURLs []string
	// ServiceBase, when non-empty, is the base identifier of an
	// IIIF-style image service; the resolver consults its descriptor
	// before falling back to candidate probing.
	ServiceBase string
	// Caption is the raw caption text scraped alongside the image.
	Caption string
	// ResolvedURL is set at most once, by the resolver.
	ResolvedURL string
	// Degraded marks a ref that fell back to its lowest-confidence
	// candidate because no tier was confirmed servable.
	Degraded bool
	// ContentHash is the digest of the downloaded bytes.
	ContentHash string
	// LocalPath is derived deterministically from ContentHash.
	LocalPath string
	Status    ImageStatus
}

// Advance moves the ref to next if the transition is legal, and
// reports whether it moved. Illegal transitions leave the ref as-is.
func (ref *ImageRef) Advance(next ImageStatus) bool {
	switch next {
	case ImageResolved:
		if ref.Status != ImagePending {
			return false
		}
	case ImageDownloaded:
		if ref.Status != ImageResolved {
			return false
		}
	case ImageFailed:
		if ref.Status == ImageDownloaded || ref.Status == ImageFailed {
			return false
		}
	default:
		return false
	}
	ref.Status = next
	return true
}

// BestCandidate returns the highest-confidence candidate URL, or
// empty when none are known.
func (ref *ImageRef) BestCandidate() string {
	if len(ref.CandidateURLs) == 0 {
		return ""
	}
	return ref.CandidateURLs[len(ref.CandidateURLs)-1]
}

// LowestCandidate returns the lowest-confidence candidate URL, the
// degraded-resolution fallback.
func (ref *ImageRef) LowestCandidate() string {
	if len(ref.CandidateURLs) == 0 {
		return ""
	}
	return ref.CandidateURLs[0]
}

// TaskKind distinguishes what a fetched body is for, which is how the
// orchestrator routes completions.
type TaskKind string

const (
	// TaskPage is an HTML page destined for an adapter.
	TaskPage TaskKind = "page"
	// TaskImage is an image download destined for the image store.
	TaskImage TaskKind = "image"
	// TaskProbe is a lightweight existence check (HEAD) issued by the
	// resolution resolver; no body is transferred.
	TaskProbe TaskKind = "probe"
	// TaskLocal is a seed that lives on disk (tabular exports); it
	// never touches the network.
	TaskLocal TaskKind = "local"
)

// FetchTask is a unit of scheduled work.
//
// Invariant: AttemptCount is the number of retries performed so far
// and never exceeds the configured retry ceiling; a task that exhausts
// it is finalized as failed and reported, never silently dropped.
type FetchTask struct {
	URL  url.URL
	Kind TaskKind
	// Path is set instead of URL for TaskLocal seeds.
	Path string
	// OriginArchive names the adapter variant that owns the result.
	OriginArchive string
	// Stage is adapter-private routing: a variant labels the
	// follow-up tasks it emits and reads the label back on parse.
	Stage        string
	AttemptCount int
	Priority     int
}

// Host returns the task's rate-limit lane key.
func (t *FetchTask) Host() string {
	return t.URL.Host
}

func (t *FetchTask) String() string {
	if t.Kind == TaskLocal {
		return fmt.Sprintf("%s %s %s", t.OriginArchive, t.Kind, t.Path)
	}
	return fmt.Sprintf("%s %s %s", t.OriginArchive, t.Kind, t.URL.String())
}
