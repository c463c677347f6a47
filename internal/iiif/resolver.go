package iiif

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/Nwokike/museum-harvester/internal/archive"
	"github.com/Nwokike/museum-harvester/internal/metadata"
	"github.com/Nwokike/museum-harvester/internal/schedule"
)

/*
Responsibilities
- Select the maximum-resolution image variant a server actually serves
- Prefer the server's own capability descriptor (info.json) when one
  exists; fall back to probing candidate tiers highest to lowest
- Degrade to the lowest-confidence known candidate instead of failing
  when nothing is confirmed servable

All network I/O goes through the scheduler, so probes respect the same
per-host spacing and backoff as every other fetch.
*/

// Submitter is the slice of the scheduler the resolver needs.
type Submitter interface {
	Do(ctx context.Context, task archive.FetchTask) schedule.Outcome
}

type Resolver struct {
	metadataSink metadata.MetadataSink
	sched        Submitter
}

func NewResolver(metadataSink metadata.MetadataSink, sched Submitter) Resolver {
	return Resolver{
		metadataSink: metadataSink,
		sched:        sched,
	}
}

// Resolve upgrades ref to the richest servable variant and advances
// its status to resolved (possibly degraded). A ref with no service
// base and no candidates is the only failure case.
func (r *Resolver) Resolve(
	ctx context.Context,
	ref archive.ImageRef,
	originArchive string,
) archive.ImageRef {
	candidates := ref.CandidateURLs
	if ref.ServiceBase != "" {
		// Descriptor first: one request, exact dimensions, no probing.
		if resolved, ok := r.resolveFromDescriptor(ctx, &ref, originArchive); ok {
			return resolved
		}
		// Tier candidates derived from the service base extend
		// whatever the adapter already knew.
		candidates = append(Tiers(ref.ServiceBase), candidates...)
	}

	if len(candidates) == 0 {
		ref.Advance(archive.ImageFailed)
		r.recordDegradation(ref, originArchive, &ResolveError{
			Message: "image ref carries no candidates and no service base",
			Cause:   ErrCauseNoCandidates,
		})
		return ref
	}

	// Probe highest confidence first; accept the first servable tier.
	for i := len(candidates) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			break
		}
		if r.probe(ctx, candidates[i], originArchive) {
			ref.ResolvedURL = candidates[i]
			ref.Advance(archive.ImageResolved)
			return ref
		}
	}

	// Nothing confirmed: degrade to the lowest-confidence candidate
	// rather than failing the record.
	ref.ResolvedURL = candidates[0]
	ref.Degraded = true
	ref.Advance(archive.ImageResolved)
	r.recordDegradation(ref, originArchive, nil)
	return ref
}

// resolveFromDescriptor fetches and parses info.json, returning the
// resolved ref and true on success.
func (r *Resolver) resolveFromDescriptor(
	ctx context.Context,
	ref *archive.ImageRef,
	originArchive string,
) (archive.ImageRef, bool) {
	infoURL, err := url.Parse(descriptorURL(ref.ServiceBase))
	if err != nil {
		return archive.ImageRef{}, false
	}

	out := r.sched.Do(ctx, archive.FetchTask{
		URL:           *infoURL,
		Kind:          archive.TaskPage,
		OriginArchive: originArchive,
	})
	if !out.Succeeded() {
		return archive.ImageRef{}, false
	}

	var desc Descriptor
	if err := json.Unmarshal(out.Result.Body(), &desc); err != nil {
		r.metadataSink.RecordError(
			time.Now(),
			"iiif",
			"Resolver.resolveFromDescriptor",
			(&ResolveError{Cause: ErrCauseDescriptorInvalid}).Kind(),
			fmt.Sprintf("info.json unparseable: %v", err),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, infoURL.String()),
			},
		)
		return archive.ImageRef{}, false
	}

	size, ok := desc.MaxSize()
	if !ok {
		return archive.ImageRef{}, false
	}

	resolved := *ref
	if len(desc.Sizes) == 0 {
		// No explicit size list: ask for the native resolution.
		resolved.ResolvedURL = fmt.Sprintf(
			"%s/full/%s/0/default.jpg",
			trimBase(ref.ServiceBase), desc.fullRegionKeyword(),
		)
	} else {
		resolved.ResolvedURL = fmt.Sprintf(
			"%s/full/%d,%d/0/default.jpg",
			trimBase(ref.ServiceBase), size.Width, size.Height,
		)
	}
	resolved.Advance(archive.ImageResolved)
	return resolved, true
}

// probe issues a HEAD existence check through the scheduler.
func (r *Resolver) probe(ctx context.Context, rawURL string, originArchive string) bool {
	probeURL, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	out := r.sched.Do(ctx, archive.FetchTask{
		URL:           *probeURL,
		Kind:          archive.TaskProbe,
		OriginArchive: originArchive,
	})
	return out.Succeeded()
}

func (r *Resolver) recordDegradation(
	ref archive.ImageRef,
	originArchive string,
	resolveErr *ResolveError,
) {
	details := "no tier confirmed servable, degraded to lowest candidate"
	if resolveErr != nil {
		details = resolveErr.Error()
	}
	r.metadataSink.RecordError(
		time.Now(),
		"iiif",
		"Resolver.Resolve",
		(&ResolveError{}).Kind(),
		details,
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrArchive, originArchive),
			metadata.NewAttr(metadata.AttrURL, ref.ResolvedURL),
		},
	)
}
