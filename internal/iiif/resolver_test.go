package iiif_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nwokike/museum-harvester/internal/archive"
	"github.com/Nwokike/museum-harvester/internal/fetcher"
	"github.com/Nwokike/museum-harvester/internal/iiif"
	"github.com/Nwokike/museum-harvester/internal/metadata"
	"github.com/Nwokike/museum-harvester/internal/schedule"
)

// fakeSubmitter serves canned outcomes keyed by URL and records the
// order of submissions.
type fakeSubmitter struct {
	bodies    map[string][]byte
	available map[string]bool
	submitted []string
}

func (f *fakeSubmitter) Do(ctx context.Context, task archive.FetchTask) schedule.Outcome {
	raw := task.URL.String()
	f.submitted = append(f.submitted, raw)

	if body, ok := f.bodies[raw]; ok {
		return schedule.Outcome{
			Task:   task,
			Result: fetcher.NewFetchResultForTest(task.URL, body, 200, nil),
		}
	}
	if f.available[raw] {
		return schedule.Outcome{
			Task:   task,
			Result: fetcher.NewFetchResultForTest(task.URL, nil, 200, nil),
		}
	}
	return schedule.Outcome{
		Task: task,
		Err:  &fetcher.FetchError{Retryable: false, Cause: fetcher.ErrCauseRequestNotFound, StatusCode: 404},
	}
}

var _ iiif.Submitter = (*fakeSubmitter)(nil)

func TestResolveDescriptorFirst(t *testing.T) {
	base := "https://media.example.org/iiif/obj1"
	sub := &fakeSubmitter{
		bodies: map[string][]byte{
			base + "/info.json": []byte(`{"@context":"http://iiif.io/api/image/2/context.json","width":100,"height":80,"sizes":[{"width":400,"height":320},{"width":4000,"height":3200}]}`),
		},
	}
	resolver := iiif.NewResolver(&metadata.NoopSink{}, sub)

	ref := resolver.Resolve(context.Background(), archive.ImageRef{
		ServiceBase: base,
		Status:      archive.ImagePending,
	}, "testarchive")

	assert.Equal(t, archive.ImageResolved, ref.Status)
	assert.False(t, ref.Degraded)
	assert.Equal(t, base+"/full/4000,3200/0/default.jpg", ref.ResolvedURL)
	// One descriptor fetch, zero probes.
	assert.Len(t, sub.submitted, 1)
}

func TestResolveDescriptorWithoutSizesUsesKeyword(t *testing.T) {
	base := "https://media.example.org/iiif/obj2"
	sub := &fakeSubmitter{
		bodies: map[string][]byte{
			base + "/info.json": []byte(`{"@context":"http://iiif.io/api/image/3/context.json","width":6000,"height":4000}`),
		},
	}
	resolver := iiif.NewResolver(&metadata.NoopSink{}, sub)

	ref := resolver.Resolve(context.Background(), archive.ImageRef{
		ServiceBase: base,
		Status:      archive.ImagePending,
	}, "testarchive")

	assert.Equal(t, archive.ImageResolved, ref.Status)
	assert.Equal(t, base+"/full/max/0/default.jpg", ref.ResolvedURL)
}

func TestResolveProbesHighestFirstAndPicksMediumWhenFullMissing(t *testing.T) {
	base := "https://media.example.org/iiif/obj3"
	full := base + "/full/full/0/default.jpg"
	medium := base + "/full/!1024,1024/0/default.jpg"

	sub := &fakeSubmitter{
		// No descriptor: info.json 404s, so the resolver probes tiers.
		available: map[string]bool{medium: true},
	}
	resolver := iiif.NewResolver(&metadata.NoopSink{}, sub)

	ref := resolver.Resolve(context.Background(), archive.ImageRef{
		ServiceBase: base,
		Status:      archive.ImagePending,
	}, "testarchive")

	assert.Equal(t, archive.ImageResolved, ref.Status)
	assert.False(t, ref.Degraded)
	assert.Equal(t, medium, ref.ResolvedURL)

	// Submission order: info.json, then the full tier, then medium.
	require.Len(t, sub.submitted, 3)
	assert.Equal(t, base+"/info.json", sub.submitted[0])
	assert.Equal(t, full, sub.submitted[1])
	assert.Equal(t, medium, sub.submitted[2])
}

func TestResolveDegradesToLowestCandidate(t *testing.T) {
	low := "https://img.example.org/thumb.jpg"
	high := "https://img.example.org/large.jpg"
	sub := &fakeSubmitter{} // nothing servable

	resolver := iiif.NewResolver(&metadata.NoopSink{}, sub)

	ref := resolver.Resolve(context.Background(), archive.ImageRef{
		CandidateURLs: []string{low, high},
		Status:        archive.ImagePending,
	}, "testarchive")

	assert.Equal(t, archive.ImageResolved, ref.Status)
	assert.True(t, ref.Degraded)
	assert.Equal(t, low, ref.ResolvedURL)
}

func TestResolveFailsWithNothingToGoOn(t *testing.T) {
	resolver := iiif.NewResolver(&metadata.NoopSink{}, &fakeSubmitter{})

	ref := resolver.Resolve(context.Background(), archive.ImageRef{
		Status: archive.ImagePending,
	}, "testarchive")

	assert.Equal(t, archive.ImageFailed, ref.Status)
}

func TestResolveCandidateProbeAcceptsFirstServable(t *testing.T) {
	low := "https://img.example.org/s320/a.jpg"
	high := "https://img.example.org/s1600/a.jpg"
	sub := &fakeSubmitter{available: map[string]bool{high: true}}
	resolver := iiif.NewResolver(&metadata.NoopSink{}, sub)

	ref := resolver.Resolve(context.Background(), archive.ImageRef{
		CandidateURLs: []string{low, high},
		Status:        archive.ImagePending,
	}, "testarchive")

	assert.Equal(t, high, ref.ResolvedURL)
	assert.False(t, ref.Degraded)
	// The high-confidence candidate is probed first and accepted, so
	// the low tier is never touched.
	assert.Equal(t, []string{high}, sub.submitted)
}

func TestResolveDescriptorUnparseableFallsBackToProbes(t *testing.T) {
	base := "https://media.example.org/iiif/obj4"
	full := base + "/full/full/0/default.jpg"
	sub := &fakeSubmitter{
		bodies:    map[string][]byte{base + "/info.json": []byte("<html>gateway error</html>")},
		available: map[string]bool{full: true},
	}
	resolver := iiif.NewResolver(&metadata.NoopSink{}, sub)

	ref := resolver.Resolve(context.Background(), archive.ImageRef{
		ServiceBase: base,
		Status:      archive.ImagePending,
	}, "testarchive")

	assert.Equal(t, archive.ImageResolved, ref.Status)
	assert.Equal(t, full, ref.ResolvedURL)
}
