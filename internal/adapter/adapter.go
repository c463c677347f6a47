package adapter

import (
	"bytes"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/Nwokike/museum-harvester/internal/archive"
	"github.com/Nwokike/museum-harvester/internal/fetcher"
	"github.com/Nwokike/museum-harvester/pkg/failure"
)

/*
Adapters turn raw fetched bytes into normalized records.

Capability boundary:
- A variant receives only fetched bytes/headers plus a ParseContext;
  it must not perform network or disk I/O itself. All fetching is
  mediated by the scheduler, which keeps every variant testable
  against canned fixtures.
- A variant may request additional fetches (pagination, detail pages)
  by returning follow-up tasks together with, or instead of, records.
- One variant per archive; new archives add a variant, not a pipeline.
*/

// ParseContext is the ambient information a variant gets alongside
// the fetched bytes.
type ParseContext struct {
	// BaseURL is the URL the bytes were fetched from; relative links
	// resolve against it.
	BaseURL url.URL
	// Stage echoes the label the variant put on the task that
	// produced these bytes. Empty for seed-stage fetches.
	Stage string
	// FetchedAt stamps the records produced from this page.
	FetchedAt time.Time
}

// ParseOutput is what a variant hands back to the orchestrator.
type ParseOutput struct {
	Records []archive.Record
	Follow  []archive.FetchTask
}

// Adapter is the per-archive extraction variant.
type Adapter interface {
	// Name is the archive identifier used for dispatch and record
	// namespacing.
	Name() string
	// Seed expands the archive-specific seed value (a URL or a local
	// file path) into the run's initial tasks.
	Seed(seed string) ([]archive.FetchTask, failure.ClassifiedError)
	// Parse extracts records and follow-up tasks from one fetched
	// response.
	Parse(result fetcher.FetchResult, pctx ParseContext) (ParseOutput, failure.ClassifiedError)
}

// newDocument parses fetched bytes into a DOM, transcoding to UTF-8
// first. Older static archives still serve latin-1 and windows-1252
// pages; goquery assumes UTF-8 input.
func newDocument(result fetcher.FetchResult) (*goquery.Document, failure.ClassifiedError) {
	reader, err := charset.NewReader(bytes.NewReader(result.Body()), result.Headers()["Content-Type"])
	if err != nil {
		return nil, &ParseError{
			Message: err.Error(),
			Cause:   ErrCauseNotHTML,
		}
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, &ParseError{
			Message: err.Error(),
			Cause:   ErrCauseNotHTML,
		}
	}
	return doc, nil
}

// Registry dispatches results to the variant owning their archive.
type Registry struct {
	variants map[string]Adapter
}

func NewRegistry(variants ...Adapter) *Registry {
	reg := &Registry{
		variants: make(map[string]Adapter, len(variants)),
	}
	for _, v := range variants {
		reg.variants[v.Name()] = v
	}
	return reg
}

// Lookup returns the variant for an archive name.
func (r *Registry) Lookup(name string) (Adapter, bool) {
	v, ok := r.variants[name]
	return v, ok
}

// Names lists the registered archive names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.variants))
	for name := range r.variants {
		names = append(names, name)
	}
	return names
}
