package fetcher

import (
	"net/url"

	"github.com/Nwokike/museum-harvester/internal/archive"
)

// HTTP boundary

type FetchParam struct {
	fetchUrl     url.URL
	kind         archive.TaskKind
	userAgent    string
	probeOnly    bool
	attemptCount int
}

func NewFetchParam(fetchUrl url.URL, kind archive.TaskKind, userAgent string) FetchParam {
	return FetchParam{
		fetchUrl:  fetchUrl,
		kind:      kind,
		userAgent: userAgent,
	}
}

// NewProbeParam builds a HEAD-only request used by the resolution
// resolver for lightweight tier existence checks.
func NewProbeParam(fetchUrl url.URL, userAgent string) FetchParam {
	return FetchParam{
		fetchUrl:  fetchUrl,
		kind:      archive.TaskImage,
		userAgent: userAgent,
		probeOnly: true,
	}
}

// WithAttemptCount stamps the retry ordinal the scheduler is on, so
// recorded fetch events carry it.
func (p FetchParam) WithAttemptCount(attemptCount int) FetchParam {
	p.attemptCount = attemptCount
	return p
}

func (p *FetchParam) URL() url.URL {
	return p.fetchUrl
}

func (p *FetchParam) AttemptCount() int {
	return p.attemptCount
}

func (p *FetchParam) ProbeOnly() bool {
	return p.probeOnly
}

type FetchResult struct {
	url  url.URL
	body []byte
	meta ResponseMeta
}

func (f *FetchResult) URL() url.URL {
	return f.url
}

func (f *FetchResult) Body() []byte {
	return f.body
}

func (f *FetchResult) Code() int {
	return f.meta.statusCode
}

func (f *FetchResult) SizeByte() uint64 {
	return f.meta.transferredSizeByte
}

func (f *FetchResult) Headers() map[string]string {
	return f.meta.responseHeaders
}

type ResponseMeta struct {
	statusCode          int
	transferredSizeByte uint64
	responseHeaders     map[string]string
}

// NewLocalResult wraps bytes read off disk so local seeds (tabular
// exports) flow through the same parse path as fetched pages.
func NewLocalResult(body []byte) FetchResult {
	return FetchResult{
		body: body,
		meta: ResponseMeta{
			statusCode:          200,
			transferredSizeByte: uint64(len(body)),
		},
	}
}

// NewFetchResultForTest creates a FetchResult for testing purposes.
// This allows test packages to construct FetchResult values without
// accessing unexported fields directly.
func NewFetchResultForTest(
	url url.URL,
	body []byte,
	statusCode int,
	responseHeaders map[string]string,
) FetchResult {
	return FetchResult{
		url:  url,
		body: body,
		meta: ResponseMeta{
			statusCode:          statusCode,
			transferredSizeByte: uint64(len(body)),
			responseHeaders:     responseHeaders,
		},
	}
}
