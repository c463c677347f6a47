package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/Nwokike/museum-harvester/internal/archive"
	"github.com/Nwokike/museum-harvester/internal/metadata"
	"github.com/Nwokike/museum-harvester/pkg/failure"
)

/*
Responsibilities

- Perform single-attempt HTTP requests (GET for pages and images,
  HEAD for resolution probes)
- Apply headers and timeouts
- Classify responses into typed, retryability-carrying errors
- Enforce per-kind content-type expectations

The fetcher never parses content and never retries; it only returns
bytes plus metadata. Retry is the scheduler's decision.
*/

type Fetcher interface {
	Fetch(ctx context.Context, fetchParam FetchParam) (FetchResult, failure.ClassifiedError)
}

type HttpFetcher struct {
	metadataSink metadata.MetadataSink
	httpClient   *http.Client
}

func NewHttpFetcher(metadataSink metadata.MetadataSink, timeout time.Duration) HttpFetcher {
	return HttpFetcher{
		metadataSink: metadataSink,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// NewHttpFetcherWithClient injects a custom client, used by tests to
// point at httptest servers with their own transports.
func NewHttpFetcherWithClient(metadataSink metadata.MetadataSink, client *http.Client) HttpFetcher {
	return HttpFetcher{
		metadataSink: metadataSink,
		httpClient:   client,
	}
}

func (h *HttpFetcher) Fetch(
	ctx context.Context,
	fetchParam FetchParam,
) (FetchResult, failure.ClassifiedError) {
	startTime := time.Now()

	result, err := h.performFetch(ctx, fetchParam)

	duration := time.Since(startTime)

	var statusCode int
	if err == nil {
		statusCode = result.Code()
	} else {
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			statusCode = fetchErr.StatusCode
		}
	}
	h.metadataSink.RecordFetch(fetchParam.fetchUrl.String(), statusCode, duration, fetchParam.attemptCount)

	if err != nil {
		h.recordFetchError(fetchParam.fetchUrl, err)
		return FetchResult{}, err
	}
	return result, nil
}

func (h *HttpFetcher) recordFetchError(fetchUrl url.URL, err failure.ClassifiedError) {
	var fetchError *FetchError
	if errors.As(err, &fetchError) {
		h.metadataSink.RecordError(
			time.Now(),
			"fetcher",
			"HttpFetcher.Fetch",
			fetchError.Kind(),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, fetchUrl.String()),
			},
		)
	}
}

func (h *HttpFetcher) performFetch(
	ctx context.Context,
	fetchParam FetchParam,
) (FetchResult, failure.ClassifiedError) {
	method := http.MethodGet
	if fetchParam.probeOnly {
		method = http.MethodHead
	}

	req, err := http.NewRequestWithContext(ctx, method, fetchParam.fetchUrl.String(), nil)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseNetworkFailure,
		}
	}

	for key, value := range requestHeaders(fetchParam.userAgent, fetchParam.kind) {
		req.Header.Set(key, value)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		cause := ErrCauseNetworkFailure
		if os.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
			cause = ErrCauseTimeout
		}
		// Transport errors are retryable; an externally cancelled
		// context is not a server fault but is also not retryable.
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("request failed: %v", err),
			Retryable: !errors.Is(err, context.Canceled),
			Cause:     cause,
		}
	}
	defer resp.Body.Close()

	if fetchErr := classifyStatus(resp.StatusCode); fetchErr != nil {
		return FetchResult{}, fetchErr
	}

	contentType := resp.Header.Get("Content-Type")
	if !fetchParam.probeOnly && !contentTypeAcceptable(contentType, fetchParam.kind) {
		return FetchResult{}, &FetchError{
			Message:    fmt.Sprintf("unexpected content type %q for %s fetch", contentType, fetchParam.kind),
			Retryable:  false,
			Cause:      ErrCauseContentTypeInvalid,
			StatusCode: resp.StatusCode,
		}
	}

	var body []byte
	if !fetchParam.probeOnly {
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return FetchResult{}, &FetchError{
				Message:    fmt.Sprintf("failed to read response body: %v", err),
				Retryable:  true,
				Cause:      ErrCauseReadResponseBodyError,
				StatusCode: resp.StatusCode,
			}
		}
	}

	responseHeaders := make(map[string]string)
	for key, values := range resp.Header {
		if len(values) > 0 {
			responseHeaders[key] = values[0]
		}
	}

	return FetchResult{
		url:  fetchParam.fetchUrl,
		body: body,
		meta: ResponseMeta{
			statusCode:          resp.StatusCode,
			transferredSizeByte: uint64(len(body)),
			responseHeaders:     responseHeaders,
		},
	}, nil
}

func classifyStatus(statusCode int) *FetchError {
	switch {
	case statusCode >= 500:
		return &FetchError{
			Message:    fmt.Sprintf("server error: %d", statusCode),
			Retryable:  true,
			Cause:      ErrCauseRequest5xx,
			StatusCode: statusCode,
		}
	case statusCode == http.StatusTooManyRequests:
		return &FetchError{
			Message:    "rate limited (429)",
			Retryable:  true,
			Cause:      ErrCauseRequestTooMany,
			StatusCode: statusCode,
		}
	case statusCode == http.StatusForbidden || statusCode == http.StatusUnauthorized:
		return &FetchError{
			Message:    fmt.Sprintf("access denied (%d)", statusCode),
			Retryable:  false,
			Cause:      ErrCauseRequestDenied,
			StatusCode: statusCode,
		}
	case statusCode == http.StatusNotFound || statusCode == http.StatusGone:
		return &FetchError{
			Message:    fmt.Sprintf("not found (%d)", statusCode),
			Retryable:  false,
			Cause:      ErrCauseRequestNotFound,
			StatusCode: statusCode,
		}
	case statusCode >= 400:
		return &FetchError{
			Message:    fmt.Sprintf("client error: %d", statusCode),
			Retryable:  false,
			Cause:      ErrCauseRequestDenied,
			StatusCode: statusCode,
		}
	}
	return nil
}

func contentTypeAcceptable(contentType string, kind archive.TaskKind) bool {
	ct := strings.ToLower(contentType)
	switch kind {
	case archive.TaskPage:
		// text/plain covers robots.txt and the occasional misconfigured
		// archive page.
		return strings.Contains(ct, "text/html") ||
			strings.Contains(ct, "application/xhtml") ||
			strings.Contains(ct, "application/json") ||
			strings.Contains(ct, "text/plain")
	case archive.TaskImage:
		// Archives routinely serve images with sloppy or missing
		// content types; reject only pages masquerading as images.
		return !strings.Contains(ct, "text/html")
	default:
		return true
	}
}

func requestHeaders(userAgent string, kind archive.TaskKind) map[string]string {
	accept := "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	if kind == archive.TaskImage {
		accept = "image/*,*/*;q=0.8"
	}
	return map[string]string{
		"User-Agent":      userAgent,
		"Accept":          accept,
		"Accept-Language": "en-US,en;q=0.5",
		"Connection":      "keep-alive",
	}
}
