package adapter

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Nwokike/museum-harvester/internal/archive"
	"github.com/Nwokike/museum-harvester/internal/fetcher"
	"github.com/Nwokike/museum-harvester/internal/normalize"
	"github.com/Nwokike/museum-harvester/pkg/failure"
)

const (
	giJonesName = "gijones"

	giJonesStageIndex   = "index"
	giJonesStageGallery = "gallery"
)

// giJonesExcluded are index links that lead to prose pages, not
// photograph galleries.
var giJonesExcluded = []string{
	"/jones-biography/",
	"/bibliography/",
}

// GIJonesAdapter harvests the G.I. Jones photographic archive: one
// index page of gallery links, one gallery page per subject with
// captioned full-size image links.
type GIJonesAdapter struct{}

func NewGIJonesAdapter() *GIJonesAdapter {
	return &GIJonesAdapter{}
}

func (a *GIJonesAdapter) Name() string {
	return giJonesName
}

func (a *GIJonesAdapter) Seed(seed string) ([]archive.FetchTask, failure.ClassifiedError) {
	seedURL, err := url.Parse(seed)
	if err != nil || seedURL.Host == "" {
		return nil, &ParseError{
			Message: "seed is not an absolute URL: " + seed,
			Cause:   ErrCauseBadSeed,
		}
	}
	return []archive.FetchTask{
		{
			URL:           *seedURL,
			Kind:          archive.TaskPage,
			OriginArchive: giJonesName,
			Stage:         giJonesStageIndex,
		},
	}, nil
}

func (a *GIJonesAdapter) Parse(result fetcher.FetchResult, pctx ParseContext) (ParseOutput, failure.ClassifiedError) {
	doc, perr := newDocument(result)
	if perr != nil {
		return ParseOutput{}, perr
	}
	switch pctx.Stage {
	case giJonesStageGallery:
		return a.parseGallery(doc, pctx)
	default:
		return a.parseIndex(doc, pctx)
	}
}

func (a *GIJonesAdapter) parseIndex(doc *goquery.Document, pctx ParseContext) (ParseOutput, failure.ClassifiedError) {
	var out ParseOutput
	seen := make(map[string]bool)
	doc.Find("#main-content a").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		linkURL, ok := resolveHref(pctx.BaseURL, href)
		if !ok || linkURL.Host != pctx.BaseURL.Host {
			return
		}
		if giJonesIsExcluded(linkURL.Path) || seen[linkURL.String()] {
			return
		}
		seen[linkURL.String()] = true
		out.Follow = append(out.Follow, archive.FetchTask{
			URL:           linkURL,
			Kind:          archive.TaskPage,
			OriginArchive: giJonesName,
			Stage:         giJonesStageGallery,
		})
	})
	if len(out.Follow) == 0 {
		return ParseOutput{}, &ParseError{
			Message: "index page has no gallery links",
			Cause:   ErrCauseStructureMissing,
		}
	}
	return out, nil
}

func (a *GIJonesAdapter) parseGallery(doc *goquery.Document, pctx ParseContext) (ParseOutput, failure.ClassifiedError) {
	items := doc.Find(".et_pb_gallery_item")
	if items.Length() == 0 {
		return ParseOutput{}, &ParseError{
			Message: "gallery items missing: " + pctx.BaseURL.String(),
			Cause:   ErrCauseStructureMissing,
		}
	}

	rec := archive.Record{
		Archive:   giJonesName,
		SourceID:  giJonesGalleryID(pctx.BaseURL),
		Title:     normalize.CleanText(doc.Find("h1").First().Text()),
		FetchedAt: pctx.FetchedAt,
	}
	rec.SetAttr("gallery_url", pctx.BaseURL.String())

	items.Each(func(_ int, item *goquery.Selection) {
		link := item.Find(".et_pb_gallery_image a").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		fullURL, ok := resolveHref(pctx.BaseURL, href)
		if !ok {
			return
		}
		ref := archive.ImageRef{
			Caption: normalize.CleanText(item.Find(".et_pb_gallery_caption").First().Text()),
			Status:  archive.ImagePending,
		}
		// The thumbnail is the degraded fallback, the lightbox href is
		// the full-size original.
		if thumb, ok := item.Find(".et_pb_gallery_image img").First().Attr("src"); ok {
			if thumbURL, ok := resolveHref(pctx.BaseURL, thumb); ok && thumbURL.String() != fullURL.String() {
				ref.CandidateURLs = append(ref.CandidateURLs, thumbURL.String())
			}
		}
		ref.CandidateURLs = append(ref.CandidateURLs, fullURL.String())
		rec.ImageRefs = append(rec.ImageRefs, ref)
	})

	return ParseOutput{Records: []archive.Record{rec}}, nil
}

func giJonesIsExcluded(path string) bool {
	for _, p := range giJonesExcluded {
		if strings.Contains(path, p) {
			return true
		}
	}
	// Self-links back to the index are not galleries either.
	return strings.Contains(path, "/photo-indexes")
}

func giJonesGalleryID(galleryURL url.URL) string {
	return normalize.Slug(strings.ReplaceAll(strings.Trim(galleryURL.Path, "/"), "/", "-"))
}
