package adapter

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Nwokike/museum-harvester/internal/archive"
	"github.com/Nwokike/museum-harvester/internal/fetcher"
	"github.com/Nwokike/museum-harvester/internal/normalize"
	"github.com/Nwokike/museum-harvester/pkg/failure"
)

const (
	ukpuruName = "ukpuru"

	ukpuruStageListing = "listing"
	ukpuruStagePost    = "post"
)

// Blogger image URLs carry the served size as a path segment
// (/s320/, /w400-h266/); rewriting it to /s1600/ requests the
// largest variant Blogger keeps.
var bloggerSizeSegment = regexp.MustCompile(`/(s\d+(-c)?|w\d+-h\d+(-c)?)/`)

// UkpuruAdapter walks a Blogger archive: listing pages link posts and
// chain backwards through the pager, posts carry the images.
type UkpuruAdapter struct{}

func NewUkpuruAdapter() *UkpuruAdapter {
	return &UkpuruAdapter{}
}

func (a *UkpuruAdapter) Name() string {
	return ukpuruName
}

func (a *UkpuruAdapter) Seed(seed string) ([]archive.FetchTask, failure.ClassifiedError) {
	seedURL, err := url.Parse(seed)
	if err != nil || seedURL.Host == "" {
		return nil, &ParseError{
			Message: "seed is not an absolute URL: " + seed,
			Cause:   ErrCauseBadSeed,
		}
	}
	return []archive.FetchTask{
		{
			URL:           *ukpuruDesktop(*seedURL),
			Kind:          archive.TaskPage,
			OriginArchive: ukpuruName,
			Stage:         ukpuruStageListing,
		},
	}, nil
}

func (a *UkpuruAdapter) Parse(result fetcher.FetchResult, pctx ParseContext) (ParseOutput, failure.ClassifiedError) {
	doc, perr := newDocument(result)
	if perr != nil {
		return ParseOutput{}, perr
	}
	switch pctx.Stage {
	case ukpuruStagePost:
		return a.parsePost(doc, pctx)
	default:
		return a.parseListing(doc, pctx)
	}
}

func (a *UkpuruAdapter) parseListing(doc *goquery.Document, pctx ParseContext) (ParseOutput, failure.ClassifiedError) {
	var out ParseOutput
	doc.Find("h3.post-title a").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		postURL, ok := resolveHref(pctx.BaseURL, href)
		if !ok {
			return
		}
		out.Follow = append(out.Follow, archive.FetchTask{
			URL:           *ukpuruDesktop(postURL),
			Kind:          archive.TaskPage,
			OriginArchive: ukpuruName,
			Stage:         ukpuruStagePost,
		})
	})

	if href, ok := doc.Find("a.blog-pager-older-link").First().Attr("href"); ok {
		if olderURL, ok := resolveHref(pctx.BaseURL, href); ok {
			out.Follow = append(out.Follow, archive.FetchTask{
				URL:           *ukpuruDesktop(olderURL),
				Kind:          archive.TaskPage,
				OriginArchive: ukpuruName,
				Stage:         ukpuruStageListing,
			})
		}
	}

	if len(out.Follow) == 0 {
		return ParseOutput{}, &ParseError{
			Message: "listing has neither post links nor pager",
			Cause:   ErrCauseStructureMissing,
		}
	}
	return out, nil
}

func (a *UkpuruAdapter) parsePost(doc *goquery.Document, pctx ParseContext) (ParseOutput, failure.ClassifiedError) {
	body := doc.Find("div.post-body").First()
	if body.Length() == 0 {
		return ParseOutput{}, &ParseError{
			Message: "post body missing: " + pctx.BaseURL.String(),
			Cause:   ErrCauseStructureMissing,
		}
	}

	rec := archive.Record{
		Archive:     ukpuruName,
		SourceID:    ukpuruPostID(pctx.BaseURL),
		Title:       normalize.CleanText(doc.Find("h3.post-title").First().Text()),
		Description: normalize.CleanText(body.Text()),
		FetchedAt:   pctx.FetchedAt,
	}

	body.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok {
			return
		}
		imgURL, ok := resolveHref(pctx.BaseURL, src)
		if !ok {
			return
		}
		ref := archive.ImageRef{
			Caption: ukpuruCaption(img),
			Status:  archive.ImagePending,
		}
		original := imgURL.String()
		ref.CandidateURLs = append(ref.CandidateURLs, original)
		if upsized := bloggerSizeSegment.ReplaceAllString(original, "/s1600/"); upsized != original {
			ref.CandidateURLs = append(ref.CandidateURLs, upsized)
		}
		rec.ImageRefs = append(rec.ImageRefs, ref)
	})

	var tags []string
	doc.Find("a[rel=tag]").Each(func(_ int, sel *goquery.Selection) {
		tags = append(tags, normalize.CleanText(sel.Text()))
	})
	rec.SetAttr("tags", tags...)

	return ParseOutput{Records: []archive.Record{rec}}, nil
}

// ukpuruCaption finds the caption nearest the image: a figcaption in
// the enclosing figure, or the wp-caption paragraph Blogger imports
// carry.
func ukpuruCaption(img *goquery.Selection) string {
	if caption := img.Closest("figure").Find("figcaption").First(); caption.Length() > 0 {
		return normalize.CleanText(caption.Text())
	}
	if caption := img.Closest("div.wp-caption").Find("p.wp-caption-text").First(); caption.Length() > 0 {
		return normalize.CleanText(caption.Text())
	}
	return ""
}

// ukpuruPostID derives the record identity from the post path, e.g.
// /2016/05/ikenga.html becomes 2016-05-ikenga.
func ukpuruPostID(postURL url.URL) string {
	path := strings.TrimSuffix(strings.Trim(postURL.Path, "/"), ".html")
	return normalize.Slug(strings.ReplaceAll(path, "/", "-"))
}

// ukpuruDesktop pins the desktop rendering; the mobile template drops
// the pager and captions.
func ukpuruDesktop(pageURL url.URL) *url.URL {
	q := pageURL.Query()
	q.Set("m", "0")
	pageURL.RawQuery = q.Encode()
	return &pageURL
}

// resolveHref resolves href against the page URL and keeps only
// http(s) results.
func resolveHref(base url.URL, href string) (url.URL, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return url.URL{}, false
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return url.URL{}, false
	}
	resolved.Fragment = ""
	return *resolved, true
}
