package adapter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/Nwokike/museum-harvester/internal/archive"
	"github.com/Nwokike/museum-harvester/internal/fetcher"
	"github.com/Nwokike/museum-harvester/internal/normalize"
	"github.com/Nwokike/museum-harvester/pkg/failure"
)

const (
	britishMuseumName      = "britishmuseum"
	britishMuseumCopyright = "© The Trustees of the British Museum"

	bmColumnID    = "Museum number"
	bmColumnTitle = "Title"
	bmColumnDesc  = "Description"
	bmColumnImage = "Image"
)

// bmMultiValued lists export columns whose cells pack several values
// behind ";" or "|" separators.
var bmMultiValued = map[string]bool{
	"Materials":        true,
	"Technique":        true,
	"Production place": true,
	"Culture":          true,
	"Subjects":         true,
	"Assoc name":       true,
	"Producer name":    true,
}

// BritishMuseumAdapter reads the museum's collection CSV export. The
// seed is a path on disk, so the whole archive costs zero page
// fetches; only image downloads touch the network.
type BritishMuseumAdapter struct{}

func NewBritishMuseumAdapter() *BritishMuseumAdapter {
	return &BritishMuseumAdapter{}
}

func (a *BritishMuseumAdapter) Name() string {
	return britishMuseumName
}

func (a *BritishMuseumAdapter) Seed(seed string) ([]archive.FetchTask, failure.ClassifiedError) {
	if strings.TrimSpace(seed) == "" {
		return nil, &ParseError{
			Message: "empty seed path",
			Cause:   ErrCauseBadSeed,
		}
	}
	return []archive.FetchTask{
		{
			Kind:          archive.TaskLocal,
			Path:          seed,
			OriginArchive: britishMuseumName,
		},
	}, nil
}

func (a *BritishMuseumAdapter) Parse(result fetcher.FetchResult, pctx ParseContext) (ParseOutput, failure.ClassifiedError) {
	reader := csv.NewReader(bytes.NewReader(result.Body()))
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return ParseOutput{}, &ParseError{
			Message: err.Error(),
			Cause:   ErrCauseBadTabular,
		}
	}
	if len(rows) < 2 {
		return ParseOutput{}, &ParseError{
			Message: "export has no data rows",
			Cause:   ErrCauseBadTabular,
		}
	}

	header := rows[0]
	idCol := -1
	for i, name := range header {
		if strings.TrimSpace(name) == bmColumnID {
			idCol = i
		}
	}
	if idCol < 0 {
		return ParseOutput{}, &ParseError{
			Message: fmt.Sprintf("export missing %q column", bmColumnID),
			Cause:   ErrCauseBadTabular,
		}
	}

	var out ParseOutput
	for _, row := range rows[1:] {
		if idCol >= len(row) || strings.TrimSpace(row[idCol]) == "" {
			continue
		}
		rec := archive.Record{
			Archive:   britishMuseumName,
			SourceID:  strings.TrimSpace(row[idCol]),
			FetchedAt: pctx.FetchedAt,
		}
		for i, cell := range row {
			if i == idCol || i >= len(header) {
				continue
			}
			column := strings.TrimSpace(header[i])
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			switch column {
			case bmColumnTitle:
				rec.Title = cell
			case bmColumnDesc:
				rec.Description = cell
			case bmColumnImage:
				rec.ImageRefs = append(rec.ImageRefs, bmImageRefs(cell)...)
			default:
				if bmMultiValued[column] {
					rec.SetAttr(normalize.CanonicalKey(column), normalize.SplitMulti(cell)...)
				} else {
					rec.SetAttr(normalize.CanonicalKey(column), cell)
				}
			}
		}
		rec.SetAttr("copyright", britishMuseumCopyright)
		out.Records = append(out.Records, rec)
	}
	return out, nil
}

// bmImageRefs turns the Image cell into refs, skipping entries that
// are not absolute http(s) URLs (the export uses placeholder text for
// unphotographed objects).
func bmImageRefs(cell string) []archive.ImageRef {
	var refs []archive.ImageRef
	for _, raw := range normalize.SplitMulti(cell) {
		if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
			continue
		}
		refs = append(refs, archive.ImageRef{
			CandidateURLs: []string{raw},
			Status:        archive.ImagePending,
		})
	}
	return refs
}
