package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/Nwokike/museum-harvester/internal/archive"
	"github.com/Nwokike/museum-harvester/internal/metadata"
	"github.com/Nwokike/museum-harvester/pkg/failure"
)

/*
Responsibilities
- Enforce the record schema invariants before persistence
- Canonicalize attribute keys and clean scraped text
- Split multi-valued attribute strings into ordered value lists

Normalization is pure with respect to record content; the sink only
observes rejections.
*/

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	slugStrip     = regexp.MustCompile(`[^\w\s.-]`)
	slugDashes    = regexp.MustCompile(`--+`)
)

// CleanText collapses whitespace runs and trims the result.
func CleanText(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// Slug derives a stable identifier fragment from free text: lowered,
// spaces dashed, punctuation stripped, capped at 100 characters.
func Slug(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "-")
	name = slugStrip.ReplaceAllString(name, "")
	name = slugDashes.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")
	if len(name) > 100 {
		name = name[:100]
	}
	return name
}

// CanonicalKey maps a source column or field label onto the dataset's
// attribute key convention: lowercase, underscores.
func CanonicalKey(label string) string {
	key := strings.ToLower(CleanText(label))
	key = strings.ReplaceAll(key, " ", "_")
	return key
}

// SplitMulti splits a multi-valued source field on its common
// delimiters, preserving order and dropping empties.
func SplitMulti(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || r == '|'
	})
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if cleaned := CleanText(p); cleaned != "" {
			values = append(values, cleaned)
		}
	}
	return values
}

// RecordConstraint validates and canonicalizes records on their way
// to persistence.
type RecordConstraint struct {
	metadataSink metadata.MetadataSink
}

func NewRecordConstraint(metadataSink metadata.MetadataSink) RecordConstraint {
	return RecordConstraint{
		metadataSink: metadataSink,
	}
}

// Normalize returns the cleaned record, or a constraint error when
// the record cannot identify itself.
func (c *RecordConstraint) Normalize(rec archive.Record) (archive.Record, failure.ClassifiedError) {
	rec.Title = CleanText(rec.Title)
	rec.Description = CleanText(rec.Description)
	rec.SourceID = CleanText(rec.SourceID)

	cleaned := make(map[string][]string, len(rec.Attributes))
	for key, values := range rec.Attributes {
		ck := CanonicalKey(key)
		for _, v := range values {
			if cv := CleanText(v); cv != "" {
				cleaned[ck] = append(cleaned[ck], cv)
			}
		}
	}
	rec.Attributes = cleaned

	if rec.Archive == "" || rec.SourceID == "" {
		err := &ConstraintError{
			Message: "record missing archive or source id",
			Cause:   ErrCauseIdentityMissing,
		}
		c.metadataSink.RecordError(
			time.Now(),
			"normalize",
			"RecordConstraint.Normalize",
			err.Kind(),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrArchive, rec.Archive),
				metadata.NewAttr(metadata.AttrSourceID, rec.SourceID),
			},
		)
		return archive.Record{}, err
	}
	return rec, nil
}
