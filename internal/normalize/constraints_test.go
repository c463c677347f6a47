package normalize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nwokike/museum-harvester/internal/archive"
	"github.com/Nwokike/museum-harvester/internal/metadata"
	"github.com/Nwokike/museum-harvester/internal/normalize"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses runs", "Ikenga   figure,\n\twood", "Ikenga figure, wood"},
		{"trims", "  bronze head  ", "bronze head"},
		{"empty", "   \n ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalize.CleanText(tt.in))
		})
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"basic", "Ikenga Figure", "ikenga-figure"},
		{"punctuation stripped", "Mask (Mmanwu), Igbo!", "mask-mmanwu-igbo"},
		{"dash runs collapsed", "a -- b", "a-b"},
		{"trimmed dashes", "-edge case-", "edge-case"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalize.Slug(tt.in))
		})
	}
}

func TestSlugCapsLength(t *testing.T) {
	long := ""
	for i := 0; i < 30; i++ {
		long += "abcdefghij"
	}
	assert.LessOrEqual(t, len(normalize.Slug(long)), 100)
}

func TestSplitMulti(t *testing.T) {
	got := normalize.SplitMulti("wood; pigment | iron ;; ")
	assert.Equal(t, []string{"wood", "pigment", "iron"}, got)
}

func TestCanonicalKey(t *testing.T) {
	assert.Equal(t, "production_date", normalize.CanonicalKey("Production date"))
	assert.Equal(t, "object_type", normalize.CanonicalKey("  Object   Type "))
}

func TestNormalizeCleansRecord(t *testing.T) {
	constraint := normalize.NewRecordConstraint(&metadata.NoopSink{})
	rec := archive.Record{
		Archive:     "britishmuseum",
		SourceID:    " Af1956,27.1 ",
		Title:       "Ikenga  figure",
		Description: "carved\twood",
		Attributes: map[string][]string{
			"Object type": {" figure ", ""},
		},
	}

	got, err := constraint.Normalize(rec)
	require.Nil(t, err)
	assert.Equal(t, "Af1956,27.1", got.SourceID)
	assert.Equal(t, "Ikenga figure", got.Title)
	assert.Equal(t, "carved wood", got.Description)
	assert.Equal(t, []string{"figure"}, got.Attributes["object_type"])
}

func TestNormalizeRejectsMissingIdentity(t *testing.T) {
	constraint := normalize.NewRecordConstraint(&metadata.NoopSink{})

	_, err := constraint.Normalize(archive.Record{Archive: "ukpuru"})
	require.NotNil(t, err)

	_, err = constraint.Normalize(archive.Record{SourceID: "x"})
	require.NotNil(t, err)
}
