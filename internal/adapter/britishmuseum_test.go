package adapter_test

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nwokike/museum-harvester/internal/adapter"
	"github.com/Nwokike/museum-harvester/internal/archive"
	"github.com/Nwokike/museum-harvester/internal/fetcher"
)

const bmExport = `Museum number,Title,Description,Object type,Materials,Production date,Image
"Af1956,27.1",Ikenga figure,Carved wooden ikenga,figure,wood; pigment,1900-1950,https://media.example.org/img/af1956-27-1.jpg
"Af1898,15.3",,Bronze head fragment,sculpture,bronze,19thC,no image available
"Af1910,4.12",Mask,Wooden mask,mask,wood,,https://media.example.org/img/a.jpg; https://media.example.org/img/b.jpg
,,row without id is skipped,,,,
`

func parseBM(t *testing.T, csvBody string) adapter.ParseOutput {
	t.Helper()
	v := adapter.NewBritishMuseumAdapter()
	result := fetcher.NewLocalResult([]byte(csvBody))
	out, err := v.Parse(result, adapter.ParseContext{
		FetchedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Nil(t, err)
	return out
}

func TestBritishMuseumSeedIsLocal(t *testing.T) {
	v := adapter.NewBritishMuseumAdapter()
	tasks, err := v.Seed("/data/export.csv")
	require.Nil(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, archive.TaskLocal, tasks[0].Kind)
	assert.Equal(t, "/data/export.csv", tasks[0].Path)
	assert.Equal(t, "britishmuseum", tasks[0].OriginArchive)
}

func TestBritishMuseumSeedRejectsEmpty(t *testing.T) {
	v := adapter.NewBritishMuseumAdapter()
	_, err := v.Seed("   ")
	require.NotNil(t, err)
}

func TestBritishMuseumParseRows(t *testing.T) {
	out := parseBM(t, bmExport)
	require.Len(t, out.Records, 3)
	assert.Empty(t, out.Follow)

	first := out.Records[0]
	assert.Equal(t, "britishmuseum", first.Archive)
	assert.Equal(t, "Af1956,27.1", first.SourceID)
	assert.Equal(t, "Ikenga figure", first.Title)
	assert.Equal(t, "Carved wooden ikenga", first.Description)
	assert.Equal(t, []string{"figure"}, first.Attributes["object_type"])
	assert.Equal(t, []string{"wood", "pigment"}, first.Attributes["materials"])
	assert.Equal(t, []string{"1900-1950"}, first.Attributes["production_date"])
	require.Len(t, first.ImageRefs, 1)
	assert.Equal(t, "https://media.example.org/img/af1956-27-1.jpg", first.ImageRefs[0].BestCandidate())
	assert.Equal(t, archive.ImagePending, first.ImageRefs[0].Status)
}

func TestBritishMuseumSkipsNonHTTPImageCells(t *testing.T) {
	out := parseBM(t, bmExport)
	second := out.Records[1]
	assert.Equal(t, "Af1898,15.3", second.SourceID)
	assert.Empty(t, second.ImageRefs, "placeholder text must not become an image ref")
}

func TestBritishMuseumSplitsMultipleImages(t *testing.T) {
	out := parseBM(t, bmExport)
	third := out.Records[2]
	require.Len(t, third.ImageRefs, 2)
}

func TestBritishMuseumInjectsCopyright(t *testing.T) {
	out := parseBM(t, bmExport)
	for _, rec := range out.Records {
		assert.Equal(t,
			[]string{"© The Trustees of the British Museum"},
			rec.Attributes["copyright"],
		)
	}
}

func TestBritishMuseumRejectsMissingIDColumn(t *testing.T) {
	v := adapter.NewBritishMuseumAdapter()
	result := fetcher.NewLocalResult([]byte("Title,Image\nMask,https://x/img.jpg\n"))
	_, err := v.Parse(result, adapter.ParseContext{BaseURL: url.URL{}})
	require.NotNil(t, err)
}

func TestBritishMuseumRejectsEmptyExport(t *testing.T) {
	v := adapter.NewBritishMuseumAdapter()
	result := fetcher.NewLocalResult([]byte("Museum number,Title\n"))
	_, err := v.Parse(result, adapter.ParseContext{})
	require.NotNil(t, err)
}
