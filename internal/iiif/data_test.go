package iiif

import "testing"

func TestDescriptorMaxSize(t *testing.T) {
	tests := []struct {
		name string
		desc Descriptor
		want Size
		ok   bool
	}{
		{
			"falls back to full dimensions",
			Descriptor{Width: 4000, Height: 3000},
			Size{Width: 4000, Height: 3000},
			true,
		},
		{
			"largest advertised size wins",
			Descriptor{Width: 100, Height: 100, Sizes: []Size{
				{Width: 400, Height: 300},
				{Width: 2048, Height: 1536},
				{Width: 1024, Height: 768},
			}},
			Size{Width: 2048, Height: 1536},
			true,
		},
		{
			"no dimensions at all",
			Descriptor{},
			Size{},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.desc.MaxSize()
			if ok != tt.ok || got != tt.want {
				t.Errorf("MaxSize() = %v, %v; want %v, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestFullRegionKeywordByAPIVersion(t *testing.T) {
	v2 := Descriptor{Context: "http://iiif.io/api/image/2/context.json"}
	if got := v2.fullRegionKeyword(); got != "full" {
		t.Errorf("v2 keyword = %q, want full", got)
	}
	v3 := Descriptor{Context: "http://iiif.io/api/image/3/context.json"}
	if got := v3.fullRegionKeyword(); got != "max" {
		t.Errorf("v3 keyword = %q, want max", got)
	}
	none := Descriptor{}
	if got := none.fullRegionKeyword(); got != "full" {
		t.Errorf("missing context keyword = %q, want full", got)
	}
}

func TestTiersOrderedLowestToHighest(t *testing.T) {
	tiers := Tiers("https://media.example.org/iiif/obj1/")
	want := []string{
		"https://media.example.org/iiif/obj1/full/!400,400/0/default.jpg",
		"https://media.example.org/iiif/obj1/full/!1024,1024/0/default.jpg",
		"https://media.example.org/iiif/obj1/full/full/0/default.jpg",
	}
	if len(tiers) != len(want) {
		t.Fatalf("Tiers returned %d entries, want %d", len(tiers), len(want))
	}
	for i := range want {
		if tiers[i] != want[i] {
			t.Errorf("tiers[%d] = %q, want %q", i, tiers[i], want[i])
		}
	}
}

func TestDescriptorURL(t *testing.T) {
	if got := descriptorURL("https://m.example.org/iiif/x/"); got != "https://m.example.org/iiif/x/info.json" {
		t.Errorf("descriptorURL = %q", got)
	}
}
