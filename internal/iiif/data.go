package iiif

import "strings"

// Image-service descriptor and tier construction.

// Descriptor is the subset of a IIIF Image API info.json response the
// resolver needs: exact full dimensions and the advertised size list.
type Descriptor struct {
	Context string `json:"@context"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Sizes   []Size `json:"sizes"`
}

type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// MaxSize returns the largest advertised size by area, falling back
// to the descriptor's own width/height when no size list is present.
// The second return is false when the descriptor carries no usable
// dimensions at all.
func (d *Descriptor) MaxSize() (Size, bool) {
	best := Size{Width: d.Width, Height: d.Height}
	for _, s := range d.Sizes {
		if s.Width*s.Height > best.Width*best.Height {
			best = s
		}
	}
	if best.Width <= 0 || best.Height <= 0 {
		return Size{}, false
	}
	return best, true
}

// fullRegionKeyword returns the size keyword that requests the native
// resolution: "max" since Image API v3, "full" before it.
func (d *Descriptor) fullRegionKeyword() string {
	if strings.Contains(d.Context, "image/3") {
		return "max"
	}
	return "full"
}

// Tiers returns candidate image URLs for a IIIF-style service base,
// ordered lowest to highest resolution. Probing walks this list from
// the back, so the common case (full resolution servable) costs one
// probe.
func Tiers(serviceBase string) []string {
	base := strings.TrimRight(serviceBase, "/")
	return []string{
		base + "/full/!400,400/0/default.jpg",
		base + "/full/!1024,1024/0/default.jpg",
		base + "/full/full/0/default.jpg",
	}
}

func descriptorURL(serviceBase string) string {
	return trimBase(serviceBase) + "/info.json"
}

func trimBase(serviceBase string) string {
	return strings.TrimRight(serviceBase, "/")
}
