// Package brightness derives overlay translucency from the backdrop
// region visible through the viewport. It samples an extreme luminance —
// the minimum in light mode, the maximum in dark mode — rather than an
// average, so a locally bright or dark sub-area cannot defeat the
// overlay's contrast.
package brightness

import (
	"image"

	"github.com/papapumpkin/scrim/internal/geometry"
)

// Mode selects which luminance extreme matters for contrast.
type Mode int

const (
	Light Mode = iota // light scrim: the darkest visible pixel matters
	Dark              // dark scrim: the brightest visible pixel matters
)

// String returns the lowercase name of the mode.
func (m Mode) String() string {
	if m == Dark {
		return "dark"
	}
	return "light"
}

// sampleStride is the pixel step used when scanning the cropped region.
// The artifacts are already reduced-resolution, so a coarse stride keeps
// the read-back cheap without missing meaningful structure.
const sampleStride = 4

// Sentinel returns the mode-appropriate extreme used when no pixels can
// be sampled: 0 for light mode, 255 for dark mode.
func Sentinel(mode Mode) int {
	if mode == Dark {
		return 255
	}
	return 0
}

// SampleExtreme scans the portion of img visible through the viewport
// and returns the extreme luminance in [0, 255] relevant to mode.
// content is the viewport's content region in display coordinates;
// scale is the reduction ratio applied when the cached image was
// generated (image pixels per display pixel). The crop is clamped to
// the image's actual bounds; a zero-area crop yields the sentinel.
func SampleExtreme(img image.Image, content geometry.Rect, scale float64, mode Mode) int {
	if img == nil || scale <= 0 {
		return Sentinel(mode)
	}

	b := img.Bounds()
	x0 := b.Min.X + int(float64(content.X)*scale)
	y0 := b.Min.Y + int(float64(content.Y)*scale)
	x1 := b.Min.X + int(float64(content.X+content.W)*scale)
	y1 := b.Min.Y + int(float64(content.Y+content.H)*scale)

	x0 = clamp(x0, b.Min.X, b.Max.X)
	y0 = clamp(y0, b.Min.Y, b.Max.Y)
	x1 = clamp(x1, b.Min.X, b.Max.X)
	y1 = clamp(y1, b.Min.Y, b.Max.Y)

	if x1 <= x0 || y1 <= y0 {
		return Sentinel(mode)
	}

	extreme := 255
	if mode == Dark {
		extreme = 0
	}
	for y := y0; y < y1; y += sampleStride {
		for x := x0; x < x1; x += sampleStride {
			r, g, b, _ := img.At(x, y).RGBA()
			lum := luminance(int(r>>8), int(g>>8), int(b>>8))
			if mode == Dark {
				if lum > extreme {
					extreme = lum
				}
			} else if lum < extreme {
				extreme = lum
			}
		}
	}
	return extreme
}

// luminance is the Rec. 601 weighted sum, truncated to an int.
func luminance(r, g, b int) int {
	return int(0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
