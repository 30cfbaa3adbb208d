package brightness

import (
	"image"
	"image/color"
	"testing"

	"github.com/papapumpkin/scrim/internal/geometry"
)

// fill creates a w×h image of a single color.
func fill(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestSampleExtremeUniform(t *testing.T) {
	img := fill(100, 100, color.RGBA{R: 128, G: 128, B: 128, A: 255})
	content := geometry.Rect{X: 0, Y: 0, W: 100, H: 100}

	got := SampleExtreme(img, content, 1.0, Light)
	if got < 126 || got > 129 {
		t.Errorf("uniform gray min luminance = %d, want ~128", got)
	}
	got = SampleExtreme(img, content, 1.0, Dark)
	if got < 126 || got > 129 {
		t.Errorf("uniform gray max luminance = %d, want ~128", got)
	}
}

func TestSampleExtremeTracksWorstCase(t *testing.T) {
	// Mostly white with one black patch: light mode must find the
	// black, dark mode must find the white.
	img := fill(64, 64, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	for y := 20; y < 30; y++ {
		for x := 20; x < 30; x++ {
			img.SetRGBA(x, y, color.RGBA{A: 255})
		}
	}
	content := geometry.Rect{X: 0, Y: 0, W: 64, H: 64}

	if got := SampleExtreme(img, content, 1.0, Light); got != 0 {
		t.Errorf("light mode extreme = %d, want 0", got)
	}
	if got := SampleExtreme(img, content, 1.0, Dark); got != 255 {
		t.Errorf("dark mode extreme = %d, want 255", got)
	}
}

func TestSampleExtremeScaledCrop(t *testing.T) {
	// Image is the display at a 1/4 reduction: left half black, right
	// half white. A viewport over the right half must not see black.
	img := image.NewRGBA(image.Rect(0, 0, 480, 270))
	for y := 0; y < 270; y++ {
		for x := 0; x < 480; x++ {
			c := color.RGBA{A: 255}
			if x >= 240 {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	// Display coords: right half of a 1920-wide display.
	content := geometry.Rect{X: 1000, Y: 100, W: 800, H: 800}

	if got := SampleExtreme(img, content, 0.25, Light); got != 255 {
		t.Errorf("scaled crop min = %d, want 255 (crop must exclude black half)", got)
	}
}

func TestSampleExtremeZeroArea(t *testing.T) {
	img := fill(10, 10, color.RGBA{R: 100, G: 100, B: 100, A: 255})

	tests := []struct {
		name    string
		content geometry.Rect
		mode    Mode
		want    int
	}{
		{"zero width light", geometry.Rect{X: 5, Y: 5, W: 0, H: 10}, Light, 0},
		{"zero width dark", geometry.Rect{X: 5, Y: 5, W: 0, H: 10}, Dark, 255},
		{"fully outside", geometry.Rect{X: 500, Y: 500, W: 10, H: 10}, Light, 0},
		{"negative size", geometry.Rect{X: 0, Y: 0, W: -5, H: -5}, Dark, 255},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SampleExtreme(img, tt.content, 1.0, tt.mode); got != tt.want {
				t.Errorf("SampleExtreme = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSampleExtremeNilImage(t *testing.T) {
	if got := SampleExtreme(nil, geometry.Rect{W: 10, H: 10}, 1.0, Light); got != 0 {
		t.Errorf("nil image light = %d, want sentinel 0", got)
	}
	if got := SampleExtreme(nil, geometry.Rect{W: 10, H: 10}, 1.0, Dark); got != 255 {
		t.Errorf("nil image dark = %d, want sentinel 255", got)
	}
}
