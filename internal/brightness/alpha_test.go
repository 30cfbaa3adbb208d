package brightness

import (
	"strings"
	"testing"
)

var testParams = Params{
	MinAlpha:      0.5,
	MaxAlpha:      0.9,
	LowThreshold:  40,
	HighThreshold: 200,
}

func TestAlphaForBounds(t *testing.T) {
	for _, mode := range []Mode{Light, Dark} {
		for b := 0; b <= 255; b++ {
			a := AlphaFor(b, mode, testParams)
			if a < testParams.MinAlpha || a > testParams.MaxAlpha {
				t.Fatalf("mode %s brightness %d: alpha %f outside [%f, %f]",
					mode, b, a, testParams.MinAlpha, testParams.MaxAlpha)
			}
		}
	}
}

func TestAlphaForThresholdExtremes(t *testing.T) {
	// Light mode: dark region needs the heavy scrim.
	if a := AlphaFor(testParams.LowThreshold, Light, testParams); a != testParams.MaxAlpha {
		t.Errorf("light low threshold: alpha = %f, want %f", a, testParams.MaxAlpha)
	}
	if a := AlphaFor(testParams.HighThreshold, Light, testParams); a != testParams.MinAlpha {
		t.Errorf("light high threshold: alpha = %f, want %f", a, testParams.MinAlpha)
	}

	// Dark mode is the mirror image.
	if a := AlphaFor(testParams.LowThreshold, Dark, testParams); a != testParams.MinAlpha {
		t.Errorf("dark low threshold: alpha = %f, want %f", a, testParams.MinAlpha)
	}
	if a := AlphaFor(testParams.HighThreshold, Dark, testParams); a != testParams.MaxAlpha {
		t.Errorf("dark high threshold: alpha = %f, want %f", a, testParams.MaxAlpha)
	}
}

func TestAlphaForMonotonic(t *testing.T) {
	prev := AlphaFor(testParams.LowThreshold, Light, testParams)
	for b := testParams.LowThreshold + 1; b <= testParams.HighThreshold; b++ {
		a := AlphaFor(b, Light, testParams)
		if a > prev {
			t.Fatalf("light-mode alpha increased from %f to %f at brightness %d", prev, a, b)
		}
		prev = a
	}

	prev = AlphaFor(testParams.LowThreshold, Dark, testParams)
	for b := testParams.LowThreshold + 1; b <= testParams.HighThreshold; b++ {
		a := AlphaFor(b, Dark, testParams)
		if a < prev {
			t.Fatalf("dark-mode alpha decreased from %f to %f at brightness %d", prev, a, b)
		}
		prev = a
	}
}

func TestAlphaForDegenerateThresholds(t *testing.T) {
	p := Params{MinAlpha: 0.3, MaxAlpha: 0.7, LowThreshold: 128, HighThreshold: 128}
	a := AlphaFor(128, Light, p)
	if a < p.MinAlpha || a > p.MaxAlpha {
		t.Errorf("degenerate thresholds: alpha %f out of range", a)
	}
}

func TestFallbackAlpha(t *testing.T) {
	// The sentinel brightness pins the fallback at the mode's low-end
	// extreme: max alpha in light mode (sentinel 0), max alpha in dark
	// mode (sentinel 255).
	if a := FallbackAlpha(Light, testParams); a != testParams.MaxAlpha {
		t.Errorf("light fallback = %f, want %f", a, testParams.MaxAlpha)
	}
	if a := FallbackAlpha(Dark, testParams); a != testParams.MaxAlpha {
		t.Errorf("dark fallback = %f, want %f", a, testParams.MaxAlpha)
	}
}

func TestOverlayColor(t *testing.T) {
	got := OverlayColor(RGB{R: 30, G: 30, B: 30}, 0.75)
	if got != "rgba(30, 30, 30, 0.750)" {
		t.Errorf("OverlayColor = %q", got)
	}
	if !strings.HasPrefix(got, "rgba(") {
		t.Errorf("OverlayColor missing rgba prefix: %q", got)
	}
}
