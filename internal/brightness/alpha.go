package brightness

import "fmt"

// Params maps a sampled extreme luminance to an overlay alpha.
type Params struct {
	MinAlpha      float64 // lower bound of the alpha range
	MaxAlpha      float64 // upper bound of the alpha range
	LowThreshold  int     // luminance at or below which the low-end extreme applies
	HighThreshold int     // luminance at or above which the high-end extreme applies
}

// RGB is an overlay base color.
type RGB struct {
	R, G, B uint8
}

// AlphaFor maps brightness to an overlay alpha in [MinAlpha, MaxAlpha].
//
// In light mode a dark visible region needs a heavier scrim, so alpha
// runs from MaxAlpha at the low threshold down to MinAlpha at the high
// threshold. Dark mode is the mirror image. Between the thresholds the
// mapping is linear; outside them it is pinned to the extremes.
func AlphaFor(brightness int, mode Mode, p Params) float64 {
	lowEnd, highEnd := p.MaxAlpha, p.MinAlpha
	if mode == Dark {
		lowEnd, highEnd = p.MinAlpha, p.MaxAlpha
	}

	var a float64
	switch {
	case p.HighThreshold <= p.LowThreshold:
		a = lowEnd
	case brightness <= p.LowThreshold:
		a = lowEnd
	case brightness >= p.HighThreshold:
		a = highEnd
	default:
		t := float64(brightness-p.LowThreshold) / float64(p.HighThreshold-p.LowThreshold)
		a = lowEnd + t*(highEnd-lowEnd)
	}

	return clampFloat(a, p.MinAlpha, p.MaxAlpha)
}

// FallbackAlpha is the deterministic default applied when sampling
// fails: the alpha produced by the mode's sentinel brightness.
func FallbackAlpha(mode Mode, p Params) float64 {
	return AlphaFor(Sentinel(mode), mode, p)
}

// OverlayColor formats the overlay's rgba() color string.
func OverlayColor(c RGB, alpha float64) string {
	return fmt.Sprintf("rgba(%d, %d, %d, %.3f)", c.R, c.G, c.B, alpha)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
