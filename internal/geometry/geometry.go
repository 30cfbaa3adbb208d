// Package geometry tracks viewport and display bounds and derives the
// translation that positions a display-sized backdrop image under a
// moving viewport.
package geometry

import "sync"

// Rect is an integer rectangle in global desktop coordinates.
type Rect struct {
	X, Y, W, H int
}

// Positive reports whether the rectangle has positive area.
func (r Rect) Positive() bool {
	return r.W > 0 && r.H > 0
}

// Contains reports whether the point (x, y) falls within the rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Center returns the rectangle's center point.
func (r Rect) Center() (int, int) {
	return r.X + r.W/2, r.Y + r.H/2
}

// Display describes one monitor known to the host.
type Display struct {
	Bounds  Rect
	Primary bool
}

// fallbackDisplay is assumed when the host reports no display information
// at all. Downstream crop and scale math requires positive dimensions.
var fallbackDisplay = Rect{W: 1920, H: 1080}

// Resolve returns the bounds of the display owning the viewport: the
// display whose rectangle contains the viewport's center point. When no
// display contains the center it falls back, in order, to the primary
// display, the first known display, and finally a synthesized default.
// The returned rectangle always has positive width and height.
func Resolve(viewport Rect, displays []Display) Rect {
	cx, cy := viewport.Center()
	for _, d := range displays {
		if d.Bounds.Positive() && d.Bounds.Contains(cx, cy) {
			return d.Bounds
		}
	}
	for _, d := range displays {
		if d.Primary && d.Bounds.Positive() {
			return d.Bounds
		}
	}
	for _, d := range displays {
		if d.Bounds.Positive() {
			return d.Bounds
		}
	}
	return fallbackDisplay
}

// Snapshot is one immutable reading of the window geometry. The engine
// replaces the whole snapshot atomically per cycle; nothing patches
// individual fields across suspension points.
type Snapshot struct {
	Viewport Rect
	Display  Rect
	Margin   int // fixed margin between window edge and content
	TitleBar int // height of the title bar above the content region
}

// Offset returns the translation that positions the display-sized
// backdrop under the viewport, so the backdrop appears fixed to the
// desktop while the window moves over it.
func (s Snapshot) Offset() (dx, dy int) {
	dx = -(s.Viewport.X - s.Display.X + s.Margin)
	dy = -(s.Viewport.Y - s.Display.Y + s.Margin + s.TitleBar)
	return dx, dy
}

// ContentRect returns the viewport's content region in display-local
// coordinates: the viewport rectangle translated into the display's
// space with the margin and title bar excluded.
func (s Snapshot) ContentRect() Rect {
	return Rect{
		X: s.Viewport.X - s.Display.X + s.Margin,
		Y: s.Viewport.Y - s.Display.Y + s.Margin + s.TitleBar,
		W: s.Viewport.W - 2*s.Margin,
		H: s.Viewport.H - 2*s.Margin - s.TitleBar,
	}
}

// Tracker holds the current viewport and display set as reported by the
// host bridge. It is safe for concurrent use: bridge goroutines write,
// the engine reads.
type Tracker struct {
	mu       sync.Mutex
	viewport Rect
	displays []Display
	margin   int
	titleBar int
}

// NewTracker creates a tracker with the given fixed margin and title bar
// offset.
func NewTracker(margin, titleBar int) *Tracker {
	return &Tracker{margin: margin, titleBar: titleBar}
}

// SetViewport records the latest viewport bounds.
func (t *Tracker) SetViewport(r Rect) {
	t.mu.Lock()
	t.viewport = r
	t.mu.Unlock()
}

// SetDisplays records the latest display enumeration.
func (t *Tracker) SetDisplays(ds []Display) {
	t.mu.Lock()
	t.displays = append(t.displays[:0], ds...)
	t.mu.Unlock()
}

// Snapshot resolves the owning display and returns an immutable reading
// of the current geometry.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		Viewport: t.viewport,
		Display:  Resolve(t.viewport, t.displays),
		Margin:   t.margin,
		TitleBar: t.titleBar,
	}
}
