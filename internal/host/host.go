// Package host abstracts the windowing host: the process that owns the
// actual window, knows the display layout, renders the backdrop and
// overlay, and reports geometry and lifecycle events. The engine treats
// everything here as pollable or event-driven facts it does not own.
package host

import "github.com/papapumpkin/scrim/internal/geometry"

// Theme is the host's light/dark appearance signal.
type Theme int

const (
	ThemeLight Theme = iota
	ThemeDark
)

// String returns the lowercase theme name.
func (t Theme) String() string {
	if t == ThemeDark {
		return "dark"
	}
	return "light"
}

// EventKind tags one host notification.
type EventKind string

const (
	EventMoved              EventKind = "moved"
	EventResized            EventKind = "resized"
	EventMaximized          EventKind = "maximized"
	EventRestored           EventKind = "restored"
	EventDisplaysChanged    EventKind = "displays_changed"
	EventThemeChanged       EventKind = "theme_changed"
	EventTransitionComplete EventKind = "transition_complete"
)

// Event is one host notification. Fields beyond Kind are populated only
// when relevant to the kind.
type Event struct {
	Kind     EventKind
	Viewport geometry.Rect
	Displays []geometry.Display
	Theme    Theme
}

// Bridge is the capability interface the engine depends on. A concrete
// bridge is selected once at startup; no environment probing happens
// inside the engine.
type Bridge interface {
	// Viewport returns the current window bounds in desktop coordinates.
	Viewport() geometry.Rect

	// Displays enumerates the known monitors.
	Displays() []geometry.Display

	// Theme returns the host's current appearance.
	Theme() Theme

	// Events delivers host notifications. The channel closes when the
	// bridge shuts down.
	Events() <-chan Event

	// ShowBackdrop makes path the window's backdrop image, starting the
	// host-side crossfade.
	ShowBackdrop(path string) error

	// SetBackdropOffset translates the backdrop under the viewport.
	SetBackdropOffset(dx, dy int) error

	// SetOverlay applies the scrim overlay color (an rgba() string).
	SetOverlay(color string) error

	// Close releases the bridge transport.
	Close() error
}
