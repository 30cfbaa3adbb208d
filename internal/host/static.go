package host

import (
	"sync"

	"github.com/papapumpkin/scrim/internal/geometry"
)

// StaticBridge is a bridge with fixed geometry and recorded commands.
// It backs the one-shot regen command and the engine tests; scripted
// events can be injected through Emit.
type StaticBridge struct {
	mu        sync.Mutex
	viewport  geometry.Rect
	displays  []geometry.Display
	theme     Theme
	backdrops []string
	overlays  []string
	lastDX    int
	lastDY    int
	events    chan Event
	closeOnce sync.Once
}

// NewStaticBridge creates a bridge reporting the given fixed geometry.
func NewStaticBridge(viewport geometry.Rect, displays []geometry.Display, theme Theme) *StaticBridge {
	return &StaticBridge{
		viewport: viewport,
		displays: displays,
		theme:    theme,
		events:   make(chan Event, 16),
	}
}

// Emit injects a host event, updating the cached facts the way a real
// host report would.
func (b *StaticBridge) Emit(ev Event) {
	b.mu.Lock()
	if ev.Viewport.Positive() {
		b.viewport = ev.Viewport
	}
	if ev.Displays != nil {
		b.displays = append(b.displays[:0], ev.Displays...)
	}
	if ev.Kind == EventThemeChanged {
		b.theme = ev.Theme
	}
	b.mu.Unlock()
	b.events <- ev
}

// Viewport returns the fixed (or last emitted) window bounds.
func (b *StaticBridge) Viewport() geometry.Rect {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.viewport
}

// Displays returns the display enumeration.
func (b *StaticBridge) Displays() []geometry.Display {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]geometry.Display(nil), b.displays...)
}

// Theme returns the appearance.
func (b *StaticBridge) Theme() Theme {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.theme
}

// Events returns the injected-event channel.
func (b *StaticBridge) Events() <-chan Event {
	return b.events
}

// ShowBackdrop records the applied backdrop path.
func (b *StaticBridge) ShowBackdrop(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.backdrops = append(b.backdrops, path)
	return nil
}

// SetBackdropOffset records the last translation.
func (b *StaticBridge) SetBackdropOffset(dx, dy int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastDX, b.lastDY = dx, dy
	return nil
}

// SetOverlay records the applied overlay color.
func (b *StaticBridge) SetOverlay(color string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overlays = append(b.overlays, color)
	return nil
}

// Close closes the event channel.
func (b *StaticBridge) Close() error {
	b.closeOnce.Do(func() { close(b.events) })
	return nil
}

// Backdrops returns the backdrop paths shown so far.
func (b *StaticBridge) Backdrops() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.backdrops...)
}

// Overlays returns the overlay colors applied so far.
func (b *StaticBridge) Overlays() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.overlays...)
}

// Offset returns the last backdrop translation.
func (b *StaticBridge) Offset() (dx, dy int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastDX, b.lastDY
}
