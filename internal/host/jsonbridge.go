package host

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/papapumpkin/scrim/internal/geometry"
)

// wireRect is the bridge wire form of a rectangle.
type wireRect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// wireMessage is one inbound JSONL record from the host.
type wireMessage struct {
	Kind     string        `json:"kind"`
	Viewport *wireRect     `json:"viewport,omitempty"`
	Displays []wireDisplay `json:"displays,omitempty"`
	Theme    string        `json:"theme,omitempty"`
}

type wireDisplay struct {
	wireRect
	Primary bool `json:"primary,omitempty"`
}

// wireCommand is one outbound JSONL record to the host.
type wireCommand struct {
	Cmd   string `json:"cmd"`
	Path  string `json:"path,omitempty"`
	DX    int    `json:"dx,omitempty"`
	DY    int    `json:"dy,omitempty"`
	Color string `json:"color,omitempty"`
}

// JSONBridge speaks newline-delimited JSON over a single duplex
// transport (a unix socket, or a stdio pipe pair). Inbound records are
// geometry and lifecycle facts; outbound records are apply commands.
type JSONBridge struct {
	mu       sync.Mutex
	enc      *json.Encoder
	closer   io.Closer
	viewport geometry.Rect
	displays []geometry.Display
	theme    Theme

	events chan Event
	done   chan struct{}
}

// Dial connects to the host's unix socket at path.
func Dial(path string) (*JSONBridge, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("host: dial %s: %w", path, err)
	}
	return NewJSONBridge(conn, conn, conn), nil
}

// NewJSONBridge wires a bridge over explicit reader/writer/closer,
// which lets tests drive it with pipes.
func NewJSONBridge(r io.Reader, w io.Writer, c io.Closer) *JSONBridge {
	b := &JSONBridge{
		enc:    json.NewEncoder(w),
		closer: c,
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}
	go b.readLoop(r)
	return b
}

// readLoop decodes inbound records, updates the cached facts, and
// forwards an Event per record. It exits when the transport closes.
func (b *JSONBridge) readLoop(r io.Reader) {
	defer close(b.events)
	defer close(b.done)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg wireMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			// A malformed line from the host is dropped, not fatal.
			continue
		}
		b.events <- b.ingest(msg)
	}
}

// ingest applies one wire message to the cached facts and converts it
// to an Event.
func (b *JSONBridge) ingest(msg wireMessage) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ev := Event{Kind: EventKind(msg.Kind)}
	if msg.Viewport != nil {
		b.viewport = geometry.Rect{X: msg.Viewport.X, Y: msg.Viewport.Y, W: msg.Viewport.W, H: msg.Viewport.H}
		ev.Viewport = b.viewport
	}
	if msg.Displays != nil {
		b.displays = b.displays[:0]
		for _, d := range msg.Displays {
			b.displays = append(b.displays, geometry.Display{
				Bounds:  geometry.Rect{X: d.X, Y: d.Y, W: d.W, H: d.H},
				Primary: d.Primary,
			})
		}
		ev.Displays = append([]geometry.Display(nil), b.displays...)
	}
	if msg.Theme != "" {
		if msg.Theme == "dark" {
			b.theme = ThemeDark
		} else {
			b.theme = ThemeLight
		}
		ev.Theme = b.theme
	}
	return ev
}

// Viewport returns the last reported window bounds.
func (b *JSONBridge) Viewport() geometry.Rect {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.viewport
}

// Displays returns a copy of the last reported display enumeration.
func (b *JSONBridge) Displays() []geometry.Display {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]geometry.Display(nil), b.displays...)
}

// Theme returns the last reported appearance.
func (b *JSONBridge) Theme() Theme {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.theme
}

// Events returns the inbound notification channel.
func (b *JSONBridge) Events() <-chan Event {
	return b.events
}

// ShowBackdrop sends the backdrop apply command.
func (b *JSONBridge) ShowBackdrop(path string) error {
	return b.send(wireCommand{Cmd: "backdrop", Path: path})
}

// SetBackdropOffset sends the backdrop translation command.
func (b *JSONBridge) SetBackdropOffset(dx, dy int) error {
	return b.send(wireCommand{Cmd: "offset", DX: dx, DY: dy})
}

// SetOverlay sends the scrim overlay color command.
func (b *JSONBridge) SetOverlay(color string) error {
	return b.send(wireCommand{Cmd: "overlay", Color: color})
}

// Close shuts the transport down; the read loop drains and the events
// channel closes.
func (b *JSONBridge) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

func (b *JSONBridge) send(cmd wireCommand) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enc.Encode(cmd); err != nil {
		return fmt.Errorf("host: send %s: %w", cmd.Cmd, err)
	}
	return nil
}
