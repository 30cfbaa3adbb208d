package host

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"
)

func nextEvent(t *testing.T, b *JSONBridge) Event {
	t.Helper()
	select {
	case ev, ok := <-b.Events():
		if !ok {
			t.Fatal("events channel closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event")
		return Event{}
	}
}

func TestBridgeIngestsFacts(t *testing.T) {
	pr, pw := io.Pipe()
	var out bytes.Buffer
	b := NewJSONBridge(pr, &out, pr)
	defer b.Close()

	go func() {
		io.WriteString(pw, `{"kind":"moved","viewport":{"x":100,"y":50,"w":800,"h":600}}`+"\n")
		io.WriteString(pw, `{"kind":"displays_changed","displays":[{"x":0,"y":0,"w":1920,"h":1080,"primary":true},{"x":1920,"y":0,"w":2560,"h":1440}]}`+"\n")
		io.WriteString(pw, `{"kind":"theme_changed","theme":"dark"}`+"\n")
	}()

	ev := nextEvent(t, b)
	if ev.Kind != EventMoved {
		t.Errorf("kind = %q, want %q", ev.Kind, EventMoved)
	}
	if ev.Viewport.X != 100 || ev.Viewport.Y != 50 || ev.Viewport.W != 800 || ev.Viewport.H != 600 {
		t.Errorf("viewport = %+v", ev.Viewport)
	}

	ev = nextEvent(t, b)
	if ev.Kind != EventDisplaysChanged {
		t.Errorf("kind = %q, want %q", ev.Kind, EventDisplaysChanged)
	}
	if len(ev.Displays) != 2 || !ev.Displays[0].Primary || ev.Displays[1].Bounds.W != 2560 {
		t.Errorf("displays = %+v", ev.Displays)
	}

	ev = nextEvent(t, b)
	if ev.Kind != EventThemeChanged || ev.Theme != ThemeDark {
		t.Errorf("theme event = %+v", ev)
	}

	// Facts stay cached for later queries.
	if got := b.Viewport(); got.W != 800 {
		t.Errorf("cached viewport = %+v", got)
	}
	if got := b.Displays(); len(got) != 2 {
		t.Errorf("cached displays = %+v", got)
	}
	if b.Theme() != ThemeDark {
		t.Errorf("cached theme = %v", b.Theme())
	}
}

func TestBridgeDropsMalformedLines(t *testing.T) {
	pr, pw := io.Pipe()
	b := NewJSONBridge(pr, io.Discard, pr)
	defer b.Close()

	go func() {
		io.WriteString(pw, "not json at all\n")
		io.WriteString(pw, "\n")
		io.WriteString(pw, `{"kind":"maximized"}`+"\n")
	}()

	if ev := nextEvent(t, b); ev.Kind != EventMaximized {
		t.Errorf("first surviving event = %q, want %q", ev.Kind, EventMaximized)
	}
}

func TestBridgeSendsCommands(t *testing.T) {
	var out bytes.Buffer
	b := NewJSONBridge(strings.NewReader(""), &out, nil)

	if err := b.ShowBackdrop("/cache/final.jpg"); err != nil {
		t.Fatalf("ShowBackdrop: %v", err)
	}
	if err := b.SetBackdropOffset(-120, -40); err != nil {
		t.Fatalf("SetBackdropOffset: %v", err)
	}
	if err := b.SetOverlay("rgba(30, 30, 30, 0.750)"); err != nil {
		t.Fatalf("SetOverlay: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("sent %d lines, want 3: %q", len(lines), out.String())
	}

	var cmd struct {
		Cmd   string `json:"cmd"`
		Path  string `json:"path"`
		DX    int    `json:"dx"`
		DY    int    `json:"dy"`
		Color string `json:"color"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &cmd); err != nil {
		t.Fatal(err)
	}
	if cmd.Cmd != "backdrop" || cmd.Path != "/cache/final.jpg" {
		t.Errorf("backdrop command = %+v", cmd)
	}
	if err := json.Unmarshal([]byte(lines[1]), &cmd); err != nil {
		t.Fatal(err)
	}
	if cmd.Cmd != "offset" || cmd.DX != -120 || cmd.DY != -40 {
		t.Errorf("offset command = %+v", cmd)
	}
	if err := json.Unmarshal([]byte(lines[2]), &cmd); err != nil {
		t.Fatal(err)
	}
	if cmd.Cmd != "overlay" || cmd.Color != "rgba(30, 30, 30, 0.750)" {
		t.Errorf("overlay command = %+v", cmd)
	}
}

func TestBridgeCloseDrainsEvents(t *testing.T) {
	pr, pw := io.Pipe()
	b := NewJSONBridge(pr, io.Discard, pr)

	pw.Close()
	b.Close()

	select {
	case _, ok := <-b.Events():
		if ok {
			t.Error("expected closed events channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events channel never closed")
	}
}
