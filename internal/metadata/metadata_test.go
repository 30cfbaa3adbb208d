package metadata

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFile(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load of missing file: %v", err)
	}
	if m != (Metadata{}) {
		t.Errorf("expected zero metadata, got %+v", m)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", FileName)
	want := Metadata{
		LastSourceImage:   "/wallpapers/dunes.jpg",
		LastDisplayWidth:  2560,
		LastDisplayHeight: 1440,
	}

	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Errorf("round trip: got %+v, want %+v", got, want)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("{{{not toml"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("corrupt sidecar must not fail startup: %v", err)
	}
	if m != (Metadata{}) {
		t.Errorf("corrupt sidecar should read as zero, got %+v", m)
	}
}

func TestMatches(t *testing.T) {
	m := Metadata{LastSourceImage: "a.jpg", LastDisplayWidth: 1920, LastDisplayHeight: 1080}

	if !m.Matches("a.jpg", 1920, 1080) {
		t.Error("expected match")
	}
	if m.Matches("b.jpg", 1920, 1080) {
		t.Error("identity change must not match")
	}
	if m.Matches("a.jpg", 2560, 1440) {
		t.Error("display change must not match")
	}
}
