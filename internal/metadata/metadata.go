// Package metadata persists the last-known source image identity and
// display size between runs, so a cold start with an unchanged
// wallpaper can reuse the cached artifacts instead of forcing a
// regeneration.
package metadata

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileName is the conventional name of the metadata sidecar inside the
// cache root.
const FileName = "scrim-meta.toml"

// Metadata is the persisted record. A zero value means "nothing known",
// which forces a first-run regeneration.
type Metadata struct {
	LastSourceImage   string `toml:"last_source_image"`
	LastDisplayWidth  int    `toml:"last_display_width"`
	LastDisplayHeight int    `toml:"last_display_height"`
}

// Load reads the metadata sidecar at path. A missing or corrupt file is
// non-fatal: it returns a zero-value Metadata and no error, which simply
// forces regeneration on the first cycle.
func Load(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Metadata{}, nil
		}
		return Metadata{}, fmt.Errorf("metadata: reading %s: %w", path, err)
	}

	var m Metadata
	if err := toml.Unmarshal(data, &m); err != nil {
		// Corrupt sidecar: treat as absent rather than failing startup.
		return Metadata{}, nil
	}
	return m, nil
}

// Save writes the metadata sidecar to path, creating parent directories
// as needed. Called after each successful regeneration.
func Save(path string, m Metadata) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("metadata: creating directory %s: %w", dir, err)
	}

	data, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("metadata: marshaling: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("metadata: writing %s: %w", path, err)
	}
	return nil
}

// Matches reports whether the persisted record agrees with the given
// identity and display size.
func (m Metadata) Matches(identity string, width, height int) bool {
	return m.LastSourceImage == identity &&
		m.LastDisplayWidth == width &&
		m.LastDisplayHeight == height
}
