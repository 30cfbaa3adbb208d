// Package source resolves the current wallpaper image and watches it
// for changes. The identity of the source image is its path, compared
// by value; the engine treats an identity change as the primary
// staleness trigger.
package source

import (
	"context"
	"os"
	"strings"
)

// Provider reports the current source image identity. An empty identity
// with a nil error is a transient condition (no wallpaper known yet),
// not a failure.
type Provider interface {
	Current(ctx context.Context) (string, error)
}

// Static always reports the same path. Used by tests and by the regen
// command.
type Static struct {
	Path string
}

// Current returns the fixed path, or empty if the file is gone.
func (s Static) Current(ctx context.Context) (string, error) {
	if _, err := os.Stat(s.Path); err != nil {
		return "", nil
	}
	return s.Path, nil
}

// Pointer reads the wallpaper path from a small pointer file maintained
// by the host (first line, whitespace-trimmed). A missing pointer file
// is transient, not fatal.
type Pointer struct {
	PointerPath string
}

// Current resolves the pointer file to the wallpaper path it names.
func (p Pointer) Current(ctx context.Context) (string, error) {
	data, err := os.ReadFile(p.PointerPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	target, _, _ := strings.Cut(string(data), "\n")
	target = strings.TrimSpace(target)
	if target == "" {
		return "", nil
	}
	if _, err := os.Stat(target); err != nil {
		return "", nil
	}
	return target, nil
}
