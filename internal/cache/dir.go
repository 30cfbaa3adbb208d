package cache

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrNoWritableDir is returned when no candidate cache root accepts a
// probe write. The engine treats this as init-abort: the subsystem
// disables itself rather than crashing the host.
var ErrNoWritableDir = errors.New("cache: no writable cache directory found")

// subdirName is the fixed directory holding the artifact pair and the
// metadata sidecar. Keeping it stable across runs is what allows a cold
// start with an unchanged wallpaper to reuse the previous artifacts.
const subdirName = "scrim"

// PrepareDir returns the first candidate root under which a scrim cache
// directory can be created and written. Writability is confirmed by
// probe-writing a throwaway file, not by stat bits: network mounts and
// sandboxed temp dirs routinely lie about permissions.
func PrepareDir(candidates []string) (string, error) {
	for _, root := range candidates {
		if root == "" {
			continue
		}
		dir := filepath.Join(root, subdirName)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			continue
		}
		probe := filepath.Join(dir, "probe-"+uuid.NewString())
		if err := os.WriteFile(probe, []byte("scrim"), 0o644); err != nil {
			continue
		}
		os.Remove(probe)
		return dir, nil
	}
	return "", ErrNoWritableDir
}

// DefaultRoots returns the candidate cache roots in preference order:
// the configured override, the OS temp dir, and the user cache dir.
func DefaultRoots(override string) []string {
	roots := []string{override, os.TempDir()}
	if ucd, err := os.UserCacheDir(); err == nil {
		roots = append(roots, ucd)
	}
	return roots
}

// artifactName returns the fixed on-disk name for an artifact kind.
// Exactly one file of each kind exists at a time; a new generation
// overwrites in place.
func artifactName(kind Kind) string {
	if kind == KindFinal {
		return "final.jpg"
	}
	return "preview.jpg"
}

// exists reports whether path names an existing regular file.
func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// describe renders a kind for error wrapping.
func describe(kind Kind) string {
	if kind == KindFinal {
		return "final"
	}
	return "preview"
}
