// Package sandbox implements the Path Sandbox (C1): canonicalisation and
// validation of any path against a fixed set of permitted roots, shared as
// a process-wide singleton per spec §4.1/§4.11.
package sandbox

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/staminal/host/internal/staminalerr"
)

// Sandbox validates paths against a fixed, ordered list of permitted roots.
type Sandbox struct {
	roots []string // already Abs + Clean, in resolution order
}

// New builds a Sandbox from one or more permitted roots. The first root is
// primary: relative paths that don't exist under any root resolve against
// it, allowing new-file writes.
func New(roots ...string) (*Sandbox, error) {
	if len(roots) == 0 {
		return nil, staminalerr.New(staminalerr.ConfigError, "sandbox requires at least one permitted root")
	}
	resolved := make([]string, 0, len(roots))
	for _, r := range roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, staminalerr.Wrap(staminalerr.ConfigError, err, "resolving sandbox root")
		}
		resolved = append(resolved, filepath.Clean(abs))
	}
	return &Sandbox{roots: resolved}, nil
}

// Validate resolves path (relative or absolute) to its real, symlink-free
// absolute form and confirms it lies under a permitted root.
//
// For a relative path, each root is tried in order; the first one yielding
// an existing, in-bounds real path wins. If none exists, the path is
// resolved (but not required to exist) against the primary root.
func (s *Sandbox) Validate(path string) (string, error) {
	if filepath.IsAbs(path) {
		return s.validateAbs(path)
	}

	for _, root := range s.roots {
		candidate := filepath.Join(root, path)
		if real, err := s.resolveReal(candidate); err == nil {
			if _, statErr := os.Lstat(candidate); statErr == nil {
				if within(real, root) {
					return real, nil
				}
				return "", staminalerr.AccessDeniedf(path)
			}
		}
	}

	// Nothing exists yet: resolve against the primary root so callers may
	// create new files there.
	primary := s.roots[0]
	candidate := filepath.Join(primary, path)
	real, _ := s.resolveReal(candidate)
	if !within(real, primary) {
		return "", staminalerr.AccessDeniedf(path)
	}
	return real, nil
}

func (s *Sandbox) validateAbs(path string) (string, error) {
	clean := filepath.Clean(path)
	real, _ := s.resolveReal(clean)
	for _, root := range s.roots {
		if within(real, root) {
			return real, nil
		}
	}
	return "", staminalerr.AccessDeniedf(path)
}

// resolveReal follows symlinks component by component via filepath.EvalSymlinks,
// falling back to the deepest existing ancestor for paths that don't exist yet.
func (s *Sandbox) resolveReal(path string) (string, error) {
	if real, err := filepath.EvalSymlinks(path); err == nil {
		return filepath.Clean(real), nil
	}

	dir, base := filepath.Split(path)
	dir = filepath.Clean(dir)
	if dir == path {
		return path, os.ErrNotExist
	}
	realDir, _ := s.resolveReal(dir)
	return filepath.Join(realDir, base), os.ErrNotExist
}

func within(path, root string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}
