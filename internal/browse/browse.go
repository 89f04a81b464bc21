// Package browse lists filesystem subtrees for directory pickers, clamped to
// a configured root: no resolution can escape it, by clamping rather than by
// erroring.
package browse

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Listing is one directory view. Parent is nil exactly when Path equals the
// browser root.
type Listing struct {
	Path    string   `json:"path"`
	Parent  *string  `json:"parent"`
	Entries []string `json:"entries"`
}

// Browser lists immediate subdirectories under a fixed root.
type Browser struct {
	root       string
	showHidden bool
}

// New creates a Browser clamped to root. The root is cleaned and made
// absolute once at construction.
func New(root string, showHidden bool) *Browser {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = filepath.Clean(root)
	}
	return &Browser{root: abs, showHidden: showHidden}
}

// Root returns the clamp root.
func (b *Browser) Root() string {
	return b.root
}

// List returns the immediate subdirectories of path, alphabetically sorted.
// An empty path means the root. Paths resolving outside the root are clamped
// back to it; an unreadable directory yields an empty entry list.
func (b *Browser) List(path string) Listing {
	resolved := b.clamp(path)

	listing := Listing{
		Path:    resolved,
		Entries: []string{},
	}
	if resolved != b.root {
		parent := filepath.Dir(resolved)
		listing.Parent = &parent
	}

	entries, err := os.ReadDir(resolved)
	if err != nil {
		return listing
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !b.showHidden && strings.HasPrefix(name, ".") {
			continue
		}
		listing.Entries = append(listing.Entries, name)
	}
	sort.Strings(listing.Entries)
	return listing
}

// clamp resolves path to an absolute path inside the root, falling back to
// the root itself for anything that escapes it.
func (b *Browser) clamp(path string) string {
	if path == "" {
		return b.root
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return b.root
	}
	abs = filepath.Clean(abs)

	rel, err := filepath.Rel(b.root, abs)
	if err != nil {
		return b.root
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return b.root
	}
	return abs
}
