// Package workspace maps absolute file paths to the portable identifiers
// stored on bookmarks and back.
//
// With one folder an identifier is the slash-separated path relative to
// the folder root ("src/user.go"). With several folders it carries the
// folder name as a prefix ("[api]:cmd/main.go"). Unprefixed identifiers
// always resolve against the first folder.
package workspace

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/MrSnakeDoc/groupmark/internal/domain"
)

// Folder is one root of the workspace.
type Folder struct {
	Name string
	Root string
}

// Workspace is an ordered, immutable set of folders.
type Workspace struct {
	folders []Folder
}

var prefixRe = regexp.MustCompile(`^\[([^\]]+)\]:(.+)$`)

// New validates the folders and cleans their roots. The first folder is
// the primary one.
func New(folders ...Folder) (*Workspace, error) {
	if len(folders) == 0 {
		return nil, fmt.Errorf("workspace needs at least one folder: %w", domain.ErrValidation)
	}
	seen := make(map[string]struct{}, len(folders))
	out := make([]Folder, 0, len(folders))
	for _, f := range folders {
		if !filepath.IsAbs(f.Root) {
			return nil, fmt.Errorf("folder root %q is not absolute: %w", f.Root, domain.ErrValidation)
		}
		if f.Name == "" {
			f.Name = filepath.Base(f.Root)
		}
		if strings.ContainsAny(f.Name, "[]") {
			return nil, fmt.Errorf("folder name %q: %w", f.Name, domain.ErrValidation)
		}
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("duplicate folder name %q: %w", f.Name, domain.ErrValidation)
		}
		seen[f.Name] = struct{}{}
		f.Root = filepath.Clean(f.Root)
		out = append(out, f)
	}
	return &Workspace{folders: out}, nil
}

// Folders returns the folders in configuration order.
func (w *Workspace) Folders() []Folder {
	return append([]Folder(nil), w.folders...)
}

// Primary returns the first folder.
func (w *Workspace) Primary() Folder {
	return w.folders[0]
}

// Multi reports whether identifiers carry a folder prefix.
func (w *Workspace) Multi() bool {
	return len(w.folders) > 1
}

// ID returns the identifier of an absolute path. Paths outside every
// folder come back unchanged with ok=false.
func (w *Workspace) ID(absPath string) (id string, ok bool) {
	f, rel, ok := w.locate(absPath)
	if !ok {
		return absPath, false
	}
	rel = filepath.ToSlash(rel)
	if w.Multi() {
		return "[" + f.Name + "]:" + rel, true
	}
	return rel, true
}

// Path resolves an identifier to an absolute path.
func (w *Workspace) Path(id string) (string, error) {
	target := w.folders[0]
	rel := id
	if m := prefixRe.FindStringSubmatch(id); m != nil {
		f, ok := w.folder(m[1])
		if !ok {
			return "", fmt.Errorf("workspace folder %q: %w", m[1], domain.ErrNotFound)
		}
		target, rel = f, m[2]
	}
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel), nil
	}
	p := filepath.Join(target.Root, filepath.FromSlash(rel))
	if !within(target.Root, p) {
		return "", fmt.Errorf("path %q escapes folder %q: %w", id, target.Name, domain.ErrValidation)
	}
	return p, nil
}

// locate picks the innermost folder containing absPath.
func (w *Workspace) locate(absPath string) (Folder, string, bool) {
	absPath = filepath.Clean(absPath)
	var (
		best    Folder
		bestRel string
		found   bool
	)
	for _, f := range w.folders {
		if !within(f.Root, absPath) || absPath == f.Root {
			continue
		}
		if found && len(f.Root) <= len(best.Root) {
			continue
		}
		rel, err := filepath.Rel(f.Root, absPath)
		if err != nil {
			continue
		}
		best, bestRel, found = f, rel, true
	}
	return best, bestRel, found
}

func (w *Workspace) folder(name string) (Folder, bool) {
	for _, f := range w.folders {
		if f.Name == name {
			return f, true
		}
	}
	return Folder{}, false
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ParseFolder reads "name=/abs/path" or a bare "/abs/path".
func ParseFolder(spec string) Folder {
	spec = strings.TrimSpace(spec)
	if name, root, ok := strings.Cut(spec, "="); ok && !strings.ContainsAny(name, `/\`) {
		return Folder{Name: strings.TrimSpace(name), Root: strings.TrimSpace(root)}
	}
	return Folder{Root: spec}
}
