// Package exchange moves the whole data set in and out of the workspace as
// one portable document.
package exchange

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/groupmark/internal/domain"
)

// Document is the export format. Imports must carry the current schema
// version; they are never migrated.
type Document struct {
	Version    string            `json:"version" yaml:"version" validate:"required"`
	Platform   string            `json:"platform,omitempty" yaml:"platform,omitempty"`
	Workspace  string            `json:"workspace" yaml:"workspace"`
	ExportedAt string            `json:"exportedAt" yaml:"exportedAt"`
	Bookmarks  []domain.Bookmark `json:"bookmarks" yaml:"bookmarks" validate:"required,dive"`
	Groups     []domain.Group    `json:"groups" yaml:"groups" validate:"required,dive"`
	Relations  []domain.Relation `json:"relations" yaml:"relations" validate:"required,dive"`
}

// Format selects the document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the format from a file name; anything that is not
// .yaml or .yml is JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ParseFormat accepts "json", "yaml" or "yml". Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("format %q: %w", s, domain.ErrValidation)
	}
}

// global validator instance
var validate = validator.New()

// Encode writes doc in the given format.
func Encode(w io.Writer, doc Document, f Format) error {
	if f == FormatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// Decode reads a document. Syntax errors and missing collections are
// validation failures.
func Decode(r io.Reader, f Format) (Document, error) {
	var doc Document
	var err error
	if f == FormatYAML {
		err = yaml.NewDecoder(r).Decode(&doc)
	} else {
		err = json.NewDecoder(r).Decode(&doc)
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Document{}, fmt.Errorf("empty import document: %w", domain.ErrValidation)
		}
		return Document{}, fmt.Errorf("decode %s: %w", f, errors.Join(domain.ErrValidation, err))
	}
	return doc, nil
}

// Validate checks field constraints, that ids are unique, that every
// bookmark/group pair is linked at most once and that every relation points
// at a bookmark and a group of the same document. Stored relation ids are
// not trusted; importing rederives them from the pair.
func (d Document) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("invalid import document: %w", errors.Join(domain.ErrValidation, err))
	}

	bookmarks := make(map[string]struct{}, len(d.Bookmarks))
	for _, b := range d.Bookmarks {
		if _, dup := bookmarks[b.ID]; dup {
			return fmt.Errorf("duplicate bookmark id %s: %w", b.ID, domain.ErrValidation)
		}
		bookmarks[b.ID] = struct{}{}
	}
	groups := make(map[string]struct{}, len(d.Groups))
	for _, g := range d.Groups {
		if _, dup := groups[g.ID]; dup {
			return fmt.Errorf("duplicate group id %s: %w", g.ID, domain.ErrValidation)
		}
		groups[g.ID] = struct{}{}
	}
	pairs := make(map[string]struct{}, len(d.Relations))
	for _, r := range d.Relations {
		pair := domain.RelationID(r.BookmarkID, r.GroupID)
		if _, dup := pairs[pair]; dup {
			return fmt.Errorf("bookmark %s is linked to group %s more than once: %w", r.BookmarkID, r.GroupID, domain.ErrValidation)
		}
		pairs[pair] = struct{}{}
		if _, ok := bookmarks[r.BookmarkID]; !ok {
			return fmt.Errorf("relation %s: unknown bookmark %s: %w", r.ID, r.BookmarkID, domain.ErrValidation)
		}
		if _, ok := groups[r.GroupID]; !ok {
			return fmt.Errorf("relation %s: unknown group %s: %w", r.ID, r.GroupID, domain.ErrValidation)
		}
	}
	return nil
}
