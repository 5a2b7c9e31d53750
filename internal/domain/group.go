package domain

import (
	"fmt"
	"strings"
)

// SortMode controls how bookmarks are arranged inside a group.
type SortMode string

const (
	SortCustom SortMode = "custom"
	SortName   SortMode = "name"
)

// ParseSortMode validates a sort mode string.
func ParseSortMode(s string) (SortMode, error) {
	switch SortMode(strings.ToLower(strings.TrimSpace(s))) {
	case SortCustom:
		return SortCustom, nil
	case SortName:
		return SortName, nil
	default:
		return "", fmt.Errorf("sort mode %q: %w", s, ErrValidation)
	}
}

// Group is a named, colored, ordered collection of bookmarks.
type Group struct {
	ID string `json:"id" yaml:"id" validate:"required"`

	// Name is the raw name, without the number prefix.
	Name string `json:"name" yaml:"name"`

	// DisplayName is always "{Number}. {Name}".
	DisplayName string `json:"displayName" yaml:"displayName"`

	// Number is assigned once at creation (max+1) and never changes.
	Number int `json:"number" yaml:"number" validate:"gte=1"`

	Color Color `json:"color" yaml:"color"`

	// Order is the 0-based display rank among groups.
	Order int `json:"order" yaml:"order"`

	SortMode SortMode `json:"sortMode" yaml:"sortMode"`

	// ShowGhostText is nil in documents written before the flag existed;
	// nil means visible.
	ShowGhostText *bool `json:"showGhostText,omitempty" yaml:"showGhostText,omitempty"`

	CreatedAt int64 `json:"createdAt" yaml:"createdAt"`
	UpdatedAt int64 `json:"updatedAt" yaml:"updatedAt"`
}

// DisplayName builds the numbered label shown for a group.
func DisplayName(number int, name string) string {
	return fmt.Sprintf("%d. %s", number, name)
}

// GhostTextVisible reports the effective ghost-text flag.
func (g Group) GhostTextVisible() bool {
	return g.ShowGhostText == nil || *g.ShowGhostText
}

// Clone returns a deep copy (ShowGhostText is a pointer).
func (g Group) Clone() Group {
	if g.ShowGhostText != nil {
		v := *g.ShowGhostText
		g.ShowGhostText = &v
	}
	return g
}

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
