package domain

import "time"

// Bookmark represents a saved location in a workspace file.
//
// A Bookmark never exists on its own for long: it is always reachable
// through at least one Relation. Once its last Relation goes away the
// bookmark is deleted (orphan sweep).
type Bookmark struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is an opaque unique identifier (UUID v4).
	ID string `json:"id" yaml:"id" validate:"required"`

	// ─────────────────────────────
	// Location
	// ─────────────────────────────

	// FileURI is the workspace-relative path using "/" separators.
	// In multi-root workspaces it is prefixed with "[WorkspaceName]:".
	// Example: src/user.ts, [api]:cmd/main.go
	FileURI string `json:"fileUri" yaml:"fileUri" validate:"required"`

	// Line is 1-based.
	Line int `json:"line" yaml:"line" validate:"gte=1"`

	// Column is 0-based.
	Column int `json:"column" yaml:"column" validate:"gte=0"`

	// ─────────────────────────────
	// Metadata
	// ─────────────────────────────

	// CreatedAt is the creation time in Unix milliseconds.
	CreatedAt int64 `json:"createdAt" yaml:"createdAt"`

	// UpdatedAt is bumped on any mutation (Unix milliseconds).
	UpdatedAt int64 `json:"updatedAt" yaml:"updatedAt"`
}

// NowMillis returns the current time in Unix milliseconds, the timestamp
// unit used by every persisted entity.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
