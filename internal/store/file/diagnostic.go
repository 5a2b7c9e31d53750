package file

import (
	"fmt"

	"github.com/MrSnakeDoc/groupmark/internal/migration"
)

// DiagnosticKind classifies a load-time finding.
type DiagnosticKind string

const (
	// DiagnosticUnreadable means the document could not be read or parsed
	// and was replaced by an empty collection.
	DiagnosticUnreadable DiagnosticKind = "unreadable"
	// DiagnosticMigrated means the document was upgraded and rewritten.
	DiagnosticMigrated DiagnosticKind = "migrated"
	// DiagnosticVersionMismatch means the document carries a version this
	// build does not know how to upgrade (newer, or malformed).
	DiagnosticVersionMismatch DiagnosticKind = "version_mismatch"
	// DiagnosticRepaired means records broke an invariant and were fixed in
	// memory and rewritten.
	DiagnosticRepaired DiagnosticKind = "repaired"
)

// Diagnostic is a non-fatal finding reported by Load.
type Diagnostic struct {
	Document string         `json:"document"`
	Kind     DiagnosticKind `json:"kind"`
	Version  string         `json:"version,omitempty"`
	Message  string         `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Document, d.Message)
}

func unreadable(doc string, err error) Diagnostic {
	return Diagnostic{
		Document: doc,
		Kind:     DiagnosticUnreadable,
		Message:  fmt.Sprintf("unreadable, loaded as empty: %v", err),
	}
}

func migratedFrom(doc, from string) Diagnostic {
	return Diagnostic{
		Document: doc,
		Kind:     DiagnosticMigrated,
		Version:  from,
		Message:  fmt.Sprintf("upgraded from %s to %s", from, migration.CurrentVersion),
	}
}

func mismatch(doc, version string) Diagnostic {
	return Diagnostic{
		Document: doc,
		Kind:     DiagnosticVersionMismatch,
		Version:  version,
		Message:  fmt.Sprintf("data version mismatch (%s vs %s), some features may not work correctly", version, migration.CurrentVersion),
	}
}

// Repaired reports records that were rewritten or dropped so the loaded
// collection keeps its invariants.
func Repaired(doc, message string) Diagnostic {
	return Diagnostic{
		Document: doc,
		Kind:     DiagnosticRepaired,
		Message:  message,
	}
}
