// Package migration upgrades stored documents to the current schema before
// they reach the in-memory store.
//
// Versions are compared as semantic versions, and upgrades run as an
// ordered chain of steps, each moving records from one version to the next.
package migration

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/MrSnakeDoc/groupmark/internal/domain"
)

// CurrentVersion is the schema version written by this build.
const CurrentVersion = "1.1.0"

// BaselineVersion is assumed for documents that carry no version at all.
const BaselineVersion = "1.0.0"

// Record is one stored entity in its raw decoded form.
type Record = map[string]any

// Collection identifies which document a batch of records came from.
type Collection string

const (
	Bookmarks Collection = "bookmarks"
	Groups    Collection = "groups"
	Relations Collection = "relations"
)

// Step upgrades records from one schema version to the next. A nil
// transform leaves that collection untouched.
type Step struct {
	From      string
	To        string
	Transform map[Collection]func([]Record) []Record
}

var steps = []Step{
	{
		From: "1.0.0",
		To:   "1.1.0",
		Transform: map[Collection]func([]Record) []Record{
			Groups: numberGroups,
		},
	},
}

// Normalize maps an empty version to the baseline and trims whitespace.
func Normalize(version string) string {
	version = strings.TrimSpace(version)
	if version == "" {
		return BaselineVersion
	}
	return strings.TrimPrefix(version, "v")
}

// Valid reports whether version parses as a semantic version.
func Valid(version string) bool {
	return semver.IsValid("v" + Normalize(version))
}

// Compare orders two versions numerically: -1, 0 or +1.
func Compare(a, b string) int {
	return semver.Compare("v"+Normalize(a), "v"+Normalize(b))
}

// NeedsMigration reports whether a stored version is older than CurrentVersion.
func NeedsMigration(version string) bool {
	return Valid(version) && Compare(version, CurrentVersion) < 0
}

// Migrate runs every step between version and CurrentVersion over the
// records of one collection. It returns the records unchanged when no step
// applies.
func Migrate(c Collection, version string, records []Record) ([]Record, error) {
	if !Valid(version) {
		return records, fmt.Errorf("unparseable schema version %q: %w", version, domain.ErrValidation)
	}
	current := Normalize(version)
	for _, step := range steps {
		if Compare(current, step.To) >= 0 {
			continue
		}
		if Compare(current, step.From) < 0 {
			return records, fmt.Errorf("no migration path from %s to %s", current, step.From)
		}
		if fn := step.Transform[c]; fn != nil {
			records = fn(records)
		}
		current = step.To
	}
	return records, nil
}

// numberGroups assigns the number/displayName pair introduced in 1.1.0.
// Groups without a number take their 1-based position in the stored array.
func numberGroups(groups []Record) []Record {
	out := make([]Record, 0, len(groups))
	for i, g := range groups {
		migrated := make(Record, len(g)+2)
		for k, v := range g {
			migrated[k] = v
		}

		number, ok := intField(g, "number")
		if !ok {
			number = i + 1
			migrated["number"] = number
		}
		if v, present := g["displayName"]; !present || v == nil {
			name, _ := g["name"].(string)
			migrated["displayName"] = domain.DisplayName(number, name)
		}
		out = append(out, migrated)
	}
	return out
}

func intField(r Record, key string) (int, bool) {
	switch v := r[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}
