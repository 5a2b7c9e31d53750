package file

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/MrSnakeDoc/groupmark/internal/domain"
	"github.com/MrSnakeDoc/groupmark/internal/logger"
	"github.com/MrSnakeDoc/groupmark/internal/migration"
)

const testDir = "/ws/.vscode/groupbookmarks"

func newTestStore(t *testing.T) (*Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	s, err := New(fs, Options{Dir: testDir, MaxBackups: 5}, logger.New("error", false))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s, fs
}

func TestNewRequiresDir(t *testing.T) {
	_, err := New(afero.NewMemMapFs(), Options{}, logger.Nop())
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("New() error = %v, want ErrValidation", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	s, _ := newTestStore(t)

	bookmarks := []domain.Bookmark{{ID: "b1", FileURI: "src/a.ts", Line: 10, Column: 2, CreatedAt: 1, UpdatedAt: 2}}
	groups := []domain.Group{{ID: "g1", Name: "Todo", DisplayName: "1. Todo", Number: 1, Color: domain.ColorBlue, SortMode: domain.SortCustom}}
	relations := []domain.Relation{{ID: domain.RelationID("b1", "g1"), BookmarkID: "b1", GroupID: "g1", Title: "fix"}}

	if err := s.SaveBookmarks(bookmarks); err != nil {
		t.Fatalf("SaveBookmarks() error = %v", err)
	}
	if err := s.SaveGroups(groups); err != nil {
		t.Fatalf("SaveGroups() error = %v", err)
	}
	if err := s.SaveRelations(relations); err != nil {
		t.Fatalf("SaveRelations() error = %v", err)
	}

	snap := s.Load()
	if len(snap.Diagnostics) != 0 {
		t.Errorf("Load() diagnostics = %v, want none", snap.Diagnostics)
	}
	if len(snap.Bookmarks) != 1 || snap.Bookmarks[0] != bookmarks[0] {
		t.Errorf("Load() bookmarks = %+v", snap.Bookmarks)
	}
	if len(snap.Groups) != 1 || snap.Groups[0].DisplayName != "1. Todo" {
		t.Errorf("Load() groups = %+v", snap.Groups)
	}
	if len(snap.Relations) != 1 || snap.Relations[0] != relations[0] {
		t.Errorf("Load() relations = %+v", snap.Relations)
	}
}

func TestSaveWritesVersionedDocument(t *testing.T) {
	s, fs := newTestStore(t)

	if err := s.SaveRelations(nil); err != nil {
		t.Fatalf("SaveRelations() error = %v", err)
	}

	data, err := afero.ReadFile(fs, filepath.Join(testDir, RelationsFile))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("document is not JSON: %v", err)
	}
	if doc["version"] != migration.CurrentVersion {
		t.Errorf("version = %v, want %s", doc["version"], migration.CurrentVersion)
	}
	if rel, ok := doc["relations"].([]any); !ok || len(rel) != 0 {
		t.Errorf("relations = %v, want empty array", doc["relations"])
	}

	// no temp files left behind
	entries, _ := afero.ReadDir(fs, testDir)
	for _, e := range entries {
		if !e.IsDir() && e.Name() != RelationsFile {
			t.Errorf("unexpected file %s in storage dir", e.Name())
		}
	}
}

func TestLoadMissingDocumentsIsEmpty(t *testing.T) {
	s, _ := newTestStore(t)

	snap := s.Load()
	if len(snap.Bookmarks)+len(snap.Groups)+len(snap.Relations) != 0 {
		t.Errorf("Load() on empty dir returned data: %+v", snap)
	}
	if len(snap.Diagnostics) != 0 {
		t.Errorf("Load() diagnostics = %v, want none", snap.Diagnostics)
	}
}

func TestLoadCorruptDocumentDegradesToEmpty(t *testing.T) {
	s, fs := newTestStore(t)
	_ = afero.WriteFile(fs, filepath.Join(testDir, BookmarksFile), []byte("{not json"), 0o644)
	if err := s.SaveGroups([]domain.Group{{ID: "g1", Name: "A", DisplayName: "1. A", Number: 1}}); err != nil {
		t.Fatal(err)
	}

	snap := s.Load()
	if len(snap.Bookmarks) != 0 {
		t.Errorf("corrupt bookmarks should load as empty, got %d", len(snap.Bookmarks))
	}
	if len(snap.Groups) != 1 {
		t.Errorf("groups should still load, got %d", len(snap.Groups))
	}
	if len(snap.Diagnostics) != 1 || snap.Diagnostics[0].Kind != DiagnosticUnreadable {
		t.Errorf("Diagnostics = %v, want one unreadable", snap.Diagnostics)
	}
}

func TestLoadMigratesLegacyGroups(t *testing.T) {
	s, fs := newTestStore(t)
	legacy := `{
  "version": "1.0.0",
  "groups": [
    {"id": "g0", "name": "Alpha", "color": "#2196F3", "order": 0},
    {"id": "g1", "name": "Beta", "color": "#FF6B6B", "order": 1},
    {"id": "g2", "name": "Gamma", "color": "#4CAF50", "order": 2}
  ]
}`
	_ = afero.WriteFile(fs, filepath.Join(testDir, GroupsFile), []byte(legacy), 0o644)

	snap := s.Load()

	if len(snap.Groups) != 3 {
		t.Fatalf("Load() groups = %d, want 3", len(snap.Groups))
	}
	g := snap.Groups[2]
	if g.Number != 3 || g.DisplayName != "3. Gamma" {
		t.Errorf("migrated group = number %d, displayName %q; want 3, %q", g.Number, g.DisplayName, "3. Gamma")
	}
	if len(snap.Diagnostics) != 1 || snap.Diagnostics[0].Kind != DiagnosticMigrated {
		t.Errorf("Diagnostics = %v, want one migrated", snap.Diagnostics)
	}

	data, _ := afero.ReadFile(fs, filepath.Join(testDir, GroupsFile))
	var doc groupsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Version != migration.CurrentVersion || doc.Groups[2].Number != 3 {
		t.Errorf("migrated document not written back: version %s", doc.Version)
	}
}

func TestLoadNewerVersionReportsMismatch(t *testing.T) {
	s, fs := newTestStore(t)
	_ = afero.WriteFile(fs, filepath.Join(testDir, BookmarksFile),
		[]byte(`{"version":"2.0.0","bookmarks":[{"id":"b1","fileUri":"a.ts","line":1,"column":0}]}`), 0o644)

	snap := s.Load()

	if len(snap.Bookmarks) != 1 {
		t.Errorf("bookmarks should still load, got %d", len(snap.Bookmarks))
	}
	if len(snap.Diagnostics) != 1 || snap.Diagnostics[0].Kind != DiagnosticVersionMismatch {
		t.Errorf("Diagnostics = %v, want one version mismatch", snap.Diagnostics)
	}
}

func TestLoadNonStringVersionReportsMismatch(t *testing.T) {
	s, fs := newTestStore(t)
	_ = afero.WriteFile(fs, filepath.Join(testDir, GroupsFile),
		[]byte(`{"version":1.1,"groups":[{"id":"g1","name":"Todo","color":"#2196F3","order":0}]}`), 0o644)

	snap := s.Load()

	if len(snap.Diagnostics) != 1 || snap.Diagnostics[0].Kind != DiagnosticVersionMismatch {
		t.Fatalf("Diagnostics = %v, want one version mismatch", snap.Diagnostics)
	}
	if snap.Diagnostics[0].Version != "1.1" {
		t.Errorf("Version = %q, want the raw value", snap.Diagnostics[0].Version)
	}
	if len(snap.Groups) != 1 || snap.Groups[0].Number != 0 {
		t.Errorf("groups = %+v, want loaded as stored, not migrated", snap.Groups)
	}
	if data, _ := afero.ReadFile(fs, filepath.Join(testDir, GroupsFile)); !bytes.Contains(data, []byte(`"version":1.1`)) {
		t.Error("document with an unreadable version must not be rewritten")
	}
}

func TestOnWriteHook(t *testing.T) {
	s, _ := newTestStore(t)
	calls := 0
	s.OnWrite(func() { calls++ })

	_ = s.SaveBookmarks(nil)
	_ = s.SaveGroups(nil)

	if calls != 2 {
		t.Errorf("OnWrite hook called %d times, want 2", calls)
	}
}

func TestBackupRetention(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.SaveBookmarks([]domain.Bookmark{{ID: "b1", FileURI: "a.ts", Line: 1}}); err != nil {
		t.Fatal(err)
	}

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	t.Cleanup(func() { now = time.Now })

	for i := 0; i < 7; i++ {
		if _, err := s.Backup(); err != nil {
			t.Fatalf("Backup() error = %v", err)
		}
	}

	names, err := s.Backups()
	if err != nil {
		t.Fatalf("Backups() error = %v", err)
	}
	if len(names) != 5 {
		t.Fatalf("Backups() = %v, want 5 retained", names)
	}
	if names[0] != "2025-03-01T10-00-07" || names[4] != "2025-03-01T10-00-03" {
		t.Errorf("Backups() = %v, want newest five, newest first", names)
	}
}

func TestRestoreBackup(t *testing.T) {
	s, _ := newTestStore(t)
	original := []domain.Bookmark{{ID: "b1", FileURI: "a.ts", Line: 4}}
	if err := s.SaveBookmarks(original); err != nil {
		t.Fatal(err)
	}
	name, err := s.Backup()
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if err := s.SaveBookmarks(nil); err != nil {
		t.Fatal(err)
	}

	if err := s.RestoreBackup(name); err != nil {
		t.Fatalf("RestoreBackup() error = %v", err)
	}
	snap := s.Load()
	if len(snap.Bookmarks) != 1 || snap.Bookmarks[0].ID != "b1" {
		t.Errorf("restored bookmarks = %+v", snap.Bookmarks)
	}

	if err := s.RestoreBackup("1999-01-01T00-00-00"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("RestoreBackup(unknown) error = %v, want ErrNotFound", err)
	}
	if err := s.RestoreBackup("../escape"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("RestoreBackup(path) error = %v, want ErrValidation", err)
	}
}

func TestLockIsExclusive(t *testing.T) {
	dir := t.TempDir()
	fs := afero.NewOsFs()
	log := logger.Nop()

	first, err := New(fs, Options{Dir: dir}, log)
	if err != nil {
		t.Fatal(err)
	}
	second, err := New(fs, Options{Dir: dir}, log)
	if err != nil {
		t.Fatal(err)
	}

	if err := first.Lock(); err != nil {
		t.Fatalf("first Lock() error = %v", err)
	}
	t.Cleanup(func() { _ = first.Unlock() })

	if err := second.Lock(); !errors.Is(err, ErrLocked) {
		t.Errorf("second Lock() error = %v, want ErrLocked", err)
	}

	_ = first.Unlock()
	if err := second.Lock(); err != nil {
		t.Errorf("Lock() after release error = %v", err)
	}
	_ = second.Unlock()
}
