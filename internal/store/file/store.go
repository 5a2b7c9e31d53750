// Package file persists the three versioned documents (bookmarks, groups,
// relations) under a storage directory and keeps rotating backups of them.
package file

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"

	"github.com/MrSnakeDoc/groupmark/internal/domain"
	"github.com/MrSnakeDoc/groupmark/internal/logger"
	"github.com/MrSnakeDoc/groupmark/internal/migration"
	"github.com/MrSnakeDoc/groupmark/internal/utils"
)

const (
	BookmarksFile = "bookmarks.json"
	GroupsFile    = "groups.json"
	RelationsFile = "relations.json"

	backupDirName = "backup"
	lockFileName  = ".lock"
)

// DocumentFiles lists the documents in the order they are backed up.
var DocumentFiles = []string{BookmarksFile, GroupsFile, RelationsFile}

// ErrLocked is returned by Lock when another process owns the storage dir.
var ErrLocked = errors.New("storage directory is locked by another process")

// Snapshot is the result of a full load.
type Snapshot struct {
	Bookmarks   []domain.Bookmark
	Groups      []domain.Group
	Relations   []domain.Relation
	Diagnostics []Diagnostic
}

type bookmarksDocument struct {
	Version   string            `json:"version"`
	Bookmarks []domain.Bookmark `json:"bookmarks"`
}

type groupsDocument struct {
	Version string         `json:"version"`
	Groups  []domain.Group `json:"groups"`
}

type relationsDocument struct {
	Version   string            `json:"version"`
	Relations []domain.Relation `json:"relations"`
}

// Store reads and writes the documents through an afero filesystem.
type Store struct {
	fs         afero.Fs
	dir        string
	maxBackups int
	logger     logger.Logger

	mu      sync.Mutex
	onWrite func()
	flk     *flock.Flock
}

// Options configures a Store.
type Options struct {
	Dir        string
	MaxBackups int
}

// New creates a Store rooted at opts.Dir, creating the directory tree.
func New(fs afero.Fs, opts Options, log logger.Logger) (*Store, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("storage dir is required: %w", domain.ErrValidation)
	}
	if opts.MaxBackups < 1 {
		opts.MaxBackups = 5
	}
	s := &Store{
		fs:         fs,
		dir:        opts.Dir,
		maxBackups: opts.MaxBackups,
		logger:     log,
	}
	if err := fs.MkdirAll(s.backupRoot(), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", s.dir, errors.Join(domain.ErrStorage, err))
	}
	return s, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) backupRoot() string { return filepath.Join(s.dir, backupDirName) }

// OnWrite registers the hook called after every successful document write.
// The backup scheduler uses it to arm its debounce timer.
func (s *Store) OnWrite(fn func()) {
	s.mu.Lock()
	s.onWrite = fn
	s.mu.Unlock()
}

// Lock takes an exclusive, non-blocking lock on the storage directory.
// It only makes sense with an OS-backed filesystem.
func (s *Store) Lock() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flk != nil {
		return nil
	}
	flk := flock.New(filepath.Join(s.dir, lockFileName))
	locked, err := flk.TryLock()
	if err != nil {
		return fmt.Errorf("lock %s: %w", s.dir, err)
	}
	if !locked {
		return fmt.Errorf("%s: %w", s.dir, ErrLocked)
	}
	s.flk = flk
	return nil
}

// Unlock releases the lock taken by Lock, if any.
func (s *Store) Unlock() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flk == nil {
		return nil
	}
	err := s.flk.Unlock()
	s.flk = nil
	return err
}

// ─────────────────────────────────────────────────────────────────
// Load
// ─────────────────────────────────────────────────────────────────

// Load reads all three documents. Unreadable documents degrade to empty
// collections and are reported as diagnostics, never as errors.
func (s *Store) Load() Snapshot {
	var snap Snapshot
	var diags []Diagnostic

	snap.Bookmarks, diags = loadDocument[domain.Bookmark](s, BookmarksFile, migration.Bookmarks, s.SaveBookmarks)
	snap.Diagnostics = append(snap.Diagnostics, diags...)

	snap.Groups, diags = loadDocument[domain.Group](s, GroupsFile, migration.Groups, s.SaveGroups)
	snap.Diagnostics = append(snap.Diagnostics, diags...)

	snap.Relations, diags = loadDocument[domain.Relation](s, RelationsFile, migration.Relations, s.SaveRelations)
	snap.Diagnostics = append(snap.Diagnostics, diags...)

	return snap
}

// loadDocument decodes one document, migrating it first when its version is
// older than the current schema. Migrated documents are written back.
func loadDocument[T any](s *Store, name string, c migration.Collection, resave func([]T) error) ([]T, []Diagnostic) {
	path := filepath.Join(s.dir, name)

	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		s.logger.Error("failed to read document, starting empty",
			logger.String("file", path), logger.Error(err))
		return nil, []Diagnostic{unreadable(name, err)}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Error("failed to parse document, starting empty",
			logger.String("file", path), logger.Error(err))
		return nil, []Diagnostic{unreadable(name, err)}
	}

	var (
		version    string
		badVersion bool
	)
	if v, ok := raw["version"]; ok {
		if err := json.Unmarshal(v, &version); err != nil {
			// not a string; keep the raw text for the diagnostic
			version, badVersion = string(v), true
		}
	}
	body := raw[string(c)]
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		body = []byte("[]")
	}

	var diags []Diagnostic
	migrated := false
	switch {
	case badVersion, !migration.Valid(version):
		diags = append(diags, mismatch(name, version))
	case migration.NeedsMigration(version):
		var records []migration.Record
		if err := json.Unmarshal(body, &records); err != nil {
			s.logger.Error("failed to decode records, starting empty",
				logger.String("file", path), logger.Error(err))
			return nil, []Diagnostic{unreadable(name, err)}
		}
		records, err = migration.Migrate(c, version, records)
		if err != nil {
			s.logger.Error("migration failed, starting empty",
				logger.String("file", path), logger.Error(err))
			return nil, []Diagnostic{unreadable(name, err)}
		}
		if body, err = json.Marshal(records); err != nil {
			return nil, []Diagnostic{unreadable(name, err)}
		}
		migrated = true
		diags = append(diags, migratedFrom(name, migration.Normalize(version)))
	case migration.Compare(version, migration.CurrentVersion) != 0:
		diags = append(diags, mismatch(name, version))
	}

	var items []T
	if err := json.Unmarshal(body, &items); err != nil {
		s.logger.Error("failed to decode records, starting empty",
			logger.String("file", path), logger.Error(err))
		return nil, []Diagnostic{unreadable(name, err)}
	}

	if migrated {
		s.logger.Info("document upgraded",
			logger.String("file", name),
			logger.String("from", migration.Normalize(version)),
			logger.String("to", migration.CurrentVersion))
		if err := resave(items); err != nil {
			s.logger.Warn("failed to write migrated document",
				logger.String("file", name), logger.Error(err))
		}
	}
	return items, diags
}

// ─────────────────────────────────────────────────────────────────
// Save
// ─────────────────────────────────────────────────────────────────

// SaveBookmarks replaces bookmarks.json with the given collection.
func (s *Store) SaveBookmarks(items []domain.Bookmark) error {
	if items == nil {
		items = []domain.Bookmark{}
	}
	return s.write(BookmarksFile, bookmarksDocument{Version: migration.CurrentVersion, Bookmarks: items})
}

// SaveGroups replaces groups.json with the given collection.
func (s *Store) SaveGroups(items []domain.Group) error {
	if items == nil {
		items = []domain.Group{}
	}
	return s.write(GroupsFile, groupsDocument{Version: migration.CurrentVersion, Groups: items})
}

// SaveRelations replaces relations.json with the given collection.
func (s *Store) SaveRelations(items []domain.Relation) error {
	if items == nil {
		items = []domain.Relation{}
	}
	return s.write(RelationsFile, relationsDocument{Version: migration.CurrentVersion, Relations: items})
}

// write encodes doc as indented JSON and swaps it in with a rename so a
// crash never leaves a half-written document behind.
func (s *Store) write(name string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, errors.Join(domain.ErrStorage, err))
	}

	if err := writeAtomic(s.fs, s.dir, name, data); err != nil {
		return fmt.Errorf("write %s: %w", name, errors.Join(domain.ErrStorage, err))
	}

	s.mu.Lock()
	hook := s.onWrite
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func writeAtomic(fs afero.Fs, dir, name string, data []byte) error {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := afero.TempFile(fs, dir, "."+name+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		utils.Close(tmp)
		_ = fs.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		utils.Close(tmp)
		_ = fs.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = fs.Remove(tmpName)
		return err
	}
	if err := fs.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		_ = fs.Remove(tmpName)
		return err
	}
	return nil
}
