package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"

	"github.com/MrSnakeDoc/groupmark/internal/domain"
	"github.com/MrSnakeDoc/groupmark/internal/logger"
)

// BackupTimeLayout names backup directories. It sorts lexicographically in
// chronological order.
const BackupTimeLayout = "2006-01-02T15-04-05"

// now is swapped in tests.
var now = time.Now

// Backup copies every existing document into backup/<timestamp>/ and prunes
// snapshots beyond the retention limit. It returns the snapshot name.
func (s *Store) Backup() (string, error) {
	name := now().UTC().Format(BackupTimeLayout)
	target := filepath.Join(s.backupRoot(), name)

	if err := s.fs.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("create backup %s: %w", name, errors.Join(domain.ErrStorage, err))
	}

	for _, doc := range DocumentFiles {
		data, err := afero.ReadFile(s.fs, filepath.Join(s.dir, doc))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return "", fmt.Errorf("read %s for backup: %w", doc, errors.Join(domain.ErrStorage, err))
		}
		if err := afero.WriteFile(s.fs, filepath.Join(target, doc), data, 0o644); err != nil {
			return "", fmt.Errorf("copy %s into backup: %w", doc, errors.Join(domain.ErrStorage, err))
		}
	}

	s.pruneBackups()

	s.logger.Debug("backup written", logger.String("backup", name))
	return name, nil
}

// Backups lists snapshot names, newest first.
func (s *Store) Backups() ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.backupRoot())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list backups: %w", errors.Join(domain.ErrStorage, err))
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// RestoreBackup copies the documents of a snapshot back over the live
// documents. Callers must reload the in-memory store afterwards.
func (s *Store) RestoreBackup(name string) error {
	if name == "" || filepath.Base(name) != name {
		return fmt.Errorf("invalid backup name %q: %w", name, domain.ErrValidation)
	}
	source := filepath.Join(s.backupRoot(), name)
	if ok, err := afero.DirExists(s.fs, source); err != nil || !ok {
		return fmt.Errorf("backup %q: %w", name, domain.ErrNotFound)
	}

	for _, doc := range DocumentFiles {
		data, err := afero.ReadFile(s.fs, filepath.Join(source, doc))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("read %s from backup: %w", doc, errors.Join(domain.ErrStorage, err))
		}
		if err := writeAtomic(s.fs, s.dir, doc, data); err != nil {
			return fmt.Errorf("restore %s: %w", doc, errors.Join(domain.ErrStorage, err))
		}
	}
	s.logger.Info("backup restored", logger.String("backup", name))
	return nil
}

// pruneBackups keeps the newest maxBackups snapshots. Failures are logged.
func (s *Store) pruneBackups() {
	names, err := s.Backups()
	if err != nil {
		s.logger.Warn("failed to list backups for cleanup", logger.Error(err))
		return
	}
	if len(names) <= s.maxBackups {
		return
	}
	for _, old := range names[s.maxBackups:] {
		if err := s.fs.RemoveAll(filepath.Join(s.backupRoot(), old)); err != nil {
			s.logger.Warn("failed to remove old backup",
				logger.String("backup", old), logger.Error(err))
		}
	}
}
