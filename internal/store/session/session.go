// Package session keeps workspace-session state that lives outside the
// versioned documents. Today that is only the active group id.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/MrSnakeDoc/groupmark/internal/domain"
)

// Store reads and writes the active group pointer. An empty id means no
// group is active.
type Store interface {
	ActiveGroupID(ctx context.Context) (string, error)
	SetActiveGroupID(ctx context.Context, id string) error
}

type state struct {
	ActiveGroupID string `json:"activeGroupId,omitempty"`
}

// FileStore persists session state as a small JSON file.
type FileStore struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

// NewFileStore returns a FileStore writing to path.
func NewFileStore(fs afero.Fs, path string) *FileStore {
	return &FileStore{fs: fs, path: path}
}

func (s *FileStore) ActiveGroupID(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read session: %w", errors.Join(domain.ErrStorage, err))
	}
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		// A corrupt session file just means no active group.
		return "", nil
	}
	return st.ActiveGroupID, nil
}

func (s *FileStore) SetActiveGroupID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(state{ActiveGroupID: id}, "", "  ")
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("write session: %w", errors.Join(domain.ErrStorage, err))
	}
	if err := afero.WriteFile(s.fs, s.path, data, 0o644); err != nil {
		return fmt.Errorf("write session: %w", errors.Join(domain.ErrStorage, err))
	}
	return nil
}

// Memory is a process-local Store, used by tests and one-shot CLI commands.
type Memory struct {
	mu sync.RWMutex
	id string
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) ActiveGroupID(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.id, nil
}

func (m *Memory) SetActiveGroupID(_ context.Context, id string) error {
	m.mu.Lock()
	m.id = id
	m.mu.Unlock()
	return nil
}
