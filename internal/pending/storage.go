package pending

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var ErrInvalidPath = errors.New("storage path is required")

// Storage is the session-scoped backing store for the pending list.
// Entries are saved newest first.
type Storage interface {
	Load() ([]Entry, error)
	Save(entries []Entry) error
}

// SharedStorage is storage that other processes may write at the same time.
// Mutate applies fn to the list as currently stored, under an exclusive
// lock, saves the result and returns it.
type SharedStorage interface {
	Storage
	Mutate(fn func([]Entry) []Entry) ([]Entry, error)
}

// MemoryStorage keeps the list for the lifetime of the process.
type MemoryStorage struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) Load() ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...), nil
}

func (m *MemoryStorage) Save(entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append([]Entry(nil), entries...)
	return nil
}

// FileStorage persists the list as JSON in a single file, one file per
// session. Several processes may share a session file: writers serialise on
// a sibling lock file and every write re-reads the file first, so one
// process never overwrites entries it has not seen. Clear removes both files
// when the session ends.
type FileStorage struct {
	path string
	mu   sync.Mutex
}

var _ SharedStorage = (*FileStorage)(nil)

type fileState struct {
	Entries []Entry `json:"entries"`
}

func NewFileStorage(path string) (*FileStorage, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrInvalidPath
	}
	return &FileStorage{path: path}, nil
}

// Path is the session file location.
func (f *FileStorage) Path() string {
	return f.path
}

func (f *FileStorage) lockPath() string {
	return f.path + ".lock"
}

// Load reads the file without locking; writes replace it atomically.
func (f *FileStorage) Load() ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

func (f *FileStorage) Save(entries []Entry) error {
	_, err := f.Mutate(func([]Entry) []Entry { return entries })
	return err
}

func (f *FileStorage) Mutate(fn func([]Entry) []Entry) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	unlock, err := lockFile(f.lockPath())
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := f.read()
	if err != nil {
		return nil, err
	}
	next := fn(current)
	if err := f.write(next); err != nil {
		return nil, err
	}
	return append([]Entry(nil), next...), nil
}

// Clear deletes the session file and its lock file.
func (f *FileStorage) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, p := range []string{f.path, f.lockPath()} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (f *FileStorage) read() ([]Entry, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return state.Entries, nil
}

// write must be called with the lock file held.
func (f *FileStorage) write(entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(fileState{Entries: entries})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}
