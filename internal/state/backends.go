package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"

	"Lingua/internal/storage"
)

// FileStore keeps each entry in its own JSON file under a directory.
// Writes go through a temp file and rename, so readers only ever see
// the previous or the new content.
type FileStore struct {
	dir string // dir holds <name>.json files
}

// NewFileStore creates the directory if needed and returns a FileStore.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory:\n%w", err)
	}

	return &FileStore{dir: dir}, nil
}

// Read returns the file content, or nil if the file does not exist.
func (f *FileStore) Read(name string) ([]byte, error) {
	data, err := os.ReadFile(f.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	return data, err
}

// Write atomically replaces the file content.
func (f *FileStore) Write(name string, data []byte) error {
	return renameio.WriteFile(f.path(name), data, 0o600)
}

// path returns the file path for an entry name.
func (f *FileStore) path(name string) string {
	return filepath.Join(f.dir, name+".json")
}

// PebbleStore keeps entries under a key prefix in a Pebble database.
type PebbleStore struct {
	db *storage.Storage
}

// keyPrefix namespaces state entries inside the database.
const keyPrefix = "state:"

// NewPebbleStore wraps an open storage.
func NewPebbleStore(db *storage.Storage) *PebbleStore {
	return &PebbleStore{db: db}
}

// Read returns the stored value, or nil if absent.
func (p *PebbleStore) Read(name string) ([]byte, error) {
	return p.db.Get([]byte(keyPrefix + name))
}

// Write durably stores the value; Pebble commits single writes atomically.
func (p *PebbleStore) Write(name string, data []byte) error {
	return p.db.Set([]byte(keyPrefix+name), data)
}

// MemoryStore is an in-process Backend for tests and dry runs.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string][]byte
	writes  int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

// Read returns a copy of the stored bytes, or nil.
func (m *MemoryStore) Read(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.entries[name]
	if !ok {
		return nil, nil
	}

	out := make([]byte, len(data))
	copy(out, data)

	return out, nil
}

// Write stores a copy of data.
func (m *MemoryStore) Write(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)

	m.entries[name] = stored
	m.writes++

	return nil
}

// Writes returns how many writes the store has accepted.
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.writes
}
