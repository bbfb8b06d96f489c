package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store is the narrow persistence interface behind the claim and conversation
// repositories. Records are keyed by id; the backing medium is swappable.
type Store interface {
	Put(id string, record interface{}) error
	Get(id string, out interface{}) (bool, error)
	List() ([]string, error)
}

// FileStore persists one JSON file per record id under a fixed directory.
// Every Put flushes synchronously; the files are the sole crash-recovery
// mechanism, so write latency is traded for recovery simplicity.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed and returns a store over it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Put writes the record to <dir>/<id>.json via a temp-file rename so a crash
// mid-write never leaves a torn record behind.
func (s *FileStore) Put(id string, record interface{}) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", id, err)
	}

	path := s.path(id)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write record %s: %w", id, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to commit record %s: %w", id, err)
	}
	return nil
}

// Get loads <dir>/<id>.json into out. The boolean reports presence; a missing
// record is not an error.
func (s *FileStore) Get(id string, out interface{}) (bool, error) {
	data, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read record %s: %w", id, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to decode record %s: %w", id, err)
	}
	return true, nil
}

// List returns the ids of all persisted records.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list storage directory %s: %w", s.dir, err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}

func (s *FileStore) path(id string) string {
	// Record ids come from uuid generation or external conversation ids;
	// strip path separators so a hostile id cannot escape the directory.
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(id)
	return filepath.Join(s.dir, safe+".json")
}
