package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore is a Store backed by a JSON file, the non-browser counterpart of
// a localStorage-backed store. Every write rewrites the whole file; the
// session record is four small keys, so this stays cheap.
type FileStore struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// NewFileStore opens (or creates on first write) the store at path.
func NewFileStore(path string) (*FileStore, error) {
	values := make(map[string]string)

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// first run, nothing persisted yet
	case err != nil:
		return nil, fmt.Errorf("failed to read store file %s: %w", path, err)
	default:
		if err := json.Unmarshal(data, &values); err != nil {
			return nil, fmt.Errorf("corrupt store file %s: %w", path, err)
		}
	}

	return &FileStore{path: path, values: values}, nil
}

func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.values[key]
	return value, ok, nil
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return s.flush()
}

func (s *FileStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[key]; !ok {
		return nil
	}

	delete(s.values, key)
	return s.flush()
}

func (s *FileStore) flush() error {
	data, err := json.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("failed to serialize store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write store file %s: %w", s.path, err)
	}

	return nil
}
