// Package store persists small JSON documents (the asset library and
// UI state) as single files with atomic replacement on save.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store reads and writes one JSON document at a fixed path. Writes go
// through a temp file and rename so readers never observe a torn file.
type Store struct {
	path string
	mu   sync.Mutex
}

// New returns a store backed by the file at path. The file does not
// need to exist yet.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored document verbatim. A missing file is reported
// via os.IsNotExist so callers can substitute their default.
func (s *Store) Load() (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("stored document at %s is not valid JSON", s.path)
	}
	return json.RawMessage(data), nil
}

// Save validates and atomically replaces the stored document.
func (s *Store) Save(doc json.RawMessage) error {
	if !json.Valid(doc) {
		return fmt.Errorf("refusing to store invalid JSON")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace document: %w", err)
	}
	return nil
}
