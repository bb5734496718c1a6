// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// FileStore persists credentials in a single JSON file, keyed by scope ID.
// Suitable for CLI use; browser hosts supply their own storage.
type FileStore struct {
	mu   sync.Mutex
	path string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store backed by path. The file is created on the
// first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load(key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.read()
	if err != nil {
		return nil, false, err
	}
	raw, ok := entries[key]
	return raw, ok, nil
}

func (f *FileStore) Save(key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.read()
	if err != nil {
		return err
	}
	entries[key] = value

	encoded, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credential store: %w", err)
	}
	// Credentials contain secret key material.
	if err := os.WriteFile(f.path, encoded, 0o600); err != nil {
		return fmt.Errorf("failed to write credential store: %w", err)
	}
	return nil
}

func (f *FileStore) read() (map[string]json.RawMessage, error) {
	raw, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return make(map[string]json.RawMessage), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential store: %w", err)
	}
	entries := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("corrupt credential store %s: %w", f.path, err)
	}
	return entries, nil
}
