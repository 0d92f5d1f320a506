package coldstore

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalStore implements Store using the local file system. Writes go through
// a temp file plus rename so a crash never leaves a torn object behind.
type LocalStore struct {
	root string
}

// NewLocalStore creates a LocalStore rooted at the given directory.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{root: root}, nil
}

// fileName escapes the cold key so characters like ':' and '{' used by the
// relational key layout stay filesystem-safe.
func fileName(key string) string {
	return url.PathEscape(key)
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.root, fileName(key))
}

// PersistBatch writes each pair atomically, stopping at the first failure.
func (s *LocalStore) PersistBatch(_ context.Context, keys []string, values [][]byte) (int, error) {
	for i, k := range keys {
		if err := s.writeAtomic(s.path(k), values[i]); err != nil {
			return i, err
		}
	}
	return len(keys), nil
}

func (s *LocalStore) writeAtomic(dst string, data []byte) error {
	tmp, err := os.CreateTemp(s.root, "tmp-obj-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if _, statErr := os.Stat(tmpName); statErr == nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, dst)
}

// Get reads back a value.
func (s *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Delete removes a value.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// List returns all keys matching the prefix, sorted.
func (s *LocalStore) List(_ context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}

	var keys []string
	for _, de := range entries {
		if de.IsDir() || strings.HasPrefix(de.Name(), "tmp-obj-") {
			continue
		}
		key, err := url.PathUnescape(de.Name())
		if err != nil {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
