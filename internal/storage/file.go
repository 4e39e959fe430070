package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a key has never been written.
var ErrNotFound = errors.New("preference not found")

// FileStore keeps string preferences in a single JSON object on disk.
//
// Every Set rewrites the whole file through a temp file and rename, so a
// crash never leaves a half-written document behind.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	if path == "" {
		path = filepath.Join(os.TempDir(), "storefront-preferences.json")
	}
	return &FileStore{path: path}
}

// Path returns the backing file location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.readLocked()
	if err != nil {
		return "", err
	}
	value, ok := rows[key]
	if !ok {
		return "", errors.Wrap(ErrNotFound, key)
	}
	return value, nil
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.readLocked()
	if err != nil {
		// A corrupt document must not block new writes.
		rows = map[string]string{}
	}
	rows[key] = value
	return s.writeLocked(rows)
}

func (s *FileStore) readLocked() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read preferences")
	}
	if len(data) == 0 {
		return map[string]string{}, nil
	}
	rows := map[string]string{}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, errors.Wrap(err, "decode preferences")
	}
	return rows, nil
}

func (s *FileStore) writeLocked(rows map[string]string) error {
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create preferences dir")
	}
	tmpFile, err := os.CreateTemp(dir, ".preferences-*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpPath := tmpFile.Name()
	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Chmod(0o600); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "replace preferences")
	}
	return nil
}
