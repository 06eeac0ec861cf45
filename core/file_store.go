package core

import (
	"context"
	"encoding/base32"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileStore persists each key as one file under a state directory. It is
// the durable backend for a single-user installation: the session and cart
// survive process restarts the way browser local storage survives reloads.
//
// Keys are encoded so namespaced keys ("canteen:auth:token") map to safe
// file names. TTLs are not supported; the session/cart state this backend
// holds has no expiry semantics.
type FileStore struct {
	dir    string
	logger Logger
}

// NewFileStore creates the state directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("file store: state directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir, logger: &NoOpLogger{}}, nil
}

// SetLogger configures the logger for this store
func (f *FileStore) SetLogger(logger Logger) {
	if logger != nil {
		f.logger = logger
	}
}

var fileNameEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

func (f *FileStore) path(key string) string {
	name := fileNameEncoding.EncodeToString([]byte(key))
	return filepath.Join(f.dir, strings.ToLower(name)+".state")
}

// Get retrieves a value. A missing file yields an empty string, not an
// error; persisted state is best-effort by design.
func (f *FileStore) Get(ctx context.Context, key string) (string, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}

// Set writes the value atomically (temp file + rename) so a crash mid-write
// never leaves a half-written state file behind.
func (f *FileStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	target := f.path(key)
	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return err
	}

	f.logger.Debug("State persisted", map[string]interface{}{
		"operation":  "state_set",
		"key":        key,
		"value_size": len(value),
	})
	return nil
}

// Delete removes a value. Deleting an absent key is not an error.
func (f *FileStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Exists checks if a key exists
func (f *FileStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(f.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
