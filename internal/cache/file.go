package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// File stores one file per key below a directory. Keys are hashed into a
// two-level layout. Writers take an exclusive lock on the directory and
// publish through rename, so readers never see a torn value.
type File struct {
	dir string
}

// NewFile returns a file cache rooted at dir, creating it if needed.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &File{dir: dir}, nil
}

func (f *File) pathFor(key string) string {
	sum := sha1.Sum([]byte(key))
	name := hex.EncodeToString(sum[:])
	return filepath.Join(f.dir, name[:2], name[2:])
}

func (f *File) Get(key string) ([]byte, bool, error) {
	frame, err := os.ReadFile(f.pathFor(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	value, err := unpack(frame)
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	return value, true, nil
}

func (f *File) Set(key string, value []byte) error {
	frame, err := pack(value)
	if err != nil {
		return err
	}
	target := f.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}

	unlock, err := lockDir(f.dir)
	if err != nil {
		return fmt.Errorf("cache lock: %w", err)
	}
	defer unlock()

	tmp, err := os.CreateTemp(filepath.Dir(target), ".tmp-*")
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	if _, err := tmp.Write(frame); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (f *File) Delete(key string) error {
	unlock, err := lockDir(f.dir)
	if err != nil {
		return fmt.Errorf("cache lock: %w", err)
	}
	defer unlock()

	err = os.Remove(f.pathFor(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("cache delete %s: %w", key, err)
	}
	return nil
}

func (f *File) Close() error { return nil }
