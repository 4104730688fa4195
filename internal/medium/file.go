package medium

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"syscall"

	"blocknexus/pkg/platform/sentinel"
)

// File stores each item as a file under a directory. Keys are path-escaped so
// any string is a valid key. Writes go through a temp file and rename so a
// reader never sees a partially written document.
type File struct {
	dir string
}

// NewFile creates the directory if needed and returns a File medium rooted there.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &File{dir: dir}, nil
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+".json")
}

func (f *File) GetItem(_ context.Context, key string) (string, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %q: %w", key, err)
	}
	return string(data), true, nil
}

func (f *File) SetItem(_ context.Context, key, value string) error {
	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return classifyFileErr(key, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		return classifyFileErr(key, err)
	}
	if err := tmp.Close(); err != nil {
		return classifyFileErr(key, err)
	}
	if err := os.Rename(tmpName, f.path(key)); err != nil {
		return classifyFileErr(key, err)
	}
	return nil
}

func (f *File) RemoveItem(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

func classifyFileErr(key string, err error) error {
	if errors.Is(err, syscall.ENOSPC) {
		return fmt.Errorf("write %q: %w: %w", key, sentinel.ErrQuotaExceeded, err)
	}
	return fmt.Errorf("write %q: %w", key, err)
}
