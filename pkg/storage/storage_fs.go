package storage

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// FilesystemStorage implements Storage on top of a local deployment directory.
type FilesystemStorage struct {
	baseDir string
}

// NewFilesystemStorage creates a new filesystem-backed storage rooted at baseDir.
// The directory does not need to exist yet, it is checked by Ping.
func NewFilesystemStorage(baseDir string) (*FilesystemStorage, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve deployment root")
	}
	return &FilesystemStorage{baseDir: abs}, nil
}

// BaseDir returns the absolute deployment root.
func (f *FilesystemStorage) BaseDir() string {
	return f.baseDir
}

// RealPath resolves a deployment relative key like "/WEB-INF/junit/junit.xml"
// to an absolute path below the base directory. Dot segments never climb
// above the root.
func (f *FilesystemStorage) RealPath(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", errors.Wrapf(ErrInvalidKey, "key %q", key)
	}
	return filepath.Join(f.baseDir, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// Exists reports whether anything is present at key. A directory counts as
// present, Open refuses to read it.
func (f *FilesystemStorage) Exists(_ context.Context, key string) (bool, error) {
	p, err := f.RealPath(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(p); os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

func (f *FilesystemStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := f.RealPath(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err == nil && info.IsDir() {
		err = errors.Wrapf(ErrIsDirectory, "key %q", key)
	}
	if err != nil {
		return nil, multierr.Append(err, file.Close())
	}
	return file, nil
}

func (f *FilesystemStorage) Ping(_ context.Context) error {
	info, err := os.Stat(f.baseDir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.Errorf("deployment root %q is not a directory", f.baseDir)
	}
	return nil
}

func (f *FilesystemStorage) Close() error {
	return nil
}
