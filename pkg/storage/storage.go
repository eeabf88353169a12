package storage

import (
	"context"
	"io"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidKey is returned for keys that do not name a file below the deployment root.
	ErrInvalidKey = errors.New("invalid storage key")
	// ErrIsDirectory is returned when opening a key that is a directory.
	ErrIsDirectory = errors.New("is a directory")
)

// Storage gives read access to the files of a deployment root.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Exists reports whether a file is present for the given key without reading it.
	Exists(ctx context.Context, key string) (bool, error)

	// Open returns a reader for the given key.
	// Returns os.ErrNotExist if the key does not exist.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Ping checks that the deployment root itself is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the storage backend.
	Close() error
}
