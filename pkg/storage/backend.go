package storage

import (
	"context"
	"io"
	"io/fs"
	"time"
)

// FileInfo describes an entry below the backend root
type FileInfo struct {
	RelativePath string // slash-separated
	Size         int64
	ModTime      time.Time
	Mode         fs.FileMode
	IsDir        bool
}

// Backend is the output location of a batch. Paths are slash-separated
// and relative to the root.
type Backend interface {
	// List walks path recursively, directories included
	List(ctx context.Context, path string) ([]FileInfo, error)

	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write replaces path with exactly size bytes from r (size < 0 skips
	// the check). A non-nil meta carries the mode and modification time
	// to apply.
	Write(ctx context.Context, path string, r io.Reader, size int64, meta *FileInfo) error

	Exists(ctx context.Context, path string) (bool, error)

	MkdirAll(ctx context.Context, path string) error

	// Root is the absolute output directory
	Root() string

	Close() error
}
