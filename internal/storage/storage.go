package storage

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("not found")

// Entry is one item of a directory listing.
type Entry struct {
	Name string
	Size int64
}

// StorageBackend is the set of filesystem/object-store primitives the
// upload pipeline relies on. Paths are slash separated and relative to
// the backend root.
type StorageBackend interface {
	// EnsureDir creates dir if it is absent. An existing dir is not an error.
	EnsureDir(ctx context.Context, dir string) error
	// List returns the regular entries directly under dir. A missing dir
	// yields an empty listing.
	List(ctx context.Context, dir string) ([]Entry, error)
	// ListDirs returns the names of the directories directly under dir.
	ListDirs(ctx context.Context, dir string) ([]string, error)
	// Put replaces path with the content of reader. Readers never observe
	// a partially written object.
	Put(ctx context.Context, path string, reader io.Reader) error
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
	// DeleteAll removes dir and everything below it.
	DeleteAll(ctx context.Context, dir string) error
	// NewWriter opens a positional writer whose content appears at path
	// only after Commit.
	NewWriter(ctx context.Context, path string) (ArtifactWriter, error)
}

// ArtifactWriter receives bytes at arbitrary offsets and publishes them
// atomically.
type ArtifactWriter interface {
	io.WriterAt
	Commit(ctx context.Context) error
	Abort() error
}

type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
)

type BackendConfig struct {
	Type        StorageType `mapstructure:"type"`
	LocalPath   string      `mapstructure:"localPath"`
	S3Endpoint  string      `mapstructure:"s3Endpoint"`
	S3Bucket    string      `mapstructure:"s3Bucket"`
	S3AccessKey string      `mapstructure:"s3AccessKey"`
	S3SecretKey string      `mapstructure:"s3SecretKey"`
	S3Region    string      `mapstructure:"s3Region"`
	S3UseSSL    bool        `mapstructure:"s3UseSSL"`
	// S3TempDir holds artifacts being assembled before they are uploaded.
	S3TempDir string `mapstructure:"s3TempDir"`
}

func NewBackend(config *BackendConfig) (StorageBackend, error) {
	switch config.Type {
	case StorageTypeS3:
		return NewS3Storage(config)
	default:
		return NewLocalStorage(config)
	}
}
