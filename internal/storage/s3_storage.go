package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

type S3Storage struct {
	client  *minio.Client
	bucket  string
	tempDir string
}

func NewS3Storage(config *BackendConfig) (*S3Storage, error) {
	client, err := minio.New(config.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.S3AccessKey, config.S3SecretKey, ""),
		Secure: config.S3UseSSL,
		Region: config.S3Region,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, config.S3Bucket)
	if err != nil {
		return nil, err
	}

	if !exists {
		if err := client.MakeBucket(ctx, config.S3Bucket, minio.MakeBucketOptions{Region: config.S3Region}); err != nil {
			return nil, err
		}
	}

	return &S3Storage{
		client:  client,
		bucket:  config.S3Bucket,
		tempDir: config.S3TempDir,
	}, nil
}

func dirPrefix(dir string) string {
	dir = strings.Trim(dir, "/")
	if dir == "" {
		return ""
	}
	return dir + "/"
}

// EnsureDir is a no-op: prefixes exist implicitly in a bucket.
func (s *S3Storage) EnsureDir(ctx context.Context, dir string) error {
	return nil
}

func (s *S3Storage) List(ctx context.Context, dir string) ([]Entry, error) {
	prefix := dirPrefix(dir)
	var entries []Entry

	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		name := strings.TrimPrefix(obj.Key, prefix)
		// common prefixes ("sub/") are directories
		if name == "" || strings.HasSuffix(name, "/") {
			continue
		}
		entries = append(entries, Entry{Name: name, Size: obj.Size})
	}

	return entries, nil
}

func (s *S3Storage) ListDirs(ctx context.Context, dir string) ([]string, error) {
	prefix := dirPrefix(dir)
	var dirs []string

	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		name := strings.TrimPrefix(obj.Key, prefix)
		if strings.HasSuffix(name, "/") {
			dirs = append(dirs, strings.TrimSuffix(name, "/"))
		}
	}

	return dirs, nil
}

func (s *S3Storage) Put(ctx context.Context, path string, reader io.Reader) error {
	_, err := s.client.PutObject(ctx, s.bucket, path, reader, -1, minio.PutObjectOptions{})
	return err
}

func (s *S3Storage) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}

	_, err = obj.Stat()
	if err != nil {
		obj.Close()
		errResponse := minio.ToErrorResponse(err)
		if errResponse.Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}

	return obj, nil
}

func (s *S3Storage) Delete(ctx context.Context, path string) error {
	return s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{})
}

func (s *S3Storage) DeleteAll(ctx context.Context, dir string) error {
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    dirPrefix(dir),
		Recursive: true,
	})

	var firstErr error
	for removeErr := range s.client.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{}) {
		log.Warn().Err(removeErr.Err).Str("key", removeErr.ObjectName).Msg("Failed to remove object")
		if firstErr == nil {
			firstErr = removeErr.Err
		}
	}

	return firstErr
}

func (s *S3Storage) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, path, minio.StatObjectOptions{})
	if err != nil {
		errResponse := minio.ToErrorResponse(err)
		if errResponse.Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// NewWriter assembles the artifact in a local temp file and uploads it
// with a single PUT on Commit, since objects cannot be written at offsets.
func (s *S3Storage) NewWriter(ctx context.Context, path string) (ArtifactWriter, error) {
	file, err := os.CreateTemp(s.tempDir, "prappser-upload-*.part")
	if err != nil {
		return nil, err
	}

	return &s3Writer{storage: s, file: file, key: path}, nil
}

type s3Writer struct {
	storage *S3Storage
	file    *os.File
	key     string
}

func (w *s3Writer) WriteAt(p []byte, off int64) (int, error) {
	return w.file.WriteAt(p, off)
}

func (w *s3Writer) Commit(ctx context.Context) error {
	defer w.Abort()

	info, err := w.file.Stat()
	if err != nil {
		return err
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	_, err = w.storage.client.PutObject(ctx, w.storage.bucket, w.key, w.file, info.Size(), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	return err
}

func (w *s3Writer) Abort() error {
	w.file.Close()
	if err := os.Remove(w.file.Name()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
