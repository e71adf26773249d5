package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

type LocalStorage struct {
	basePath string
}

func NewLocalStorage(config *BackendConfig) (*LocalStorage, error) {
	basePath := config.LocalPath
	if basePath == "" {
		basePath = "./filelist"
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

func (s *LocalStorage) fullPath(path string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(path))
}

func (s *LocalStorage) EnsureDir(ctx context.Context, dir string) error {
	// MkdirAll succeeds when the directory already exists, so concurrent
	// first chunks for the same fingerprint do not fail each other.
	return os.MkdirAll(s.fullPath(dir), 0755)
}

func (s *LocalStorage) List(ctx context.Context, dir string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.fullPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if !de.Type().IsRegular() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		entries = append(entries, Entry{Name: de.Name(), Size: info.Size()})
	}

	return entries, nil
}

func (s *LocalStorage) ListDirs(ctx context.Context, dir string) ([]string, error) {
	dirEntries, err := os.ReadDir(s.fullPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []string
	for _, de := range dirEntries {
		if de.IsDir() {
			dirs = append(dirs, de.Name())
		}
	}
	return dirs, nil
}

func (s *LocalStorage) Put(ctx context.Context, path string, reader io.Reader) error {
	fullPath := s.fullPath(path)
	dir := filepath.Dir(fullPath)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// Hidden temp name so a concurrent List never reports a half-written file.
	file, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := file.Name()

	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return nil
}

func (s *LocalStorage) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	file, err := os.Open(s.fullPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}

	return file, nil
}

func (s *LocalStorage) Delete(ctx context.Context, path string) error {
	if err := os.Remove(s.fullPath(path)); err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

func (s *LocalStorage) DeleteAll(ctx context.Context, dir string) error {
	return os.RemoveAll(s.fullPath(dir))
}

func (s *LocalStorage) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(s.fullPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (s *LocalStorage) NewWriter(ctx context.Context, path string) (ArtifactWriter, error) {
	fullPath := s.fullPath(path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, err
	}

	partPath := fullPath + "." + uuid.NewString() + ".part"
	file, err := os.OpenFile(partPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}

	return &localWriter{file: file, partPath: partPath, finalPath: fullPath}, nil
}

type localWriter struct {
	file      *os.File
	partPath  string
	finalPath string
}

func (w *localWriter) WriteAt(p []byte, off int64) (int, error) {
	return w.file.WriteAt(p, off)
}

func (w *localWriter) Commit(ctx context.Context) error {
	if err := w.file.Sync(); err != nil {
		w.Abort()
		return err
	}
	if err := w.file.Close(); err != nil {
		os.Remove(w.partPath)
		return err
	}
	if err := os.Rename(w.partPath, w.finalPath); err != nil {
		os.Remove(w.partPath)
		return err
	}
	return nil
}

func (w *localWriter) Abort() error {
	w.file.Close()
	if err := os.Remove(w.partPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
