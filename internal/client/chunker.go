package client

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultChunkSize is the slice size used when none is configured.
const DefaultChunkSize int64 = 1 << 20

var (
	ErrNoFile           = errors.New("no file selected")
	ErrInvalidChunkSize = errors.New("invalid chunk size")
)

// Chunk is a byte range of a File. Its payload is read lazily.
type Chunk struct {
	Index  int
	Offset int64
	Size   int64
}

// Reader returns the chunk's bytes from src. Each call yields a fresh
// reader, so a chunk can be sent again without re-slicing the file.
func (c Chunk) Reader(src io.ReaderAt) *io.SectionReader {
	return io.NewSectionReader(src, c.Offset, c.Size)
}

// Split cuts a file of the given size into contiguous chunks of chunkSize
// bytes; only the last may be shorter. There is never a trailing empty
// chunk, but an empty file yields one empty chunk 0.
func Split(size, chunkSize int64) ([]Chunk, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChunkSize, chunkSize)
	}
	if size < 0 {
		return nil, fmt.Errorf("negative file size %d", size)
	}
	if size == 0 {
		return []Chunk{{Index: 0, Offset: 0, Size: 0}}, nil
	}

	count := (size + chunkSize - 1) / chunkSize
	chunks := make([]Chunk, 0, count)
	for i := int64(0); i < count; i++ {
		offset := i * chunkSize
		chunks = append(chunks, Chunk{
			Index:  int(i),
			Offset: offset,
			Size:   min(chunkSize, size-offset),
		})
	}
	return chunks, nil
}

// File is a source selected for upload.
type File struct {
	Path        string
	Name        string
	Suffix      string
	Size        int64
	ModTime     time.Time
	Fingerprint string

	src    io.ReaderAt
	closer io.Closer
}

// OpenFile opens the regular file at path for chunked reading.
func OpenFile(path string) (*File, error) {
	if path == "" {
		return nil, ErrNoFile
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoFile, path)
		}
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrNoFile, path)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	return &File{
		Path:    absPath,
		Name:    info.Name(),
		Suffix:  Suffix(info.Name()),
		Size:    info.Size(),
		ModTime: info.ModTime(),
		src:     f,
		closer:  f,
	}, nil
}

// NewFile wraps an in-memory or otherwise already open source.
func NewFile(name string, src io.ReaderAt, size int64) *File {
	return &File{
		Name:   name,
		Suffix: Suffix(name),
		Size:   size,
		src:    src,
	}
}

func (f *File) ReadAt(p []byte, off int64) (int, error) {
	return f.src.ReadAt(p, off)
}

func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

// Suffix is the text after the last dot of name, or "" without a dot.
func Suffix(name string) string {
	base := filepath.Base(name)
	dot := strings.LastIndex(base, ".")
	if dot < 0 {
		return ""
	}
	return base[dot+1:]
}
