package upload

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/prappser/prappser_upload/internal/protocol"
	"github.com/prappser/prappser_upload/internal/storage"
	"github.com/rs/zerolog/log"
)

// StagedChunk is a chunk found in a fingerprint's staging directory.
type StagedChunk struct {
	Index int
	Name  string
	Size  int64
}

// ChunkStore persists chunks under staging/<fingerprint>/<fingerprint>-<index>.
type ChunkStore struct {
	backend storage.StorageBackend
}

func NewChunkStore(backend storage.StorageBackend) *ChunkStore {
	return &ChunkStore{backend: backend}
}

// Put stores one chunk, replacing any chunk with the same identity. A
// chunk for a fingerprint whose artifact already exists is discarded.
func (cs *ChunkStore) Put(ctx context.Context, fingerprint string, index int, suffix string, data io.Reader) error {
	if index < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidChunkIndex, index)
	}

	exists, err := cs.backend.Exists(ctx, ArtifactPath(fingerprint, suffix))
	if err != nil {
		return fmt.Errorf("failed to check artifact: %w", err)
	}
	if exists {
		log.Debug().
			Str("fingerprint", fingerprint).
			Int("index", index).
			Msg("Artifact already merged, discarding chunk")
		_, err := io.Copy(io.Discard, data)
		return err
	}

	if err := cs.backend.EnsureDir(ctx, StagingDir(fingerprint)); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	if err := cs.backend.Put(ctx, ChunkPath(fingerprint, index), data); err != nil {
		return fmt.Errorf("failed to store chunk %d: %w", index, err)
	}

	// A merge may have committed while the chunk was being written; its
	// staging directory must not outlive the artifact.
	exists, err = cs.backend.Exists(ctx, ArtifactPath(fingerprint, suffix))
	if err != nil {
		return fmt.Errorf("failed to check artifact: %w", err)
	}
	if exists {
		log.Debug().
			Str("fingerprint", fingerprint).
			Int("index", index).
			Msg("Artifact merged during chunk write, removing staging directory")
		return cs.Discard(ctx, fingerprint)
	}

	return nil
}

// Staged lists the chunks present for fingerprint, sorted by index.
// Entries that are not chunk identities of this fingerprint are ignored.
func (cs *ChunkStore) Staged(ctx context.Context, fingerprint string) ([]StagedChunk, error) {
	entries, err := cs.backend.List(ctx, StagingDir(fingerprint))
	if err != nil {
		return nil, fmt.Errorf("failed to list staging directory: %w", err)
	}

	chunks := make([]StagedChunk, 0, len(entries))
	for _, entry := range entries {
		fp, index, err := protocol.ParseChunkID(entry.Name)
		if err != nil || fp != fingerprint {
			log.Debug().Str("fingerprint", fingerprint).Str("entry", entry.Name).Msg("Skipping foreign staging entry")
			continue
		}
		chunks = append(chunks, StagedChunk{Index: index, Name: entry.Name, Size: entry.Size})
	}

	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Index < chunks[j].Index
	})

	return chunks, nil
}

// Discard removes the staging directory of fingerprint.
func (cs *ChunkStore) Discard(ctx context.Context, fingerprint string) error {
	return cs.backend.DeleteAll(ctx, StagingDir(fingerprint))
}

// Sessions counts the staging directories currently present.
func (cs *ChunkStore) Sessions(ctx context.Context) (int, error) {
	dirs, err := cs.backend.ListDirs(ctx, StagingRoot)
	if err != nil {
		return 0, err
	}
	return len(dirs), nil
}
