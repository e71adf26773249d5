package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/prappser/prappser_upload/internal/artifact"
	"github.com/prappser/prappser_upload/internal/fingerprint"
	"github.com/prappser/prappser_upload/internal/lock"
	"github.com/prappser/prappser_upload/internal/protocol"
	"github.com/prappser/prappser_upload/internal/storage"
	"github.com/rs/zerolog/log"
)

// ArtifactCatalog records merged artifacts. It is informational only;
// resume decisions always come from the backend.
type ArtifactCatalog interface {
	Create(a *artifact.Artifact) error
}

// Merger rebuilds final artifacts from staged chunks. At most one merge
// runs per fingerprint; merges of different fingerprints run in parallel.
type Merger struct {
	backend storage.StorageBackend
	chunks  *ChunkStore
	locks   *lock.KeyedMutex
	config  Config
	catalog ArtifactCatalog
	events  EventPublisher
}

func NewMerger(backend storage.StorageBackend, chunks *ChunkStore, config Config, catalog ArtifactCatalog, events EventPublisher) *Merger {
	return &Merger{
		backend: backend,
		chunks:  chunks,
		locks:   lock.NewKeyedMutex(),
		config:  config,
		catalog: catalog,
		events:  events,
	}
}

func (m *Merger) Merge(ctx context.Context, req *protocol.MergeRequest) (*protocol.MergeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	unlock := m.locks.Lock(req.Fingerprint)
	defer unlock()

	artifactPath := ArtifactPath(req.Fingerprint, req.Suffix)

	exists, err := m.backend.Exists(ctx, artifactPath)
	if err != nil {
		return nil, fmt.Errorf("failed to check artifact: %w", err)
	}
	if exists {
		m.discard(ctx, req.Fingerprint, "Failed to remove leftover staging directory")
		return &protocol.MergeResponse{Success: true, Path: artifactPath}, nil
	}

	staged, err := m.chunks.Staged(ctx, req.Fingerprint)
	if err != nil {
		return nil, err
	}

	totalSize, err := checkStaged(req, staged)
	if err == nil && !m.config.VerifyFingerprint && trailingUnconfirmed(req, staged) {
		err = fmt.Errorf("%w: chunk %d is full-size and neither totalChunks nor totalSize confirms it is the last", ErrIncompleteUpload, len(staged)-1)
	}
	if err != nil {
		if errors.Is(err, ErrChunkSizeMismatch) {
			m.discard(ctx, req.Fingerprint, "Failed to discard inconsistent staging directory")
		}
		m.fail(req.Fingerprint, err)
		return nil, err
	}

	publish(m.events, newEvent(EventMergeStarted, req.Fingerprint))
	started := time.Now()

	if err := m.assemble(ctx, req, artifactPath, staged); err != nil {
		if errors.Is(err, ErrChunkSizeMismatch) {
			m.discard(ctx, req.Fingerprint, "Failed to discard inconsistent staging directory")
		}
		m.fail(req.Fingerprint, err)
		return nil, err
	}

	m.discard(ctx, req.Fingerprint, "Failed to remove staging directory after merge")

	m.record(req, artifactPath, totalSize, len(staged))

	log.Info().
		Str("fingerprint", req.Fingerprint).
		Str("path", artifactPath).
		Int("chunks", len(staged)).
		Int64("sizeBytes", totalSize).
		Dur("took", time.Since(started)).
		Msg("Merged upload")

	completed := newEvent(EventMergeCompleted, req.Fingerprint)
	completed.Path = artifactPath
	completed.SizeBytes = totalSize
	publish(m.events, completed)

	return &protocol.MergeResponse{
		Success:   true,
		Path:      artifactPath,
		SizeBytes: totalSize,
	}, nil
}

// expectedChunks is the chunk count the request declares, directly or
// through totalSize, or 0 when it declares neither.
func expectedChunks(req *protocol.MergeRequest) int {
	switch {
	case req.TotalChunks > 0:
		return req.TotalChunks
	case req.TotalSize > 0:
		return int((req.TotalSize + req.ChunkSize - 1) / req.ChunkSize)
	default:
		return 0
	}
}

// trailingUnconfirmed reports whether a full-size last chunk could be
// followed by chunks that were never staged.
func trailingUnconfirmed(req *protocol.MergeRequest, staged []StagedChunk) bool {
	if expectedChunks(req) > 0 || len(staged) == 0 {
		return false
	}
	return staged[len(staged)-1].Size == req.ChunkSize
}

// checkStaged verifies that the staged chunks form one gapless sequence
// whose sizes agree with the offsets index*chunkSize, and returns the
// resulting file size.
func checkStaged(req *protocol.MergeRequest, staged []StagedChunk) (int64, error) {
	if len(staged) == 0 {
		return 0, fmt.Errorf("%w: no chunks staged", ErrIncompleteUpload)
	}

	for i, chunk := range staged {
		if chunk.Index != i {
			return 0, fmt.Errorf("%w: missing chunk at index %d", ErrIncompleteUpload, i)
		}
	}

	if expected := expectedChunks(req); expected > 0 {
		if len(staged) < expected {
			return 0, fmt.Errorf("%w: missing chunk at index %d", ErrIncompleteUpload, len(staged))
		}
		if len(staged) > expected {
			return 0, fmt.Errorf("%w: staged %d chunks, expected %d", ErrChunkSizeMismatch, len(staged), expected)
		}
	}

	last := len(staged) - 1
	for _, chunk := range staged[:last] {
		if chunk.Size != req.ChunkSize {
			return 0, fmt.Errorf("%w: chunk %d has %d bytes, expected %d", ErrChunkSizeMismatch, chunk.Index, chunk.Size, req.ChunkSize)
		}
	}

	lastSize := staged[last].Size
	if lastSize > req.ChunkSize || (lastSize == 0 && last > 0) {
		return 0, fmt.Errorf("%w: last chunk %d has %d bytes", ErrChunkSizeMismatch, last, lastSize)
	}

	totalSize := int64(last)*req.ChunkSize + lastSize
	if req.TotalSize > 0 && totalSize != req.TotalSize {
		return 0, fmt.Errorf("%w: staged %d bytes, expected %d", ErrChunkSizeMismatch, totalSize, req.TotalSize)
	}

	return totalSize, nil
}

func (m *Merger) assemble(ctx context.Context, req *protocol.MergeRequest, artifactPath string, staged []StagedChunk) error {
	writer, err := m.backend.NewWriter(ctx, artifactPath)
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}

	hasher := fingerprint.New()
	for _, chunk := range staged {
		if err := m.copyChunk(ctx, writer, hasher, req, chunk); err != nil {
			writer.Abort()
			return err
		}
	}

	if m.config.VerifyFingerprint {
		if got := hasher.Fingerprint(); got != req.Fingerprint {
			writer.Abort()
			// Without declared totals a full-size last chunk may simply
			// not be the last one; keep what is staged for resume.
			if trailingUnconfirmed(req, staged) {
				return fmt.Errorf("%w: content up to chunk %d hashes to %s, later chunks may be missing (send totalChunks or totalSize to confirm)", ErrIncompleteUpload, len(staged)-1, got)
			}
			// The staged bytes can never produce this fingerprint; drop
			// them so the next attempt uploads every chunk again.
			m.discard(ctx, req.Fingerprint, "Failed to discard corrupt staging directory")
			return fmt.Errorf("%w: content hashes to %s", ErrFingerprintMismatch, got)
		}
	}

	if err := writer.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit artifact: %w", err)
	}

	return nil
}

func (m *Merger) copyChunk(ctx context.Context, w io.WriterAt, hasher io.Writer, req *protocol.MergeRequest, chunk StagedChunk) error {
	reader, err := m.backend.Get(ctx, path.Join(StagingDir(req.Fingerprint), chunk.Name))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: chunk %d disappeared", ErrIncompleteUpload, chunk.Index)
		}
		return fmt.Errorf("failed to read chunk %d: %w", chunk.Index, err)
	}
	defer reader.Close()

	offset := int64(chunk.Index) * req.ChunkSize
	n, err := io.Copy(io.NewOffsetWriter(w, offset), io.TeeReader(reader, hasher))
	if err != nil {
		return fmt.Errorf("failed to write chunk %d: %w", chunk.Index, err)
	}
	if n != chunk.Size {
		return fmt.Errorf("%w: chunk %d changed during merge", ErrChunkSizeMismatch, chunk.Index)
	}

	return nil
}

func (m *Merger) record(req *protocol.MergeRequest, artifactPath string, totalSize int64, totalChunks int) {
	if m.catalog == nil {
		return
	}

	err := m.catalog.Create(&artifact.Artifact{
		Fingerprint: req.Fingerprint,
		Suffix:      req.Suffix,
		SizeBytes:   totalSize,
		ChunkSize:   req.ChunkSize,
		TotalChunks: totalChunks,
		StoragePath: artifactPath,
		CreatedAt:   time.Now().Unix(),
	})
	if err != nil {
		log.Warn().Err(err).Str("fingerprint", req.Fingerprint).Msg("Failed to record artifact")
	}
}

func (m *Merger) discard(ctx context.Context, fingerprint, msg string) {
	if err := m.chunks.Discard(ctx, fingerprint); err != nil {
		log.Warn().Err(err).Str("fingerprint", fingerprint).Msg(msg)
	}
}

func (m *Merger) fail(fingerprint string, err error) {
	log.Error().Err(err).Str("fingerprint", fingerprint).Msg("Merge failed")

	ev := newEvent(EventMergeFailed, fingerprint)
	ev.Error = err.Error()
	publish(m.events, ev)
}
