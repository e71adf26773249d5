package upload

import (
	"context"
	"fmt"
	"io"

	"github.com/prappser/prappser_upload/internal/protocol"
	"github.com/prappser/prappser_upload/internal/storage"
)

type Service struct {
	backend storage.StorageBackend
	chunks  *ChunkStore
	merger  *Merger
	events  EventPublisher
}

func NewService(backend storage.StorageBackend, config Config, catalog ArtifactCatalog, events EventPublisher) *Service {
	chunks := NewChunkStore(backend)
	return &Service{
		backend: backend,
		chunks:  chunks,
		merger:  NewMerger(backend, chunks, config, catalog, events),
		events:  events,
	}
}

// VerifyExists reports whether the artifact is already stored and, if
// not, which chunks of it are staged.
func (s *Service) VerifyExists(ctx context.Context, req *protocol.VerifyRequest) (*protocol.VerifyResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.backend.Exists(ctx, ArtifactPath(req.Fingerprint, req.Suffix))
	if err != nil {
		return nil, fmt.Errorf("failed to check artifact: %w", err)
	}
	if exists {
		return &protocol.VerifyResponse{ShouldUpload: false, ExistingChunkIndices: []int{}}, nil
	}

	staged, err := s.chunks.Staged(ctx, req.Fingerprint)
	if err != nil {
		return nil, err
	}

	indices := make([]int, 0, len(staged))
	for _, chunk := range staged {
		indices = append(indices, chunk.Index)
	}

	return &protocol.VerifyResponse{ShouldUpload: true, ExistingChunkIndices: indices}, nil
}

func (s *Service) UploadChunk(ctx context.Context, fingerprint string, index int, suffix string, data io.Reader) error {
	if err := protocol.ValidateFingerprint(fingerprint); err != nil {
		return err
	}
	if err := protocol.ValidateSuffix(suffix); err != nil {
		return err
	}

	if err := s.chunks.Put(ctx, fingerprint, index, suffix, data); err != nil {
		return err
	}

	ev := newEvent(EventChunkStored, fingerprint)
	ev.Index = &index
	publish(s.events, ev)
	return nil
}

func (s *Service) MergeChunks(ctx context.Context, req *protocol.MergeRequest) (*protocol.MergeResponse, error) {
	return s.merger.Merge(ctx, req)
}

// GetArtifact opens a merged artifact by its file name.
func (s *Service) GetArtifact(ctx context.Context, name string) (io.ReadCloser, error) {
	return s.backend.Get(ctx, name)
}

func (s *Service) StagingSessions(ctx context.Context) (int, error) {
	return s.chunks.Sessions(ctx)
}
