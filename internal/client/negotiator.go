package client

import (
	"context"
	"io"

	"github.com/prappser/prappser_upload/internal/protocol"
)

// Transport carries the three upload operations to a server.
type Transport interface {
	Verify(ctx context.Context, req *protocol.VerifyRequest) (*protocol.VerifyResponse, error)
	// UploadChunk sends size bytes from body and reports the running
	// count of bytes handed to the wire through onProgress.
	UploadChunk(ctx context.Context, fingerprint string, index int, suffix string, body io.Reader, size int64, onProgress func(sent int64)) error
	Merge(ctx context.Context, req *protocol.MergeRequest) (*protocol.MergeResponse, error)
}

// Negotiation is the server's view of one fingerprint.
type Negotiation struct {
	// Exists means the artifact is already stored; nothing needs sending.
	Exists bool
	Known  map[int]struct{}
}

// Prune returns the chunks whose index the server does not have yet.
func (n *Negotiation) Prune(chunks []Chunk) []Chunk {
	if n.Exists {
		return []Chunk{}
	}
	pending := make([]Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		if _, ok := n.Known[chunk.Index]; !ok {
			pending = append(pending, chunk)
		}
	}
	return pending
}

type Negotiator struct {
	transport Transport
}

func NewNegotiator(transport Transport) *Negotiator {
	return &Negotiator{transport: transport}
}

func (n *Negotiator) Check(ctx context.Context, fingerprint, suffix string) (*Negotiation, error) {
	response, err := n.transport.Verify(ctx, &protocol.VerifyRequest{Fingerprint: fingerprint, Suffix: suffix})
	if err != nil {
		return nil, err
	}

	negotiation := &Negotiation{
		Exists: !response.ShouldUpload,
		Known:  make(map[int]struct{}, len(response.ExistingChunkIndices)),
	}
	for _, index := range response.ExistingChunkIndices {
		negotiation.Known[index] = struct{}{}
	}
	return negotiation, nil
}
