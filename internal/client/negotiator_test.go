package client

import (
	"context"
	"testing"

	"github.com/prappser/prappser_upload/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNegotiator_Check_PrunesKnownChunks(t *testing.T) {
	// given
	transport := newFakeTransport()
	transport.verify = &protocol.VerifyResponse{ShouldUpload: true, ExistingChunkIndices: []int{0, 2}}
	chunks, err := Split(5*1024, 1024)
	require.NoError(t, err)

	// when
	negotiation, err := NewNegotiator(transport).Check(context.Background(), "abc", "bin")

	// then
	require.NoError(t, err)
	assert.False(t, negotiation.Exists)
	pending := negotiation.Prune(chunks)
	indices := make([]int, 0, len(pending))
	for _, chunk := range pending {
		indices = append(indices, chunk.Index)
	}
	assert.Equal(t, []int{1, 3, 4}, indices)
}

func TestNegotiator_Check_ExistingArtifactPrunesEverything(t *testing.T) {
	transport := newFakeTransport()
	transport.verify = &protocol.VerifyResponse{ShouldUpload: false, ExistingChunkIndices: []int{}}
	chunks, err := Split(3, 1)
	require.NoError(t, err)

	negotiation, err := NewNegotiator(transport).Check(context.Background(), "abc", "")

	require.NoError(t, err)
	assert.True(t, negotiation.Exists)
	assert.Empty(t, negotiation.Prune(chunks))
}
