package client

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/prappser/prappser_upload/internal/protocol"
)

// fakeTransport keeps uploaded chunks in memory.
type fakeTransport struct {
	mu        sync.Mutex
	verify    *protocol.VerifyResponse
	uploaded  map[int][]byte
	merges    []*protocol.MergeRequest
	failIndex map[int]bool
	verifies  int

	inFlight    int32
	maxInFlight int32
	gate        chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		verify:    &protocol.VerifyResponse{ShouldUpload: true, ExistingChunkIndices: []int{}},
		uploaded:  make(map[int][]byte),
		failIndex: make(map[int]bool),
	}
}

func (f *fakeTransport) Verify(ctx context.Context, req *protocol.VerifyRequest) (*protocol.VerifyResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifies++
	return f.verify, nil
}

func (f *fakeTransport) UploadChunk(ctx context.Context, fingerprint string, index int, suffix string, body io.Reader, size int64, onProgress func(sent int64)) error {
	current := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&f.maxInFlight)
		if current <= peak || atomic.CompareAndSwapInt32(&f.maxInFlight, peak, current) {
			break
		}
	}
	if f.gate != nil {
		<-f.gate
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if onProgress != nil {
		onProgress(int64(len(data)))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIndex[index] {
		return errors.New("connection reset")
	}
	f.uploaded[index] = data
	return nil
}

func (f *fakeTransport) Merge(ctx context.Context, req *protocol.MergeRequest) (*protocol.MergeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.merges = append(f.merges, req)
	return &protocol.MergeResponse{Success: true, Path: protocol.ArtifactName(req.Fingerprint, req.Suffix), SizeBytes: req.TotalSize}, nil
}

func (f *fakeTransport) uploadedIndices() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	indices := make([]int, 0, len(f.uploaded))
	for index := range f.uploaded {
		indices = append(indices, index)
	}
	return indices
}
