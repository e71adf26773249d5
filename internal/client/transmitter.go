package client

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/prappser/prappser_upload/internal/protocol"
	"github.com/remeh/sizedwaitgroup"
	"github.com/rs/zerolog/log"
)

// DefaultConcurrency bounds in-flight chunk transmissions.
const DefaultConcurrency = 4

var ErrTransmissionFailed = errors.New("chunk transmission failed")

// ChunkError reports the failure of one chunk. It matches both
// ErrTransmissionFailed and the underlying cause.
type ChunkError struct {
	Index int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d: %v", e.Index, e.Err)
}

func (e *ChunkError) Unwrap() []error {
	return []error{ErrTransmissionFailed, e.Err}
}

type Transmitter struct {
	Transport   Transport
	Concurrency int
	// OnProgress receives ordered snapshots; it runs on transmission
	// goroutines and must return quickly.
	OnProgress func(Progress)
}

// Transmit sends pending chunks of file concurrently, waits for all of
// them and only then asks the server to merge. When any chunk fails the
// joined chunk errors are returned and no merge is requested.
func (t *Transmitter) Transmit(ctx context.Context, file *File, chunkSize int64, all, pending []Chunk) (*protocol.MergeResponse, error) {
	concurrency := t.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	tracker := newProgressTracker(all, pending, t.OnProgress)
	swg := sizedwaitgroup.New(concurrency)

	var (
		mu   sync.Mutex
		errs []*ChunkError
	)
	fail := func(index int, err error) {
		mu.Lock()
		errs = append(errs, &ChunkError{Index: index, Err: err})
		mu.Unlock()
	}

	for _, chunk := range pending {
		if err := swg.AddWithContext(ctx); err != nil {
			fail(chunk.Index, err)
			continue
		}

		go func(chunk Chunk) {
			defer swg.Done()

			err := t.Transport.UploadChunk(ctx, file.Fingerprint, chunk.Index, file.Suffix, chunk.Reader(file), chunk.Size, func(sent int64) {
				tracker.sent(chunk.Index, sent)
			})
			if err != nil {
				log.Debug().Err(err).Str("fingerprint", file.Fingerprint).Int("index", chunk.Index).Msg("Chunk upload failed")
				fail(chunk.Index, err)
				return
			}
			tracker.complete(chunk.Index)
		}(chunk)
	}
	swg.Wait()

	if len(errs) > 0 {
		sort.Slice(errs, func(i, j int) bool { return errs[i].Index < errs[j].Index })
		joined := make([]error, len(errs))
		for i, err := range errs {
			joined[i] = err
		}
		return nil, errors.Join(joined...)
	}

	response, err := t.Transport.Merge(ctx, &protocol.MergeRequest{
		Fingerprint: file.Fingerprint,
		Suffix:      file.Suffix,
		ChunkSize:   chunkSize,
		TotalChunks: len(all),
		TotalSize:   file.Size,
	})
	if err != nil {
		return nil, fmt.Errorf("merge failed: %w", err)
	}
	if !response.Success {
		return nil, fmt.Errorf("merge failed: %s", response.Error)
	}
	return response, nil
}
