package client

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prappser/prappser_upload/internal/fingerprint"
)

var ErrFingerprint = errors.New("fingerprint failed")

// FingerprintUpdate is one message from a fingerprint worker. Progress
// updates have Done unset; the single terminal update carries either
// Fingerprint or Err.
type FingerprintUpdate struct {
	Percent     float64
	Fingerprint string
	Err         error
	Done        bool
}

// StartFingerprint hashes chunks of src in index order on its own
// goroutine. The returned channel delivers one progress update per chunk,
// then the terminal update, then closes.
func StartFingerprint(ctx context.Context, src io.ReaderAt, chunks []Chunk) <-chan FingerprintUpdate {
	updates := make(chan FingerprintUpdate, len(chunks)+1)

	go func() {
		defer close(updates)

		hasher := fingerprint.New()
		for i, chunk := range chunks {
			if err := ctx.Err(); err != nil {
				updates <- FingerprintUpdate{Err: fmt.Errorf("%w: %w", ErrFingerprint, err), Done: true}
				return
			}
			if _, err := io.Copy(hasher, chunk.Reader(src)); err != nil {
				updates <- FingerprintUpdate{Err: fmt.Errorf("%w: reading chunk %d: %w", ErrFingerprint, chunk.Index, err), Done: true}
				return
			}
			updates <- FingerprintUpdate{Percent: float64(i+1) * 100 / float64(len(chunks))}
		}

		updates <- FingerprintUpdate{Percent: 100, Fingerprint: hasher.Fingerprint(), Done: true}
	}()

	return updates
}

// AwaitFingerprint drains updates, forwarding progress to onProgress when
// set, and returns the terminal result.
func AwaitFingerprint(updates <-chan FingerprintUpdate, onProgress func(percent float64)) (string, error) {
	for update := range updates {
		if update.Done {
			if update.Err != nil {
				return "", update.Err
			}
			return update.Fingerprint, nil
		}
		if onProgress != nil {
			onProgress(update.Percent)
		}
	}
	return "", fmt.Errorf("%w: worker stopped without a result", ErrFingerprint)
}
