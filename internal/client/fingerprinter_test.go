package client

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prappser/prappser_upload/internal/fingerprint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReaderAt struct {
	failAt int64
	data   []byte
}

func (f failingReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= f.failAt {
		return 0, errors.New("disk read error")
	}
	return bytes.NewReader(f.data).ReadAt(p, off)
}

func testData(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*31 + 7)
	}
	return data
}

func TestFingerprint_IndependentOfChunkSize(t *testing.T) {
	// given
	data := testData(100_003)
	want := fingerprint.OfBytes(data)

	for _, chunkSize := range []int64{1024, 4096, 65536, 1 << 20} {
		chunks, err := Split(int64(len(data)), chunkSize)
		require.NoError(t, err)

		// when
		got, err := AwaitFingerprint(StartFingerprint(context.Background(), bytes.NewReader(data), chunks), nil)

		// then
		require.NoError(t, err)
		assert.Equal(t, want, got, "chunk size %d", chunkSize)
	}
}

func TestStartFingerprint_ProgressIsMonotonicAndTerminatesOnce(t *testing.T) {
	// given
	data := testData(10_000)
	chunks, err := Split(int64(len(data)), 1000)
	require.NoError(t, err)

	// when
	var percents []float64
	terminal := 0
	for update := range StartFingerprint(context.Background(), bytes.NewReader(data), chunks) {
		if update.Done {
			terminal++
			assert.NoError(t, update.Err)
			assert.NotEmpty(t, update.Fingerprint)
			continue
		}
		percents = append(percents, update.Percent)
	}

	// then
	assert.Equal(t, 1, terminal)
	require.Len(t, percents, len(chunks))
	assert.IsNonDecreasing(t, percents)
	assert.Equal(t, float64(100), percents[len(percents)-1])
}

func TestStartFingerprint_EmptyFile(t *testing.T) {
	chunks, err := Split(0, DefaultChunkSize)
	require.NoError(t, err)

	got, err := AwaitFingerprint(StartFingerprint(context.Background(), bytes.NewReader(nil), chunks), nil)

	require.NoError(t, err)
	assert.Equal(t, fingerprint.OfBytes(nil), got)
}

func TestStartFingerprint_ReadFailureYieldsNoFingerprint(t *testing.T) {
	// given
	data := testData(4000)
	chunks, err := Split(int64(len(data)), 1000)
	require.NoError(t, err)
	var progress []float64

	// when
	got, err := AwaitFingerprint(
		StartFingerprint(context.Background(), failingReaderAt{failAt: 2000, data: data}, chunks),
		func(p float64) { progress = append(progress, p) },
	)

	// then
	assert.ErrorIs(t, err, ErrFingerprint)
	assert.Empty(t, got)
	assert.Equal(t, []float64{25, 50}, progress)
}

func TestStartFingerprint_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	chunks, err := Split(10, 5)
	require.NoError(t, err)

	_, err = AwaitFingerprint(StartFingerprint(ctx, bytes.NewReader(testData(10)), chunks), nil)

	assert.ErrorIs(t, err, ErrFingerprint)
	assert.ErrorIs(t, err, context.Canceled)
}
