package client

import "sync"

type ChunkProgress struct {
	Index   int
	Percent float64
}

// Progress is a snapshot of one upload attempt. Percent is the mean over
// all chunks of the file, with chunks the server already had at 100.
type Progress struct {
	Chunks  []ChunkProgress
	Percent float64
}

type progressTracker struct {
	mu         sync.Mutex
	sizes      map[int]int64
	percents   []float64
	positions  map[int]int
	onProgress func(Progress)
}

func newProgressTracker(all, pending []Chunk, onProgress func(Progress)) *progressTracker {
	t := &progressTracker{
		sizes:      make(map[int]int64, len(all)),
		percents:   make([]float64, len(all)),
		positions:  make(map[int]int, len(all)),
		onProgress: onProgress,
	}

	for i, chunk := range all {
		t.sizes[chunk.Index] = chunk.Size
		t.positions[chunk.Index] = i
		t.percents[i] = 100
	}
	for _, chunk := range pending {
		t.percents[t.positions[chunk.Index]] = 0
	}
	return t
}

// sent records that n bytes of chunk index have been handed to the wire.
// A chunk's percentage never decreases.
func (t *progressTracker) sent(index int, n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	size := t.sizes[index]
	if size == 0 {
		return
	}
	t.set(index, min(100, float64(n)*100/float64(size)))
}

func (t *progressTracker) complete(index int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.set(index, 100)
}

// set must be called with mu held; listeners see snapshots in order.
func (t *progressTracker) set(index int, percent float64) {
	pos := t.positions[index]
	if percent <= t.percents[pos] {
		return
	}
	t.percents[pos] = percent

	if t.onProgress != nil {
		t.onProgress(t.snapshotLocked())
	}
}

func (t *progressTracker) snapshot() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *progressTracker) snapshotLocked() Progress {
	chunks := make([]ChunkProgress, len(t.percents))
	var sum float64
	for index, pos := range t.positions {
		chunks[pos] = ChunkProgress{Index: index, Percent: t.percents[pos]}
		sum += t.percents[pos]
	}

	var overall float64
	if len(t.percents) > 0 {
		overall = sum / float64(len(t.percents))
	}
	return Progress{Chunks: chunks, Percent: overall}
}
