package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_MeanCountsSkippedChunksAsDone(t *testing.T) {
	// given
	all := []Chunk{{Index: 0, Size: 100}, {Index: 1, Size: 100}, {Index: 2, Size: 100}, {Index: 3, Size: 50}}
	pending := []Chunk{all[1], all[3]}
	var snapshots []Progress
	tracker := newProgressTracker(all, pending, func(p Progress) { snapshots = append(snapshots, p) })

	assert.Equal(t, float64(50), tracker.snapshot().Percent)

	// when
	tracker.sent(1, 50)
	tracker.sent(3, 50)
	tracker.complete(1)

	// then
	final := tracker.snapshot()
	assert.Equal(t, float64(100), final.Percent)
	assert.Equal(t, []ChunkProgress{{0, 100}, {1, 100}, {2, 100}, {3, 100}}, final.Chunks)
	assert.Len(t, snapshots, 3)
	assert.Equal(t, 62.5, snapshots[0].Percent)
}

func TestProgressTracker_ChunkPercentNeverDecreases(t *testing.T) {
	all := []Chunk{{Index: 0, Size: 100}}
	tracker := newProgressTracker(all, all, nil)

	tracker.sent(0, 80)
	tracker.sent(0, 20)

	assert.Equal(t, float64(80), tracker.snapshot().Percent)
}

func TestProgressTracker_EmptyChunkCompletes(t *testing.T) {
	all := []Chunk{{Index: 0, Size: 0}}
	tracker := newProgressTracker(all, all, nil)

	tracker.sent(0, 0)
	assert.Zero(t, tracker.snapshot().Percent)

	tracker.complete(0)
	assert.Equal(t, float64(100), tracker.snapshot().Percent)
}
