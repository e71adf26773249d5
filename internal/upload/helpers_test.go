package upload

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/prappser/prappser_upload/internal/artifact"
	"github.com/prappser/prappser_upload/internal/fingerprint"
	"github.com/prappser/prappser_upload/internal/storage"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*Event
}

func (p *recordingPublisher) Publish(ev *Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]EventType, 0, len(p.events))
	for _, ev := range p.events {
		types = append(types, ev.Type)
	}
	return types
}

type recordingCatalog struct {
	mu        sync.Mutex
	artifacts []*artifact.Artifact
}

func (c *recordingCatalog) Create(a *artifact.Artifact) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.artifacts = append(c.artifacts, a)
	return nil
}

func newTestBackend(t *testing.T) *storage.LocalStorage {
	t.Helper()
	backend, err := storage.NewLocalStorage(&storage.BackendConfig{LocalPath: t.TempDir()})
	require.NoError(t, err)
	return backend
}

// sampleData returns n deterministic bytes.
func sampleData(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*7 + i/251)
	}
	return data
}

// split cuts data into chunkSize pieces the way the client does.
func split(data []byte, chunkSize int) [][]byte {
	if len(data) == 0 {
		return [][]byte{{}}
	}
	var chunks [][]byte
	for off := 0; off < len(data); off += chunkSize {
		end := min(off+chunkSize, len(data))
		chunks = append(chunks, data[off:end])
	}
	return chunks
}

func stageChunks(t *testing.T, store *ChunkStore, fp, suffix string, chunks [][]byte, order ...int) {
	t.Helper()
	if len(order) == 0 {
		for i := range chunks {
			order = append(order, i)
		}
	}
	for _, i := range order {
		require.NoError(t, store.Put(context.Background(), fp, i, suffix, bytes.NewReader(chunks[i])))
	}
}

func readAll(t *testing.T, backend storage.StorageBackend, path string) []byte {
	t.Helper()
	reader, err := backend.Get(context.Background(), path)
	require.NoError(t, err)
	defer reader.Close()
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	return data
}

func fingerprintOf(data []byte) string {
	return fingerprint.OfBytes(data)
}
