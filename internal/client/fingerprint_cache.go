package client

import (
	"context"
	"errors"

	"github.com/goccy/go-json"
	ds "github.com/ipfs/go-datastore"
	dslvl "github.com/ipfs/go-ds-leveldb"
	"github.com/rs/zerolog/log"
)

// FingerprintCache remembers the fingerprint of local files so unchanged
// files are not hashed again. Entries are keyed by absolute path and
// invalidated by size or modification time.
type FingerprintCache struct {
	store *dslvl.Datastore
}

type cachedFingerprint struct {
	Size        int64  `json:"size"`
	ModTime     int64  `json:"modTime"`
	Fingerprint string `json:"fingerprint"`
}

func OpenFingerprintCache(dir string) (*FingerprintCache, error) {
	store, err := dslvl.NewDatastore(dir, nil)
	if err != nil {
		return nil, err
	}
	return &FingerprintCache{store: store}, nil
}

// Lookup returns the cached fingerprint of f when it is still valid.
func (c *FingerprintCache) Lookup(ctx context.Context, f *File) (string, bool) {
	if f.Path == "" {
		return "", false
	}

	b, err := c.store.Get(ctx, ds.NewKey(f.Path))
	if err != nil {
		if !errors.Is(err, ds.ErrNotFound) {
			log.Warn().Err(err).Str("path", f.Path).Msg("Failed to read fingerprint cache")
		}
		return "", false
	}

	var entry cachedFingerprint
	if err := json.Unmarshal(b, &entry); err != nil {
		return "", false
	}
	if entry.Size != f.Size || entry.ModTime != f.ModTime.UnixNano() {
		return "", false
	}
	return entry.Fingerprint, true
}

func (c *FingerprintCache) Store(ctx context.Context, f *File, fingerprint string) error {
	if f.Path == "" {
		return nil
	}

	b, err := json.Marshal(cachedFingerprint{
		Size:        f.Size,
		ModTime:     f.ModTime.UnixNano(),
		Fingerprint: fingerprint,
	})
	if err != nil {
		return err
	}
	return c.store.Put(ctx, ds.NewKey(f.Path), b)
}

func (c *FingerprintCache) Close() error {
	return c.store.Close()
}
