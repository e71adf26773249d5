package client

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/prappser/prappser_upload/internal/protocol"
	"github.com/rs/zerolog/log"
)

type Options struct {
	ChunkSize   int64
	Concurrency int
	// Cache is optional.
	Cache                 *FingerprintCache
	OnFingerprintProgress func(percent float64)
	OnProgress            func(Progress)
}

// Result summarises one upload attempt.
type Result struct {
	Fingerprint string
	Suffix      string
	Path        string
	Size        int64
	TotalChunks int
	Skipped     int
	Uploaded    int
	// Instant is set when the server already had the whole file.
	Instant bool
}

type Uploader struct {
	transport Transport
	options   Options
}

func NewUploader(transport Transport, options Options) *Uploader {
	if options.ChunkSize == 0 {
		options.ChunkSize = DefaultChunkSize
	}
	if options.Concurrency <= 0 {
		options.Concurrency = DefaultConcurrency
	}
	return &Uploader{
		transport: transport,
		options:   options,
	}
}

// Upload sends the file at path, skipping whatever the server already has.
func (u *Uploader) Upload(ctx context.Context, path string) (*Result, error) {
	file, err := OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return u.UploadFile(ctx, file)
}

func (u *Uploader) UploadFile(ctx context.Context, file *File) (*Result, error) {
	if file == nil {
		return nil, ErrNoFile
	}
	if err := protocol.ValidateSuffix(file.Suffix); err != nil {
		return nil, err
	}

	chunks, err := Split(file.Size, u.options.ChunkSize)
	if err != nil {
		return nil, err
	}

	attempt := uuid.NewString()
	logger := log.With().Str("attempt", attempt).Str("file", file.Name).Logger()

	fp, err := u.Fingerprint(ctx, file, chunks)
	if err != nil {
		return nil, err
	}
	file.Fingerprint = fp
	logger.Debug().Str("fingerprint", fp).Int("chunks", len(chunks)).Msg("Fingerprint computed")

	negotiation, err := NewNegotiator(u.transport).Check(ctx, fp, file.Suffix)
	if err != nil {
		return nil, fmt.Errorf("verify failed: %w", err)
	}

	result := &Result{
		Fingerprint: fp,
		Suffix:      file.Suffix,
		Path:        protocol.ArtifactName(fp, file.Suffix),
		Size:        file.Size,
		TotalChunks: len(chunks),
	}

	if negotiation.Exists {
		result.Instant = true
		result.Skipped = len(chunks)
		if u.options.OnProgress != nil {
			u.options.OnProgress(newProgressTracker(chunks, nil, nil).snapshot())
		}
		logger.Info().Str("fingerprint", fp).Msg("File already on server, nothing to upload")
		return result, nil
	}

	pending := negotiation.Prune(chunks)
	result.Skipped = len(chunks) - len(pending)
	result.Uploaded = len(pending)
	logger.Info().
		Str("fingerprint", fp).
		Int("pending", len(pending)).
		Int("skipped", result.Skipped).
		Msg("Uploading chunks")

	transmitter := &Transmitter{
		Transport:   u.transport,
		Concurrency: u.options.Concurrency,
		OnProgress:  u.options.OnProgress,
	}
	response, err := transmitter.Transmit(ctx, file, u.options.ChunkSize, chunks, pending)
	if err != nil {
		return nil, err
	}

	result.Path = response.Path
	logger.Info().Str("fingerprint", fp).Str("path", response.Path).Msg("Upload complete")
	return result, nil
}

// Fingerprint returns the content fingerprint of file, consulting the
// cache first when one is configured.
func (u *Uploader) Fingerprint(ctx context.Context, file *File, chunks []Chunk) (string, error) {
	if u.options.Cache != nil {
		if fp, ok := u.options.Cache.Lookup(ctx, file); ok {
			if u.options.OnFingerprintProgress != nil {
				u.options.OnFingerprintProgress(100)
			}
			return fp, nil
		}
	}

	fp, err := AwaitFingerprint(StartFingerprint(ctx, file, chunks), u.options.OnFingerprintProgress)
	if err != nil {
		return "", err
	}

	if u.options.Cache != nil {
		if err := u.options.Cache.Store(ctx, file, fp); err != nil {
			log.Warn().Err(err).Str("path", file.Path).Msg("Failed to cache fingerprint")
		}
	}
	return fp, nil
}
