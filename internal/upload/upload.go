package upload

import (
	"errors"
	"path"

	"github.com/prappser/prappser_upload/internal/protocol"
)

// StagingRoot holds one directory per fingerprint. Final artifacts live
// next to it at the storage root.
const StagingRoot = "staging"

var (
	ErrIncompleteUpload    = errors.New("incomplete upload")
	ErrChunkSizeMismatch   = errors.New("chunk size mismatch")
	ErrFingerprintMismatch = errors.New("fingerprint mismatch")
	ErrInvalidChunkIndex   = errors.New("invalid chunk index")
)

type Config struct {
	// VerifyFingerprint re-hashes the assembled bytes and refuses to
	// publish an artifact whose content does not match its fingerprint.
	VerifyFingerprint bool `mapstructure:"verifyFingerprint"`
}

func StagingDir(fingerprint string) string {
	return path.Join(StagingRoot, fingerprint)
}

func ChunkPath(fingerprint string, index int) string {
	return path.Join(StagingDir(fingerprint), protocol.ChunkID(fingerprint, index))
}

func ArtifactPath(fingerprint, suffix string) string {
	return protocol.ArtifactName(fingerprint, suffix)
}
