package protocol

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	PathVerify = "/uploads/verify"
	PathChunk  = "/uploads/chunk"
	PathMerge  = "/uploads/merge"
	PathFiles  = "/files"

	FormFieldChunk  = "chunk"
	FormFieldHash   = "hash"
	FormFieldSuffix = "suffix"
)

var (
	ErrInvalidFingerprint = errors.New("invalid fingerprint")
	ErrInvalidSuffix      = errors.New("invalid suffix")
	ErrInvalidChunkID     = errors.New("invalid chunk identity")
	ErrInvalidChunkSize   = errors.New("invalid chunk size")
)

var (
	fingerprintPattern = regexp.MustCompile(`^[0-9a-f]{16,128}$`)
	suffixPattern      = regexp.MustCompile(`^[\p{L}\p{N}_-]{0,32}$`)
)

type VerifyRequest struct {
	Fingerprint string `json:"fingerprint"`
	Suffix      string `json:"suffix"`
}

type VerifyResponse struct {
	ShouldUpload         bool  `json:"shouldUpload"`
	ExistingChunkIndices []int `json:"existingChunkIndices"`
}

type ChunkResponse struct {
	Fingerprint string `json:"fingerprint"`
	Index       int    `json:"index"`
}

type MergeRequest struct {
	Fingerprint string `json:"fingerprint"`
	Suffix      string `json:"suffix"`
	ChunkSize   int64  `json:"chunkSize"`
	// TotalChunks and TotalSize are optional; zero skips the check.
	TotalChunks int   `json:"totalChunks,omitempty"`
	TotalSize   int64 `json:"totalSize,omitempty"`
}

type MergeResponse struct {
	Success   bool   `json:"success"`
	Path      string `json:"path,omitempty"`
	SizeBytes int64  `json:"sizeBytes,omitempty"`
	Error     string `json:"error,omitempty"`
}

func ValidateFingerprint(fingerprint string) error {
	if !fingerprintPattern.MatchString(fingerprint) {
		return fmt.Errorf("%w: %q", ErrInvalidFingerprint, fingerprint)
	}
	return nil
}

func ValidateSuffix(suffix string) error {
	if !suffixPattern.MatchString(suffix) {
		return fmt.Errorf("%w: %q", ErrInvalidSuffix, suffix)
	}
	return nil
}

func (r *VerifyRequest) Validate() error {
	if err := ValidateFingerprint(r.Fingerprint); err != nil {
		return err
	}
	return ValidateSuffix(r.Suffix)
}

func (r *MergeRequest) Validate() error {
	if err := ValidateFingerprint(r.Fingerprint); err != nil {
		return err
	}
	if err := ValidateSuffix(r.Suffix); err != nil {
		return err
	}
	if r.ChunkSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidChunkSize, r.ChunkSize)
	}
	if r.TotalChunks < 0 || r.TotalSize < 0 {
		return fmt.Errorf("%w: negative totals", ErrInvalidChunkSize)
	}
	return nil
}

// ChunkID is the storage identity of one chunk: "<fingerprint>-<index>".
func ChunkID(fingerprint string, index int) string {
	return fingerprint + "-" + strconv.Itoa(index)
}

// ParseChunkID splits a chunk identity at its last dash.
func ParseChunkID(id string) (fingerprint string, index int, err error) {
	dash := strings.LastIndex(id, "-")
	if dash <= 0 || dash == len(id)-1 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidChunkID, id)
	}

	index, err = strconv.Atoi(id[dash+1:])
	if err != nil || index < 0 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidChunkID, id)
	}

	fingerprint = id[:dash]
	if err := ValidateFingerprint(fingerprint); err != nil {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidChunkID, id)
	}
	return fingerprint, index, nil
}

// ArtifactName is the final file name for a merged upload.
func ArtifactName(fingerprint, suffix string) string {
	if suffix == "" {
		return fingerprint
	}
	return fingerprint + "." + suffix
}
