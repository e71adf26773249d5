package artifact

// Artifact is the catalogue row of a merged upload. The storage backend
// stays authoritative; a missing row never blocks a download or a resume.
type Artifact struct {
	Fingerprint string `json:"fingerprint"`
	Suffix      string `json:"suffix"`
	SizeBytes   int64  `json:"sizeBytes"`
	ChunkSize   int64  `json:"chunkSize"`
	TotalChunks int    `json:"totalChunks"`
	StoragePath string `json:"path"`
	CreatedAt   int64  `json:"createdAt"`
}

type Stats struct {
	Count     int   `json:"count"`
	UsedBytes int64 `json:"usedBytes"`
}
