package artifact

import "database/sql"

const artifactColumns = `fingerprint, suffix, size_bytes, chunk_size, total_chunks, storage_path, created_at`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create upserts a by storage path; merging the same content twice keeps
// a single row with the latest metadata.
func (r *Repository) Create(a *Artifact) error {
	query := `INSERT INTO artifacts (` + artifactColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  ON CONFLICT (storage_path) DO UPDATE SET
			  size_bytes = excluded.size_bytes,
			  chunk_size = excluded.chunk_size,
			  total_chunks = excluded.total_chunks,
			  created_at = excluded.created_at`

	_, err := r.db.Exec(query,
		a.Fingerprint,
		a.Suffix,
		a.SizeBytes,
		a.ChunkSize,
		a.TotalChunks,
		a.StoragePath,
		a.CreatedAt,
	)
	return err
}

func (r *Repository) List(limit int) ([]*Artifact, error) {
	query := `SELECT ` + artifactColumns + ` FROM artifacts ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	artifacts := []*Artifact{}
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}

	return artifacts, rows.Err()
}

func (r *Repository) Stats() (*Stats, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM artifacts`

	stats := &Stats{}
	if err := r.db.QueryRow(query).Scan(&stats.Count, &stats.UsedBytes); err != nil {
		return nil, err
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanArtifact(row rowScanner) (*Artifact, error) {
	a := &Artifact{}
	err := row.Scan(
		&a.Fingerprint,
		&a.Suffix,
		&a.SizeBytes,
		&a.ChunkSize,
		&a.TotalChunks,
		&a.StoragePath,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}
