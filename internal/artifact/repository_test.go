package artifact

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func testArtifact() *Artifact {
	return &Artifact{
		Fingerprint: "0123456789abcdef0123456789abcdef",
		Suffix:      "mp4",
		SizeBytes:   2621440,
		ChunkSize:   1048576,
		TotalChunks: 3,
		StoragePath: "0123456789abcdef0123456789abcdef.mp4",
		CreatedAt:   1700000000,
	}
}

func artifactRows(artifacts ...*Artifact) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"fingerprint", "suffix", "size_bytes", "chunk_size", "total_chunks", "storage_path", "created_at"})
	for _, a := range artifacts {
		rows.AddRow(a.Fingerprint, a.Suffix, a.SizeBytes, a.ChunkSize, a.TotalChunks, a.StoragePath, a.CreatedAt)
	}
	return rows
}

func TestRepository_Create_ShouldUpsertByStoragePath(t *testing.T) {
	// given
	repo, mock := newMockRepository(t)
	a := testArtifact()
	mock.ExpectExec(`INSERT INTO artifacts .* ON CONFLICT \(storage_path\) DO UPDATE`).
		WithArgs(a.Fingerprint, a.Suffix, a.SizeBytes, a.ChunkSize, a.TotalChunks, a.StoragePath, a.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	// when
	err := repo.Create(a)

	// then
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_List_ShouldReturnEmptySliceNotNil(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(`SELECT .* FROM artifacts ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(10).
		WillReturnRows(artifactRows())

	got, err := repo.List(10)

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRepository_List_PropagatesQueryError(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(`SELECT .* FROM artifacts`).WillReturnError(errors.New("db down"))

	_, err := repo.List(10)

	assert.EqualError(t, err, "db down")
}

func TestRepository_Stats(t *testing.T) {
	// given
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\), COALESCE\(SUM\(size_bytes\), 0\) FROM artifacts`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "sum"}).AddRow(2, 4096))

	// when
	stats, err := repo.Stats()

	// then
	require.NoError(t, err)
	assert.Equal(t, &Stats{Count: 2, UsedBytes: 4096}, stats)
}
