package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prappser/prappser_upload/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))

	require.NoError(t, err)
	assert.Equal(t, ":8080", config.Server.Addr)
	assert.Equal(t, []string{"*"}, config.Server.AllowedOrigins)
	assert.Equal(t, 5*time.Minute, config.Server.WriteTimeout)
	assert.Equal(t, storage.StorageTypeLocal, config.Storage.Type)
	assert.True(t, config.Upload.VerifyFingerprint)
	assert.Equal(t, "sqlite3", config.Database.Driver)
	assert.Equal(t, "info", config.Log.Level)
}

func TestLoadConfig_FileAndEnvOverrides(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  addr: ":9090"
  allowedOrigins: ["https://app.example.com"]
  readTimeout: 15s
storage:
  type: s3
  s3Bucket: uploads
upload:
  verifyFingerprint: false
database:
  driver: none
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("PRAPPSER_UPLOAD_STORAGE_S3BUCKET", "from-env")
	t.Setenv("PRAPPSER_UPLOAD_LOG_LEVEL", "debug")

	// when
	config, err := LoadConfig(path)

	// then
	require.NoError(t, err)
	assert.Equal(t, ":9090", config.Server.Addr)
	assert.Equal(t, []string{"https://app.example.com"}, config.Server.AllowedOrigins)
	assert.Equal(t, 15*time.Second, config.Server.ReadTimeout)
	assert.Equal(t, storage.StorageTypeS3, config.Storage.Type)
	assert.Equal(t, "from-env", config.Storage.S3Bucket)
	assert.False(t, config.Upload.VerifyFingerprint)
	assert.Equal(t, "none", config.Database.Driver)
	assert.Equal(t, "debug", config.Log.Level)
}

func TestLoadConfig_InvalidFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))

	_, err := LoadConfig(path)

	assert.Error(t, err)
}
