package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prappser/prappser_upload/internal"
	"github.com/prappser/prappser_upload/internal/client"
	"github.com/prappser/prappser_upload/internal/fingerprint"
	"github.com/prappser/prappser_upload/internal/protocol"
	"github.com/prappser/prappser_upload/internal/storage"
	"github.com/prappser/prappser_upload/internal/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) string {
	t.Helper()

	config := &internal.Config{
		Server: internal.ServerConfig{
			MaxRequestBodySize: 8 << 20,
			ReadTimeout:        10 * time.Second,
			WriteTimeout:       10 * time.Second,
			IdleTimeout:        10 * time.Second,
			ShutdownTimeout:    5 * time.Second,
		},
		Storage:  storage.BackendConfig{Type: storage.StorageTypeLocal, LocalPath: t.TempDir()},
		Upload:   upload.Config{VerifyFingerprint: true},
		Database: internal.DatabaseConfig{Driver: internal.DriverNone},
	}

	server, err := internal.NewServer(config)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- server.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})

	return "http://" + ln.Addr().String()
}

func writeFile(t *testing.T, name string, size int) (string, []byte) {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i*7 + 3)
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path, data
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	err := app.Run(append([]string{"prappser-upload"}, args...))
	return out.String(), err
}

func TestHashCommand_PrintsFingerprint(t *testing.T) {
	// given
	path, data := writeFile(t, "notes.txt", 10_000)

	// when
	out, err := run(t, "--chunk-size", "4096", "hash", path)

	// then
	require.NoError(t, err)
	assert.Equal(t, fingerprint.OfBytes(data)+"\n", out)
}

func TestHashCommand_MissingFile(t *testing.T) {
	// when
	_, err := run(t, "hash", filepath.Join(t.TempDir(), "absent.bin"))

	// then
	assert.ErrorIs(t, err, client.ErrNoFile)
}

func TestUploadCommand_SecondRunIsInstant(t *testing.T) {
	// given
	serverURL := startServer(t)
	path, data := writeFile(t, "video.mp4", 50_000)
	name := protocol.ArtifactName(fingerprint.OfBytes(data), "mp4")
	cacheDir := t.TempDir()

	// when
	first, err := run(t, "--server", serverURL, "--chunk-size", "16384", "upload", "--cache-dir", cacheDir, path)
	require.NoError(t, err)
	second, err := run(t, "--server", serverURL, "--chunk-size", "16384", "upload", "--cache-dir", cacheDir, path)
	require.NoError(t, err)

	// then
	assert.Equal(t, name+" uploaded: 4 chunks sent, 0 skipped\n", first)
	assert.Equal(t, name+" already stored (instant upload)\n", second)
}

func TestVerifyCommand_ReportsServerState(t *testing.T) {
	// given
	serverURL := startServer(t)
	path, data := writeFile(t, "archive.tar", 30_000)
	fp := fingerprint.OfBytes(data)

	// when
	before, err := run(t, "--server", serverURL, "--chunk-size", "10000", "verify", path)
	require.NoError(t, err)
	_, err = run(t, "--server", serverURL, "--chunk-size", "10000", "upload", path)
	require.NoError(t, err)
	after, err := run(t, "--server", serverURL, "--chunk-size", "10000", "verify", path)
	require.NoError(t, err)

	// then
	assert.Equal(t, fp+": 0 of 3 chunks on server, 3 pending\n", before)
	assert.Equal(t, fp+": stored on server\n", after)
}
