package task_test

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oblivioncth/clifp/internal/director"
	"github.com/oblivioncth/clifp/internal/task"
)

func testDirectorate() director.Directorate {
	return director.NewDirectorate(nil, "test")
}

func TestTSleep(t *testing.T) {
	s := task.NewTSleep(testDirectorate(), 10*time.Millisecond)
	assert.Equal(t, task.StagePrimary, s.Stage())

	start := time.Now()
	err := s.Perform(context.Background())
	assert.True(t, err.Ok())
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestTSleep_Interrupted(t *testing.T) {
	s := task.NewTSleep(testDirectorate(), time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	err := s.Perform(ctx)
	assert.False(t, err.Ok())
}

func TestTMessage(t *testing.T) {
	m := task.NewTMessage(testDirectorate(), task.StageShutdown, "hello")
	assert.Equal(t, task.StageShutdown, m.Stage())
	err := m.Perform(context.Background())
	assert.True(t, err.Ok())
}

func TestTGeneric(t *testing.T) {
	ran := false
	g := task.NewTGeneric(testDirectorate(), task.StageShutdown, "cleanup", func(ctx context.Context) error {
		ran = true
		return nil
	})
	err := g.Perform(context.Background())
	assert.True(t, err.Ok())
	assert.True(t, ran)
	assert.Equal(t, "TGeneric(cleanup)", g.Name())
}

func TestSplitLaunchArgs(t *testing.T) {
	out := task.SplitLaunchArgs(`plain "has space" 'also quoted' a&b`)
	assert.Equal(t, []string{"plain", "has space", "also quoted", "a&b"}, out)
}

func TestSplitLaunchArgs_Empty(t *testing.T) {
	assert.Nil(t, task.SplitLaunchArgs(""))
}

func TestBridgeWindowsArtifact(t *testing.T) {
	appPath, args := task.BridgeWindowsArtifact("game.exe", []string{"-a"})
	if runtime.GOOS == "linux" {
		assert.Equal(t, "wine", appPath)
		assert.Equal(t, []string{"start", "/wait", "/unix", "game.exe", "-a"}, args)
	} else {
		assert.Equal(t, "game.exe", appPath)
		assert.Equal(t, []string{"-a"}, args)
	}
}

func TestTDownload(t *testing.T) {
	payload := []byte("fake game data pack contents")
	sum := sha256.Sum256(payload)
	expected := hex.EncodeToString(sum[:])

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "pack.zip")

	d := task.NewTDownload(testDirectorate(), srv.URL, dest, expected, nil)
	err := d.Perform(context.Background())
	require.True(t, err.Ok())

	data, readErr := os.ReadFile(dest)
	require.NoError(t, readErr)
	assert.Equal(t, payload, data)
}

func TestTDownload_ChecksumMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("wrong contents"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "pack.zip")

	d := task.NewTDownload(testDirectorate(), srv.URL, dest, "deadbeef", nil)
	err := d.Perform(context.Background())
	assert.False(t, err.Ok())
}

func writeTestZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func TestTExtract(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "pack.zip")
	writeTestZip(t, archivePath, map[string]string{"content/game.swf": "flash-bytes"})

	destDir := filepath.Join(dir, "out")
	e := task.NewTExtract(testDirectorate(), archivePath, "content", destDir)
	err := e.Perform(context.Background())
	require.True(t, err.Ok())

	data, readErr := os.ReadFile(filepath.Join(destDir, "game.swf"))
	require.NoError(t, readErr)
	assert.Equal(t, "flash-bytes", string(data))
}
