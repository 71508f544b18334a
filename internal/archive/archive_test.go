package archive_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oblivioncth/clifp/internal/archive"
)

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

func TestExtractSubdir(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "pack.zip")
	writeTestZip(t, archivePath, map[string]string{
		"content/game.swf":       "fake-flash",
		"content/nested/lib.dll": "fake-lib",
		"other/unrelated.txt":    "should not extract",
	})

	destDir := filepath.Join(dir, "out")
	var progressCalls [][2]int64
	err := archive.ExtractSubdir(archivePath, "content", destDir, func(done, total int64) {
		progressCalls = append(progressCalls, [2]int64{done, total})
	})
	require.NoError(t, err)

	gameData, err := os.ReadFile(filepath.Join(destDir, "game.swf"))
	require.NoError(t, err)
	assert.Equal(t, "fake-flash", string(gameData))

	libData, err := os.ReadFile(filepath.Join(destDir, "nested", "lib.dll"))
	require.NoError(t, err)
	assert.Equal(t, "fake-lib", string(libData))

	_, err = os.Stat(filepath.Join(destDir, "unrelated.txt"))
	assert.True(t, os.IsNotExist(err))

	assert.Len(t, progressCalls, 2)
	assert.Equal(t, int64(2), progressCalls[len(progressCalls)-1][1])
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	sum, err := archive.SHA256File(path)
	require.NoError(t, err)

	ok, err := archive.Verify(archive.Fingerprint{PathOnDisk: path, SHA256: sum})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = archive.Verify(archive.Fingerprint{PathOnDisk: path, SHA256: "deadbeef"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_MissingFile(t *testing.T) {
	ok, err := archive.Verify(archive.Fingerprint{PathOnDisk: "/does/not/exist", SHA256: "whatever"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache(t *testing.T) {
	c := archive.NewCache()
	id := uuid.New()

	_, ok := c.Get(id)
	assert.False(t, ok)

	c.Put(archive.Fingerprint{GameDataID: id, SHA256: "abc", PathOnDisk: "/tmp/x"})
	fp, ok := c.Get(id)
	require.True(t, ok)
	assert.Equal(t, "/tmp/x", fp.PathOnDisk)

	c.SetMounted(id, true)
	fp, _ = c.Get(id)
	assert.True(t, fp.Mounted)

	c.Invalidate(id)
	fp, _ = c.Get(id)
	assert.False(t, fp.Mounted)
}
