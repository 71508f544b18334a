package install_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oblivioncth/clifp/internal/install"
)

func makeFlashpointLayout(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Data"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Data", "flashpoint.sqlite"), []byte{}, 0o644))
	return root
}

func TestFind_WalksUpToRoot(t *testing.T) {
	root := makeFlashpointLayout(t)
	nested := filepath.Join(root, "Launcher", "Data")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := install.Find(nested)
	require.NoError(t, err)
	assert.Equal(t, root, found)
}

func TestFind_NotFound(t *testing.T) {
	dir := t.TempDir()
	_, err := install.Find(dir)
	assert.Error(t, err)
}

func TestDaemonString(t *testing.T) {
	assert.Equal(t, "none", install.DaemonNone.String())
	assert.Equal(t, "qemu", install.DaemonQEMU.String())
	assert.Equal(t, "router", install.DaemonRouter.String())
	assert.Equal(t, "proxy", install.DaemonProxy.String())
}
