package install

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectEdition_Internal(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Data"), 0o755))
	assert.Equal(t, EditionStandard, detectEdition(root))

	require.NoError(t, os.WriteFile(filepath.Join(root, "Data", "Infinity.dat"), []byte{}, 0o644))
	assert.Equal(t, EditionInfinity, detectEdition(root))

	require.NoError(t, os.WriteFile(filepath.Join(root, "Data", "Ultimate.dat"), []byte{}, 0o644))
	assert.Equal(t, EditionUltimate, detectEdition(root))
}

func TestDetectDaemon_Internal(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Data"), 0o755))
	assert.Equal(t, DaemonNone, detectDaemon(root))

	require.NoError(t, os.WriteFile(filepath.Join(root, "Data", "proxy.json"), []byte{}, 0o644))
	assert.Equal(t, DaemonProxy, detectDaemon(root))
}

func TestLoadAppPathOverrides(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Data"), 0o755))
	overrides := `{"linux": {"FPSoftware\\Flash\\flashplayer.exe": "FPSoftware/start.sh"}}`
	require.NoError(t, os.WriteFile(filepath.Join(root, appPathOverridesFilename), []byte(overrides), 0o644))

	inst := &Install{Root: root, overrides: map[string]map[string]string{}}
	require.NoError(t, inst.loadAppPathOverrides(nil))

	table, ok := inst.overrides["linux"]
	require.True(t, ok)
	resolved, ok := table[normalizeAppPath(`FPSoftware\Flash\flashplayer.exe`)]
	require.True(t, ok)
	assert.Equal(t, "FPSoftware/start.sh", resolved)
}

func TestLoadAppPathOverrides_MissingFileIsNotAnError(t *testing.T) {
	root := t.TempDir()
	inst := &Install{Root: root, overrides: map[string]map[string]string{}}
	assert.NoError(t, inst.loadAppPathOverrides(nil))
}

func TestDataPackArchivePathAndExtractDir(t *testing.T) {
	inst := &Install{Root: "/flashpoint"}
	gd := GameData{ID: uuid.MustParse("11111111-2222-3333-4444-555555555555"), Path: "107/game.zip"}

	assert.Equal(t, filepath.Join("/flashpoint", "Data", "Games", "107/game.zip"), inst.DataPackArchivePath(gd))
	assert.Equal(t, filepath.Join("/flashpoint", "Data", "Games", "Extracted", gd.ID.String()), inst.DataPackExtractDir(gd))
}
