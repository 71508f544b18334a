package singleinstance

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_SecondCallerFailsWhileHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")

	first, err := Acquire(path)
	require.NoError(t, err)
	defer first.Release()

	_, err = Acquire(path)
	assert.ErrorIs(t, err, ErrAlreadyHeld)
}

func TestAcquire_ReleaseAllowsReacquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")

	first, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, first.Release())

	second, err := Acquire(path)
	require.NoError(t, err)
	assert.NoError(t, second.Release())
}

func TestDefaultPath_UsesOverride(t *testing.T) {
	path, err := DefaultPath("/tmp/explicit.lock")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/explicit.lock", path)
}
