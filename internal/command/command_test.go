package command

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oblivioncth/clifp/internal/director"
	"github.com/oblivioncth/clifp/internal/kernel"
)

func testDirectorate() director.Directorate {
	return director.NewDirectorate(nil, "test")
}

func TestRegistry_UnknownCommand(t *testing.T) {
	r := NewRegistry()
	RegisterAll(r)

	core := kernel.New(testDirectorate(), nil, kernel.Standalone, nil, &kernel.ErrorStatus{})
	err := r.Dispatch(context.Background(), testDirectorate(), core, "nonexistent", nil)
	assert.False(t, err.Ok())
}

func TestRegistry_NamesIncludesAllBuiltins(t *testing.T) {
	r := NewRegistry()
	RegisterAll(r)

	names := r.Names()
	for _, want := range []string{"play", "download", "link", "prepare", "run", "share", "show", "update"} {
		assert.Contains(t, names, want)
	}
}

func TestPlayCommand_HelpShortCircuits(t *testing.T) {
	r := NewRegistry()
	RegisterAll(r)

	core := kernel.New(testDirectorate(), nil, kernel.Standalone, nil, &kernel.ErrorStatus{})
	err := r.Dispatch(context.Background(), testDirectorate(), core, "play", []string{"--help"})
	assert.True(t, err.Ok())
	assert.Equal(t, 0, core.Pending())
}

func TestPlayCommand_MissingSelectorFailsValidation(t *testing.T) {
	r := NewRegistry()
	RegisterAll(r)

	core := kernel.New(testDirectorate(), nil, kernel.Standalone, nil, &kernel.ErrorStatus{})
	err := r.Dispatch(context.Background(), testDirectorate(), core, "play", nil)
	assert.False(t, err.Ok())
}

func TestPlayCommand_InvalidRandomFilterReportsDistinctCode(t *testing.T) {
	r := NewRegistry()
	RegisterAll(r)

	core := kernel.New(testDirectorate(), nil, kernel.Standalone, nil, &kernel.ErrorStatus{})
	err := r.Dispatch(context.Background(), testDirectorate(), core, "play", []string{"-r", "nonsense"})
	require.False(t, err.Ok())
	assert.Equal(t, errInvalidRandomFilter, err.Code)
}

func TestParseFlashpointURL_ResolvesGameID(t *testing.T) {
	id, err := parseFlashpointURL("flashpoint://11111111-2222-3333-4444-555555555555")
	require.NoError(t, err)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", id.String())
}

func TestParseFlashpointURL_RejectsWrongScheme(t *testing.T) {
	_, err := parseFlashpointURL("http://11111111-2222-3333-4444-555555555555")
	assert.Error(t, err)
}

func TestDownloadCommand_MissingPlaylistFailsValidation(t *testing.T) {
	r := NewRegistry()
	RegisterAll(r)

	core := kernel.New(testDirectorate(), nil, kernel.Standalone, nil, &kernel.ErrorStatus{})
	err := r.Dispatch(context.Background(), testDirectorate(), core, "download", nil)
	assert.False(t, err.Ok())
}

func TestShowCommand_Message(t *testing.T) {
	r := NewRegistry()
	RegisterAll(r)

	core := kernel.New(testDirectorate(), nil, kernel.Standalone, nil, &kernel.ErrorStatus{})
	err := r.Dispatch(context.Background(), testDirectorate(), core, "show", []string{"-m", "hello"})
	require.True(t, err.Ok())
	assert.Equal(t, 1, core.Pending())
}

func TestShowCommand_BothOptionsFailsValidation(t *testing.T) {
	r := NewRegistry()
	RegisterAll(r)

	core := kernel.New(testDirectorate(), nil, kernel.Standalone, nil, &kernel.ErrorStatus{})
	err := r.Dispatch(context.Background(), testDirectorate(), core, "show", []string{"-m", "hello", "-e", "folder"})
	assert.False(t, err.Ok())
}

func TestLinkCommand_WritesShortcut(t *testing.T) {
	r := NewRegistry()
	RegisterAll(r)

	dir := t.TempDir()
	core := kernel.New(testDirectorate(), nil, kernel.Standalone, nil, &kernel.ErrorStatus{})
	err := r.Dispatch(context.Background(), testDirectorate(), core, "link", []string{"-i", "11111111-1111-1111-1111-111111111111", "-p", dir, "-n", "MyGame"})
	require.True(t, err.Ok())

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "MyGame")
}

func TestLinkCommand_NoSelectorFails(t *testing.T) {
	r := NewRegistry()
	RegisterAll(r)

	dir := t.TempDir()
	core := kernel.New(testDirectorate(), nil, kernel.Standalone, nil, &kernel.ErrorStatus{})
	err := r.Dispatch(context.Background(), testDirectorate(), core, "link", []string{"-p", dir})
	assert.False(t, err.Ok())
}

func TestShareCommand_URLPostsClipboardUpdate(t *testing.T) {
	r := NewRegistry()
	RegisterAll(r)

	core := kernel.New(testDirectorate(), nil, kernel.Standalone, nil, &kernel.ErrorStatus{})
	err := r.Dispatch(context.Background(), testDirectorate(), core, "share", []string{"-u", "some-id"})
	assert.True(t, err.Ok())
}

func TestShareCommand_ConflictingFlagsFailsValidation(t *testing.T) {
	r := NewRegistry()
	RegisterAll(r)

	core := kernel.New(testDirectorate(), nil, kernel.Standalone, nil, &kernel.ErrorStatus{})
	err := r.Dispatch(context.Background(), testDirectorate(), core, "share", []string{"-c", "-C"})
	assert.False(t, err.Ok())
}

func TestRunCommand_MissingAppFailsValidation(t *testing.T) {
	r := NewRegistry()
	RegisterAll(r)

	core := kernel.New(testDirectorate(), nil, kernel.Standalone, nil, &kernel.ErrorStatus{})
	err := r.Dispatch(context.Background(), testDirectorate(), core, "run", nil)
	assert.False(t, err.Ok())
}
