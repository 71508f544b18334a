package frontend

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oblivioncth/clifp/internal/director"
)

func testDirectorate() director.Directorate {
	return director.NewDirectorate(director.New(&bytes.Buffer{}), "test")
}

func TestConsole_RendersMessage(t *testing.T) {
	d := testDirectorate()
	var out bytes.Buffer
	c := NewConsole(d, &out, strings.NewReader(""))

	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)
	defer cancel()

	d.PostMessage("hello world")
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "hello world")
	}, time.Second, 5*time.Millisecond)
}

func TestConsole_YesOrNoReadsStdin(t *testing.T) {
	d := testDirectorate()
	var out bytes.Buffer
	c := NewConsole(d, &out, strings.NewReader("y\n"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	answer := d.Director().RequestYesOrNo(context.Background(), d.Name(), "continue?")
	assert.True(t, answer)
}

func TestConsole_ItemSelectionReadsIndex(t *testing.T) {
	d := testDirectorate()
	var out bytes.Buffer
	c := NewConsole(d, &out, strings.NewReader("2\n"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	chosen := d.Director().RequestItemSelection(context.Background(), d.Name(), "pick one", "Title", []string{"a", "b", "c"})
	assert.Equal(t, "b", chosen)
}
