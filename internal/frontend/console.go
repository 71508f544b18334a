// Package frontend implements the Kernel's primary frontend: a console
// renderer attached directly to the Director's directive bus, plus (in
// internal/frontend/wsbridge) the optional secondary websocket
// transport a second frontend process can attach to. spec.md leaves
// the full windowed frontend out of scope ("only its contract is
// specified here") - Console is that contract's minimal, always-present
// implementation, the one every CLIFp invocation actually runs under
// unless a windowed frontend has attached via wsbridge instead.
package frontend

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/oblivioncth/clifp/internal/directive"
	"github.com/oblivioncth/clifp/internal/director"
)

// Console renders directives as plain text on out, resolving Sync/
// Request directives by reading a line from in. No library in this
// module's dependency corpus covers interactive terminal prompts (it
// skews toward headless services with no stdin-driven UI); this stays
// on bufio/fmt deliberately rather than reaching for an unrelated
// ecosystem dependency to dress up a few Printf/Scanln calls.
type Console struct {
	directorate director.Directorate
	out     io.Writer
	in     *bufio.Reader
}

// NewConsole constructs a Console rendering onto out and reading
// replies from in.
func NewConsole(d director.Directorate, out io.Writer, in io.Reader) *Console {
	return &Console{directorate: d, out: out, in: bufio.NewReader(in)}
}

// Run subscribes to the bus and renders directives until ctx is
// cancelled or the bus is closed, mirroring wsbridge.Hub.Start's
// subscribe/select/unsubscribe shape but rendering locally instead of
// over a websocket.
func (c *Console) Run(ctx context.Context) {
	bus := c.directorate.Director().Bus()
	id, ch := bus.Subscribe()
	defer bus.Unsubscribe(id)

	for {
		select {
		case d, ok := <-ch:
			if !ok {
				return
			}
			c.render(d)
		case <-ctx.Done():
			return
		}
	}
}

func (c *Console) render(d any) {
	switch v := d.(type) {
	case *directive.Message:
		fmt.Fprintln(c.out, v.Text)
	case *directive.ErrorNotice:
		if v.Specific != "" {
			fmt.Fprintf(c.out, "[%s] %s: %s\n", v.Severity, v.Primary, v.Specific)
		} else {
			fmt.Fprintf(c.out, "[%s] %s\n", v.Severity, v.Primary)
		}
	case *directive.ProcedureStart:
		fmt.Fprintf(c.out, "--- %s ---\n", v.Title)
	case *directive.ProcedureStop:
		fmt.Fprintln(c.out, "--- done ---")
	case *directive.ProcedureProgress:
		fmt.Fprintf(c.out, "\r%d", v.Current)
	case *directive.ProcedureScale:
		fmt.Fprintf(c.out, "(of %d)\n", v.Max)
	case *directive.ClipboardUpdate:
		fmt.Fprintf(c.out, "copied to clipboard: %s\n", v.Text)
	case *directive.StatusUpdate:
		fmt.Fprintf(c.out, "%s: %s\n", v.Heading, v.Message)
	case *directive.BlockingMessage:
		fmt.Fprintln(c.out, v.Text)
		if v.Selectable {
			fmt.Fprint(c.out, "press enter to continue: ")
			_, _ = c.in.ReadString('\n')
		}
		close(v.Done)
	case *directive.BlockingError:
		c.renderBlockingError(v)
	case *directive.SaveFilename:
		fmt.Fprintf(c.out, "%s [%s]: ", v.Caption, v.Dir)
		v.Reply <- c.readLine()
	case *directive.ExistingDir:
		fmt.Fprintf(c.out, "%s [%s]: ", v.Caption, v.Dir)
		v.Reply <- c.readLine()
	case *directive.ItemSelection:
		v.Reply <- c.renderItemSelection(v)
	case *directive.YesOrNo:
		fmt.Fprintf(c.out, "%s [y/n]: ", v.Question)
		v.Reply <- strings.EqualFold(strings.TrimSpace(c.readLine()), "y")
	}
}

func (c *Console) renderBlockingError(v *directive.BlockingError) {
	fmt.Fprintf(c.out, "[%s] %s", v.Severity, v.Primary)
	if v.Specific != "" {
		fmt.Fprintf(c.out, ": %s", v.Specific)
	}
	fmt.Fprintln(c.out)

	for i, choice := range v.Choices {
		fmt.Fprintf(c.out, " %d) %s\n", i+1, choice)
	}
	fmt.Fprint(c.out, "> ")

	line := strings.TrimSpace(c.readLine())
	for _, choice := range v.Choices {
		if strings.EqualFold(line, string(choice)) {
			v.Reply <- choice
			return
		}
	}
	v.Reply <- v.Default
}

func (c *Console) renderItemSelection(v *directive.ItemSelection) string {
	fmt.Fprintln(c.out, v.Caption)
	for i, item := range v.Items {
		fmt.Fprintf(c.out, " %d) %s\n", i+1, item)
	}
	fmt.Fprintf(c.out, "%s: ", v.Label)

	line := strings.TrimSpace(c.readLine())
	for i, item := range v.Items {
		if fmt.Sprint(i+1) == line {
			return item
		}
	}
	return ""
}

func (c *Console) readLine() string {
	line, _ := c.in.ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}
