package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jessevdk/go-flags"

	"github.com/oblivioncth/clifp/internal/director"
	"github.com/oblivioncth/clifp/internal/kernel"
	"github.com/oblivioncth/clifp/internal/kernelerr"
)

const errLinkFailed uint32 = kernelerr.CommandBlock + 6

// linkOptions mirrors play's selector set (spec.md §6: "link [-i|-t|-T
// [-s|-S]|-r] [-p path] [-n name]") so the generated shortcut's
// argument list matches whatever would have resolved the same game.
type linkOptions struct {
	ID     string `short:"i" long:"id" description:"Link by game ID"`
	Title    string `short:"t" long:"title" description:"Link by title"`
	StrictTitle string `short:"T" long:"strict-title" description:"Link by exact title"`
	Subtitle  string `short:"s" long:"subtitle" description:"Disambiguate by add-app name"`
	StrictSub  string `short:"S" long:"strict-subtitle" description:"Disambiguate by add-app name, exact"`
	Random   string `short:"r" long:"random" description:"Link a random-selection invocation"`
	Path    string `short:"p" long:"path" description:"Destination directory for the shortcut"`
	Name    string `short:"n" long:"name" description:"Shortcut file name"`
}

type linkCommand struct {
	director.Directorate
	linkOptions
	helpWanted bool
}

func newLinkCommand(d director.Directorate) Command {
	return &linkCommand{Directorate: d}
}

func (c *linkCommand) Name() string        { return "link" }
func (c *linkCommand) AutoBlockNewInstances() bool { return true }
func (c *linkCommand) HelpRequested() bool     { return c.helpWanted }

func (c *linkCommand) Parse(args []string) error {
	_, err := flags.ParseArgs(&c.linkOptions, args)
	if isHelpErr(err) {
		c.helpWanted = true
		return nil
	}
	return err
}

// Perform writes a shortcut file invoking this binary's own play
// subcommand with the selector flags the user supplied, per spec.md
// §4.4's link semantics. Shortcut format is platform-native: a .desktop
// file on Linux, a .cmd wrapper elsewhere (a genuine .lnk requires a
// COM-backed shell-link library this pack does not carry).
func (c *linkCommand) Perform(_ context.Context, core *kernel.Core) kernelerr.Error {
	playArgs := c.playArgs()
	if len(playArgs) == 0 {
		return kernelerr.New(errLinkFailed, kernelerr.Critical, "No selector supplied for the linked game")
	}

	exe, err := os.Executable()
	if err != nil {
		return kernelerr.New(errLinkFailed, kernelerr.Critical, "Could not determine this binary's own path").WithSpecific(err.Error())
	}

	destDir := c.Path
	if destDir == "" {
		destDir, err = os.UserHomeDir()
		if err != nil {
			return kernelerr.New(errLinkFailed, kernelerr.Critical, "Could not determine a default shortcut directory").WithSpecific(err.Error())
		}
	}

	name := c.Name
	if name == "" {
		name = "Play"
	}

	shortcutPath, content := shortcutFile(destDir, name, exe, playArgs)
	if err := os.WriteFile(shortcutPath, []byte(content), 0o755); err != nil {
		return kernelerr.New(errLinkFailed, kernelerr.Critical, "Failed to write shortcut file").WithSpecific(err.Error())
	}

	core.PostMessage(fmt.Sprintf("Created shortcut %s", shortcutPath))
	return kernelerr.Nil
}

func (c *linkCommand) playArgs() []string {
	switch {
	case c.ID != "":
		return []string{"play", "-i", c.ID}
	case c.Title != "":
		args := []string{"play", "-t", c.Title}
		return appendSub(args, c.Subtitle, c.StrictSub)
	case c.StrictTitle != "":
		args := []string{"play", "-T", c.StrictTitle}
		return appendSub(args, c.Subtitle, c.StrictSub)
	case c.Random != "":
		return []string{"play", "-r", c.Random}
	default:
		return nil
	}
}

func appendSub(args []string, subtitle, strictSub string) []string {
	if subtitle != "" {
		return append(args, "-s", subtitle)
	}
	if strictSub != "" {
		return append(args, "-S", strictSub)
	}
	return args
}

func shortcutFile(destDir, name, exe string, playArgs []string) (string, string) {
	if runtime.GOOS == "linux" {
		path := filepath.Join(destDir, name+".desktop")
		content := fmt.Sprintf("[Desktop Entry]\nType=Application\nName=%s\nExec=%s %s\nTerminal=false\n",
			name, exe, strings.Join(playArgs, " "))
		return path, content
	}

	path := filepath.Join(destDir, name+".cmd")
	content := fmt.Sprintf("@echo off\r\n\"%s\" %s\r\n", exe, strings.Join(playArgs, " "))
	return path, content
}
