package command

import (
	"context"

	"github.com/jessevdk/go-flags"

	"github.com/oblivioncth/clifp/internal/director"
	"github.com/oblivioncth/clifp/internal/kernel"
	"github.com/oblivioncth/clifp/internal/kernelerr"
	"github.com/oblivioncth/clifp/internal/task"
)

type showOptions struct {
	Message string `short:"m" long:"message" description:"Display a message dialog" validate:"required_without=Extra,excluded_with=Extra"`
	Extra  string `short:"e" long:"extra" description:"Open an extras folder" validate:"required_without=Message,excluded_with=Message"`
}

type showCommand struct {
	director.Directorate
	showOptions
	helpWanted bool
}

func newShowCommand(d director.Directorate) Command {
	return &showCommand{Directorate: d}
}

func (c *showCommand) Name() string        { return "show" }
func (c *showCommand) AutoBlockNewInstances() bool { return true }
func (c *showCommand) HelpRequested() bool     { return c.helpWanted }

func (c *showCommand) Parse(args []string) error {
	_, err := flags.ParseArgs(&c.showOptions, args)
	if isHelpErr(err) {
		c.helpWanted = true
		return nil
	}
	return err
}

// Perform either posts a message dialog or opens an extras folder, per
// spec.md §4.4's show semantics.
func (c *showCommand) Perform(_ context.Context, core *kernel.Core) kernelerr.Error {
	if err := validateRequired(c.showOptions); !err.Ok() {
		return err
	}

	if c.Message != "" {
		core.Enqueue(task.NewTMessage(core.Directorate, task.StagePrimary, c.Message))
		return kernelerr.Nil
	}

	core.Enqueue(task.NewTExtra(core.Directorate, core.ResolveFullAppPath(c.Extra)))
	return kernelerr.Nil
}
