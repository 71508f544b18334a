package command

import (
	"context"

	"github.com/jessevdk/go-flags"

	"github.com/oblivioncth/clifp/internal/director"
	"github.com/oblivioncth/clifp/internal/install"
	"github.com/oblivioncth/clifp/internal/kernel"
	"github.com/oblivioncth/clifp/internal/kernelerr"
	"github.com/oblivioncth/clifp/internal/task"
)

const errRunFailed uint32 = kernelerr.CommandBlock + 4

type runOptions struct {
	AppPath string `short:"a" long:"app" description:"Executable to run" validate:"required"`
	Params string `short:"p" long:"params" description:"Arguments to pass to the executable"`
}

type runCommand struct {
	director.Directorate
	runOptions
	helpWanted bool
}

func newRunCommand(d director.Directorate) Command {
	return &runCommand{Directorate: d}
}

func (c *runCommand) Name() string        { return "run" }
func (c *runCommand) AutoBlockNewInstances() bool { return true }
func (c *runCommand) HelpRequested() bool     { return c.helpWanted }

func (c *runCommand) Parse(args []string) error {
	_, err := flags.ParseArgs(&c.runOptions, args)
	if isHelpErr(err) {
		c.helpWanted = true
		return nil
	}
	return err
}

// Perform executes the user-supplied path with user-supplied args, per
// spec.md §4.4's run semantics. Companion services are not started
// here; main enqueues them before any command is dispatched.
func (c *runCommand) Perform(_ context.Context, core *kernel.Core) kernelerr.Error {
	if err := validateRequired(c.runOptions); !err.Ok() {
		return err
	}

	args := splitLaunchCommand(c.Params)
	fullPath := core.ResolveFullAppPath(c.AppPath)

	core.Enqueue(task.NewTExec(core.Directorate, fullPath, args, core.Install.Root, install.ChildTitleEnvironment(), task.ExecBlocking, nil, "run"))

	return kernelerr.Nil
}
