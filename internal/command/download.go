package command

import (
	"context"
	"fmt"

	"github.com/jessevdk/go-flags"

	"github.com/oblivioncth/clifp/internal/director"
	"github.com/oblivioncth/clifp/internal/kernel"
	"github.com/oblivioncth/clifp/internal/kernelerr"
	"github.com/oblivioncth/clifp/internal/task"
)

const errDownloadFailed uint32 = kernelerr.CommandBlock + 3

type downloadOptions struct {
	Playlist string `short:"p" long:"playlist" description:"Playlist to preload" validate:"required"`
}

type downloadCommand struct {
	director.Directorate
	opts    downloadOptions
	helpWanted bool
}

func newDownloadCommand(d director.Directorate) Command {
	return &downloadCommand{Directorate: d}
}

func (c *downloadCommand) Name() string        { return "download" }
func (c *downloadCommand) AutoBlockNewInstances() bool { return true }
func (c *downloadCommand) HelpRequested() bool     { return c.helpWanted }

func (c *downloadCommand) Parse(args []string) error {
	_, err := flags.ParseArgs(&c.opts, args)
	if isHelpErr(err) {
		c.helpWanted = true
		return nil
	}
	return err
}

// Perform preloads every data pack belonging to the named playlist,
// per spec.md §4.4's download semantics.
func (c *downloadCommand) Perform(ctx context.Context, core *kernel.Core) kernelerr.Error {
	if err := validateRequired(c.opts); !err.Ok() {
		return err
	}

	games, err := core.Install.PlaylistGames(ctx, c.opts.Playlist)
	if err != nil {
		return kernelerr.New(errDownloadFailed, kernelerr.Critical, "Failed to load playlist").WithSpecific(err.Error())
	}
	if len(games) == 0 {
		return kernelerr.New(errDownloadFailed, kernelerr.Error, "Playlist has no games").WithSpecific(c.opts.Playlist)
	}

	core.Enqueue(task.NewTMessage(core.Directorate, task.StageStartup, fmt.Sprintf("Preloading %d game(s) from playlist %q", len(games), c.opts.Playlist)))

	for _, g := range games {
		gd, gdErr := core.Install.ActiveGameData(ctx, g.ID)
		if gdErr != nil || gd == nil {
			continue
		}
		core.EnqueuePreloadDataPackTasks(*gd)
	}

	return kernelerr.Nil
}
