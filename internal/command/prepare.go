package command

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jessevdk/go-flags"

	"github.com/oblivioncth/clifp/internal/director"
	"github.com/oblivioncth/clifp/internal/kernel"
	"github.com/oblivioncth/clifp/internal/kernelerr"
)

const errPrepareFailed uint32 = kernelerr.CommandBlock + 5

type prepareOptions struct {
	ID  string `short:"i" long:"id" description:"Prepare by game ID" validate:"required_without=Title,excluded_with=Title"`
	Title string `short:"t" long:"title" description:"Prepare by title" validate:"required_without=ID,excluded_with=ID"`
}

type prepareCommand struct {
	director.Directorate
	prepareOptions
	helpWanted bool
}

func newPrepareCommand(d director.Directorate) Command {
	return &prepareCommand{Directorate: d}
}

func (c *prepareCommand) Name() string        { return "prepare" }
func (c *prepareCommand) AutoBlockNewInstances() bool { return true }
func (c *prepareCommand) HelpRequested() bool     { return c.helpWanted }

func (c *prepareCommand) Parse(args []string) error {
	_, err := flags.ParseArgs(&c.prepareOptions, args)
	if isHelpErr(err) {
		c.helpWanted = true
		return nil
	}
	return err
}

// Perform is play's data-pack subset only: resolve the game, enqueue
// its download/extract/mount tasks, skip the title process entirely,
// per spec.md §4.4's prepare semantics.
func (c *prepareCommand) Perform(ctx context.Context, core *kernel.Core) kernelerr.Error {
	if err := validateRequired(c.prepareOptions); !err.Ok() {
		return err
	}

	var gameID uuid.UUID
	var err error
	if c.ID != "" {
		gameID, err = uuid.Parse(c.ID)
	} else {
		gameID, err = core.FindGameIDFromTitle(ctx, c.Title, "all")
	}
	if err != nil {
		return kernelerr.New(errPrepareFailed, kernelerr.Critical, "Could not resolve a game to prepare").WithSpecific(err.Error())
	}

	gd, gdErr := core.Install.ActiveGameData(ctx, gameID)
	if gdErr != nil {
		return kernelerr.New(errPrepareFailed, kernelerr.Critical, "Failed to load data-pack record").WithSpecific(gdErr.Error())
	}
	if gd == nil {
		return kernelerr.New(errPrepareFailed, kernelerr.Warning, "Game has no data pack to prepare").WithSpecific(fmt.Sprintf("game %s", gameID))
	}

	core.EnqueuePlayableDataPackTasks(*gd)
	return kernelerr.Nil
}
