package command

import (
	"context"
	"fmt"

	"github.com/jessevdk/go-flags"

	"github.com/oblivioncth/clifp/internal/director"
	"github.com/oblivioncth/clifp/internal/kernel"
	"github.com/oblivioncth/clifp/internal/kernelerr"
	"github.com/oblivioncth/clifp/internal/protocol"
)

const errShareFailed uint32 = kernelerr.CommandBlock + 7

type shareOptions struct {
	Register  bool  `short:"c" long:"register" description:"Register this binary as the archive's URL-scheme handler" validate:"required_without_all=Unregister URL,excluded_with=Unregister URL"`
	Unregister bool  `short:"C" long:"unregister" description:"Unregister this binary as the archive's URL-scheme handler" validate:"required_without_all=Register URL,excluded_with=Register URL"`
	URL    string `short:"u" long:"url" description:"Game ID to produce a shareable URL for" validate:"required_without_all=Register Unregister,excluded_with=Register Unregister"`
}

type shareCommand struct {
	director.Directorate
	shareOptions
	helpWanted bool
}

func newShareCommand(d director.Directorate) Command {
	return &shareCommand{Directorate: d}
}

func (c *shareCommand) Name() string        { return "share" }
func (c *shareCommand) AutoBlockNewInstances() bool { return true }
func (c *shareCommand) HelpRequested() bool     { return c.helpWanted }

func (c *shareCommand) Parse(args []string) error {
	_, err := flags.ParseArgs(&c.shareOptions, args)
	if isHelpErr(err) {
		c.helpWanted = true
		return nil
	}
	return err
}

// Perform either (un)registers the archive's custom URL scheme or
// emits a shareable URL to the clipboard, per spec.md §4.4's share
// semantics.
func (c *shareCommand) Perform(_ context.Context, core *kernel.Core) kernelerr.Error {
	if err := validateRequired(c.shareOptions); !err.Ok() {
		return err
	}

	switch {
	case c.Register:
		if err := protocol.Register(); err != nil {
			return kernelerr.New(errShareFailed, kernelerr.Critical, "Failed to register URL-scheme handler").WithSpecific(err.Error())
		}
		core.PostMessage("Registered as the archive's URL-scheme handler")
	case c.Unregister:
		if err := protocol.Unregister(); err != nil {
			return kernelerr.New(errShareFailed, kernelerr.Critical, "Failed to unregister URL-scheme handler").WithSpecific(err.Error())
		}
		core.PostMessage("Unregistered as the archive's URL-scheme handler")
	case c.URL != "":
		core.PostClipboardUpdate(fmt.Sprintf("%s://%s", protocol.Scheme, c.URL))
	}

	return kernelerr.Nil
}
