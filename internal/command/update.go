package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"

	"github.com/oblivioncth/clifp/internal/director"
	"github.com/oblivioncth/clifp/internal/kernel"
	"github.com/oblivioncth/clifp/internal/kernelerr"
	"github.com/oblivioncth/clifp/internal/task"
	"github.com/oblivioncth/clifp/internal/update"
)

const errUpdateFailed uint32 = kernelerr.CommandBlock + 8

const releaseEndpoint = "https://api.github.com/repos/FlashpointProject/CLIFp/releases/latest"
const releaseAssetSubdir = "CLIFp"

type updateOptions struct {
	Install string `long:"install" description:"Complete a staged swap using the binary at this path"`
}

type updateCommand struct {
	director.Directorate
	updateOptions
	helpWanted bool
}

func newUpdateCommand(d director.Directorate) Command {
	return &updateCommand{Directorate: d}
}

func (c *updateCommand) Name() string { return "update" }

// AutoBlockNewInstances is false: update must be able to run (and the
// freshly staged binary must be able to re-invoke itself with
// --install) even while another instance's single-instance lock is
// still held, per spec.md §4.4/§6.
func (c *updateCommand) AutoBlockNewInstances() bool { return false }
func (c *updateCommand) HelpRequested() bool         { return c.helpWanted }

func (c *updateCommand) Parse(args []string) error {
	_, err := flags.ParseArgs(&c.updateOptions, args)
	if isHelpErr(err) {
		c.helpWanted = true
		return nil
	}
	return err
}

// Perform either completes a previously staged swap (--install) or
// queries the release server, downloads, and stages a newer release,
// per spec.md §4.4's update semantics.
func (c *updateCommand) Perform(ctx context.Context, core *kernel.Core) kernelerr.Error {
	if c.Install != "" {
		return c.completeInstall(core)
	}
	return c.checkAndStage(ctx, core)
}

func (c *updateCommand) completeInstall(core *kernel.Core) kernelerr.Error {
	exe, err := os.Executable()
	if err != nil {
		return kernelerr.New(errUpdateFailed, kernelerr.Critical, "Could not determine this binary's own path").WithSpecific(err.Error())
	}
	binaryDir := filepath.Dir(exe)
	if err := update.CompleteSwap(c.Install, binaryDir, false); err != nil {
		return kernelerr.New(errUpdateFailed, kernelerr.Critical, "Failed to complete the staged update").WithSpecific(err.Error())
	}
	core.PostMessage("Update installed successfully")
	return kernelerr.Nil
}

func (c *updateCommand) checkAndStage(ctx context.Context, core *kernel.Core) kernelerr.Error {
	rel, err := update.QueryLatest(ctx, nil, releaseEndpoint)
	if err != nil {
		return kernelerr.New(errUpdateFailed, kernelerr.Error, "Failed to query the release server").WithSpecific(err.Error())
	}

	currentVersion := version()
	if !update.IsNewer(currentVersion, rel.Tag) {
		core.PostMessage("No updates available")
		return kernelerr.Nil
	}

	exe, err := os.Executable()
	if err != nil {
		return kernelerr.New(errUpdateFailed, kernelerr.Critical, "Could not determine this binary's own path").WithSpecific(err.Error())
	}
	binaryDir := filepath.Dir(exe)
	cacheDir := update.CacheDir(binaryDir)

	core.Enqueue(task.NewTMessage(core.Directorate, task.StageStartup, fmt.Sprintf("Downloading update %s", rel.Tag)))
	core.Enqueue(task.NewTDownload(core.Directorate, rel.AssetURL, filepath.Join(cacheDir, rel.AssetName), "", nil))
	core.Enqueue(task.NewTGeneric(core.Directorate, task.StagePrimary, "stage-update", func(ctx context.Context) error {
		archivePath := filepath.Join(cacheDir, rel.AssetName)
		stagedBinary, stageErr := update.StageSwap(archivePath, releaseAssetSubdir, binaryDir)
		if stageErr != nil {
			return stageErr
		}
		core.PostMessage(fmt.Sprintf("Update staged at %s; re-run with --install to complete", stagedBinary))
		return nil
	}))

	return kernelerr.Nil
}

// version is the binary's own embedded release tag, set at build time
// via -ldflags; it defaults to "v0.0.0" (always "older") in unreleased
// builds so update never claims to be newer than the actual latest.
var buildVersion = "v0.0.0"

func version() string { return buildVersion }
