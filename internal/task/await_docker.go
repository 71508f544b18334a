package task

import (
	"context"
	"time"

	"github.com/docker/docker/client"

	"github.com/oblivioncth/clifp/internal/director"
	"github.com/oblivioncth/clifp/internal/dockerwait"
	"github.com/oblivioncth/clifp/internal/kernelerr"
)

const errAwaitDockerFailed uint32 = kernelerr.TaskBlock + 6

// TAwaitDocker direct-queries a container's running state and, if not
// yet running, subscribes to the daemon's event stream for a start
// event up to Timeout, per spec.md §4.2. original_source restricted
// this to Linux since Docker Desktop support on the original tool's
// Windows builds was unreliable; the Docker Engine API this task
// speaks is identical cross-platform, so this task is not itself
// platform-conditional (a REDESIGN FLAGS resolution, see DESIGN.md).
type TAwaitDocker struct {
	director.Directorate

	Client    *client.Client
	ContainerName string
	Timeout    time.Duration
}

func NewTAwaitDocker(d director.Directorate, cli *client.Client, containerName string, timeout time.Duration) *TAwaitDocker {
	return &TAwaitDocker{Directorate: d, Client: cli, ContainerName: containerName, Timeout: timeout}
}

func (t *TAwaitDocker) Stage() Stage { return StageStartup }
func (t *TAwaitDocker) Name() string { return "TAwaitDocker" }
func (t *TAwaitDocker) Stop()    {}

func (t *TAwaitDocker) Perform(ctx context.Context) kernelerr.Error {
	t.PostStatusUpdate("Waiting", "Waiting for container "+t.ContainerName+" to start")

	if err := dockerwait.AwaitRunning(ctx, t.Client, t.ContainerName, t.Timeout); err != nil {
		return kernelerr.New(errAwaitDockerFailed, kernelerr.Critical, "Container did not start in time").WithSpecific(err.Error())
	}
	return kernelerr.Nil
}
