// Package dockerwait implements TAwaitDocker: waiting for a named
// Docker container CLIFp does not own to reach the "running" state, by
// first querying its current state directly and, if not yet running,
// subscribing to the daemon's event stream for a matching start event
// up to a caller-supplied timeout. Grounded on pkg/docker
// (docker.WaitForContainer's direct-query-then-broker-wait shape),
// generalized from "a container this process itself spawned" to "any
// named container", per spec.md §4.2.
package dockerwait

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

// ErrTimeout is returned when containerName never reaches the running
// state before the caller's deadline.
var ErrTimeout = errors.New("dockerwait: timed out waiting for container to start")

// AwaitRunning blocks until the container named containerName is
// observed running, ctx is cancelled, or timeout elapses - whichever
// comes first. It always performs one direct state query before
// falling back to the event stream, so an already-running container
// returns immediately without needing a docker daemon able to stream
// events (e.g. in a sandboxed CI container).
func AwaitRunning(ctx context.Context, cli *client.Client, containerName string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	running, err := isRunning(ctx, cli, containerName)
	if err != nil {
		return fmt.Errorf("inspect container %q: %w", containerName, err)
	}
	if running {
		return nil
	}

	filterArgs := filters.NewArgs(
		filters.Arg("type", "container"),
		filters.Arg("container", containerName),
		filters.Arg("event", "start"),
	)

	msgs, errs := cli.Events(ctx, types.EventsOptions{Filters: filterArgs})
	for {
		select {
		case <-msgs:
			return nil
		case err := <-errs:
			if err != nil {
				if ctx.Err() != nil {
					return ErrTimeout
				}
				return fmt.Errorf("subscribe to docker events for %q: %w", containerName, err)
			}
		case <-ctx.Done():
			return ErrTimeout
		}
	}
}

func isRunning(ctx context.Context, cli *client.Client, containerName string) (bool, error) {
	info, err := cli.ContainerInspect(ctx, containerName)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return info.State != nil && info.State.Status == "running", nil
}
