//go:build integration

package dockerwait_test

import (
	"context"
	"testing"
	"time"

	"github.com/docker/docker/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/oblivioncth/clifp/internal/dockerwait"
)

// TestAwaitRunning_ObservesAlreadyRunningContainer spins up a real
// container via testcontainers-go (mirroring
// tests/integration/ingest_test.go's spawn-a-real-service pattern) and
// confirms AwaitRunning's direct-query fast path sees it without
// needing to subscribe to the event stream.
func TestAwaitRunning_ObservesAlreadyRunningContainer(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:    "docker.io/alpine:3.19",
		Cmd:     []string{"sleep", "60"},
		WaitingFor:  wait.ForExec([]string{"true"}).WithStartupTimeout(10 * time.Second),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.Terminate(ctx)
	})

	id := c.GetContainerID()

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	require.NoError(t, err)
	defer cli.Close()

	err = dockerwait.AwaitRunning(ctx, cli, id, 5*time.Second)
	assert.NoError(t, err)
}

func TestAwaitRunning_TimesOutOnUnknownContainer(t *testing.T) {
	ctx := context.Background()
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	require.NoError(t, err)
	defer cli.Close()

	err = dockerwait.AwaitRunning(ctx, cli, "clifp-test-nonexistent-container", 500*time.Millisecond)
	assert.ErrorIs(t, err, dockerwait.ErrTimeout)
}
