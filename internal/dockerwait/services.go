package dockerwait

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"

	"github.com/oblivioncth/clifp/internal/director"
)

// ServiceSpec describes one Docker-backed companion service CLIFp
// brings up itself in Standalone mode (e.g. a bundled router or
// database container an install ships alongside its data), recovered
// from original_source's Standalone startup sequence (see DESIGN.md).
type ServiceSpec struct {
	Label  string
	Image  string
	Ports  nat.PortSet
	Binds  []string
	Command []string
}

// ServiceManager owns the Docker-backed companion containers CLIFp
// spawns itself, distinct from dockerwait.AwaitRunning's read-only
// wait on a container some other process owns. Grounded on pkg/docker.docker (SpawnContainer/Shutdown, a
// client.Client plus a label->container map torn down as a group).
type ServiceManager struct {
	director.Directorate

	cli *client.Client

	mu     sync.Mutex
	containers map[string]string // label -> container ID
}

// NewServiceManager constructs a manager bound to an already-configured
// Docker API client.
func NewServiceManager(d director.Directorate, cli *client.Client) *ServiceManager {
	return &ServiceManager{Directorate: d, cli: cli, containers: make(map[string]string)}
}

// Spawn creates and starts spec's container, waiting for it to report
// running before returning - the Standalone-mode counterpart to
// AwaitRunning's Companion-mode read-only wait.
func (m *ServiceManager) Spawn(ctx context.Context, spec ServiceSpec, startTimeout time.Duration) error {
	exposed := make(nat.PortSet, len(spec.Ports))
	bindings := make(nat.PortMap, len(spec.Ports))
	for port := range spec.Ports {
		exposed[port] = struct{}{}
		bindings[port] = []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: port.Port()}}
	}

	resp, err := m.cli.ContainerCreate(ctx,
		&container.Config{Image: spec.Image, Cmd: spec.Command, ExposedPorts: exposed},
		&container.HostConfig{PortBindings: bindings, Binds: spec.Binds},
		&network.NetworkingConfig{},
		nil,
		spec.Label,
	)
	if err != nil {
		return fmt.Errorf("create companion service %q: %w", spec.Label, err)
	}

	if err := m.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("start companion service %q: %w", spec.Label, err)
	}

	m.mu.Lock()
	m.containers[spec.Label] = resp.ID
	m.mu.Unlock()

	m.Log(director.New, "Started companion service %q (container %s)", spec.Label, resp.ID[:12])

	if err := AwaitRunning(ctx, m.cli, resp.ID, startTimeout); err != nil {
		return fmt.Errorf("companion service %q failed to reach running: %w", spec.Label, err)
	}

	m.Log(director.Success, "Companion service %q is up", spec.Label)
	return nil
}

// Shutdown stops and removes every companion container this manager
// spawned, logging (but not failing on) individual teardown errors so
// one stuck container cannot block the rest, matching spec.md §4.4's
// Shutdown-stage "best-effort teardown" posture.
func (m *ServiceManager) Shutdown(ctx context.Context, timeout time.Duration) {
	m.mu.Lock()
	containers := make(map[string]string, len(m.containers))
	for label, id := range m.containers {
		containers[label] = id
	}
	m.mu.Unlock()

	seconds := int(timeout.Seconds())
	for label, id := range containers {
		if err := m.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &seconds}); err != nil {
			m.Log(director.Warn, "Failed to stop companion service %q: %v", label, err)
		}
		if err := m.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
			m.Log(director.Warn, "Failed to remove companion service %q: %v", label, err)
		}
	}
}
