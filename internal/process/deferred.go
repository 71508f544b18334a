package process

import (
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/oblivioncth/clifp/internal/director"
)

// DeferredStatus mirrors the ContainerStatus progression
// (pkg/docker.ContainerStatus), trimmed to the subset a locally-exec'd
// background service needs.
type DeferredStatus int

const (
	DeferredInit DeferredStatus = iota
	DeferredUp
	DeferredCrashed
	DeferredClosing
	DeferredDown
)

func (s DeferredStatus) String() string {
	return [...]string{"Init", "Up", "Crashed", "Closing", "Down"}[s]
}

// deferredService is one background process entry, holding enough
// state to tear it down cleanly at shutdown.
type deferredService struct {
	label string
	cmd  *exec.Cmd
	status DeferredStatus
	done  chan struct{}
}

// DeferredProcessManager owns a set of unattended background services
// (e.g. the locally-spawned mount-proxy helper) started during the
// Startup stage and torn down during Shutdown - grounded on pkg/docker.DockerContainer lifecycle (Start/Close +
// status/message channels) generalized from "one docker container" to
// "a small set of locally-exec'd long-lived helpers", backing spec.md
// §4.2's "background services set, torn down at shutdown".
type DeferredProcessManager struct {
	director.Directorate

	mu    sync.Mutex
	services map[string]*deferredService
}

// NewDeferredProcessManager constructs an empty manager.
func NewDeferredProcessManager(d director.Directorate) *DeferredProcessManager {
	return &DeferredProcessManager{Directorate: d, services: make(map[string]*deferredService)}
}

// Spawn starts cmd as a labeled background service and begins
// monitoring its lifetime. If cmd exits on its own before Close is
// called, the service transitions to Crashed and is logged as an
// error via PostError.
func (m *DeferredProcessManager) Spawn(label string, cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn deferred service %q: %w", label, err)
	}

	svc := &deferredService{label: label, cmd: cmd, status: DeferredUp, done: make(chan struct{})}

	m.mu.Lock()
	m.services[label] = svc
	m.mu.Unlock()

	go m.monitor(svc)

	m.Log(director.New, "Started background service %q (pid %d)", label, cmd.Process.Pid)
	return nil
}

func (m *DeferredProcessManager) monitor(svc *deferredService) {
	err := svc.cmd.Wait()

	m.mu.Lock()
	wasClosing := svc.status == DeferredClosing
	if !wasClosing {
		svc.status = DeferredCrashed
	} else {
		svc.status = DeferredDown
	}
	m.mu.Unlock()
	close(svc.done)

	if !wasClosing {
		m.PostError(0, "Warning", fmt.Sprintf("Background service %q stopped unexpectedly", svc.label), errString(err))
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Status reports a service's current lifecycle status, or
// DeferredDown if label is unknown.
func (m *DeferredProcessManager) Status(label string) DeferredStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if svc, ok := m.services[label]; ok {
		return svc.status
	}
	return DeferredDown
}

// CloseAll signals every running service to stop and waits (up to
// timeout per service) for its process to exit, matching
// spec.md §4.4's Shutdown-stage teardown ordering.
func (m *DeferredProcessManager) CloseAll(timeout time.Duration) {
	m.mu.Lock()
	services := make([]*deferredService, 0, len(m.services))
	for _, svc := range m.services {
		services = append(services, svc)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, svc := range services {
		wg.Add(1)
		go func(svc *deferredService) {
			defer wg.Done()
			m.closeOne(svc, timeout)
		}(svc)
	}
	wg.Wait()
}

func (m *DeferredProcessManager) closeOne(svc *deferredService, timeout time.Duration) {
	m.mu.Lock()
	svc.status = DeferredClosing
	m.mu.Unlock()

	_ = svc.cmd.Process.Kill()

	select {
	case <-svc.done:
		m.Log(director.Stop, "Background service %q stopped", svc.label)
	case <-time.After(timeout):
		m.Log(director.Warn, "Background service %q did not stop within %s", svc.label, timeout)
	}
}
