package process

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/oblivioncth/clifp/internal/director"
)

// BlockingProcessManager runs a single foreground child process to
// completion, line-buffering its stdout/stderr into the Director's log
// exactly as the process emits them - grounded on
// dockerContainer.monitorContainer (bufio.Scanner over a live pipe,
// one log line per scanned line), generalized from "a docker
// container's log stream" to "any exec.Cmd's combined output", backing
// TExec/TTitleExec (spec.md §4.2).
type BlockingProcessManager struct {
	director.Directorate

	cmd *exec.Cmd
}

// NewBlockingProcessManager wraps cmd for line-buffered execution.
func NewBlockingProcessManager(d director.Directorate, cmd *exec.Cmd) *BlockingProcessManager {
	return &BlockingProcessManager{Directorate: d, cmd: cmd}
}

// Run starts the child process, streams its combined output line by
// line into the log, and blocks until it exits or ctx is cancelled -
// the suspension point TExec/TTitleExec parks at per spec.md §5.
func (m *BlockingProcessManager) Run(ctx context.Context) (int, error) {
	stdout, err := m.cmd.StdoutPipe()
	if err != nil {
		return -1, fmt.Errorf("attach stdout: %w", err)
	}
	stderr, err := m.cmd.StderrPipe()
	if err != nil {
		return -1, fmt.Errorf("attach stderr: %w", err)
	}

	if err := m.cmd.Start(); err != nil {
		return -1, fmt.Errorf("start process: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go m.streamLines(&wg, stdout)
	go m.streamLines(&wg, stderr)

	done := make(chan error, 1)
	go func() {
		wg.Wait()
		done <- m.cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		_ = m.cmd.Process.Kill()
		<-done
		return -1, ctx.Err()
	case err := <-done:
		code := m.cmd.ProcessState.ExitCode()
		if err != nil {
			return code, fmt.Errorf("process %s exited abnormally: %w", m.cmd.Path, err)
		}
		return code, nil
	}
}

func (m *BlockingProcessManager) streamLines(wg *sync.WaitGroup, r io.Reader) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		m.Log(director.Verbose, "%s", scanner.Text())
	}
}
