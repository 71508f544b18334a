//go:build linux

package process

import (
	"context"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// linuxProbe polls the process table by executable/command name, since
// Linux has no cheap "wait on handle" primitive for an unrelated
// process the way Windows does - matching original_source's
// processbider_p_linux.cpp, which polls /proc via QProcess::execute of
// `ps` on an interval (mPollRate).
type linuxProbe struct{}

func newPlatformProbe() probe { return linuxProbe{} }

func (linuxProbe) isRunning(ctx context.Context, name string) (bool, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return false, err
	}
	for _, p := range procs {
		exe, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if strings.EqualFold(exe, name) {
			return true, nil
		}
	}
	return false, nil
}

func (l linuxProbe) waitForExit(ctx context.Context, name string, pollEvery time.Duration) error {
	if pollEvery <= 0 {
		pollEvery = 250 * time.Millisecond
	}
	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()

	for {
		running, err := l.isRunning(ctx, name)
		if err != nil {
			return err
		}
		if !running {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
