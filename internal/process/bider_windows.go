//go:build windows

package process

import (
	"context"
	"strings"
	"time"

	psutil "github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/windows"
)

// windowsProbe mirrors original_source's processbider_p_win.cpp, which
// opens a handle to the located process and blocks on
// WaitForSingleObject rather than polling - this is the one genuinely
// platform-divergent primitive in the bider, since Windows exposes a
// cheap blocking wait on an arbitrary process handle that Linux does
// not.
type windowsProbe struct{}

func newPlatformProbe() probe { return windowsProbe{} }

func (windowsProbe) isRunning(ctx context.Context, name string) (bool, error) {
	procs, err := psutil.ProcessesWithContext(ctx)
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

func (w windowsProbe) waitForExit(ctx context.Context, name string, _ time.Duration) error {
	pid, err := w.findPID(ctx, name)
	if err != nil {
		return err
	}
	if pid == 0 {
		return nil
	}

	handle, err := windows.OpenProcess(windows.SYNCHRONIZE, false, uint32(pid))
	if err != nil {
		return err
	}
	defer windows.CloseHandle(handle)

	done := make(chan error, 1)
	go func() {
		_, err := windows.WaitForSingleObject(handle, windows.INFINITE)
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func (windowsProbe) findPID(ctx context.Context, name string) (int32, error) {
	procs, err := psutil.ProcessesWithContext(ctx)
	if err != nil {
		return 0, err
	}
	for _, p := range procs {
		exe, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if strings.EqualFold(exe, name) {
			return p.Pid, nil
		}
	}
	return 0, nil
}
