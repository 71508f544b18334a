package process_test

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oblivioncth/clifp/internal/director"
	"github.com/oblivioncth/clifp/internal/process"
)

func TestBlockingProcessManager_RunSuccess(t *testing.T) {
	d := director.NewDirectorate(nil, "test")
	cmd := exec.Command("sh", "-c", "echo hello; echo world 1>&2")
	mgr := process.NewBlockingProcessManager(d, cmd)

	code, err := mgr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, code)
}

func TestBlockingProcessManager_NonZeroExit(t *testing.T) {
	d := director.NewDirectorate(nil, "test")
	cmd := exec.Command("sh", "-c", "exit 7")
	mgr := process.NewBlockingProcessManager(d, cmd)

	code, err := mgr.Run(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 7, code)
}

func TestBlockingProcessManager_ContextCancel(t *testing.T) {
	d := director.NewDirectorate(nil, "test")
	cmd := exec.Command("sleep", "5")
	mgr := process.NewBlockingProcessManager(d, cmd)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := mgr.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDeferredProcessManager_SpawnAndClose(t *testing.T) {
	d := director.NewDirectorate(nil, "test")
	mgr := process.NewDeferredProcessManager(d)

	cmd := exec.Command("sleep", "30")
	require.NoError(t, mgr.Spawn("helper", cmd))
	assert.Equal(t, process.DeferredUp, mgr.Status("helper"))

	mgr.CloseAll(2 * time.Second)
	assert.Equal(t, process.DeferredDown, mgr.Status("helper"))
}

func TestBiderState_String(t *testing.T) {
	assert.Equal(t, "Idle", process.BiderIdle.String())
	assert.Equal(t, "Grace", process.BiderGrace.String())
	assert.Equal(t, "Waiting", process.BiderWaiting.String())
	assert.Equal(t, "Ran", process.BiderRan.String())
	assert.Equal(t, "NeverRan", process.BiderNeverRan.String())
	assert.Equal(t, "Fail", process.BiderFail.String())
}

func TestProcessBider_NeverRan(t *testing.T) {
	d := director.NewDirectorate(nil, "test")
	bider := process.NewProcessBider(d, "definitely-not-a-real-process-name.bin", 50*time.Millisecond, 10*time.Millisecond)

	err := bider.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, process.BiderNeverRan, bider.State())
}
