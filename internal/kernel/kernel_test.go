package kernel_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oblivioncth/clifp/internal/director"
	"github.com/oblivioncth/clifp/internal/install"
	"github.com/oblivioncth/clifp/internal/kernel"
	"github.com/oblivioncth/clifp/internal/kernelerr"
	"github.com/oblivioncth/clifp/internal/task"
)

func testDirectorate(name string) director.Directorate {
	return director.NewDirectorate(nil, name)
}

func TestErrorStatus_FirstWriteWins(t *testing.T) {
	s := &kernel.ErrorStatus{}
	assert.False(t, s.HasCritical())
	assert.Equal(t, 0, s.ExitCode())

	s.Set(kernelerr.New(1250, kernelerr.Warning, "first"))
	s.Set(kernelerr.New(1260, kernelerr.Critical, "second"))

	assert.Equal(t, uint32(1250), s.Get().Code)
	assert.False(t, s.HasCritical())
}

func TestErrorStatus_CriticalSticks(t *testing.T) {
	s := &kernel.ErrorStatus{}
	s.Set(kernelerr.New(1299, kernelerr.Critical, "boom"))
	assert.True(t, s.HasCritical())
	assert.Equal(t, 1299, s.ExitCode())
}

func TestCore_EnqueueAndDequeue(t *testing.T) {
	core := kernel.New(testDirectorate("core"), nil, kernel.Standalone, nil, &kernel.ErrorStatus{})
	assert.Equal(t, 0, core.Pending())

	core.Enqueue(task.NewTSleep(testDirectorate("t"), time.Millisecond))
	assert.Equal(t, 1, core.Pending())

	got, ok := core.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "TSleep", got.Name())
	assert.Equal(t, 0, core.Pending())

	_, ok = core.Dequeue()
	assert.False(t, ok)
}

func TestCore_DataPackDownloadURL(t *testing.T) {
	core := kernel.New(testDirectorate("core"), nil, kernel.Standalone, nil, &kernel.ErrorStatus{})

	core.DataPacksBaseURL = ""
	assert.Equal(t, "", core.DataPackDownloadURL(install.GameData{Path: "107/game.zip"}))

	core.DataPacksBaseURL = "https://infinity.unstable.life"
	assert.Equal(t, "https://infinity.unstable.life/107/game.zip", core.DataPackDownloadURL(install.GameData{Path: "107/game.zip"}))
}

func TestDriver_DrainsQueueInFIFOOrder(t *testing.T) {
	status := &kernel.ErrorStatus{}
	core := kernel.New(testDirectorate("core"), nil, kernel.Standalone, nil, status)

	var order []string
	for _, label := range []string{"a", "b", "c"} {
		l := label
		core.Enqueue(task.NewTGeneric(testDirectorate("t"), task.StagePrimary, l, func(ctx context.Context) error {
			order = append(order, l)
			return nil
		}))
	}

	drv := kernel.NewDriver(testDirectorate("driver"), core, status)

	ctx, cancel := context.WithCancel(context.Background())
	go drv.Run(ctx)

	select {
	case code := <-drv.Finished():
		t.Fatalf("driver finished early with code %d before queue drained and quit requested", code)
	case <-time.After(20 * time.Millisecond):
	}

	drv.QuitNow()
	cancel()

	select {
	case code := <-drv.Finished():
		assert.Equal(t, 0, code)
	case <-time.After(time.Second):
		t.Fatal("driver did not finish")
	}

	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestDriver_SkipsNonShutdownTasksAfterCritical(t *testing.T) {
	status := &kernel.ErrorStatus{}
	core := kernel.New(testDirectorate("core"), nil, kernel.Standalone, nil, status)

	ran := make(map[string]bool)
	record := func(label string) func(context.Context) error {
		return func(ctx context.Context) error {
			ran[label] = true
			if label == "critical" {
				return assertCriticalSentinel
			}
			return nil
		}
	}

	core.Enqueue(failingTask{task.NewTGeneric(testDirectorate("t"), task.StagePrimary, "critical", record("critical"))})
	core.Enqueue(task.NewTGeneric(testDirectorate("t"), task.StagePrimary, "skipped", record("skipped")))
	core.Enqueue(task.NewTGeneric(testDirectorate("t"), task.StageShutdown, "cleanup", record("cleanup")))

	drv := kernel.NewDriver(testDirectorate("driver"), core, status)

	ctx, cancel := context.WithCancel(context.Background())
	go drv.Run(ctx)

	time.Sleep(20 * time.Millisecond)
	drv.QuitNow()
	cancel()

	select {
	case <-drv.Finished():
	case <-time.After(time.Second):
		t.Fatal("driver did not finish")
	}

	assert.True(t, ran["critical"])
	assert.False(t, ran["skipped"])
	assert.True(t, ran["cleanup"])
	assert.True(t, status.HasCritical())
}

// failingTask wraps a TGeneric-like task to force a Critical kernelerr
// result, since TGeneric's own error path only ever produces Error
// severity.
type failingTask struct {
	*task.TGeneric
}

func (f failingTask) Perform(ctx context.Context) kernelerr.Error {
	err := f.TGeneric.Perform(ctx)
	if err.Ok() {
		return err
	}
	return kernelerr.New(err.Code, kernelerr.Critical, err.Primary).WithSpecific(err.Specific)
}

var assertCriticalSentinel = errSentinel{}

type errSentinel struct{}

func (errSentinel) Error() string { return "forced critical failure" }
