package task

import (
	"context"
	"fmt"

	"github.com/oblivioncth/clifp/internal/director"
	"github.com/oblivioncth/clifp/internal/kernelerr"
	"github.com/oblivioncth/clifp/internal/mount"
)

// TMount mounts a data pack for the title, using the variant policy
// selected by Core for the install's recognized daemon, per spec.md
// §4.2.
type TMount struct {
	director.Directorate

	Policy     *mount.Policy
	GameDataID string
	PathOnDisk string
}

func NewTMount(d director.Directorate, policy *mount.Policy, gameDataID, pathOnDisk string) *TMount {
	return &TMount{Directorate: d, Policy: policy, GameDataID: gameDataID, PathOnDisk: pathOnDisk}
}

func (t *TMount) Stage() Stage { return StagePrimary }
func (t *TMount) Name() string { return "TMount" }
func (t *TMount) Stop()        { t.Policy.Abort() }

func (t *TMount) Perform(ctx context.Context) kernelerr.Error {
	t.PostStatusUpdate("Mounting", fmt.Sprintf("Mounting data pack %s", t.GameDataID))
	return t.Policy.Mount(ctx, t.GameDataID, t.PathOnDisk)
}
