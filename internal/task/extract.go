package task

import (
	"context"
	"fmt"

	"github.com/oblivioncth/clifp/internal/archive"
	"github.com/oblivioncth/clifp/internal/director"
	"github.com/oblivioncth/clifp/internal/kernelerr"
)

const errExtractFailed uint32 = kernelerr.TaskBlock + 3

// TExtract extracts a subdirectory of a ZIP archive into a destination
// directory, creating paths as needed, per spec.md §4.2.
type TExtract struct {
	director.Directorate

	ArchivePath string
	Subdir   string
	DestDir   string
}

func NewTExtract(d director.Directorate, archivePath, subdir, destDir string) *TExtract {
	return &TExtract{Directorate: d, ArchivePath: archivePath, Subdir: subdir, DestDir: destDir}
}

func (t *TExtract) Stage() Stage { return StagePrimary }
func (t *TExtract) Name() string { return "TExtract" }
func (t *TExtract) Stop()    {}

func (t *TExtract) Perform(_ context.Context) kernelerr.Error {
	t.PostProcedureStart(fmt.Sprintf("Extracting %s", t.ArchivePath))
	defer t.PostProcedureStop()

	err := archive.ExtractSubdir(t.ArchivePath, t.Subdir, t.DestDir, func(done, total int64) {
		t.PostProcedureScale(total)
		t.PostProcedureProgress(done)
	})
	if err != nil {
		return kernelerr.New(errExtractFailed, kernelerr.Error, "Failed to extract data pack").WithSpecific(err.Error())
	}
	return kernelerr.Nil
}
