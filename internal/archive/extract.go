package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ExtractProgressFunc is invoked after each file is extracted, with
// the number of files completed so far and the archive's total file
// count, wiring TExtract's PostProcedureProgress/PostProcedureScale
// calls without coupling this package to the director package.
type ExtractProgressFunc func(done, total int64)

// ExtractSubdir extracts only the entries under subdir (archive-internal,
// forward-slash-separated, e.g. "content/") from the zip at archivePath
// into destDir, preserving their relative layout under subdir. This is
// CLIFp's data-pack shape: a single zip whose "content/" tree mirrors
// the install's own layout, so only that subtree needs to land on disk.
//
// No corpus example repo imports a third-party zip library, so this
// stays on the standard library's archive/zip (see DESIGN.md).
func ExtractSubdir(archivePath, subdir, destDir string, progress ExtractProgressFunc) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", archivePath, err)
	}
	defer r.Close()

	prefix := strings.TrimSuffix(subdir, "/") + "/"

	var matches []*zip.File
	for _, f := range r.File {
		if strings.HasPrefix(f.Name, prefix) && !f.FileInfo().IsDir() {
			matches = append(matches, f)
		}
	}

	total := int64(len(matches))
	for idx, f := range matches {
		rel := strings.TrimPrefix(f.Name, prefix)
		target := filepath.Join(destDir, filepath.FromSlash(rel))

		if err := extractEntry(f, target); err != nil {
			return fmt.Errorf("extract %s: %w", f.Name, err)
		}
		if progress != nil {
			progress(int64(idx+1), total)
		}
	}

	return nil
}

func extractEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return nil
}
