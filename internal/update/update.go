// Package update implements the update subcommand's out-of-band
// self-update flow: query the release server, compare versions,
// download and stage a new binary, and complete the swap on
// re-invocation with --install, per spec.md §4.4 and
// original_source's app/src/command/c-update.h. Grounded on internal/ingest download-and-extract idiom, reusing
// internal/archive for the staged release's extraction.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/mod/semver"

	"github.com/oblivioncth/clifp/internal/archive"
)

// Release is the narrow projection of a release-server response this
// module needs: a semver tag and an asset download URL.
type Release struct {
	Tag    string `json:"tag_name"`
	AssetURL string `json:"asset_url"`
	AssetName string `json:"asset_name"`
}

// QueryLatest fetches the latest release descriptor from endpoint.
func QueryLatest(ctx context.Context, client *http.Client, endpoint string) (*Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build release query: %w", err)
	}

	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query release server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("release server returned status %d", resp.StatusCode)
	}

	var rel Release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, fmt.Errorf("decode release response: %w", err)
	}
	return &rel, nil
}

// IsNewer reports whether candidate is a strictly newer semver tag
// than current, per golang.org/x/mod/semver's comparison rules. Tags
// missing a leading "v" are normalized first, matching release-server
// tagging conventions that omit it.
func IsNewer(current, candidate string) bool {
	return semver.Compare(normalizeTag(candidate), normalizeTag(current)) > 0
}

func normalizeTag(tag string) string {
	if tag == "" {
		return "v0.0.0"
	}
	if tag[0] != 'v' {
		return "v" + tag
	}
	return tag
}

// CacheDir returns the update cache directory beside the running
// binary, inside binaryDir, per spec.md §6's "Persisted state".
func CacheDir(binaryDir string) string {
	return filepath.Join(binaryDir, "clifp-update-cache")
}

// DownloadRelease streams rel's asset into cacheDir, returning the
// downloaded archive's path.
func DownloadRelease(ctx context.Context, client *http.Client, rel *Release, cacheDir string) (string, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create update cache dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rel.AssetURL, nil)
	if err != nil {
		return "", fmt.Errorf("build asset request: %w", err)
	}

	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download release asset: %w", err)
	}
	defer resp.Body.Close()

	destPath := filepath.Join(cacheDir, rel.AssetName)
	out, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("create downloaded asset file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("write downloaded asset: %w", err)
	}
	return destPath, nil
}

// StageSwap extracts the downloaded archive's binary subdirectory into
// a staging directory beside the current binary, backing up the
// current binary first so a failed swap can be rolled back.
func StageSwap(archivePath, subdir, binaryDir string) (stagedBinary string, err error) {
	cacheDir := CacheDir(binaryDir)
	stageDir := filepath.Join(cacheDir, "staged")

	if err := archive.ExtractSubdir(archivePath, subdir, stageDir, nil); err != nil {
		return "", fmt.Errorf("extract staged release: %w", err)
	}

	currentBinary, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("determine current binary path: %w", err)
	}

	backupPath := filepath.Join(cacheDir, "backup"+filepath.Ext(currentBinary))
	if err := copyFile(currentBinary, backupPath); err != nil {
		return "", fmt.Errorf("back up current binary: %w", err)
	}

	stagedBinary = filepath.Join(stageDir, filepath.Base(currentBinary))
	return stagedBinary, nil
}

// CompleteSwap replaces the running binary's on-disk file with
// stagedBinary, clearing the update cache afterward unless
// keepDiagnostics is set - the re-invocation with --install this
// function implements.
func CompleteSwap(stagedBinary, binaryDir string, keepDiagnostics bool) error {
	currentBinary, err := os.Executable()
	if err != nil {
		return fmt.Errorf("determine current binary path: %w", err)
	}

	if err := copyFile(stagedBinary, currentBinary); err != nil {
		return fmt.Errorf("swap in staged binary: %w", err)
	}

	if !keepDiagnostics {
		_ = os.RemoveAll(CacheDir(binaryDir))
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
