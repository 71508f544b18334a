package install

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// appPathOverridesFilename is the install-side remapping table CLIFp
// consults before launching an app path, letting an install redirect
// a Windows-authored app path (e.g. "FPSoftware/Flash/flashplayer.exe")
// to a platform-appropriate local equivalent, per spec.md §4.3's
// resolveFullAppPath.
const appPathOverridesFilename = "Data/appPathOverrides.json"

// loadAppPathOverrides reads the install's per-platform app-path
// remapping table, grounded on original_source's resolveTrueAppPath
// and its on-disk "appPathOverrides" table. Absence of the file is not
// an error - installs without overrides simply resolve app paths
// verbatim.
func (i *Install) loadAppPathOverrides(_ context.Context) error {
	path := filepath.Join(i.Root, appPathOverridesFilename)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var raw map[string]map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	for platform, table := range raw {
		norm := make(map[string]string, len(table))
		for from, to := range table {
			norm[normalizeAppPath(from)] = to
		}
		i.overrides[strings.ToLower(platform)] = norm
	}
	return nil
}

// ResolveFullAppPath applies the install's per-platform app-path
// remapping table to appPath, falling back to joining it against the
// install root verbatim when no override exists for the running OS -
// the Go-native stand-in for original_source's resolveTrueAppPath,
// which additionally special-cased the bundled basilisk/fpnavigator
// binaries by runtime.GOOS.
func (i *Install) ResolveFullAppPath(appPath string) string {
	platform := runtime.GOOS
	if table, ok := i.overrides[platform]; ok {
		if resolved, ok := table[normalizeAppPath(appPath)]; ok {
			return filepath.Join(i.Root, filepath.FromSlash(resolved))
		}
	}
	return filepath.Join(i.Root, filepath.FromSlash(appPath))
}

// ChildTitleEnvironment returns the extra environment variables a
// title's child process should inherit beyond the Core-wide process
// environment template, per spec.md §6: on Linux, GTK_USE_PORTAL=1 is
// forced so GTK file dialogs in wine-hosted titles route through the
// portal rather than a stale in-process chooser.
func ChildTitleEnvironment() []string {
	if runtime.GOOS == "linux" {
		return []string{"GTK_USE_PORTAL=1"}
	}
	return nil
}

// normalizeAppPath canonicalizes an app path for override-table
// lookups: backslashes to forward slashes, trimmed, lowercased. The
// archive's database stores Windows-style paths regardless of the
// platform CLIFp runs on.
func normalizeAppPath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	return strings.ToLower(strings.TrimSpace(p))
}
