// Package install is the Kernel's handle onto a Flashpoint archive
// installation: the on-disk layout discovery, the narrow read-only
// SQLite query surface Core needs (spec.md §4.3), and the per-platform
// app-path remapping table. The install's own database schema and
// config files are external collaborators (spec.md §1 Non-goals); this
// package only reads what Core's operations require, grounded on internal/database package (sqlx-wrapped driver handle,
// opened once, released in Close).
package install

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"

	_ "github.com/mattn/go-sqlite3"
)

// Edition distinguishes the Flashpoint distribution flavor, which
// affects whether a data pack needs local extraction (spec.md §4.3
// enqueueDataPackTasks step 3).
type Edition int

const (
	EditionStandard Edition = iota
	EditionInfinity
	EditionUltimate
)

// Daemon identifies which background mounting transport this install
// ships, driving TMount's variant-selection policy (spec.md §4.2).
type Daemon int

const (
	DaemonNone Daemon = iota
	DaemonQEMU    // QMP-driven disk attach
	DaemonRouter   // launcher-embedded HTTP router
	DaemonProxy    // local HTTP proxy
)

func (d Daemon) String() string {
	switch d {
	case DaemonQEMU:
		return "qemu"
	case DaemonRouter:
		return "router"
	case DaemonProxy:
		return "proxy"
	default:
		return "none"
	}
}

const databaseFilename = "Data/flashpoint.sqlite"

// dataPacksDir is the install-relative directory Flashpoint stores data
// pack archives and their extracted content under.
const dataPacksDir = "Data/Games"

// DataPackExtractSubdir is the archive-internal directory TExtract
// copies out of a data pack, per spec.md §4.2's "narrow subdirectory
// extraction" - every Flashpoint data pack nests its content here.
const DataPackExtractSubdir = "content"

// Install is the opened handle onto a single Flashpoint install,
// created once per run and released in Close. spec.md §3's invariant
// ("install handle lifetime >= all tasks that reference it") is upheld
// by Core/Driver closing it only after Shutdown-stage tasks complete.
type Install struct {
	Root  string
	db   *sqlx.DB
	edition Edition
	daemon Daemon
	overrides map[string]map[string]string // platform -> appPath -> resolved
}

// Find walks up from startDir looking for a recognized Flashpoint
// layout (a Data/flashpoint.sqlite file), matching
// findFlashpointInstall / spec.md §4.5 step 2. It stops at the
// filesystem root.
func Find(startDir string) (string, error) {
	dir := startDir
	for {
		candidate := filepath.Join(dir, databaseFilename)
		if _, err := os.Stat(candidate); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("no recognized Flashpoint install layout found above " + startDir)
		}
		dir = parent
	}
}

// Open opens the install rooted at root, including its SQLite database
// in read-only mode (this module never writes to the archive's
// database, per spec.md §1 Non-goals) and probes the edition/daemon.
func Open(root string) (*Install, error) {
	dbPath := filepath.Join(root, databaseFilename)
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", dbPath)

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open flashpoint database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping flashpoint database: %w", err)
	}

	inst := &Install{Root: root, db: db, overrides: map[string]map[string]string{}}
	inst.edition = detectEdition(root)
	inst.daemon = detectDaemon(root)
	if err := inst.loadAppPathOverrides(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return inst, nil
}

// Close releases the database handle.
func (i *Install) Close() error {
	if i.db == nil {
		return nil
	}
	return i.db.Close()
}

// Edition reports the distribution flavor detected at Open time.
func (i *Install) Edition() Edition { return i.edition }

// RecognizedDaemon reports the mounting transport detected at Open
// time, driving TMount variant selection.
func (i *Install) RecognizedDaemon() Daemon { return i.daemon }

// DataPackArchivePath returns gd's archive location on disk, joining
// the install's data-packs directory with the path recorded against its
// game_data row.
func (i *Install) DataPackArchivePath(gd GameData) string {
	return filepath.Join(i.Root, dataPacksDir, gd.Path)
}

// DataPackExtractDir returns the directory gd's archive should be (or
// already is) extracted into: a per-data-pack cache location alongside
// the archive itself, keyed by the data-pack's own ID so re-downloads
// under a changed SHA256 don't collide with stale extracted content.
func (i *Install) DataPackExtractDir(gd GameData) string {
	return filepath.Join(i.Root, dataPacksDir, "Extracted", gd.ID.String())
}

func detectEdition(root string) Edition {
	if _, err := os.Stat(filepath.Join(root, "Data", "Ultimate.dat")); err == nil {
		return EditionUltimate
	}
	if _, err := os.Stat(filepath.Join(root, "Data", "Infinity.dat")); err == nil {
		return EditionInfinity
	}
	return EditionStandard
}

func detectDaemon(root string) Daemon {
	switch {
	case fileExists(filepath.Join(root, "Data", "qemu.json")):
		return DaemonQEMU
	case fileExists(filepath.Join(root, "Data", "router.json")):
		return DaemonRouter
	case fileExists(filepath.Join(root, "Data", "proxy.json")):
		return DaemonProxy
	default:
		return DaemonNone
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
