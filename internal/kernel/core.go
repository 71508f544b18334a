package kernel

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/docker/docker/client"
	"github.com/google/uuid"

	"github.com/oblivioncth/clifp/internal/archive"
	"github.com/oblivioncth/clifp/internal/director"
	"github.com/oblivioncth/clifp/internal/dockerwait"
	"github.com/oblivioncth/clifp/internal/install"
	"github.com/oblivioncth/clifp/internal/mount"
	"github.com/oblivioncth/clifp/internal/process"
	"github.com/oblivioncth/clifp/internal/task"
)

// ServicesMode selects whether Core owns the Flashpoint companion
// services' lifecycle itself (Standalone) or assumes another already-
// running launcher owns them (Companion), per spec.md §3.
type ServicesMode int

const (
	Standalone ServicesMode = iota
	Companion
)

// Timing bundles the config-driven durations Core threads through the
// tasks and managers it constructs, replacing hardcoded constants with
// the values resolved from internal/config.Config.
type Timing struct {
	BiderGrace   time.Duration
	BiderPoll   time.Duration
	DockerTimeout time.Duration
	HTTPIdleTimout time.Duration
	QMPTimeout   time.Duration
}

// Core is the per-run context every Command operates against: the
// opened install handle, the services mode, the FIFO task queue, the
// child-title process environment template, the data-pack fingerprint
// cache, and the launcher-watch bider used in Companion mode. Grounded
// on the internal/ingest.ingestService (one struct holding a
// mutex-guarded queue plus its collaborators), generalized from
// "ingest items" to "tasks".
type Core struct {
	director.Directorate

	Install   *install.Install
	ServicesMode ServicesMode
	Docker    *client.Client
	Archive   *archive.Cache
	Timing    Timing
	Services   *dockerwait.ServiceManager

	// DataPacksBaseURL and MountPolicy parameterize
	// EnqueuePlayableDataPackTasks/EnqueuePreloadDataPackTasks, set once
	// by main from config/install rather than threaded through every
	// Command individually.
	DataPacksBaseURL string
	MountPolicy   *mount.Policy

	queue []task.Task

	launcherBider *process.ProcessBider
	errorStatus  *ErrorStatus
}

// New constructs a Core bound to an opened install and Director.
func New(d director.Directorate, inst *install.Install, mode ServicesMode, dockerCli *client.Client, errStatus *ErrorStatus) *Core {
	return &Core{
		Directorate: d,
		Install:   inst,
		ServicesMode: mode,
		Docker:    dockerCli,
		Archive:   archive.NewCache(),
		Services:   dockerwait.NewServiceManager(d, dockerCli),
		errorStatus: errStatus,
	}
}

// EnqueueStartupTasks enqueues one Startup-stage task per docker-backed
// companion service spec, spawning it through Services; the matching
// Shutdown-stage teardown is enqueued separately by
// EnqueueShutdownTasks. A no-op in
// Companion mode, where the standard launcher already owns these
// services - restored from original_source's Standalone startup
// sequence (see DESIGN.md's internal/dockerwait entry); spec.md's
// distillation only covers TAwaitDocker's read-only wait on a
// pre-existing container.
func (c *Core) EnqueueStartupTasks(specs []dockerwait.ServiceSpec, startTimeout time.Duration) {
	if c.ServicesMode != Standalone || len(specs) == 0 {
		return
	}

	for _, spec := range specs {
		spec := spec
		c.Enqueue(task.NewTGeneric(c.Directorate, task.StageStartup, "start-"+spec.Label, func(ctx context.Context) error {
			return c.Services.Spawn(ctx, spec, startTimeout)
		}))
	}
}

// EnqueueShutdownTasks enqueues a single best-effort Shutdown-stage
// task that tears down every companion service EnqueueStartupTasks
// spawned. A no-op in Companion mode.
func (c *Core) EnqueueShutdownTasks(stopTimeout time.Duration) {
	if c.ServicesMode != Standalone {
		return
	}

	c.Enqueue(task.NewTGeneric(c.Directorate, task.StageShutdown, "stop-companion-services", func(ctx context.Context) error {
		c.Services.Shutdown(ctx, stopTimeout)
		return nil
	}))
}

// Enqueue appends t to the FIFO task queue. Invariant (spec.md §3):
// tasks are immutable after enqueue except for their own internal
// bookkeeping during Perform.
func (c *Core) Enqueue(t task.Task) {
	c.queue = append(c.queue, t)
}

// Dequeue pops and returns the next task, or (nil, false) if the queue
// is empty.
func (c *Core) Dequeue() (task.Task, bool) {
	if len(c.queue) == 0 {
		return nil, false
	}
	t := c.queue[0]
	c.queue = c.queue[1:]
	return t, true
}

// Pending reports how many tasks remain queued.
func (c *Core) Pending() int { return len(c.queue) }

// ResolveFullAppPath applies the install's per-platform app-path
// remapping table, per spec.md §4.3.
func (c *Core) ResolveFullAppPath(appPath string) string {
	return c.Install.ResolveFullAppPath(appPath)
}

// EnqueueDataPackTasks decides the minimal set among
// {download, extract, mount, no-op} for a game-data record based on
// its fingerprint, per spec.md §4.3's enqueueDataPackTasks.
func (c *Core) EnqueueDataPackTasks(gd install.GameData, downloadURL, extractArchivePath, destDir, subdir string, mountPolicy *mount.Policy) {
	fp, tracked := c.Archive.Get(gd.ID)
	if !tracked {
		fp = archive.Fingerprint{GameDataID: gd.ID, SHA256: gd.SHA256, PathOnDisk: extractArchivePath}
		c.Archive.Put(fp)
	}

	matches, err := archive.Verify(fp)
	if err != nil || !matches {
		c.Enqueue(task.NewTDownload(c.Directorate, downloadURL, fp.PathOnDisk, gd.SHA256, nil))
	}

	switch c.Install.Edition() {
	case install.EditionStandard, install.EditionInfinity:
		if !extractedAlready(destDir) {
			c.Enqueue(task.NewTExtract(c.Directorate, extractArchivePath, subdir, destDir))
		}
	}

	if c.Install.RecognizedDaemon() != install.DaemonNone && mountPolicy != nil {
		c.Enqueue(task.NewTMount(c.Directorate, mountPolicy, gd.ID.String(), fp.PathOnDisk))
	}
}

// DataPackDownloadURL builds the URL TDownload should fetch gd's
// archive from, joining the configured data-packs base URL with the
// path recorded on gd's row. Returns "" if no base URL is configured,
// leaving TDownload to fail with its own "no source" error.
func (c *Core) DataPackDownloadURL(gd install.GameData) string {
	if c.DataPacksBaseURL == "" {
		return ""
	}
	u, err := url.JoinPath(c.DataPacksBaseURL, gd.Path)
	if err != nil {
		return ""
	}
	return u
}

// EnqueuePlayableDataPackTasks is EnqueueDataPackTasks with every
// path/URL argument derived from gd and install, and Core's resolved
// mount Policy wired in - the data-pack wiring play and prepare share,
// since both may need the pack mounted for a title to run.
func (c *Core) EnqueuePlayableDataPackTasks(gd install.GameData) {
	c.EnqueueDataPackTasks(gd, c.DataPackDownloadURL(gd), c.Install.DataPackArchivePath(gd), c.Install.DataPackExtractDir(gd), install.DataPackExtractSubdir, c.MountPolicy)
}

// EnqueuePreloadDataPackTasks is EnqueuePlayableDataPackTasks without a
// mount Policy, matching download's preload-only semantics: a pack may
// be fetched and extracted ahead of time, but never mounted.
func (c *Core) EnqueuePreloadDataPackTasks(gd install.GameData) {
	c.EnqueueDataPackTasks(gd, c.DataPackDownloadURL(gd), c.Install.DataPackArchivePath(gd), c.Install.DataPackExtractDir(gd), install.DataPackExtractSubdir, nil)
}

// extractedAlready reports whether destDir already holds extracted
// content, used to skip a redundant TExtract enqueue.
func extractedAlready(destDir string) bool {
	entries, err := filepath.Glob(filepath.Join(destDir, "*"))
	return err == nil && len(entries) > 0
}

// WatchLauncher starts a ProcessBider on the standard Flashpoint
// launcher process in Companion mode; if it terminates, the supplied
// onAbort callback fires, per spec.md §4.3's watchLauncher.
func (c *Core) WatchLauncher(ctx context.Context, launcherProcessName string, grace, poll time.Duration, onAbort func()) {
	if c.ServicesMode != Companion {
		return
	}

	c.launcherBider = process.NewProcessBider(c.Directorate, launcherProcessName, grace, poll)
	go func() {
		_ = c.launcherBider.Run(ctx)
		if c.launcherBider.State() != process.BiderRan {
			return
		}
		onAbort()
	}()
}

// FindGameIDFromTitle resolves a title to a game ID, prompting the
// frontend to disambiguate via ItemSelection when more than one
// ranked candidate matches, per spec.md §4.3.
func (c *Core) FindGameIDFromTitle(ctx context.Context, title, library string) (uuid.UUID, error) {
	games, err := c.Install.FindGame(ctx, title, library)
	if err != nil {
		return uuid.Nil, fmt.Errorf("search for title %q: %w", title, err)
	}
	if len(games) == 0 {
		return uuid.Nil, fmt.Errorf("no game matched title %q", title)
	}
	if len(games) == 1 {
		return games[0].ID, nil
	}

	labels := make([]string, len(games))
	for i, g := range games {
		labels[i] = g.Title
	}
	chosen := c.Director().RequestItemSelection(ctx, c.Name(), "Multiple titles matched, please pick one", "Title", labels)
	for i, label := range labels {
		if label == chosen {
			return games[i].ID, nil
		}
	}
	return uuid.Nil, fmt.Errorf("selection cancelled for title %q", title)
}

// FindAddAppIDFromName resolves an add-app name under parent to an ID,
// with the same ItemSelection disambiguation as FindGameIDFromTitle.
func (c *Core) FindAddAppIDFromName(ctx context.Context, parent uuid.UUID, name string) (uuid.UUID, error) {
	apps, err := c.Install.FindAddAppByName(ctx, parent, name)
	if err != nil {
		return uuid.Nil, fmt.Errorf("search for add-app %q: %w", name, err)
	}
	if len(apps) == 0 {
		return uuid.Nil, fmt.Errorf("no add-app matched name %q", name)
	}
	if len(apps) == 1 {
		return apps[0].ID, nil
	}

	labels := make([]string, len(apps))
	for i, a := range apps {
		labels[i] = a.Name
	}
	chosen := c.Director().RequestItemSelection(ctx, c.Name(), "Multiple add-apps matched, please pick one", "Name", labels)
	for i, label := range labels {
		if label == chosen {
			return apps[i].ID, nil
		}
	}
	return uuid.Nil, fmt.Errorf("selection cancelled for add-app %q", name)
}
