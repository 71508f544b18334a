// Command clifp is the Kernel's entrypoint: it parses the
// `clifp [global-opts] <command> [command-opts]` invocation (spec.md
// §6), wires up the Director, Core, and Driver, and drives a single
// subcommand's enqueued task queue to completion before exiting with
// its domain-coded exit status. Grounded on a conventional Go service
// main.go shape (flag parsing, a signal-driven context cancel, a
// startXxx(config) entrypoint), generalized from "start one
// long-running service" to "run exactly one subcommand to completion".
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/jessevdk/go-flags"

	"github.com/oblivioncth/clifp/internal/command"
	"github.com/oblivioncth/clifp/internal/config"
	"github.com/oblivioncth/clifp/internal/director"
	"github.com/oblivioncth/clifp/internal/dockerwait"
	"github.com/oblivioncth/clifp/internal/frontend"
	"github.com/oblivioncth/clifp/internal/frontend/wsbridge"
	"github.com/oblivioncth/clifp/internal/install"
	"github.com/oblivioncth/clifp/internal/kernel"
	"github.com/oblivioncth/clifp/internal/kernelerr"
	"github.com/oblivioncth/clifp/internal/mount"
	"github.com/oblivioncth/clifp/internal/process"
	"github.com/oblivioncth/clifp/internal/singleinstance"
)

// version is CLIFp's own release line, printed by -v/--version. The
// update command does not read it; it compares the server's latest tag
// against internal/command's own buildVersion.
const version = "0.1.0"

// launcherProcessName is the standard launcher's executable name, used
// to detect whether CLIFp is running alongside it (Companion mode) or
// on its own (Standalone mode). Taken verbatim from original_source's
// fp-install.h LAUNCHER_PATH ("Launcher/Flashpoint.exe").
const launcherProcessName = "Flashpoint.exe"

const wsBridgeAddr = "127.0.0.1:12650"

// globalOptions is the leading half of spec.md §6's CLI grammar.
// Parsing stops at the first positional argument (the subcommand
// name); everything from there on is handed untouched to
// command.Registry.Dispatch, which parses it against the chosen
// command's own option struct.
type globalOptions struct {
	Help  bool  `short:"h" long:"help" description:"Print combined global + command list"`
	HelpAlt bool  `short:"?" description:"Alias for --help"`
	Version bool  `short:"v" long:"version" description:"Print version line"`
	Quiet  bool  `short:"q" long:"quiet" description:"Suppress non-critical directives"`
	Silent bool  `short:"s" long:"silent" description:"Suppress all directives"`
	Config string `long:"config" description:"Path to CLIFp's own configuration file"`
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run implements Driver's per-run sequence from spec.md §4.5, steps
// 1-3 happening here and step 4 onward delegated to kernel.Driver.Run.
func run(argv []string) int {
	opts, rest, err := parseGlobalOptions(argv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return int(kernelerr.CoreBlock)
	}
	if opts.Help || opts.HelpAlt {
		printHelp()
		return 0
	}
	if opts.Version {
		fmt.Printf("clifp version %s\n", version)
		return 0
	}
	if len(rest) == 0 {
		fmt.Fprintln(os.Stderr, "no command given")
		printHelp()
		return int(kernelerr.CoreBlock)
	}
	cmdName, cmdArgs := rest[0], rest[1:]

	cfg, err := loadConfig(opts.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return int(kernelerr.CoreBlock)
	}

	d := director.New(os.Stderr)
	dt := director.NewDirectorate(d, "Kernel")
	configureVerbosity(d, opts)

	if err := d.SetMinLogLevel(cfg.LogLevel); err != nil {
		dt.Log(director.Warn, "Invalid log level %q, keeping default: %v", cfg.LogLevel, err)
	}
	if logDir, err := cfg.LogDir(); err != nil {
		dt.Log(director.Warn, "Could not resolve log directory: %v", err)
	} else if err := d.OpenLogFile(logDir); err != nil {
		dt.Log(director.Warn, "Failed to open log file: %v", err)
	}
	defer d.Close()

	registry := command.NewRegistry()
	command.RegisterAll(registry)

	// Step 1: single-instance lock, unless this command auto-yields
	// (update, mid-swap re-invocation).
	if registry.AutoBlockNewInstances(dt, cmdName) {
		release, lockErr := acquireSingleInstanceLock()
		if lockErr != nil {
			dt.PostError(kernelerr.CoreBlock, "Critical", "CLIFp is already running", lockErr.Error())
			return int(kernelerr.CoreBlock)
		}
		defer release()
	}

	// Step 2: find and open the install by walking up from the
	// executable's directory.
	inst, err := openInstall()
	if err != nil {
		dt.PostError(kernelerr.CoreBlock+1, "Critical", "Failed to locate Flashpoint install", err.Error())
		return int(kernelerr.CoreBlock + 1)
	}
	defer inst.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go listenForInterrupt(cancel)

	mode := servicesMode(ctx)

	dockerCli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		dt.Log(director.Warn, "Docker client unavailable, companion-service and docker-wait tasks will fail: %v", err)
	}

	errStatus := &kernel.ErrorStatus{}
	core := kernel.New(dt, inst, mode, dockerCli, errStatus)
	core.Timing = timingFromConfig(cfg)
	core.DataPacksBaseURL = cfg.DataPacksBaseURL
	core.MountPolicy = mount.SelectForDaemon(inst.RecognizedDaemon(), cfg.MountProxyEndpoint, cfg.MountRouterBaseURL, cfg.MountQMPAddr, core.Timing.HTTPIdleTimout, core.Timing.QMPTimeout)

	// Primary frontend: every invocation renders through the console.
	con := frontend.NewConsole(dt, os.Stdout, os.Stdin)
	go con.Run(ctx)

	// Secondary frontend transport: in Companion mode a second,
	// possibly-windowed frontend may attach over the local websocket
	// bridge, per spec.md §2's "so one backend can serve multiple
	// frontends".
	if mode == kernel.Companion {
		hub := wsbridge.New(dt)
		go hub.Start(ctx)
		go func() {
			if err := wsbridge.ListenAndServe(wsBridgeAddr, hub); err != nil {
				dt.Log(director.Warn, "Frontend bridge stopped: %v", err)
			}
		}()
	}

	core.EnqueueStartupTasks(companionServiceSpecs(cfg), core.Timing.DockerTimeout)

	// Step 3: parse the subcommand and let it enqueue its own tasks.
	if dispatchErr := registry.Dispatch(ctx, dt, core, cmdName, cmdArgs); !dispatchErr.Ok() {
		errStatus.Set(dispatchErr)
	}

	core.EnqueueShutdownTasks(core.Timing.DockerTimeout)

	drv := kernel.NewDriver(dt, core, errStatus)
	drv.Close() // every task this run will ever enqueue is already queued
	go drv.Run(ctx)

	return <-drv.Finished()
}

// parseGlobalOptions parses argv's leading global options, stopping at
// the first positional argument (the subcommand name).
func parseGlobalOptions(argv []string) (globalOptions, []string, error) {
	var opts globalOptions
	parser := flags.NewParser(&opts, flags.PassAfterNonOption|flags.PassDoubleDash)
	rest, err := parser.ParseArgs(argv)
	if err != nil {
		return opts, nil, err
	}
	return opts, rest, nil
}

func configureVerbosity(d *director.Director, opts globalOptions) {
	switch {
	case opts.Silent:
		d.SetVerbosity(director.Silent)
	case opts.Quiet:
		d.SetVerbosity(director.Quiet)
	default:
		d.SetVerbosity(director.Full)
	}
}

func loadConfig(override string) (*config.Config, error) {
	if override == "" {
		return config.Default(), nil
	}
	if _, err := os.Stat(override); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.Load(override)
}

// acquireSingleInstanceLock resolves the lock's well-known path and
// acquires it, returning a release func deferred by the caller.
func acquireSingleInstanceLock() (func(), error) {
	path, err := singleinstance.DefaultPath("")
	if err != nil {
		return nil, err
	}

	lock, err := singleinstance.Acquire(path)
	if err != nil {
		return nil, err
	}
	return func() { _ = lock.Release() }, nil
}

// openInstall walks up from the running executable's directory looking
// for a recognized Flashpoint layout, per spec.md §4.5 step 2.
func openInstall() (*install.Install, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable path: %w", err)
	}

	root, err := install.Find(filepath.Dir(exe))
	if err != nil {
		return nil, err
	}
	return install.Open(root)
}

// servicesMode decides Standalone vs Companion by probing for an
// already-running standard launcher process. Not directly specified by
// spec.md or the recovered original_source build files; this is this
// module's own resolution of that Open Question (see DESIGN.md).
func servicesMode(ctx context.Context) kernel.ServicesMode {
	running, err := process.IsRunning(ctx, launcherProcessName)
	if err != nil || !running {
		return kernel.Standalone
	}
	return kernel.Companion
}

func timingFromConfig(cfg *config.Config) kernel.Timing {
	return kernel.Timing{
		BiderGrace:   time.Duration(cfg.BiderGrace) * time.Second,
		BiderPoll:   time.Duration(cfg.BiderPoll) * time.Millisecond,
		DockerTimeout: time.Duration(cfg.DockerTimeout) * time.Second,
		HTTPIdleTimout: time.Duration(cfg.HTTPIdleTimout) * time.Second,
		QMPTimeout:   time.Duration(cfg.QMPTimeout) * time.Second,
	}
}

// companionServiceSpecs builds the Standalone-mode docker-backed
// companion service list from config, skipping any service whose image
// was left unconfigured.
func companionServiceSpecs(cfg *config.Config) []dockerwait.ServiceSpec {
	var specs []dockerwait.ServiceSpec
	if cfg.RouterImage != "" {
		specs = append(specs, dockerwait.ServiceSpec{
			Label: "router",
			Image: cfg.RouterImage,
			Ports: nat.PortSet{"22500/tcp": struct{}{}},
		})
	}
	if cfg.DatabaseImage != "" {
		specs = append(specs, dockerwait.ServiceSpec{
			Label: "database",
			Image: cfg.DatabaseImage,
			Ports: nat.PortSet{"5432/tcp": struct{}{}},
		})
	}
	return specs
}

func listenForInterrupt(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	cancel()
}

func printHelp() {
	fmt.Println("clifp [global-opts] <command> [command-opts]")
	fmt.Println()
	fmt.Println("Global options:")
	fmt.Println(" -h, -?, --help   Print this help and exit")
	fmt.Println(" -v, --version   Print version line and exit")
	fmt.Println(" -q, --quiet    Suppress non-critical directives")
	fmt.Println(" -s, --silent    Suppress all directives")
	fmt.Println("   --config PATH Path to CLIFp's own configuration file")
	fmt.Println()
	fmt.Println("Commands: play, download, link, prepare, run, share, show, update")
}
