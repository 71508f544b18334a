package command

import (
	"context"
	cryptorand "crypto/rand"
	"fmt"
	"math/big"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/jessevdk/go-flags"

	"github.com/oblivioncth/clifp/internal/director"
	"github.com/oblivioncth/clifp/internal/install"
	"github.com/oblivioncth/clifp/internal/kernel"
	"github.com/oblivioncth/clifp/internal/kernelerr"
	"github.com/oblivioncth/clifp/internal/task"
)

const errPlayFailed uint32 = kernelerr.CommandBlock + 2

// errInvalidRandomFilter reports an -r value outside {all, game, anim},
// its own distinct code rather than the generic MissingRequiredOption.
const errInvalidRandomFilter uint32 = kernelerr.CommandBlock + 9

// flashpointURLScheme is the scheme a play -u argument is expected to
// carry: flashpoint://<game-id>, per spec.md §8 scenario 1.
const flashpointURLScheme = "flashpoint"

// playOptions is the play subcommand's own flag set, grounded on
// spec.md §6's required-option table: `{-i id | -t/-T title [-s/-S
// sub] | -u url | -r filter}`, one of which must be supplied.
type playOptions struct {
	ID     string `short:"i" long:"id" description:"Play by game ID" validate:"required_without_all=Title StrictTitle URL Random,excluded_with=Title StrictTitle URL Random"`
	Title    string `short:"t" long:"title" description:"Play by title (fuzzy-matched)" validate:"required_without_all=ID StrictTitle URL Random,excluded_with=ID StrictTitle URL Random"`
	StrictTitle string `short:"T" long:"strict-title" description:"Play by exact title only" validate:"required_without_all=ID Title URL Random,excluded_with=ID Title URL Random"`
	Subtitle  string `short:"s" long:"subtitle" description:"Disambiguate by add-app name (fuzzy)"`
	StrictSub  string `short:"S" long:"strict-subtitle" description:"Disambiguate by add-app name (exact)"`
	URL     string `short:"u" long:"url" description:"Play by archive URL" validate:"required_without_all=ID Title StrictTitle Random,excluded_with=ID Title StrictTitle Random"`
	Random   string `short:"r" long:"random" description:"Play a random entry from a library filter (all|game|anim)" validate:"required_without_all=ID Title StrictTitle URL,excluded_with=ID Title StrictTitle URL,omitempty,oneof=all game anim"`

	Fullscreen bool `long:"fullscreen" description:"Accepted but ignored: has no effect on the launch"`
	Ruffle   bool `long:"ruffle" description:"Accepted but ignored: has no effect on the launch"`
	Flash   bool `long:"flash" description:"Accepted but ignored: has no effect on the launch"`
}

type playCommand struct {
	director.Directorate
	playOptions
	helpWanted bool
}

func newPlayCommand(d director.Directorate) Command {
	return &playCommand{Directorate: d}
}

func (c *playCommand) Name() string        { return "play" }
func (c *playCommand) AutoBlockNewInstances() bool { return true }
func (c *playCommand) HelpRequested() bool     { return c.helpWanted }

func (c *playCommand) Parse(args []string) error {
	_, err := flags.ParseArgs(&c.playOptions, args)
	if isHelpErr(err) {
		c.helpWanted = true
		return nil
	}
	return err
}

// Perform resolves a game ID by whichever selector was supplied, fetches
// the game and its active data pack, and enqueues startup, data-pack,
// primary (TTitleExec), and shutdown tasks, per spec.md §4.4's play
// semantics.
func (c *playCommand) Perform(ctx context.Context, core *kernel.Core) kernelerr.Error {
	if err := validateRequiredCoded(c.playOptions, errInvalidRandomFilter); !err.Ok() {
		return err
	}

	gameID, resolveErr := c.resolveGameID(ctx, core)
	if resolveErr != nil {
		return kernelerr.New(errPlayFailed, kernelerr.Critical, "Could not resolve a game to play").WithSpecific(resolveErr.Error())
	}

	game, err := core.Install.GameByID(ctx, gameID)
	if err != nil {
		return kernelerr.New(errPlayFailed, kernelerr.Critical, "Failed to load game record").WithSpecific(err.Error())
	}

	appPath := game.AppPath
	launchArgs := splitLaunchCommand(game.Launch)

	if c.Subtitle != "" || c.StrictSub != "" {
		name := c.Subtitle
		if name == "" {
			name = c.StrictSub
		}
		addApps, aaErr := core.Install.FindAddAppByName(ctx, game.ID, name)
		if aaErr != nil || len(addApps) == 0 {
			return kernelerr.New(errPlayFailed, kernelerr.Critical, "Could not resolve add-app").WithSpecific(name)
		}
		chosen := addApps[0]
		appPath = chosen.AppPath
		launchArgs = splitLaunchCommand(chosen.Launch)
	}

	gd, gdErr := core.Install.ActiveGameData(ctx, game.ID)
	if gdErr != nil {
		return kernelerr.New(errPlayFailed, kernelerr.Error, "Failed to load data-pack record").WithSpecific(gdErr.Error())
	}

	core.Enqueue(task.NewTMessage(core.Directorate, task.StageStartup, fmt.Sprintf("Launching %q", game.Title)))

	if gd != nil {
		core.EnqueuePlayableDataPackTasks(*gd)
	}

	fullPath := core.ResolveFullAppPath(appPath)
	core.Enqueue(task.NewTTitleExec(core.Directorate, fullPath, launchArgs, core.Install.Root, install.ChildTitleEnvironment(), "", 0, 0))
	core.Enqueue(task.NewTMessage(core.Directorate, task.StageShutdown, fmt.Sprintf("Finished playing %q", game.Title)))

	return kernelerr.Nil
}

func (c *playCommand) resolveGameID(ctx context.Context, core *kernel.Core) (uuid.UUID, error) {
	switch {
	case c.ID != "":
		return uuid.Parse(c.ID)
	case c.Title != "" || c.StrictTitle != "":
		title := c.Title
		if title == "" {
			title = c.StrictTitle
		}
		return core.FindGameIDFromTitle(ctx, title, "all")
	case c.URL != "":
		return parseFlashpointURL(c.URL)
	case c.Random != "":
		return c.resolveRandom(ctx, core)
	default:
		return uuid.Nil, fmt.Errorf("no selector supplied")
	}
}

// resolveRandom implements spec.md §4.4's random-selection rule:
// uniform pick among playable rows matching the library filter; if the
// chosen row has playable add-apps, uniform pick among {primary, any
// add-app}.
func (c *playCommand) resolveRandom(ctx context.Context, core *kernel.Core) (uuid.UUID, error) {
	games, err := core.Install.FindGame(ctx, "", c.Random)
	if err != nil {
		return uuid.Nil, err
	}

	var playable []install.Game
	for _, g := range games {
		if g.Playable {
			playable = append(playable, g)
		}
	}
	if len(playable) == 0 {
		return uuid.Nil, fmt.Errorf("no playable games matched filter %q", c.Random)
	}

	idx, err := cryptoRandIndex(len(playable))
	if err != nil {
		return uuid.Nil, err
	}
	chosen := playable[idx]

	addApps, _ := core.Install.AddAppsForGame(ctx, chosen.ID)
	var playableAddApps []install.AddApp
	for _, aa := range addApps {
		if aa.Playable {
			playableAddApps = append(playableAddApps, aa)
		}
	}
	if len(playableAddApps) == 0 {
		return chosen.ID, nil
	}

	total := len(playableAddApps) + 1
	pick, err := cryptoRandIndex(total)
	if err != nil {
		return uuid.Nil, err
	}
	if pick > 0 {
		// An add-app was chosen over the primary application; route
		// Perform's subtitle-resolution path to it by exact name.
		c.StrictSub = playableAddApps[pick-1].Name
	}
	return chosen.ID, nil
}

// parseFlashpointURL resolves a play -u argument of the form
// flashpoint://<game-id> directly to its game ID - the launcher's
// deep-link scheme identifies a game by UUID, not by archive location,
// so no DB round trip is needed beyond the uuid.Parse itself.
func parseFlashpointURL(raw string) (uuid.UUID, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse play URL %q: %w", raw, err)
	}
	if u.Scheme != flashpointURLScheme {
		return uuid.Nil, fmt.Errorf("unrecognized play URL scheme %q", u.Scheme)
	}

	id := u.Host
	if id == "" {
		id = strings.TrimPrefix(u.Opaque, "//")
	}
	if id == "" {
		return uuid.Nil, fmt.Errorf("play URL %q carries no game id", raw)
	}
	return uuid.Parse(id)
}

func cryptoRandIndex(n int) (int, error) {
	v, err := cryptorand.Int(cryptorand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

func splitLaunchCommand(launch string) []string {
	if launch == "" {
		return nil
	}
	return task.SplitLaunchArgs(launch)
}

func isHelpErr(err error) bool {
	if err == nil {
		return false
	}
	flagsErr, ok := err.(*flags.Error)
	return ok && flagsErr.Type == flags.ErrHelp
}
