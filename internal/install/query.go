package install

import (
	"context"
	"fmt"
	"sort"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/google/uuid"
)

// Game is the narrow projection of the archive's game table this
// module needs, grounded on the internal/media.Container
// shape (an ID + Title + platform-ish metadata projection, not the
// full entity).
type Game struct {
	ID    uuid.UUID
	Title  string
	Platform string
	Library string // "game" or "animation"
	AppPath string
	Launch  string
	Playable bool
}

// AddApp is the narrow projection of an additional application row
// (an "add-app") belonging to a parent Game.
type AddApp struct {
	ID    uuid.UUID
	ParentID uuid.UUID
	Name   string
	AppPath string
	Launch  string
	Playable bool
}

// GameData is the data-pack record backing spec.md §3's Fingerprints:
// (gameDataId -> sha256, pathOnDisk, mounted?).
type GameData struct {
	ID    uuid.UUID
	GameID  uuid.UUID
	SHA256  string
	Path   string
	Present bool
}

// fuzzyThreshold is the minimum Jaro-Winkler similarity (0..1) a
// near-miss title must clear before it is offered as a candidate in
// the ItemSelection disambiguation prompt, rather than being silently
// dropped.
const fuzzyThreshold = 0.82

// FindGame searches for games by title. An exact (case-insensitive)
// match is always included; when none exists, titles are ranked by
// Jaro-Winkler similarity and any clearing fuzzyThreshold are returned
// as candidates, backing Core's findGameIdFromTitle (spec.md §4.3).
// An empty title returns every game in library, unranked.
func (i *Install) FindGame(ctx context.Context, title string, library string) ([]Game, error) {
	const q = `
		SELECT id, title, platform, library, applicationPath, launchCommand
		FROM game
		WHERE (library = ? OR ? = 'all')
		ORDER BY title`

	var rows []struct {
		ID   string `db:"id"`
		Title  string `db:"title"`
		Platform string `db:"platform"`
		Library string `db:"library"`
		AppPath string `db:"applicationPath"`
		Launch string `db:"launchCommand"`
	}
	if err := i.db.SelectContext(ctx, &rows, q, library, library); err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}

	games := make([]Game, 0, len(rows))
	for _, r := range rows {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			continue
		}
		games = append(games, Game{ID: id, Title: r.Title, Platform: r.Platform, Library: r.Library, AppPath: r.AppPath, Launch: r.Launch, Playable: r.AppPath != ""})
	}

	if title == "" {
		return games, nil
	}
	return rankByTitle(games, title, func(g Game) string { return g.Title }), nil
}

// addAppsForGame returns every add-app row belonging to parent,
// unranked, backing both AddAppsForGame and FindAddAppByName.
func (i *Install) addAppsForGame(ctx context.Context, parent uuid.UUID) ([]AddApp, error) {
	const q = `
		SELECT id, parentGameId, name, applicationPath, launchCommand
		FROM additional_app
		WHERE parentGameId = ?
		ORDER BY name`

	var rows []struct {
		ID   string `db:"id"`
		Parent string `db:"parentGameId"`
		Name  string `db:"name"`
		AppPath string `db:"applicationPath"`
		Launch string `db:"launchCommand"`
	}
	if err := i.db.SelectContext(ctx, &rows, q, parent.String()); err != nil {
		return nil, fmt.Errorf("query add-apps: %w", err)
	}

	apps := make([]AddApp, 0, len(rows))
	for _, r := range rows {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			continue
		}
		apps = append(apps, AddApp{ID: id, ParentID: parent, Name: r.Name, AppPath: r.AppPath, Launch: r.Launch, Playable: r.AppPath != ""})
	}
	return apps, nil
}

// AddAppsForGame returns every add-app belonging to parent, unranked -
// used where every row is wanted (e.g. random add-app selection)
// rather than a name-disambiguated subset.
func (i *Install) AddAppsForGame(ctx context.Context, parent uuid.UUID) ([]AddApp, error) {
	return i.addAppsForGame(ctx, parent)
}

// FindAddAppByName searches for add-apps belonging to parent with a
// fuzzy-ranked name match, backing Core's findAddAppIdFromName.
func (i *Install) FindAddAppByName(ctx context.Context, parent uuid.UUID, name string) ([]AddApp, error) {
	apps, err := i.addAppsForGame(ctx, parent)
	if err != nil {
		return nil, err
	}
	return rankByTitle(apps, name, func(a AddApp) string { return a.Name }), nil
}

// GameByID fetches a single game by its primary key.
func (i *Install) GameByID(ctx context.Context, id uuid.UUID) (*Game, error) {
	const q = `SELECT id, title, platform, library, applicationPath, launchCommand FROM game WHERE id = ?`
	var row struct {
		ID   string `db:"id"`
		Title  string `db:"title"`
		Platform string `db:"platform"`
		Library string `db:"library"`
		AppPath string `db:"applicationPath"`
		Launch string `db:"launchCommand"`
	}
	if err := i.db.GetContext(ctx, &row, q, id.String()); err != nil {
		return nil, fmt.Errorf("query game %s: %w", id, err)
	}
	return &Game{ID: id, Title: row.Title, Platform: row.Platform, Library: row.Library, AppPath: row.AppPath, Launch: row.Launch, Playable: row.AppPath != ""}, nil
}

// ActiveGameData returns the data pack record currently active for a
// game, or nil if the game has none.
func (i *Install) ActiveGameData(ctx context.Context, gameID uuid.UUID) (*GameData, error) {
	const q = `SELECT id, gameId, sha256, path, present FROM game_data WHERE gameId = ? AND active = 1`
	var row struct {
		ID   string `db:"id"`
		GameID string `db:"gameId"`
		SHA256 string `db:"sha256"`
		Path  string `db:"path"`
		Present bool  `db:"present"`
	}
	if err := i.db.GetContext(ctx, &row, q, gameID.String()); err != nil {
		return nil, nil //nolint:nilerr // absence of an active data pack is not an error
	}

	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, fmt.Errorf("parse game_data id: %w", err)
	}
	return &GameData{ID: id, GameID: gameID, SHA256: row.SHA256, Path: row.Path, Present: row.Present}, nil
}

// PlaylistGames returns every game belonging to the named playlist,
// playable or not, in playlist order, used by the `download` command to preload data packs.
func (i *Install) PlaylistGames(ctx context.Context, playlist string) ([]Game, error) {
	const q = `
		SELECT g.id, g.title, g.platform, g.library, g.applicationPath, g.launchCommand
		FROM game g
		JOIN playlist_game pg ON pg.gameId = g.id
		JOIN playlist p ON p.id = pg.playlistId
		WHERE p.title = ?
		ORDER BY pg.order_`

	var rows []struct {
		ID   string `db:"id"`
		Title  string `db:"title"`
		Platform string `db:"platform"`
		Library string `db:"library"`
		AppPath string `db:"applicationPath"`
		Launch string `db:"launchCommand"`
	}
	if err := i.db.SelectContext(ctx, &rows, q, playlist); err != nil {
		return nil, fmt.Errorf("query playlist %q: %w", playlist, err)
	}

	games := make([]Game, 0, len(rows))
	for _, r := range rows {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			continue
		}
		games = append(games, Game{ID: id, Title: r.Title, Platform: r.Platform, Library: r.Library, AppPath: r.AppPath, Launch: r.Launch, Playable: r.AppPath != ""})
	}
	return games, nil
}

// rankByTitle returns the exact (case-insensitive) matches among
// candidates when there are any; otherwise the fuzzy matches above
// fuzzyThreshold in descending similarity order. Non-matching
// candidates are dropped.
func rankByTitle[T any](candidates []T, query string, titleOf func(T) string) []T {
	jw := metrics.NewJaroWinkler()
	type scored struct {
		item T
		score float64
		exact bool
	}

	var ranked []scored
	for _, c := range candidates {
		t := titleOf(c)
		if equalFold(t, query) {
			ranked = append(ranked, scored{item: c, score: 1, exact: true})
			continue
		}
		score := strutil.Similarity(t, query, jw)
		if score >= fuzzyThreshold {
			ranked = append(ranked, scored{item: c, score: score})
		}
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		if ranked[a].exact != ranked[b].exact {
			return ranked[a].exact
		}
		return ranked[a].score > ranked[b].score
	})

	if len(ranked) > 0 && ranked[0].exact {
		n := 0
		for n < len(ranked) && ranked[n].exact {
			n++
		}
		ranked = ranked[:n]
	}

	out := make([]T, len(ranked))
	for idx, s := range ranked {
		out[idx] = s.item
	}
	return out
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
