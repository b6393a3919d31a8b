package library

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"

	"github.com/lepinkainen/gamevault/internal/cmdutil"
	"github.com/lepinkainen/gamevault/internal/config"
	gverrors "github.com/lepinkainen/gamevault/internal/errors"
	"github.com/lepinkainen/gamevault/internal/fileutil"
	"github.com/lepinkainen/gamevault/internal/hltb"
	"github.com/lepinkainen/gamevault/internal/library"
	"github.com/lepinkainen/gamevault/internal/rawg"
	"github.com/lepinkainen/gamevault/internal/steamgrid"
	"github.com/lepinkainen/gamevault/internal/tui"
)

// Catalog finds catalog entries for the add flow.
type Catalog interface {
	CachedSearch(ctx context.Context, query string) ([]rawg.Game, bool, error)
	CachedDetails(ctx context.Context, id int) (*rawg.Game, bool, error)
}

// CoverFinder finds portrait cover art for a title.
type CoverFinder interface {
	CoverURL(ctx context.Context, title string) string
}

var (
	newCatalog = func() Catalog {
		if config.RAWGAPIKey == "" {
			return nil
		}
		return rawg.NewClient(config.RAWGAPIKey)
	}
	newCoverFinder = func() CoverFinder {
		if config.SteamGridAPIKey == "" {
			return nil
		}
		return steamgrid.NewClient(config.SteamGridAPIKey)
	}
	newResolver = func() library.Resolver {
		return hltb.NewClientFromConfig(prometheus.NewRegistry())
	}
	selectGame    = tui.SelectGame
	downloadCover = fileutil.DownloadCover
)

// AddOptions describes a game to add.
type AddOptions struct {
	Title         string
	Platform      string
	Store         string
	Status        string
	Tags          []string
	NoInteractive bool
	NoEnrich      bool
	// DownloadCover stores the cover locally under covers.dir
	DownloadCover bool
}

// Add stores a new game, filling catalog data when a catalog key is
// configured, and then enriches it with completion times. Catalog, cover and
// enrichment problems are logged; only storing the game can fail the command.
func Add(ctx context.Context, opts AddOptions, w io.Writer) error {
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		return fmt.Errorf("a game title is required")
	}
	status, err := library.ParseStatus(opts.Status)
	if err != nil {
		return err
	}

	game := &library.Game{
		Title:    title,
		Platform: opts.Platform,
		Store:    opts.Store,
		Status:   status,
		Tags:     opts.Tags,
	}

	if catalog := newCatalog(); catalog != nil {
		if err := fillFromCatalog(ctx, catalog, game, opts.NoInteractive); err != nil {
			if gverrors.IsStopProcessingError(err) {
				return err
			}
			slog.Warn("Catalog lookup failed, adding without catalog data", "title", title, "error", err)
		}
	}

	if finder := newCoverFinder(); finder != nil {
		// SteamGridDB covers win over the catalog background.
		if cover := finder.CoverURL(ctx, game.Title); cover != "" {
			game.Cover = cover
		}
	}

	if opts.DownloadCover && game.Cover != "" {
		storeCoverLocally(ctx, game)
	}

	store, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Add(ctx, game); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Added %s (%s)\n", game.Title, game.ID); err != nil {
		return err
	}

	if opts.NoEnrich {
		return nil
	}

	enricher := library.NewEnricher(ctx, newResolver(), store, 1)
	enricher.Enqueue(*game)
	stats := enricher.Wait()

	if stats.Enriched > 0 {
		if enriched, err := store.Get(ctx, game.ID); err == nil {
			_, err = fmt.Fprintf(w, "Main story %s, main + extras %s, completionist %s\n",
				cmdutil.Hours(enriched.MainStory), cmdutil.Hours(enriched.MainExtra), cmdutil.Hours(enriched.Completionist))
			return err
		}
	}
	return nil
}

func fillFromCatalog(ctx context.Context, catalog Catalog, game *library.Game, noInteractive bool) error {
	candidates, _, err := catalog.CachedSearch(ctx, game.Title)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		slog.Info("No catalog match", "title", game.Title)
		return nil
	}

	chosen := &candidates[0]
	if !noInteractive && len(candidates) > 1 {
		result, err := selectGame(game.Title, candidates)
		if err != nil {
			return fmt.Errorf("catalog selection: %w", err)
		}
		switch result.Action {
		case tui.ActionStopped:
			return gverrors.NewStopProcessingError("user stopped at catalog selection")
		case tui.ActionSelected:
			chosen = result.Selection
		default:
			slog.Info("Catalog selection skipped", "title", game.Title)
			return nil
		}
	}

	details, _, err := catalog.CachedDetails(ctx, chosen.ID)
	if err != nil {
		slog.Warn("Catalog details unavailable, using search data", "id", chosen.ID, "error", err)
		details = chosen
	}
	applyCatalog(game, *chosen, details)
	return nil
}

func applyCatalog(game *library.Game, summary rawg.Game, details *rawg.Game) {
	game.Title = summary.Name
	game.RawgID = summary.ID
	game.ReleaseYear = summary.ReleaseYear()
	game.Cover = summary.BackgroundImage

	if game.Platform == "" {
		if platforms := summary.PlatformNames(); len(platforms) > 0 {
			game.Platform = platforms[0]
		}
	}
	if len(game.Tags) == 0 {
		game.Tags = summary.GenreNames()
	}

	game.Description = details.DescriptionRaw
	game.Metacritic = details.Metacritic
	game.RawgPlaytime = details.Playtime
}

func storeCoverLocally(ctx context.Context, game *library.Game) {
	result, err := downloadCover(ctx, fileutil.CoverDownloadOptions{
		URL:          game.Cover,
		OutputDir:    viper.GetString("covers.dir"),
		Filename:     fileutil.BuildCoverFilename(game.Title),
		MaxWidth:     viper.GetInt("covers.maxwidth"),
		UpdateCovers: config.UpdateCovers,
	})
	if err != nil {
		slog.Warn("Cover download failed, keeping remote URL", "title", game.Title, "error", err)
		return
	}
	if result != nil {
		game.Cover = result.LocalPath
	}
}
