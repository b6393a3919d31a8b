package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"

	"github.com/lepinkainen/gamevault/cmd/enrich"
	"github.com/lepinkainen/gamevault/cmd/library"
	"github.com/lepinkainen/gamevault/cmd/resolve"
	"github.com/lepinkainen/gamevault/internal/cache"
	"github.com/lepinkainen/gamevault/internal/cmdutil"
	"github.com/lepinkainen/gamevault/internal/config"
	gverrors "github.com/lepinkainen/gamevault/internal/errors"
)

var (
	runResolve     = resolve.Run
	runEnrich      = enrich.Run
	runLibraryAdd  = library.Add
	runLibraryList = library.List
	runLibraryRm   = library.Remove
	runLibrarySync = library.Sync
	runLibraryImp  = library.Import
	runLibraryExp  = library.Export
)

// CLI represents the complete command structure for the gamevault application
type CLI struct {
	// Global flags
	Verbose      bool `short:"v" help:"Enable debug logging"`
	UpdateCovers bool `help:"Re-download cover images even if they already exist"`

	LibraryDB string `help:"Path to the library SQLite database (default ./gamevault.db)"`

	// Cache flags
	CacheDBFile string `help:"Path to cache SQLite database file (default ./cache.db)"`
	CacheTTL    string `help:"Cache time-to-live duration, e.g. 720h for 30 days"`

	Resolve ResolveCmd `cmd:"" help:"Look up completion times for a single title"`
	Enrich  EnrichCmd  `cmd:"" help:"Fill in completion times for games in the library"`
	Library LibraryCmd `cmd:"" help:"Manage the game library"`
	Cache   CacheCmd   `cmd:"" help:"Manage the response cache"`
}

// ResolveCmd represents the resolve command
type ResolveCmd struct {
	Title       string `arg:"" help:"Game title to look up"`
	Refresh     bool   `help:"Ignore remembered results and query again"`
	Format      string `short:"o" help:"Output format: text, json, yaml" default:"text"`
	MetricsFile string `help:"Write resolver metrics to this file in Prometheus text format"`
}

// EnrichCmd represents the enrich command
type EnrichCmd struct {
	All         bool   `help:"Re-resolve games that already have completion times"`
	Concurrency int    `short:"c" help:"Parallel lookups (0 uses hltb.concurrency)"`
	Status      string `help:"Only enrich games with this status"`
	MetricsFile string `help:"Write resolver metrics to this file in Prometheus text format"`
}

// LibraryCmd groups the library subcommands
type LibraryCmd struct {
	Add    LibraryAddCmd    `cmd:"" help:"Add a game to the library"`
	List   LibraryListCmd   `cmd:"" help:"List games in the library"`
	Remove LibraryRemoveCmd `cmd:"" help:"Remove a game from the library"`
	Sync   LibrarySyncCmd   `cmd:"" help:"Reconcile the library with a shared JSON snapshot"`
	Import LibraryImportCmd `cmd:"" help:"Add games from a CSV file"`
	Export LibraryExportCmd `cmd:"" help:"Write a markdown note per game"`
}

// LibraryAddCmd represents the library add command
type LibraryAddCmd struct {
	Title         string   `arg:"" help:"Game title"`
	Platform      string   `short:"p" help:"Platform the game is played on"`
	Store         string   `help:"Store the game was bought from"`
	Status        string   `short:"s" help:"Status: backlog, playing, finished, dropped" default:"backlog"`
	Tags          []string `short:"t" help:"Tags (defaults to catalog genres)"`
	NoInteractive bool     `help:"Disable interactive TUI for catalog selection (auto-select first result)"`
	NoEnrich      bool     `help:"Do not look up completion times after adding"`
	Cover         bool     `help:"Download the cover image into covers.dir"`
}

// LibraryListCmd represents the library list command
type LibraryListCmd struct {
	Search   string `short:"q" help:"Match title, platform or tag"`
	Platform string `short:"p" help:"Only games on this platform"`
	Status   string `short:"s" help:"Only games with this status"`
	Sort     string `help:"Sort order: newest, name, rating" default:"newest"`
	Format   string `short:"o" help:"Output format: text, json, yaml" default:"text"`
}

// LibraryRemoveCmd represents the library remove command
type LibraryRemoveCmd struct {
	ID string `arg:"" help:"Game id or unique id prefix"`
}

// LibrarySyncCmd represents the library sync command
type LibrarySyncCmd struct {
	Snapshot string `arg:"" help:"Path to the shared JSON snapshot"`
	DryRun   bool   `help:"Show what would be transferred without making changes"`
}

// LibraryImportCmd represents the library import command
type LibraryImportCmd struct {
	Input       string `short:"f" help:"CSV file with a title column and optional platform, store, status, hours_played, rating, tags, notes" required:""`
	NoEnrich    bool   `help:"Do not look up completion times for imported games"`
	Concurrency int    `short:"c" help:"Parallel lookups (0 uses hltb.concurrency)"`
}

// LibraryExportCmd represents the library export command
type LibraryExportCmd struct {
	Output string `short:"o" help:"Directory for the markdown notes (defaults to notes.dir)"`
}

// CacheCmd represents the cache command and its subcommands
type CacheCmd struct {
	Invalidate cache.InvalidateCacheCmd `cmd:"" help:"Clear all cached responses from a source"`
}

// Execute runs the Kong-based CLI
func Execute() {
	// Create CLI instance
	var cli CLI

	// Parse command line with Kong
	kctx := kong.Parse(&cli,
		kong.Name("gamevault"),
		kong.Description("Track a game library and look up how long games take to beat."),
		kong.UsageOnError(),
	)

	initLogging(cli.Verbose)
	initConfig()

	// Update global config based on parsed flags
	updateGlobalConfig(&cli)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	kctx.BindTo(ctx, (*context.Context)(nil))

	// Execute the selected command
	err := kctx.Run()
	if closeErr := cache.ResetGlobalCache(); closeErr != nil {
		slog.Warn("Failed to close cache database", "error", closeErr)
	}
	if err != nil {
		if gverrors.IsStopProcessingError(err) {
			slog.Info("Stopped by user")
			return
		}
		if errors.Is(err, context.Canceled) {
			slog.Warn("Interrupted")
			os.Exit(130)
		}
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func initConfig() {
	config.SetDefaults()

	// Enable environment variable support
	viper.AutomaticEnv()
	// Bind specific environment variables to config keys
	for key, env := range map[string]string{
		"rawg.apikey":      "RAWG_API_KEY",
		"steamgrid.apikey": "STEAMGRID_API_KEY",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			slog.Error("Failed to bind environment variable", "key", key, "error", err)
		}
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			slog.Debug("Config file not found, using defaults and environment")
		} else {
			slog.Error("Fatal error config file", "error", err)
			os.Exit(1)
		}
	}

	// Initialize global config
	config.InitConfig()
}

func updateGlobalConfig(cli *CLI) {
	// Flags only override config values when given
	if cli.UpdateCovers {
		config.SetUpdateCovers(true)
	}

	if cli.LibraryDB != "" {
		viper.Set("library.dbfile", cli.LibraryDB)
	}

	// Update cache config
	if cli.CacheDBFile != "" {
		viper.Set("cache.dbfile", cli.CacheDBFile)
	}
	if cli.CacheTTL != "" {
		viper.Set("cache.ttl", cli.CacheTTL)
	}
}

// Run methods for each command

func (r *ResolveCmd) Run(ctx context.Context) error {
	format, err := cmdutil.ParseFormat(r.Format)
	if err != nil {
		return err
	}
	return runResolve(ctx, resolve.Options{
		Title:       r.Title,
		Refresh:     r.Refresh,
		Format:      format,
		MetricsFile: r.MetricsFile,
	}, os.Stdout)
}

func (e *EnrichCmd) Run(ctx context.Context) error {
	return runEnrich(ctx, enrich.Options{
		All:         e.All,
		Concurrency: e.Concurrency,
		Status:      e.Status,
		MetricsFile: e.MetricsFile,
	}, os.Stdout)
}

func (a *LibraryAddCmd) Run(ctx context.Context) error {
	return runLibraryAdd(ctx, library.AddOptions{
		Title:         a.Title,
		Platform:      a.Platform,
		Store:         a.Store,
		Status:        a.Status,
		Tags:          a.Tags,
		NoInteractive: a.NoInteractive,
		NoEnrich:      a.NoEnrich,
		DownloadCover: a.Cover,
	}, os.Stdout)
}

func (l *LibraryListCmd) Run(ctx context.Context) error {
	format, err := cmdutil.ParseFormat(l.Format)
	if err != nil {
		return err
	}
	return runLibraryList(ctx, library.ListOptions{
		Search:   l.Search,
		Platform: l.Platform,
		Status:   l.Status,
		Sort:     l.Sort,
		Format:   format,
	}, os.Stdout)
}

func (r *LibraryRemoveCmd) Run(ctx context.Context) error {
	return runLibraryRm(ctx, r.ID, os.Stdout)
}

func (s *LibrarySyncCmd) Run(ctx context.Context) error {
	return runLibrarySync(ctx, s.Snapshot, s.DryRun, os.Stdout)
}

func (i *LibraryImportCmd) Run(ctx context.Context) error {
	return runLibraryImp(ctx, library.ImportOptions{
		Input:       i.Input,
		NoEnrich:    i.NoEnrich,
		Concurrency: i.Concurrency,
	}, os.Stdout)
}

func (e *LibraryExportCmd) Run(ctx context.Context) error {
	// Read from config if value not provided via flag
	dir := e.Output
	if dir == "" {
		dir = viper.GetString("notes.dir")
	}
	return runLibraryExp(ctx, dir, os.Stdout)
}

func initLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	// Create a human-readable handler for logging
	handler := humanlog.NewHandler(os.Stdout, &humanlog.Options{
		Level: level,
	})

	// Set the default logger
	slog.SetDefault(slog.New(handler))
}
