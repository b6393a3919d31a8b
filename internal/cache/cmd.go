package cache

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// Sources maps the user-facing source names to cache tables.
var Sources = map[string]string{
	"rawg":      RAWGTable,
	"steamgrid": SteamGridTable,
}

// InvalidateCacheCmd represents the cache invalidate subcommand
type InvalidateCacheCmd struct {
	Source string `arg:"" help:"Cache source to invalidate: rawg, steamgrid" required:""`
}

func (i *InvalidateCacheCmd) Run() error {
	cacheDB := viper.GetString("cache.dbfile")

	tableName, ok := Sources[strings.ToLower(i.Source)]
	if !ok {
		names := make([]string, 0, len(Sources))
		for name := range Sources {
			names = append(names, name)
		}
		slices.Sort(names)
		return fmt.Errorf("invalid cache source '%s'; valid sources are: %s", i.Source, strings.Join(names, ", "))
	}

	slog.Info("Invalidating cache", "source", i.Source, "database", cacheDB)

	cacheInstance, err := GetGlobalCache()
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}

	rowsDeleted, err := cacheInstance.InvalidateSource(tableName)
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}

	slog.Info("Cache invalidated", "source", i.Source, "rows_deleted", rowsDeleted)
	return nil
}
