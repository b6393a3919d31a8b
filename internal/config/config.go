package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Global configuration variables
var (
	// UpdateCovers controls whether existing cover images are downloaded again
	UpdateCovers bool
	// RAWGAPIKey is the API key for the RAWG game catalog
	RAWGAPIKey string
	// SteamGridAPIKey is the API key for SteamGridDB
	SteamGridAPIKey string
)

// Default values shared by the CLI and tests.
const (
	DefaultLibraryDB      = "./gamevault.db"
	DefaultCacheDB        = "./cache.db"
	DefaultCacheTTL       = "720h"
	DefaultCoversDir      = "./covers"
	DefaultCoverMaxWidth  = 600
	DefaultNotesDir       = "./notes"
	DefaultHLTBConcurrent = 3
)

// SetDefaults registers every default key with viper.
func SetDefaults() {
	viper.SetDefault("library.dbfile", DefaultLibraryDB)

	viper.SetDefault("cache.dbfile", DefaultCacheDB)
	viper.SetDefault("cache.ttl", DefaultCacheTTL)

	viper.SetDefault("hltb.baseurl", "https://howlongtobeat.com")
	viper.SetDefault("hltb.strategies", []string{"api", "api_keyed", "scrape", "search"})
	viper.SetDefault("hltb.engines", []string{"duckduckgo", "bing", "brave"})
	viper.SetDefault("hltb.concurrency", DefaultHLTBConcurrent)
	viper.SetDefault("hltb.rendered.enabled", false)

	viper.SetDefault("covers.dir", DefaultCoversDir)
	viper.SetDefault("covers.maxwidth", DefaultCoverMaxWidth)

	viper.SetDefault("notes.dir", DefaultNotesDir)
}

// InitConfig initializes the global configuration
func InitConfig() {
	SetDefaults()

	UpdateCovers = viper.GetBool("covers.update")
	RAWGAPIKey = viper.GetString("rawg.apikey")
	SteamGridAPIKey = viper.GetString("steamgrid.apikey")
}

// SetUpdateCovers sets the UpdateCovers flag
func SetUpdateCovers(update bool) {
	UpdateCovers = update
}

// StringList reads a list key that may be given as a YAML list or a
// comma-separated string (environment variables).
func StringList(key string) []string {
	var out []string
	for _, v := range viper.GetStringSlice(key) {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, strings.ToLower(part))
			}
		}
	}
	return out
}

// Durations reads a map of durations under key, skipping unparseable values.
func Durations(key string) map[string]time.Duration {
	out := make(map[string]time.Duration)
	for name, raw := range viper.GetStringMapString(key) {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			continue
		}
		out[strings.ToLower(name)] = d
	}
	return out
}

// CacheTTL returns the configured cache TTL, falling back to the default.
func CacheTTL() time.Duration {
	d, err := time.ParseDuration(viper.GetString("cache.ttl"))
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultCacheTTL)
	}
	return d
}
