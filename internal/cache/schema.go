package cache

// SQL schemas for cache tables.
// Every table uses cache_key as its primary key; expires_at is set per row so
// negative entries can live shorter than positive ones.

// RAWGCacheSchema stores RAWG catalog searches and game details
const RAWGCacheSchema = `
CREATE TABLE IF NOT EXISTS rawg_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rawg_expires_at ON rawg_cache(expires_at);
`

// SteamGridCacheSchema stores SteamGridDB game searches and grid listings
const SteamGridCacheSchema = `
CREATE TABLE IF NOT EXISTS steamgrid_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_steamgrid_expires_at ON steamgrid_cache(expires_at);
`

// AllCacheSchemas contains all cache table schemas for easy initialization
var AllCacheSchemas = []string{
	RAWGCacheSchema,
	SteamGridCacheSchema,
}

// Cache table names.
const (
	RAWGTable      = "rawg_cache"
	SteamGridTable = "steamgrid_cache"
)

// ValidCacheTableNames is the whitelist of allowed cache table names
// Used to prevent SQL injection when interpolating table names
var ValidCacheTableNames = map[string]bool{
	RAWGTable:      true,
	SteamGridTable: true,
}
