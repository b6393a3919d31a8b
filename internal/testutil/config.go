package testutil

import (
	"testing"

	"github.com/spf13/viper"

	"github.com/lepinkainen/gamevault/internal/config"
)

// ConfigState holds the config package globals.
type ConfigState struct {
	UpdateCovers    bool
	RAWGAPIKey      string
	SteamGridAPIKey string
}

// SaveConfigState captures the current config globals.
func SaveConfigState() ConfigState {
	return ConfigState{
		UpdateCovers:    config.UpdateCovers,
		RAWGAPIKey:      config.RAWGAPIKey,
		SteamGridAPIKey: config.SteamGridAPIKey,
	}
}

// RestoreConfigState puts saved globals back.
func RestoreConfigState(state ConfigState) {
	config.UpdateCovers = state.UpdateCovers
	config.RAWGAPIKey = state.RAWGAPIKey
	config.SteamGridAPIKey = state.SteamGridAPIKey
}

// ResetConfig resets viper and restores the config globals when the test
// completes.
func ResetConfig(t *testing.T) {
	t.Helper()

	state := SaveConfigState()
	viper.Reset()

	t.Cleanup(func() {
		RestoreConfigState(state)
		viper.Reset()
	})
}

// SetTestConfigOption adjusts the globals set by SetTestConfig.
type SetTestConfigOption func(*ConfigState)

// WithUpdateCovers sets config.UpdateCovers.
func WithUpdateCovers(v bool) SetTestConfigOption {
	return func(s *ConfigState) { s.UpdateCovers = v }
}

// WithRAWGAPIKey sets the RAWG API key.
func WithRAWGAPIKey(key string) SetTestConfigOption {
	return func(s *ConfigState) { s.RAWGAPIKey = key }
}

// WithSteamGridAPIKey sets the SteamGridDB API key.
func WithSteamGridAPIKey(key string) SetTestConfigOption {
	return func(s *ConfigState) { s.SteamGridAPIKey = key }
}

// SetTestConfig installs test API keys and restores everything afterwards.
func SetTestConfig(t *testing.T, opts ...SetTestConfigOption) {
	t.Helper()
	ResetConfig(t)

	state := ConfigState{
		RAWGAPIKey:      "test-rawg-key",
		SteamGridAPIKey: "test-steamgrid-key",
	}
	for _, opt := range opts {
		opt(&state)
	}
	RestoreConfigState(state)
}

// SetViperValue sets a viper configuration value for the duration of the test.
func SetViperValue(t *testing.T, key string, value any) {
	t.Helper()

	oldValue := viper.Get(key)
	hadValue := viper.IsSet(key)
	viper.Set(key, value)

	t.Cleanup(func() {
		// viper has no unset; a key that was absent keeps the test value
		if hadValue {
			viper.Set(key, oldValue)
		}
	})
}

// SetupTestCache points the response cache at a database inside env.
func SetupTestCache(t *testing.T, env *TestEnv) string {
	t.Helper()

	env.MkdirAll("cache")
	viper.Set("cache.dbfile", env.Path("cache", "test-cache.db"))
	viper.Set("cache.ttl", "24h")
	return env.Path("cache")
}

// SetupLibraryDB points the library at a database inside env.
func SetupLibraryDB(t *testing.T, env *TestEnv) string {
	t.Helper()

	dbPath := env.Path("library.db")
	SetViperValue(t, "library.dbfile", dbPath)
	return dbPath
}
