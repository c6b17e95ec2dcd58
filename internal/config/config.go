// Package config loads the wayclipd daemon configuration: defaults, overlaid
// by the TOML config file, overlaid by WAYCLIP_* environment variables.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Daemon holds the [daemon] section: retention bounds for the store.
type Daemon struct {
	MaxEntries   uint32 `mapstructure:"max_entries"`
	MaxEntrySize uint64 `mapstructure:"max_entry_size"`
	MinEntrySize uint64 `mapstructure:"min_entry_size"`
	MaxAgeDays   uint32 `mapstructure:"max_age_days"`
}

// Clipboard holds the [clipboard] section. Both fields are reserved: the
// daemon accepts and validates them but never consults them.
type Clipboard struct {
	IgnoreMimePatterns []string `mapstructure:"ignore_mime_patterns"`
	IgnoreAppPatterns  []string `mapstructure:"ignore_app_patterns"`
}

// Config is the immutable-after-load daemon configuration.
type Config struct {
	Daemon    Daemon    `mapstructure:"daemon"`
	Clipboard Clipboard `mapstructure:"clipboard"`
}

// Default returns the documented default configuration.
func Default() Config {
	return Config{
		Daemon: Daemon{
			MaxEntries:   1000,
			MaxEntrySize: 10 * 1024 * 1024,
			MinEntrySize: 1,
			MaxAgeDays:   30,
		},
	}
}

// Load reads the config file at path if it exists, overlays WAYCLIP_* env
// vars, and fills in any field left unset with the documented default. A
// missing file is not an error — the defaults, with any env overrides, are
// used. A present-but-malformed file is always an error, since spec requires
// startup to abort on bad TOML.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("toml")

	v.SetEnvPrefix("WAYCLIP")
	v.AutomaticEnv()

	setDefaults(v, cfg)

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("stat config %s: %w", path, err)
	}

	var loaded Config
	if err := v.Unmarshal(&loaded); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	return loaded, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("daemon.max_entries", cfg.Daemon.MaxEntries)
	v.SetDefault("daemon.max_entry_size", cfg.Daemon.MaxEntrySize)
	v.SetDefault("daemon.min_entry_size", cfg.Daemon.MinEntrySize)
	v.SetDefault("daemon.max_age_days", cfg.Daemon.MaxAgeDays)
	v.SetDefault("clipboard.ignore_mime_patterns", cfg.Clipboard.IgnoreMimePatterns)
	v.SetDefault("clipboard.ignore_app_patterns", cfg.Clipboard.IgnoreAppPatterns)
}
