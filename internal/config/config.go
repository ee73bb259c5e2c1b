package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig
	Catalog  CatalogConfig
	UI       UIConfig
	Examples ExamplesConfig
	Log      LogConfig
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// CatalogConfig points at an optional persona catalog replacing the built-in one.
type CatalogConfig struct {
	Path string
}

// UIConfig holds presentation settings.
type UIConfig struct {
	ShowFinder     bool   `mapstructure:"show_finder"`
	TileWidth      int    `mapstructure:"tile_width"`
	DefaultPersona string `mapstructure:"default_persona"`
}

// ExamplesConfig controls example prompt selection. Seed 0 seeds from the clock.
type ExamplesConfig struct {
	Seed int64
}

// LogConfig holds structured log settings.
type LogConfig struct {
	Path  string
	Level string
}

// Load reads configuration from file and env. Env var overrides use prefix PERSONACHAT_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "personachat", "personachat.db"))
	v.SetDefault("catalog.path", "")
	v.SetDefault("ui.show_finder", true)
	v.SetDefault("ui.tile_width", 18)
	v.SetDefault("ui.default_persona", "Generic")
	v.SetDefault("examples.seed", 0)
	v.SetDefault("log.path", filepath.Join(os.Getenv("HOME"), ".local", "state", "personachat", "personachat.log"))
	v.SetDefault("log.level", "info")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("PERSONACHAT_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "personachat"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("PERSONACHAT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.UI.TileWidth < 8 {
		c.UI.TileWidth = 8
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if needed.
// The TUI calls it when a preference such as the finder toggle changes.
func Save(cfg Config) error {
	path := os.Getenv("PERSONACHAT_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "personachat", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("catalog.path", cfg.Catalog.Path)
	v.Set("ui.show_finder", cfg.UI.ShowFinder)
	v.Set("ui.tile_width", cfg.UI.TileWidth)
	v.Set("ui.default_persona", cfg.UI.DefaultPersona)
	v.Set("examples.seed", cfg.Examples.Seed)
	v.Set("log.path", cfg.Log.Path)
	v.Set("log.level", cfg.Log.Level)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
