// Package config loads campusnote settings from file, environment and
// defaults.
//
// Lookup order (later wins): built-in defaults, campusnote.{yaml,toml,json}
// in ~/.config/campusnote or the working directory, CAMPUSNOTE_* environment
// variables (dots become underscores, e.g. CAMPUSNOTE_API_BASE_URL).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CAMPUSNOTE"

// Config is the full application configuration.
type Config struct {
	API       API       `mapstructure:"api"`
	Cache     Cache     `mapstructure:"cache"`
	Files     Files     `mapstructure:"files"`
	Session   Session   `mapstructure:"session"`
	Log       Log       `mapstructure:"log"`
	Daemon    Daemon    `mapstructure:"daemon"`
	Dashboard Dashboard `mapstructure:"dashboard"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

type API struct {
	BaseURL        string        `mapstructure:"base_url"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
}

type Cache struct {
	Path string `mapstructure:"path"`
}

type Files struct {
	Dir string `mapstructure:"dir"`
}

type Session struct {
	Path string `mapstructure:"path"`
}

type Daemon struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

type Dashboard struct {
	Port int `mapstructure:"port"`
}

// Dir returns the default directory for config and data files.
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		return ".campusnote"
	}
	return filepath.Join(base, "campusnote")
}

// SetDefaults registers every key with its default on v. Keys must be
// registered for environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	dir := Dir()
	v.SetDefault("api.base_url", "")
	v.SetDefault("api.connect_timeout", 30*time.Second)
	v.SetDefault("api.read_timeout", 30*time.Second)
	v.SetDefault("cache.path", filepath.Join(dir, "cache.db"))
	v.SetDefault("files.dir", filepath.Join(dir, "files"))
	v.SetDefault("session.path", filepath.Join(dir, "session.toml"))
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", false)
	v.SetDefault("daemon.refresh_interval", 5*time.Minute)
	v.SetDefault("dashboard.port", 8080)
}

// New returns a viper instance wired for campusnote: defaults, search paths
// and environment overrides. file, when set, replaces the search.
func New(file string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("campusnote")
		v.AddConfigPath(Dir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration. A missing config file is not an error
// unless file was given explicitly.
func Load(file string) (*Config, error) {
	return FromViper(New(file))
}

// FromViper reads the config file registered on v (if any) and decodes it.
func FromViper(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	cfg.Cache.Path = expandHome(cfg.Cache.Path)
	cfg.Files.Dir = expandHome(cfg.Files.Dir)
	cfg.Session.Path = expandHome(cfg.Session.Path)
	cfg.Log.File = expandHome(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later in confusing ways.
func (c *Config) Validate() error {
	if c.API.ConnectTimeout <= 0 || c.API.ReadTimeout <= 0 {
		return fmt.Errorf("api timeouts must be positive")
	}
	if c.Daemon.RefreshInterval < time.Second {
		return fmt.Errorf("daemon.refresh_interval must be at least 1s (got %s)", c.Daemon.RefreshInterval)
	}
	if c.Dashboard.Port < 0 || c.Dashboard.Port > 65535 {
		return fmt.Errorf("dashboard.port out of range: %d", c.Dashboard.Port)
	}
	if c.Cache.Path == "" || c.Session.Path == "" || c.Files.Dir == "" {
		return fmt.Errorf("cache.path, session.path and files.dir are required")
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
